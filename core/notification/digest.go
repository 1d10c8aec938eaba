package notification

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
)

// UnknownTask describes codes missing from the dictionary.
const UnknownTask = "Unknown task"

const digestTemplate = "daily_digest"

type (
	DigestItem struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	}

	// Digest is the notification payload of one day, not yet delivered.
	Digest struct {
		Date   time.Time    `json:"date"`
		Method string       `json:"method"`
		Items  []DigestItem `json:"items"`
		// Tasks holds the descriptions of the originating tasks.
		Tasks []string `json:"tasks"`
	}
)

// Compose builds the digest of result's tasks. ok is false when there is nothing to send.
// Items follow the first appearance of each code in task order.
func Compose(result calendar.TaskResult, date time.Time) (Digest, bool) {
	codes := result.Codes()
	if len(codes) == 0 {
		return Digest{}, false
	}

	items := make([]DigestItem, 0, len(codes))
	for _, code := range codes {
		desc, ok := calendar.Describe(code)
		if !ok {
			desc = UnknownTask
		}
		items = append(items, DigestItem{Code: code, Description: desc})
	}

	tasks := make([]string, 0, len(result.Tasks))
	for _, task := range result.Tasks {
		if task.Description != "" {
			tasks = append(tasks, task.Description)
		}
	}

	return Digest{
		Date:   calendar.StartOfDay(date),
		Method: result.Method,
		Items:  items,
		Tasks:  tasks,
	}, true
}

func (d Digest) Subject() string {
	return fmt.Sprintf("Daily tasks - %s", d.Date.Format("Mon 02 Jan 2006"))
}

func (d Digest) Message(to []mail.Address) *core.EmailMessage {
	return &core.EmailMessage{
		To:           to,
		Subject:      d.Subject(),
		TemplateName: digestTemplate,
		TemplateData: d,
	}
}
