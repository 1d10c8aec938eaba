package notification

import (
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/calendar"
)

func TestCompose(t *testing.T) {
	date := time.Date(2024, time.June, 3, 6, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		result    calendar.TaskResult
		wantOk    bool
		wantItems []DigestItem
		wantTasks []string
	}{
		{name: "no tasks", result: calendar.TaskResult{Method: calendar.MethodEnhanced}},
		{
			name:   "tasks without codes",
			result: calendar.TaskResult{Tasks: []calendar.EmailTask{{Description: "nothing"}}},
		},
		{
			name: "codes in first-seen order",
			result: calendar.TaskResult{
				Method: calendar.MethodEnhanced,
				Tasks: []calendar.EmailTask{
					{Codes: []string{"TB", "A"}, Description: "Monday - Week 1: TB A"},
					{Codes: []string{"A", "ZZ"}, Description: "Monday - Week 2: A zz"},
				},
			},
			wantOk: true,
			wantItems: []DigestItem{
				{Code: "TB", Description: calendar.Dictionary["TB"]},
				{Code: "A", Description: calendar.Dictionary["A"]},
				{Code: "ZZ", Description: UnknownTask},
			},
			wantTasks: []string{"Monday - Week 1: TB A", "Monday - Week 2: A zz"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest, ok := Compose(tt.result, date)
			assert.Equal(t, tt.wantOk, ok)
			if !tt.wantOk {
				return
			}
			assert.Equal(t, tt.wantItems, digest.Items)
			assert.Equal(t, tt.wantTasks, digest.Tasks)
			assert.Equal(t, tt.result.Method, digest.Method)
			assert.Equal(t, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), digest.Date)
		})
	}
}

func TestDigestMessage(t *testing.T) {
	digest, ok := Compose(calendar.TaskResult{Tasks: []calendar.EmailTask{
		{Codes: []string{"A"}, Description: "Monday - Week 1: A"},
	}}, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)

	to := []mail.Address{{Name: "Office", Address: "office@school.test"}}
	msg := digest.Message(to)
	assert.Equal(t, to, msg.To)
	assert.Equal(t, "Daily tasks - Mon 03 Jun 2024", msg.Subject)

	require.NoError(t, msg.Render("Ratiba"))
	assert.True(t, strings.Contains(msg.TextContent, "Monday, 03 June 2024"), msg.TextContent)
	assert.Contains(t, msg.TextContent, "A - "+calendar.Dictionary["A"])
	assert.Contains(t, msg.TextContent, "Monday - Week 1: A")
	assert.Contains(t, msg.TextContent, "Ratiba")
	assert.Contains(t, msg.HTMLContent, "<strong>A</strong>")
}
