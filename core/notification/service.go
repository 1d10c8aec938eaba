package notification

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
)

var (
	NowFunc = time.Now // mockable

	ErrNoRecipients = errors.New("no notification recipients configured")
)

type (
	// TaskSource answers which tasks fall on a given day.
	TaskSource interface {
		TasksOnDate(ctx context.Context, date time.Time) (calendar.TaskResult, error)
	}

	// Report is the digest computed for a day, without delivery.
	Report struct {
		Date     time.Time `json:"date"`
		Method   string    `json:"method"`
		HasTasks bool      `json:"hasTasks"`
		Digest   *Digest   `json:"digest,omitempty"`
	}

	// DeliveryResult reports a delivery attempt. Delivery failures land in Error, never in the returned error.
	DeliveryResult struct {
		Success    bool      `json:"success"`
		Skipped    bool      `json:"skipped"`
		Message    string    `json:"message"`
		Error      string    `json:"error,omitempty"`
		Date       time.Time `json:"date"`
		Method     string    `json:"method"`
		Recipients []string  `json:"recipients,omitempty"`
		Digest     *Digest   `json:"digest,omitempty"`
	}

	// VerifyResult reports whether the delivery collaborator is usable.
	VerifyResult struct {
		Success    bool     `json:"success"`
		Message    string   `json:"message"`
		Error      string   `json:"error,omitempty"`
		Recipients []string `json:"recipients"`
	}
)

type Service struct {
	tasks      TaskSource
	mailSvc    core.EmailService
	recipients []mail.Address
	loc        *time.Location
	log        core.Logger
}

func NewService(tasks TaskSource, mailSvc core.EmailService, recipients []mail.Address, loc *time.Location, logger core.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		tasks:      tasks,
		mailSvc:    mailSvc,
		recipients: recipients,
		loc:        loc,
		log:        logger,
	}
}

func (svc *Service) Location() *time.Location { return svc.loc }

// Today is now's calendar day in the notification time zone.
func (svc *Service) Today() time.Time {
	return calendar.StartOfDay(NowFunc().In(svc.loc))
}

// Preview computes the digest of date's day without sending it.
func (svc *Service) Preview(ctx context.Context, date time.Time) (Report, error) {
	date = date.In(svc.loc)
	result, err := svc.tasks.TasksOnDate(ctx, date)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying tasks of the day")
	}

	report := Report{Date: calendar.StartOfDay(date), Method: result.Method}
	if digest, ok := Compose(result, date); ok {
		report.HasTasks = true
		report.Digest = &digest
	}
	return report, nil
}

// Send computes the digest of date's day and delivers it, unless there is nothing to send.
func (svc *Service) Send(ctx context.Context, date time.Time) (DeliveryResult, error) {
	report, err := svc.Preview(ctx, date)
	if err != nil {
		return DeliveryResult{}, err
	}

	res := DeliveryResult{
		Date:       report.Date,
		Method:     report.Method,
		Recipients: addresses(svc.recipients),
		Digest:     report.Digest,
	}
	if !report.HasTasks {
		res.Success = true
		res.Skipped = true
		res.Message = "no tasks for " + report.Date.Format("2006-01-02") + ", nothing sent"
		return res, nil
	}
	if len(svc.recipients) == 0 {
		res.Error = ErrNoRecipients.Error()
		res.Message = "daily notification not sent"
		svc.log.Warn("daily notification not sent", "error", ErrNoRecipients)
		return res, nil
	}

	if err := svc.mailSvc.Send(report.Digest.Message(svc.recipients)); err != nil {
		res.Error = err.Error()
		res.Message = "daily notification not sent"
		svc.log.Error("delivering daily notification", err)
		return res, nil
	}

	res.Success = true
	res.Message = "daily notification sent"
	svc.log.Info("daily notification sent", "date", res.Date.Format("2006-01-02"), "codes", len(report.Digest.Items))
	return res, nil
}

// Verify checks the delivery collaborator and the recipients without sending anything.
func (svc *Service) Verify() VerifyResult {
	res := VerifyResult{Recipients: addresses(svc.recipients)}
	if len(svc.recipients) == 0 {
		res.Error = ErrNoRecipients.Error()
		res.Message = "email delivery is not configured"
		return res
	}
	if err := svc.mailSvc.Verify(); err != nil {
		res.Error = err.Error()
		res.Message = "email delivery is not reachable"
		return res
	}
	res.Success = true
	res.Message = "email delivery is configured"
	return res
}

func addresses(addrs []mail.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}
