package notification_test

import (
	"context"
	"errors"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/notification"
	inmemdb "github.com/trezcool/ratiba/storage/database/inmem"
	testutil "github.com/trezcool/ratiba/tests"
)

var (
	eat        = time.FixedZone("EAT", 3*60*60)
	recipients = []mail.Address{{Name: "Office", Address: "office@school.test"}}
)

type mailStub struct {
	mu        sync.Mutex
	sent      []*core.EmailMessage
	sendErr   error
	verifyErr error
}

func (m *mailStub) Send(msg *core.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mailStub) Verify() error { return m.verifyErr }

func (m *mailStub) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func newCalendarService(t *testing.T) *calendar.Service {
	db := inmemdb.Open()
	return calendar.NewService(
		inmemdb.NewEntryRepository(db),
		inmemdb.NewTaskRepository(db),
		inmemdb.NewLegendRepository(db),
		eat,
		testutil.NewLogger(),
	)
}

func TestPreview(t *testing.T) {
	calSvc := newCalendarService(t)
	testutil.CreateEntry(t, calSvc, "1-Jun", testutil.IntPtr(2024), []string{"A, TB", "", "", ""})
	svc := notification.NewService(calSvc, &mailStub{}, recipients, eat, testutil.NewLogger())
	ctx := context.Background()

	// 02:00 on June 1 in Nairobi, still May 31 in UTC
	report, err := svc.Preview(ctx, time.Date(2024, time.May, 31, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, report.HasTasks)
	assert.Equal(t, calendar.MethodEnhanced, report.Method)
	require.NotNil(t, report.Digest)
	assert.Len(t, report.Digest.Items, 2)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, eat), report.Date)

	report, err = svc.Preview(ctx, time.Date(2024, time.June, 2, 8, 0, 0, 0, eat))
	require.NoError(t, err)
	assert.False(t, report.HasTasks)
	assert.Nil(t, report.Digest)
}

func TestSend(t *testing.T) {
	calSvc := newCalendarService(t)
	testutil.CreateEntry(t, calSvc, "1-Jun", testutil.IntPtr(2024), []string{"A", "", "", ""})
	ctx := context.Background()
	taskDay := time.Date(2024, time.June, 1, 6, 0, 0, 0, eat)
	emptyDay := time.Date(2024, time.June, 2, 6, 0, 0, 0, eat)

	t.Run("delivered", func(t *testing.T) {
		stub := &mailStub{}
		svc := notification.NewService(calSvc, stub, recipients, eat, testutil.NewLogger())

		res, err := svc.Send(ctx, taskDay)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.False(t, res.Skipped)
		assert.Empty(t, res.Error)
		assert.Equal(t, []string{recipients[0].String()}, res.Recipients)
		require.Equal(t, 1, stub.count())
		assert.Equal(t, recipients, stub.sent[0].To)
	})

	t.Run("nothing to send", func(t *testing.T) {
		stub := &mailStub{}
		svc := notification.NewService(calSvc, stub, recipients, eat, testutil.NewLogger())

		res, err := svc.Send(ctx, emptyDay)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.True(t, res.Skipped)
		assert.Nil(t, res.Digest)
		assert.Zero(t, stub.count())
	})

	t.Run("delivery failure is reported", func(t *testing.T) {
		stub := &mailStub{sendErr: errors.New("smtp down")}
		svc := notification.NewService(calSvc, stub, recipients, eat, testutil.NewLogger())

		res, err := svc.Send(ctx, taskDay)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "smtp down", res.Error)
		require.NotNil(t, res.Digest)
		assert.Equal(t, "A", res.Digest.Items[0].Code)
	})

	t.Run("no recipients", func(t *testing.T) {
		stub := &mailStub{}
		svc := notification.NewService(calSvc, stub, nil, eat, testutil.NewLogger())

		res, err := svc.Send(ctx, taskDay)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, notification.ErrNoRecipients.Error(), res.Error)
		assert.Zero(t, stub.count())
	})
}

func TestVerify(t *testing.T) {
	calSvc := newCalendarService(t)

	tests := []struct {
		name        string
		stub        *mailStub
		recipients  []mail.Address
		wantSuccess bool
		wantErr     string
	}{
		{name: "configured", stub: &mailStub{}, recipients: recipients, wantSuccess: true},
		{name: "no recipients", stub: &mailStub{}, wantErr: notification.ErrNoRecipients.Error()},
		{name: "unreachable", stub: &mailStub{verifyErr: errors.New("bad key")}, recipients: recipients, wantErr: "bad key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := notification.NewService(calSvc, tt.stub, tt.recipients, eat, testutil.NewLogger())
			res := svc.Verify()
			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.Equal(t, tt.wantErr, res.Error)
			assert.Zero(t, tt.stub.count())
		})
	}
}
