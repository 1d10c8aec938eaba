package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core/notification"
	"github.com/trezcool/ratiba/services/email"
	"github.com/trezcool/ratiba/tests"
)

func Test_notificationApi(t *testing.T) {
	e := setup(t)
	testutil.CreateEntry(t, e.calSvc, "1-Jun", testutil.IntPtr(2024), []string{"A, TB", "", "", ""})

	t.Run("verify", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/daily-notifications?test=true")
		require.Equal(t, http.StatusOK, rec.Code)

		var res notification.VerifyResult
		unmarshall(t, rec, &res)
		assert.True(t, res.Success)
		assert.Equal(t, []string{`"Office" <office@school.test>`}, res.Recipients)
		assert.Empty(t, emailsvc.SentMessages)
	})

	t.Run("preview today", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/daily-notifications")
		require.Equal(t, http.StatusOK, rec.Code)

		var report notification.Report
		unmarshall(t, rec, &report)
		assert.False(t, report.HasTasks)
		assert.Nil(t, report.Digest)
	})

	t.Run("preview date", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/daily-notifications?date=2024-06-01")
		require.Equal(t, http.StatusOK, rec.Code)

		var report notification.Report
		unmarshall(t, rec, &report)
		assert.True(t, report.HasTasks)
		require.NotNil(t, report.Digest)
		assert.Len(t, report.Digest.Items, 2)
		assert.Empty(t, emailsvc.SentMessages)
	})

	t.Run("send skips empty day", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/daily-notifications")
		require.Equal(t, http.StatusOK, rec.Code)

		var res notification.DeliveryResult
		unmarshall(t, rec, &res)
		assert.True(t, res.Success)
		assert.True(t, res.Skipped)
		assert.Empty(t, emailsvc.SentMessages)
	})

	t.Run("send", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/daily-notifications?date=2024-06-01")
		require.Equal(t, http.StatusOK, rec.Code)

		var res notification.DeliveryResult
		unmarshall(t, rec, &res)
		assert.True(t, res.Success, res.Error)
		assert.False(t, res.Skipped)
		if assert.Len(t, emailsvc.SentMessages, 1) {
			assert.Contains(t, emailsvc.SentMessages[0].Subject, "Daily tasks - Sat 01 Jun 2024")
		}
	})
}

func Test_schedulerApi(t *testing.T) {
	e := setup(t)

	var st notification.Status
	unmarshall(t, e.do(http.MethodGet, "/v1/scheduler"), &st)
	assert.False(t, st.Running)
	assert.Nil(t, st.NextRun)
	assert.Equal(t, "EAT", st.Timezone)

	for i, wantChanged := range []bool{true, false} {
		rec := e.do(http.MethodPost, "/v1/scheduler/start")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SchedulerResponse
		unmarshall(t, rec, &resp)
		assert.Equalf(t, wantChanged, resp.Changed, "start #%d", i+1)
		assert.True(t, resp.Status.Running)
		require.NotNil(t, resp.Status.NextRun)
	}
	assert.Equal(t, 1, e.schedule.Entries())

	rec := e.do(http.MethodPost, "/v1/scheduler/stop")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SchedulerResponse
	unmarshall(t, rec, &resp)
	assert.True(t, resp.Changed)
	assert.False(t, resp.Status.Running)
}
