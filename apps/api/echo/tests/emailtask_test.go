package tests

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/tests"
)

func Test_emailTaskApi(t *testing.T) {
	e := setup(t)
	entry := testutil.CreateEntry(t, e.calSvc, "1-Jun", testutil.IntPtr(2024),
		[]string{"A, TB", "", "", ""},
		[]string{"", "B1", "", ""},
	)

	tests := []httpTest{
		{
			name: "query: invalid date", path: "/v1/email-tasks?date=01/06/2024", token: e.token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"date":"date must be formatted as YYYY-MM-DD"}`),
		},
		{
			name: "create: missing fields", method: http.MethodPost, path: "/v1/email-tasks", token: e.token,
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"date":"this field is required","codes":"this field is required"}`),
		},
		{
			name: "create: invalid code", method: http.MethodPost, path: "/v1/email-tasks", token: e.token,
			body:     []byte(`{"date":"2024-06-05","codes":["1A"]}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "create: unknown entry", method: http.MethodPost, path: "/v1/email-tasks", token: e.token,
			body:     []byte(`{"calendarEntryId":"unknown","date":"2024-06-05","codes":["A"]}`),
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "calendar entry not found"}),
		},
		{
			name: "destroy: missing id", method: http.MethodDelete, path: "/v1/email-tasks", token: e.token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"id":"task id is required"}`),
		},
		{
			name: "destroy: unknown", method: http.MethodDelete, path: "/v1/email-tasks?id=unknown", token: e.token,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "email task not found"}),
		},
		{
			name: "retrieve: unknown", path: "/v1/email-tasks/unknown", token: e.token,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "email task not found"}),
		},
	}
	runHTTPTests(t, e.app, tests)

	t.Run("query by date", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/email-tasks?date=2024-06-09")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res calendar.TaskResult
		unmarshall(t, rec, &res)
		assert.Equal(t, calendar.MethodEnhanced, res.Method)
		if assert.Len(t, res.Tasks, 1) {
			assert.Equal(t, []string{"B1"}, res.Tasks[0].Codes)
			assert.Equal(t, entry.ID, *res.Tasks[0].CalendarEntryID)
			assert.Equal(t, "Week 2", res.Tasks[0].WeekContext)
			assert.Equal(t, "Monday", res.Tasks[0].DayContext)
		}
	})

	t.Run("query upcoming", func(t *testing.T) {
		// now is May 30: only June 1 falls within the next 7 days
		rec := e.do(http.MethodGet, "/v1/email-tasks?upcoming=true")
		require.Equal(t, http.StatusOK, rec.Code)

		var res calendar.TaskResult
		unmarshall(t, rec, &res)
		if assert.Len(t, res.Tasks, 1) {
			assert.Equal(t, []string{"A", "TB"}, res.Tasks[0].Codes)
		}
	})

	t.Run("query empty day", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/email-tasks?date=2024-07-01")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"tasks":[]`)
	})

	t.Run("create, retrieve & destroy", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/email-tasks", []byte(`{"date":"2024-06-05","codes":["a","z1","a"]}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var task calendar.EmailTask
		unmarshall(t, rec, &task)
		assert.NotEmpty(t, task.ID)
		assert.Nil(t, task.CalendarEntryID)
		assert.Equal(t, []string{"A", "Z1"}, task.Codes)
		assert.Equal(t, "A, Z1", task.Description)
		assert.True(t, time.Date(2024, time.June, 5, 0, 0, 0, 0, eat).Equal(task.Date))

		rec = e.do(http.MethodGet, "/v1/email-tasks/"+task.ID)
		assert.Equal(t, http.StatusOK, rec.Code)

		var legend []calendar.LegendEntry
		unmarshall(t, e.do(http.MethodGet, "/v1/legend"), &legend)
		usage := make(map[string]int)
		for _, l := range legend {
			usage[l.Abbreviation] = l.UsageCount
		}
		assert.Equal(t, 2, usage["A"])
		assert.Equal(t, 1, usage["Z1"])

		rec = e.do(http.MethodDelete, "/v1/email-tasks?id="+task.ID)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = e.do(http.MethodGet, "/v1/email-tasks/"+task.ID)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("ics feed", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/email-tasks/feed.ics?upcoming=true")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")

		cal, err := ical.ParseCalendar(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		events := cal.Events()
		if assert.Len(t, events, 1) {
			assert.Equal(t, "A, TB", events[0].GetProperty(ical.ComponentPropertySummary).Value)
		}
	})
}
