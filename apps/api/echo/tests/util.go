package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/notification"
	"github.com/trezcool/ratiba/services/email"
	"github.com/trezcool/ratiba/storage/database/sqlx"
	"github.com/trezcool/ratiba/tests"
)

var (
	eat = time.FixedZone("EAT", 3*60*60)
	now = time.Date(2024, time.May, 30, 9, 0, 0, 0, time.UTC)

	ctxb = context.Background()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

type env struct {
	app      Server
	conf     *core.Config
	calSvc   *calendar.Service
	schedule *notification.Scheduler
	token    string
}

func setup(t *testing.T) *env {
	calendar.NowFunc = func() time.Time { return now }
	notification.NowFunc = func() time.Time { return now }
	t.Cleanup(func() {
		calendar.NowFunc = time.Now
		notification.NowFunc = time.Now
		emailsvc.ResetSentMessages()
	})

	conf := testutil.NewConfig()
	conf.Debug = false
	conf.Admin.Username = "admin"
	conf.Admin.Password = "s3cr3t-pass"
	conf.Notification.Recipients = "Office <office@school.test>"
	logger := testutil.NewLogger()

	// set up DB & repos
	db := testutil.PrepareDB(t)
	calSvc := calendar.NewService(
		sqlxrepos.NewEntryRepository(db),
		sqlxrepos.NewTaskRepository(db),
		sqlxrepos.NewLegendRepository(db),
		eat,
		logger,
	)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	recipients, err := conf.NotificationRecipients()
	if err != nil {
		t.Fatalf("NotificationRecipients() failed: %v", err)
	}
	notifSvc := notification.NewService(calSvc, mailSvc, recipients, eat, logger)
	scheduler, err := notification.NewScheduler(notifSvc, "0 6 * * *", eat, logger)
	if err != nil {
		t.Fatalf("NewScheduler() failed: %v", err)
	}
	t.Cleanup(func() { <-scheduler.Stop().Done() })

	validate, translator := testutil.NewValidator()

	// set up server
	app := NewServer(
		ServerDeps{
			Conf:            conf,
			Logger:          logger,
			CalendarSvc:     calSvc,
			NotificationSvc: notifSvc,
			Scheduler:       scheduler,
			Validate:        validate,
			Translator:      translator,
			DisableReqLogs:  true,
		},
	)
	return &env{
		app:      app,
		conf:     conf,
		calSvc:   calSvc,
		schedule: scheduler,
		token:    getToken(t, conf),
	}
}

// do sends an authenticated request.
func (e *env) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, e.token, data...)
	e.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config) string {
	token, err := GenerateToken(conf, NewClaims(conf, conf.Admin.Username))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("unmarshall(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code)
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if assert.NoError(t, err) {
		assert.Truef(t, ok, "data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
