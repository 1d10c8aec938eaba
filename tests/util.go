package testutil

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	logsvc "github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/storage/database"
)

// PrepareDB opens a migrated in-memory sqlite3 database, closed when t ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewConfig returns the TEST configuration.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Env = "TEST"
	conf.RollbarToken = ""
	return conf
}

// NewLogger returns a logger discarding every entry.
func NewLogger() core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), NewConfig())
	logger.Enable(false)
	return logger
}

// NewValidator returns a validator with every custom tag registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	calendar.InitValidators(validate, translator)
	return validate, translator
}

func IntPtr(i int) *int { return &i }

func StrPtr(s string) *string { return &s }

func CreateEntry(t *testing.T, svc *calendar.Service, month string, year *int, weeks ...[]string) calendar.CalendarEntry {
	t.Helper()

	ne := calendar.NewCalendarEntry{Month: month, Year: year}
	for i, dst := range []*[]string{&ne.Week1, &ne.Week2, &ne.Week3, &ne.Week4} {
		if i < len(weeks) {
			*dst = weeks[i]
		}
	}
	entry, err := svc.CreateEntry(context.Background(), ne)
	if err != nil {
		t.Fatalf("createEntry() failed: %v", err)
	}
	return entry
}
