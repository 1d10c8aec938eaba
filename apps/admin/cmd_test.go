package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/notification"
	"github.com/trezcool/ratiba/services/email"
	"github.com/trezcool/ratiba/storage/database"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
	"github.com/trezcool/ratiba/tests"
)

var eat = time.FixedZone("EAT", 3*60*60)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	db := testutil.PrepareDB(t)
	logger := testutil.NewLogger()
	calSvc := calendar.NewService(
		sqlxrepos.NewEntryRepository(db),
		sqlxrepos.NewTaskRepository(db),
		sqlxrepos.NewLegendRepository(db),
		eat,
		logger,
	)

	conf := testutil.NewConfig()
	conf.Notification.Recipients = "office@school.test"
	recipients, err := conf.NotificationRecipients()
	require.NoError(t, err)
	t.Cleanup(emailsvc.ResetSentMessages)

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		db:       db,
		calSvc:   calSvc,
		notifSvc: notification.NewService(calSvc, emailsvc.NewConsoleServiceMock(conf), recipients, eat, logger),
		out:      out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(context.Background(), args)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, _ := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "regenerate: unknown flag", args: []string{"regenerate", "-lol"}, wantErrStr: "flag provided but not defined: -lol"},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { gooseRunFunc = database.Run })

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "holidays", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	})

	t.Run("non-SQL engine", func(t *testing.T) {
		memCLI := *cli
		memCLI.db = nil
		err := memCLI.run(context.Background(), []string{"admin", "migrate", "up"})
		assert.ErrorIs(t, err, errNoSQL)
	})
}

func Test_commandLine_migrate_status(t *testing.T) {
	cli, _ := setup(t)
	assert.NoError(t, cli.run(context.Background(), []string{"admin", "migrate", "status"}))
}

func Test_commandLine_regenerate(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	entry := testutil.CreateEntry(t, cli.calSvc, "1-Jun", testutil.IntPtr(2024), []string{"A", "B", "", ""})
	testutil.CreateEntry(t, cli.calSvc, "1-Jul", testutil.IntPtr(2024), []string{"C", "", "", ""})

	runCLITests(t, cli, []cliTest{
		{name: "unknown entry", args: []string{"regenerate", "-id", "lol"}, wantErr: calendar.ErrEntryNotFound},
		{name: "one entry", args: []string{"regenerate", "-id", entry.ID}},
		{name: "all entries", args: []string{"regenerate"}},
	})
	assert.Contains(t, out.String(), "regenerated 2 tasks for calendar entry "+entry.ID)
	assert.Contains(t, out.String(), "regenerated 3 tasks\n")

	n, err := cli.calSvc.CountTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func Test_commandLine_seedLegend(t *testing.T) {
	cli, out := setup(t)

	require.NoError(t, cli.run(context.Background(), []string{"admin", "seedlegend"}))
	assert.Equal(t, fmt.Sprintf("seeded %d legend entries\n", len(calendar.Dictionary)), out.String())

	legend, err := cli.calSvc.Legend(context.Background())
	require.NoError(t, err)
	assert.Len(t, legend, len(calendar.Dictionary))
}

func Test_commandLine_notify(t *testing.T) {
	cli, out := setup(t)
	testutil.CreateEntry(t, cli.calSvc, "1-Jun", testutil.IntPtr(2024), []string{"A, TB", "", "", ""})

	runCLITests(t, cli, []cliTest{
		{name: "invalid date", args: []string{"notify", "-date", "June 1st"}, wantErrStr: `invalid date "June 1st": invalid date`},
	})

	t.Run("preview", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run(context.Background(), []string{"admin", "notify", "-date", "2024-06-01"}))

		var report notification.Report
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
		assert.True(t, report.HasTasks)
		assert.Empty(t, emailsvc.SentMessages)
	})

	t.Run("send", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run(context.Background(), []string{"admin", "notify", "-date", "2024-06-01", "-send"}))

		var res notification.DeliveryResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		assert.True(t, res.Success, res.Error)
		assert.Len(t, emailsvc.SentMessages, 1)
	})
}
