package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/notification"
)

var (
	errHelp  = errors.New("help provided")
	errNoSQL = errors.New("migrations only apply to the postgres and sqlite3 engines")
)

type commandLine struct {
	db       *sqlx.DB // nil unless the storage engine is SQL
	calSvc   *calendar.Service
	notifSvc *notification.Service
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]          - run goose migrations (up, down, status, ...)")
	_, _ = fmt.Fprintln(cli.out, "  regenerate [-id ID]             - re-derive email tasks of one or all calendar entries")
	_, _ = fmt.Fprintln(cli.out, "  seedlegend                      - write one legend entry per dictionary code")
	_, _ = fmt.Fprintln(cli.out, "  notify [-date YYYY-MM-DD] [-send] - compute (and optionally send) a daily digest")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	regenerateCmd := flag.NewFlagSet("regenerate", flag.ContinueOnError)
	regenerateCmd.SetOutput(cli.out)
	regenerateID := regenerateCmd.String("id", "", "The calendar entry ID. All entries when empty.")

	notifyCmd := flag.NewFlagSet("notify", flag.ContinueOnError)
	notifyCmd.SetOutput(cli.out)
	notifyDate := notifyCmd.String("date", "", "The day to compute, as YYYY-MM-DD. Today when empty.")
	notifySend := notifyCmd.Bool("send", false, "Deliver the digest instead of printing it.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "regenerate":
		if err := regenerateCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.regenerate(ctx, *regenerateID)
	case "seedlegend":
		return cli.seedLegend(ctx)
	case "notify":
		if err := notifyCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.notify(ctx, *notifyDate, *notifySend)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) regenerate(ctx context.Context, id string) error {
	if id != "" {
		tasks, err := cli.calSvc.RegenerateTasks(ctx, id)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cli.out, "regenerated %d tasks for calendar entry %s\n", len(tasks), id)
		return nil
	}

	n, err := cli.calSvc.RegenerateAll(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "regenerated %d tasks\n", n)
	return nil
}

func (cli *commandLine) seedLegend(ctx context.Context) error {
	n, err := cli.calSvc.SeedLegend(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "seeded %d legend entries\n", n)
	return nil
}

func (cli *commandLine) notify(ctx context.Context, date string, send bool) error {
	day := cli.notifSvc.Today()
	if date != "" {
		d, err := calendar.ParseTaskDate(date, cli.notifSvc.Location())
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", date, err)
		}
		day = d
	}

	var out interface{}
	if send {
		res, err := cli.notifSvc.Send(ctx, day)
		if err != nil {
			return err
		}
		out = res
	} else {
		report, err := cli.notifSvc.Preview(ctx, day)
		if err != nil {
			return err
		}
		out = report
	}

	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
