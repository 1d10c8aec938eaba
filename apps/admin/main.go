package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/notification"
	emailsvc "github.com/trezcool/ratiba/services/email"
	logsvc "github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/storage"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	loc, err := conf.Location()
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading time zone: %v", err), err)
	}
	recipients, err := conf.NotificationRecipients()
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading recipients: %v", err), err)
	}

	ctx := context.Background()

	// set up DB
	repos, err := storage.Open(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	calSvc := calendar.NewService(repos.Entries, repos.Tasks, repos.Legend, loc, logger)
	core.ParseEmailTemplates(logger)

	// start CLI
	cli := commandLine{
		db:       repos.SQL,
		calSvc:   calSvc,
		notifSvc: notification.NewService(calSvc, mailSvc, recipients, loc, logger),
		out:      os.Stdout,
	}
	err = cli.run(ctx, os.Args)
	if cErr := repos.Close(); cErr != nil {
		logger.Error("closing storage", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}
