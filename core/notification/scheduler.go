package notification

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/ratiba/core"
)

// RunTimeout bounds the task query of one scheduled run. Delivery goes through
// core.EmailService, which takes no context, so it is not bounded.
var RunTimeout = 5 * time.Minute

type (
	// Sender delivers the digest of a day.
	Sender interface {
		Send(ctx context.Context, date time.Time) (DeliveryResult, error)
	}

	RunRecord struct {
		At     time.Time      `json:"at"`
		Result DeliveryResult `json:"result"`
		Error  string         `json:"error,omitempty"`
	}

	Status struct {
		Running  bool       `json:"running"`
		NextRun  *time.Time `json:"nextRunAt,omitempty"`
		Next     string     `json:"nextRun"`
		Timezone string     `json:"timezone"`
		Spec     string     `json:"spec"`
		LastRun  *RunRecord `json:"lastRun,omitempty"`
	}
)

// Scheduler fires the daily notification on a cron spec evaluated in a fixed time zone.
// A run still in progress when the next fire time arrives makes that fire a no-op.
type Scheduler struct {
	sender   Sender
	spec     string
	schedule cron.Schedule
	loc      *time.Location
	log      core.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	lastRun *RunRecord
}

func NewScheduler(sender Sender, spec string, loc *time.Location, logger core.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing schedule %q", spec)
	}

	s := &Scheduler{
		sender:   sender,
		spec:     spec,
		schedule: schedule,
		loc:      loc,
		log:      logger,
	}
	cl := cronLogger{logger}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.cron.Schedule(schedule, cron.FuncJob(s.run))
	return s, nil
}

// Start activates the recurring trigger. It reports false when it was already active.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}
	s.cron.Start()
	s.running = true
	s.log.Info("scheduler started", "spec", s.spec, "timezone", s.loc.String())
	return true
}

// Stop deactivates the trigger; the returned context is done once a running job completes.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.running = false
	s.log.Info("scheduler stopped")
	return s.cron.Stop()
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:  s.running,
		Timezone: s.loc.String(),
		Spec:     s.spec,
		Next:     "not scheduled",
	}
	if s.running {
		next := s.schedule.Next(NowFunc().In(s.loc))
		st.NextRun = &next
		st.Next = next.Format("Mon, 02 Jan 2006 15:04 MST")
	}
	if s.lastRun != nil {
		rec := *s.lastRun
		st.LastRun = &rec
	}
	return st
}

// Entries returns the number of registered triggers.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// RunOnce runs the job body now: today's tasks, digest, then delivery unless there is nothing to send.
func (s *Scheduler) RunOnce(ctx context.Context) (DeliveryResult, error) {
	now := NowFunc().In(s.loc)
	res, err := s.sender.Send(ctx, now)

	rec := &RunRecord{At: now, Result: res}
	if err != nil {
		rec.Error = err.Error()
		s.log.Error("daily notification run failed", err)
	} else if res.Skipped {
		s.log.Info("daily notification skipped", "date", res.Date.Format("2006-01-02"))
	}

	s.mu.Lock()
	s.lastRun = rec
	s.mu.Unlock()
	return res, err
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), RunTimeout)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	log core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append([]interface{}{err}, keysAndValues...)...)
}
