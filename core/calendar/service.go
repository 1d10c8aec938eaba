package calendar

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// MaxEntries caps the number of calendar entries returned by QueryEntries.
const MaxEntries = 1000

// UpcomingWindow is the span covered by TasksUpcoming.
const UpcomingWindow = 7 * 24 * time.Hour

var (
	NowFunc = time.Now // mockable

	// errors
	ErrEntryNotFound = core.NewNotFoundError("calendar entry not found")
	ErrTaskNotFound  = core.NewNotFoundError("email task not found")
	ErrMissingTaskID = errors.New("task id is required")
)

type (
	EntryRepository interface {
		CreateEntry(ctx context.Context, entry CalendarEntry) (CalendarEntry, error)
		GetEntry(ctx context.Context, id string) (CalendarEntry, error)
		// QueryEntries returns entries newest updated_at first; limit <= 0 means no limit.
		QueryEntries(ctx context.Context, limit int) ([]CalendarEntry, error)
		UpdateEntry(ctx context.Context, entry CalendarEntry) (CalendarEntry, error)
		DeleteEntry(ctx context.Context, id string) error
	}

	TaskRepository interface {
		// CreateTasks assigns IDs to tasks missing one.
		CreateTasks(ctx context.Context, tasks ...EmailTask) ([]EmailTask, error)
		GetTask(ctx context.Context, id string) (EmailTask, error)
		// QueryTasksBetween returns tasks dated within [from, to], ordered by date.
		QueryTasksBetween(ctx context.Context, from, to time.Time) ([]EmailTask, error)
		DeleteTask(ctx context.Context, id string) error
		DeleteTasksByEntry(ctx context.Context, entryID string) (int, error)
		CountTasks(ctx context.Context) (int, error)
	}

	LegendRepository interface {
		// RecordUsage upserts one legend entry per code, bumping usage_count and last_used.
		// describe provides the description of codes seen for the first time.
		RecordUsage(ctx context.Context, codes []string, at time.Time, describe func(code string) string) error
		QueryLegend(ctx context.Context) ([]LegendEntry, error)
		// UpsertLegend sets descriptions, leaving usage untouched.
		UpsertLegend(ctx context.Context, entries ...LegendEntry) error
	}
)

type Service struct {
	entries EntryRepository
	tasks   TaskRepository
	legend  LegendRepository
	loc     *time.Location
	log     core.Logger

	locks keyedMutex
}

func NewService(entries EntryRepository, tasks TaskRepository, legend LegendRepository, loc *time.Location, logger core.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		entries: entries,
		tasks:   tasks,
		legend:  legend,
		loc:     loc,
		log:     logger,
	}
}

// Location is the time zone task dates are computed in.
func (svc *Service) Location() *time.Location { return svc.loc }

func (svc *Service) CreateEntry(ctx context.Context, ne NewCalendarEntry) (CalendarEntry, error) {
	now := NowFunc().UTC()
	year := ResolveYear(ne.Year, ne.Month, NowFunc().In(svc.loc))
	entry := CalendarEntry{
		Month:     ne.Month,
		Year:      &year,
		Week1:     NewWeek(ne.Week1),
		Week2:     NewWeek(ne.Week2),
		Week3:     NewWeek(ne.Week3),
		Week4:     NewWeek(ne.Week4),
		CreatedAt: now,
		UpdatedAt: now,
	}

	entry, err := svc.entries.CreateEntry(ctx, entry)
	if err != nil {
		return CalendarEntry{}, errors.Wrap(err, "creating calendar entry")
	}
	if _, err := svc.regenerate(ctx, entry); err != nil {
		return CalendarEntry{}, err
	}
	return entry, nil
}

func (svc *Service) GetEntry(ctx context.Context, id string) (CalendarEntry, error) {
	return svc.entries.GetEntry(ctx, id)
}

func (svc *Service) QueryEntries(ctx context.Context) ([]CalendarEntry, error) {
	return svc.entries.QueryEntries(ctx, MaxEntries)
}

// UpdateEntry merges the provided fields into the stored entry.
// Tasks are regenerated only when at least one week was provided.
func (svc *Service) UpdateEntry(ctx context.Context, id string, ue UpdateCalendarEntry) (CalendarEntry, error) {
	unlock := svc.locks.Lock(id)
	defer unlock()

	entry, err := svc.entries.GetEntry(ctx, id)
	if err != nil {
		return CalendarEntry{}, err
	}

	if ue.Month != "" {
		entry.Month = ue.Month
		if year, ok := YearFromLabel(ue.Month); ok {
			entry.Year = &year
		}
	}
	if ue.Year != nil {
		year := *ue.Year
		entry.Year = &year
	}
	if ue.Week1 != nil {
		entry.Week1 = NewWeek(ue.Week1)
	}
	if ue.Week2 != nil {
		entry.Week2 = NewWeek(ue.Week2)
	}
	if ue.Week3 != nil {
		entry.Week3 = NewWeek(ue.Week3)
	}
	if ue.Week4 != nil {
		entry.Week4 = NewWeek(ue.Week4)
	}
	entry.UpdatedAt = NowFunc().UTC()

	entry, err = svc.entries.UpdateEntry(ctx, entry)
	if err != nil {
		return CalendarEntry{}, errors.Wrap(err, "updating calendar entry")
	}

	if ue.HasWeeks() {
		if _, err := svc.deriveAndReplace(ctx, entry); err != nil {
			return CalendarEntry{}, err
		}
	}
	return entry, nil
}

// DeleteEntry removes the entry's tasks, then the entry.
func (svc *Service) DeleteEntry(ctx context.Context, id string) error {
	unlock := svc.locks.Lock(id)
	defer unlock()

	if _, err := svc.entries.GetEntry(ctx, id); err != nil {
		return err
	}
	if _, err := svc.tasks.DeleteTasksByEntry(ctx, id); err != nil {
		return errors.Wrap(err, "deleting calendar entry tasks")
	}
	return svc.entries.DeleteEntry(ctx, id)
}

// ReplaceTasksForEntry deletes every task of entryID, then inserts tasks.
// No transaction spans the two steps: deleting first keeps a retry from duplicating tasks.
func (svc *Service) ReplaceTasksForEntry(ctx context.Context, entryID string, tasks []EmailTask) ([]EmailTask, error) {
	unlock := svc.locks.Lock(entryID)
	defer unlock()
	return svc.replaceTasks(ctx, entryID, tasks)
}

func (svc *Service) replaceTasks(ctx context.Context, entryID string, tasks []EmailTask) ([]EmailTask, error) {
	if _, err := svc.tasks.DeleteTasksByEntry(ctx, entryID); err != nil {
		return nil, errors.Wrap(err, "deleting previous tasks")
	}
	if len(tasks) == 0 {
		return nil, nil
	}

	id := entryID
	for i := range tasks {
		tasks[i].ID = ""
		tasks[i].CalendarEntryID = &id
		if tasks[i].CreatedAt.IsZero() {
			tasks[i].CreatedAt = NowFunc().UTC()
		}
	}
	created, err := svc.tasks.CreateTasks(ctx, tasks...)
	if err != nil {
		return nil, errors.Wrap(err, "inserting tasks")
	}
	return created, nil
}

// RegenerateTasks re-derives the tasks of one entry from its stored weeks.
func (svc *Service) RegenerateTasks(ctx context.Context, id string) ([]EmailTask, error) {
	entry, err := svc.entries.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	return svc.regenerate(ctx, entry)
}

// RegenerateAll re-derives the tasks of every entry and returns the number of tasks stored.
func (svc *Service) RegenerateAll(ctx context.Context) (int, error) {
	entries, err := svc.entries.QueryEntries(ctx, 0)
	if err != nil {
		return 0, errors.Wrap(err, "querying calendar entries")
	}
	var total int
	for _, entry := range entries {
		tasks, err := svc.regenerate(ctx, entry)
		if err != nil {
			return total, err
		}
		total += len(tasks)
	}
	return total, nil
}

func (svc *Service) regenerate(ctx context.Context, entry CalendarEntry) ([]EmailTask, error) {
	unlock := svc.locks.Lock(entry.ID)
	defer unlock()
	return svc.deriveAndReplace(ctx, entry)
}

// deriveAndReplace expects the entry lock to be held.
func (svc *Service) deriveAndReplace(ctx context.Context, entry CalendarEntry) ([]EmailTask, error) {
	year := ResolveYear(entry.Year, entry.Month, NowFunc().In(svc.loc))
	if ml, ok := ParseMonthLabelDetailed(entry.Month, year, svc.loc); ok && ml.Ambiguous {
		svc.log.Warn("ambiguous month label, defaulting to January 1", "entry", entry.ID, "month", entry.Month, "year", year)
	}

	tasks, err := svc.replaceTasks(ctx, entry.ID, DeriveTasks(entry, year, svc.loc))
	if err != nil {
		return nil, err
	}
	svc.recordUsage(ctx, tasks...)
	return tasks, nil
}

// recordUsage updates the legend; failures are logged, never returned.
func (svc *Service) recordUsage(ctx context.Context, tasks ...EmailTask) {
	var codes []string
	for _, task := range tasks {
		codes = append(codes, task.Codes...)
	}
	if len(codes) == 0 {
		return
	}
	if err := svc.legend.RecordUsage(ctx, codes, NowFunc().UTC(), LegendDescription); err != nil {
		svc.log.Error("recording legend usage", "error", err)
	}
}

// TasksOnDate returns the tasks dated on date's calendar day, in date's location.
// When no task is stored for that day, tasks are derived on the fly from the stored calendar entries.
func (svc *Service) TasksOnDate(ctx context.Context, date time.Time) (TaskResult, error) {
	from, to := StartOfDay(date), EndOfDay(date)
	tasks, err := svc.tasks.QueryTasksBetween(ctx, from, to)
	if err != nil {
		return TaskResult{}, errors.Wrap(err, "querying tasks")
	}
	if len(tasks) > 0 {
		return TaskResult{From: from, To: to, Method: MethodEnhanced, Tasks: tasks}, nil
	}

	tasks, err = svc.legacyTasksOn(ctx, from)
	if err != nil {
		return TaskResult{}, err
	}
	return TaskResult{From: from, To: to, Method: MethodLegacy, Tasks: tasks}, nil
}

func (svc *Service) legacyTasksOn(ctx context.Context, day time.Time) ([]EmailTask, error) {
	entries, err := svc.entries.QueryEntries(ctx, 0)
	if err != nil {
		return nil, errors.Wrap(err, "querying calendar entries")
	}

	var candidates []CalendarEntry
	for _, entry := range entries {
		if entry.HasYear(day.Year()) {
			candidates = append(candidates, entry)
		}
	}
	if len(candidates) == 0 {
		for _, entry := range entries {
			if entry.Year == nil {
				candidates = append(candidates, entry)
			}
		}
	}

	var tasks []EmailTask
	for _, entry := range candidates {
		tasks = append(tasks, DeriveTasksOn(entry, day.Year(), day, DictionaryFiltered)...)
	}
	return tasks, nil
}

// TasksUpcoming returns the tasks dated within [from, from+7d].
func (svc *Service) TasksUpcoming(ctx context.Context, from time.Time) (TaskResult, error) {
	to := from.Add(UpcomingWindow)
	tasks, err := svc.tasks.QueryTasksBetween(ctx, from, to)
	if err != nil {
		return TaskResult{}, errors.Wrap(err, "querying upcoming tasks")
	}
	return TaskResult{From: from, To: to, Method: MethodEnhanced, Tasks: tasks}, nil
}

func (svc *Service) CreateTask(ctx context.Context, nt NewEmailTask) (EmailTask, error) {
	date, err := nt.ParseDate(svc.loc)
	if err != nil {
		return EmailTask{}, core.NewValidationError(err, core.FieldError{Field: "date", Error: err.Error()})
	}
	if nt.CalendarEntryID != nil && *nt.CalendarEntryID != "" {
		if _, err := svc.entries.GetEntry(ctx, *nt.CalendarEntryID); err != nil {
			return EmailTask{}, err
		}
	} else {
		nt.CalendarEntryID = nil
	}

	codes := dedupe(nt.Codes)
	desc := nt.Description
	if desc == "" {
		desc = strings.Join(codes, ", ")
	}
	task := EmailTask{
		CalendarEntryID: nt.CalendarEntryID,
		Date:            date,
		Codes:           codes,
		Description:     desc,
		MonthContext:    nt.MonthContext,
		Year:            date.Year(),
		CreatedAt:       NowFunc().UTC(),
	}

	created, err := svc.tasks.CreateTasks(ctx, task)
	if err != nil {
		return EmailTask{}, errors.Wrap(err, "inserting task")
	}
	svc.recordUsage(ctx, created...)
	return created[0], nil
}

func (svc *Service) GetTask(ctx context.Context, id string) (EmailTask, error) {
	return svc.tasks.GetTask(ctx, id)
}

func (svc *Service) DeleteTask(ctx context.Context, id string) error {
	id = core.CleanString(id)
	if id == "" {
		return core.NewValidationError(ErrMissingTaskID, core.FieldError{Field: "id", Error: ErrMissingTaskID.Error()})
	}
	return svc.tasks.DeleteTask(ctx, id)
}

func (svc *Service) CountTasks(ctx context.Context) (int, error) {
	return svc.tasks.CountTasks(ctx)
}

func (svc *Service) Legend(ctx context.Context) ([]LegendEntry, error) {
	return svc.legend.QueryLegend(ctx)
}

// SeedLegend writes one legend entry per dictionary code.
func (svc *Service) SeedLegend(ctx context.Context) (int, error) {
	codes := Codes()
	entries := make([]LegendEntry, 0, len(codes))
	for _, code := range codes {
		entries = append(entries, LegendEntry{Abbreviation: code, FullDescription: Dictionary[code]})
	}
	if err := svc.legend.UpsertLegend(ctx, entries...); err != nil {
		return 0, errors.Wrap(err, "seeding legend")
	}
	return len(entries), nil
}

func dedupe(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if _, dup := seen[code]; dup || code == "" {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// keyedMutex serialises work on the same key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// Lock acquires the lock for key and returns its release func.
func (km *keyedMutex) Lock(key string) func() {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[string]*refMutex)
	}
	m, ok := km.locks[key]
	if !ok {
		m = &refMutex{}
		km.locks[key] = m
	}
	m.refs++
	km.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		km.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}
