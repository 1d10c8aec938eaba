package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core/calendar"
)

type entryRepository struct {
	db *entryTable
}

var _ calendar.EntryRepository = (*entryRepository)(nil) // interface compliance check

func NewEntryRepository(db *DB) *entryRepository {
	return &entryRepository{db: db.entry}
}

func (repo *entryRepository) CreateEntry(_ context.Context, entry calendar.CalendarEntry) (calendar.CalendarEntry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	entry.ID = uuid.New().String()
	repo.db.table[entry.ID] = &entry
	return entry, nil
}

func (repo *entryRepository) GetEntry(_ context.Context, id string) (calendar.CalendarEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if entry, ok := repo.db.table[id]; ok {
		return *entry, nil
	}
	return calendar.CalendarEntry{}, calendar.ErrEntryNotFound
}

func (repo *entryRepository) QueryEntries(_ context.Context, limit int) ([]calendar.CalendarEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]calendar.CalendarEntry, 0, len(repo.db.table))
	for _, entry := range repo.db.table {
		entries = append(entries, *entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (repo *entryRepository) UpdateEntry(_ context.Context, entry calendar.CalendarEntry) (calendar.CalendarEntry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[entry.ID]; !ok {
		return calendar.CalendarEntry{}, calendar.ErrEntryNotFound
	}
	repo.db.table[entry.ID] = &entry
	return entry, nil
}

func (repo *entryRepository) DeleteEntry(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return calendar.ErrEntryNotFound
	}
	delete(repo.db.table, id)
	return nil
}

type taskRepository struct {
	db *taskTable
}

var _ calendar.TaskRepository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db.task}
}

func (repo *taskRepository) CreateTasks(_ context.Context, tasks ...calendar.EmailTask) ([]calendar.EmailTask, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]calendar.EmailTask, 0, len(tasks))
	for _, task := range tasks {
		if task.ID == "" {
			task.ID = uuid.New().String()
		}
		task.Codes = append([]string(nil), task.Codes...)
		t := task
		repo.db.table[t.ID] = &t
		created = append(created, task)
	}
	return created, nil
}

func (repo *taskRepository) GetTask(_ context.Context, id string) (calendar.EmailTask, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if task, ok := repo.db.table[id]; ok {
		return *task, nil
	}
	return calendar.EmailTask{}, calendar.ErrTaskNotFound
}

func (repo *taskRepository) QueryTasksBetween(_ context.Context, from, to time.Time) ([]calendar.EmailTask, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var tasks []calendar.EmailTask
	for _, task := range repo.db.table {
		if task.Date.Before(from) || task.Date.After(to) {
			continue
		}
		tasks = append(tasks, *task)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Date.Equal(tasks[j].Date) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].Date.Before(tasks[j].Date)
	})
	return tasks, nil
}

func (repo *taskRepository) DeleteTask(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return calendar.ErrTaskNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *taskRepository) DeleteTasksByEntry(_ context.Context, entryID string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for id, task := range repo.db.table {
		if task.CalendarEntryID != nil && *task.CalendarEntryID == entryID {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}

func (repo *taskRepository) CountTasks(_ context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.table), nil
}

type legendRepository struct {
	db *legendTable
}

var _ calendar.LegendRepository = (*legendRepository)(nil) // interface compliance check

func NewLegendRepository(db *DB) *legendRepository {
	return &legendRepository{db: db.legend}
}

func (repo *legendRepository) RecordUsage(_ context.Context, codes []string, at time.Time, describe func(string) string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, code := range codes {
		le, ok := repo.db.table[code]
		if !ok {
			le = &calendar.LegendEntry{Abbreviation: code, FullDescription: describe(code)}
			repo.db.table[code] = le
		}
		le.UsageCount++
		le.LastUsed = at
	}
	return nil
}

func (repo *legendRepository) QueryLegend(_ context.Context) ([]calendar.LegendEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	legend := make([]calendar.LegendEntry, 0, len(repo.db.table))
	for _, le := range repo.db.table {
		legend = append(legend, *le)
	}
	sort.Slice(legend, func(i, j int) bool { return legend[i].Abbreviation < legend[j].Abbreviation })
	return legend, nil
}

func (repo *legendRepository) UpsertLegend(_ context.Context, entries ...calendar.LegendEntry) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, entry := range entries {
		if le, ok := repo.db.table[entry.Abbreviation]; ok {
			le.FullDescription = entry.FullDescription
			continue
		}
		le := calendar.LegendEntry{Abbreviation: entry.Abbreviation, FullDescription: entry.FullDescription}
		repo.db.table[le.Abbreviation] = &le
	}
	return nil
}
