package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core/calendar"
)

const taskColumns = "id, calendar_entry_id, task_date, codes, description, month_context, year, week_context, day_context, created_at"

type taskRow struct {
	ID              string      `db:"id"`
	CalendarEntryID null.String `db:"calendar_entry_id"`
	TaskDate        time.Time   `db:"task_date"`
	Codes           string      `db:"codes"`
	Description     string      `db:"description"`
	MonthContext    string      `db:"month_context"`
	Year            int         `db:"year"`
	WeekContext     string      `db:"week_context"`
	DayContext      string      `db:"day_context"`
	CreatedAt       time.Time   `db:"created_at"`
}

type taskRepository struct {
	db *sqlx.DB
}

var _ calendar.TaskRepository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *sqlx.DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo taskRepository) toRow(task calendar.EmailTask) (taskRow, error) {
	codes, err := marshalText(task.Codes)
	if err != nil {
		return taskRow{}, errors.Wrap(err, "encoding codes")
	}
	return taskRow{
		ID:              task.ID,
		CalendarEntryID: null.StringFromPtr(task.CalendarEntryID),
		TaskDate:        task.Date.UTC(),
		Codes:           codes,
		Description:     task.Description,
		MonthContext:    task.MonthContext,
		Year:            task.Year,
		WeekContext:     task.WeekContext,
		DayContext:      task.DayContext,
		CreatedAt:       task.CreatedAt.UTC(),
	}, nil
}

func (repo taskRepository) fromRow(row taskRow) (calendar.EmailTask, error) {
	var codes []string
	if err := unmarshalText(row.Codes, &codes); err != nil {
		return calendar.EmailTask{}, errors.Wrap(err, "decoding codes")
	}
	return calendar.EmailTask{
		ID:              row.ID,
		CalendarEntryID: row.CalendarEntryID.Ptr(),
		Date:            row.TaskDate.UTC(),
		Codes:           codes,
		Description:     row.Description,
		MonthContext:    row.MonthContext,
		Year:            row.Year,
		WeekContext:     row.WeekContext,
		DayContext:      row.DayContext,
		CreatedAt:       row.CreatedAt.UTC(),
	}, nil
}

func (repo taskRepository) fromRows(rows []taskRow) ([]calendar.EmailTask, error) {
	tasks := make([]calendar.EmailTask, 0, len(rows))
	for _, row := range rows {
		task, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (repo taskRepository) CreateTasks(ctx context.Context, tasks ...calendar.EmailTask) ([]calendar.EmailTask, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	created := make([]calendar.EmailTask, 0, len(tasks))
	rows := make([]taskRow, 0, len(tasks))
	for _, task := range tasks {
		if task.ID == "" {
			task.ID = uuid.New().String()
		}
		row, err := repo.toRow(task)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		created = append(created, task)
	}

	// batch insert
	q := `INSERT INTO email_tasks (` + taskColumns + `)
		VALUES (:id, :calendar_entry_id, :task_date, :codes, :description, :month_context, :year, :week_context, :day_context, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, rows); err != nil {
		return nil, errors.Wrap(err, "inserting email tasks")
	}
	return created, nil
}

func (repo taskRepository) GetTask(ctx context.Context, id string) (calendar.EmailTask, error) {
	var row taskRow
	q := repo.db.Rebind(`SELECT ` + taskColumns + ` FROM email_tasks WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return calendar.EmailTask{}, trapNoRowsErr(err, calendar.ErrTaskNotFound, "finding email task")
	}
	return repo.fromRow(row)
}

func (repo taskRepository) QueryTasksBetween(ctx context.Context, from, to time.Time) ([]calendar.EmailTask, error) {
	var rows []taskRow
	q := repo.db.Rebind(`SELECT ` + taskColumns + ` FROM email_tasks
		WHERE task_date >= ? AND task_date <= ?
		ORDER BY task_date, created_at`)
	if err := repo.db.SelectContext(ctx, &rows, q, from.UTC(), to.UTC()); err != nil {
		return nil, errors.Wrap(err, "querying email tasks")
	}
	return repo.fromRows(rows)
}

func (repo taskRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM email_tasks WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting email task")
	}
	return checkAffected(res, calendar.ErrTaskNotFound, "deleting email task")
}

func (repo taskRepository) DeleteTasksByEntry(ctx context.Context, entryID string) (int, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM email_tasks WHERE calendar_entry_id = ?`), entryID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting email tasks of calendar entry")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting email tasks of calendar entry")
	}
	return int(n), nil
}

func (repo taskRepository) CountTasks(ctx context.Context) (int, error) {
	var cnt int
	if err := repo.db.GetContext(ctx, &cnt, `SELECT COUNT(*) FROM email_tasks`); err != nil {
		return 0, errors.Wrap(err, "counting email tasks")
	}
	return cnt, nil
}
