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

const entryColumns = "id, month, year, week1, week2, week3, week4, created_at, updated_at"

type entryRow struct {
	ID        string    `db:"id"`
	Month     string    `db:"month"`
	Year      null.Int  `db:"year"`
	Week1     string    `db:"week1"`
	Week2     string    `db:"week2"`
	Week3     string    `db:"week3"`
	Week4     string    `db:"week4"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type entryRepository struct {
	db *sqlx.DB
}

var _ calendar.EntryRepository = (*entryRepository)(nil) // interface compliance check

func NewEntryRepository(db *sqlx.DB) *entryRepository {
	return &entryRepository{db: db}
}

func (repo entryRepository) toRow(entry calendar.CalendarEntry) (entryRow, error) {
	row := entryRow{
		ID:        entry.ID,
		Month:     entry.Month,
		Year:      null.IntFromPtr(entry.Year),
		CreatedAt: entry.CreatedAt.UTC(),
		UpdatedAt: entry.UpdatedAt.UTC(),
	}
	weeks := entry.Weeks()
	for i, dst := range []*string{&row.Week1, &row.Week2, &row.Week3, &row.Week4} {
		text, err := marshalText(weeks[i])
		if err != nil {
			return entryRow{}, errors.Wrap(err, "encoding week")
		}
		*dst = text
	}
	return row, nil
}

func (repo entryRepository) fromRow(row entryRow) (calendar.CalendarEntry, error) {
	entry := calendar.CalendarEntry{
		ID:        row.ID,
		Month:     row.Month,
		Year:      row.Year.Ptr(),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	srcs := []string{row.Week1, row.Week2, row.Week3, row.Week4}
	for i, dst := range []*calendar.Week{&entry.Week1, &entry.Week2, &entry.Week3, &entry.Week4} {
		var cells []string
		if err := unmarshalText(srcs[i], &cells); err != nil {
			return calendar.CalendarEntry{}, errors.Wrap(err, "decoding week")
		}
		*dst = calendar.NewWeek(cells)
	}
	return entry, nil
}

func (repo entryRepository) CreateEntry(ctx context.Context, entry calendar.CalendarEntry) (calendar.CalendarEntry, error) {
	entry.ID = uuid.New().String()
	row, err := repo.toRow(entry)
	if err != nil {
		return calendar.CalendarEntry{}, err
	}

	q := `INSERT INTO calendar_entries (` + entryColumns + `)
		VALUES (:id, :month, :year, :week1, :week2, :week3, :week4, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return calendar.CalendarEntry{}, errors.Wrap(err, "inserting calendar entry")
	}
	return entry, nil
}

func (repo entryRepository) GetEntry(ctx context.Context, id string) (calendar.CalendarEntry, error) {
	var row entryRow
	q := repo.db.Rebind(`SELECT ` + entryColumns + ` FROM calendar_entries WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return calendar.CalendarEntry{}, trapNoRowsErr(err, calendar.ErrEntryNotFound, "finding calendar entry")
	}
	return repo.fromRow(row)
}

func (repo entryRepository) QueryEntries(ctx context.Context, limit int) ([]calendar.CalendarEntry, error) {
	q := `SELECT ` + entryColumns + ` FROM calendar_entries ORDER BY updated_at DESC`
	var args []interface{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []entryRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying calendar entries")
	}

	entries := make([]calendar.CalendarEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (repo entryRepository) UpdateEntry(ctx context.Context, entry calendar.CalendarEntry) (calendar.CalendarEntry, error) {
	row, err := repo.toRow(entry)
	if err != nil {
		return calendar.CalendarEntry{}, err
	}

	q := `UPDATE calendar_entries
		SET month = :month, year = :year, week1 = :week1, week2 = :week2, week3 = :week3, week4 = :week4, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return calendar.CalendarEntry{}, errors.Wrap(err, "updating calendar entry")
	}
	if err := checkAffected(res, calendar.ErrEntryNotFound, "updating calendar entry"); err != nil {
		return calendar.CalendarEntry{}, err
	}
	return entry, nil
}

func (repo entryRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM calendar_entries WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting calendar entry")
	}
	return checkAffected(res, calendar.ErrEntryNotFound, "deleting calendar entry")
}
