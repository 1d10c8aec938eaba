package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core/calendar"
)

type legendRow struct {
	Abbreviation    string    `db:"abbreviation"`
	FullDescription string    `db:"full_description"`
	UsageCount      int       `db:"usage_count"`
	LastUsed        null.Time `db:"last_used"`
}

type legendRepository struct {
	db *sqlx.DB
}

var _ calendar.LegendRepository = (*legendRepository)(nil) // interface compliance check

func NewLegendRepository(db *sqlx.DB) *legendRepository {
	return &legendRepository{db: db}
}

func (repo legendRepository) RecordUsage(ctx context.Context, codes []string, at time.Time, describe func(string) string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting legend transaction")
	}
	defer func() { _ = tx.Rollback() }()

	update := tx.Rebind(`UPDATE legend SET usage_count = usage_count + 1, last_used = ? WHERE abbreviation = ?`)
	insert := tx.Rebind(`INSERT INTO legend (abbreviation, full_description, usage_count, last_used) VALUES (?, ?, 1, ?)`)
	for _, code := range codes {
		res, err := tx.ExecContext(ctx, update, at.UTC(), code)
		if err != nil {
			return errors.Wrapf(err, "updating legend entry %s", code)
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrapf(err, "updating legend entry %s", code)
		} else if n > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, insert, code, describe(code), at.UTC()); err != nil {
			return errors.Wrapf(err, "inserting legend entry %s", code)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing legend usage")
	}
	return nil
}

func (repo legendRepository) QueryLegend(ctx context.Context) ([]calendar.LegendEntry, error) {
	var rows []legendRow
	q := `SELECT abbreviation, full_description, usage_count, last_used FROM legend ORDER BY abbreviation`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying legend")
	}

	legend := make([]calendar.LegendEntry, 0, len(rows))
	for _, row := range rows {
		legend = append(legend, calendar.LegendEntry{
			Abbreviation:    row.Abbreviation,
			FullDescription: row.FullDescription,
			UsageCount:      row.UsageCount,
			LastUsed:        row.LastUsed.Time.UTC(),
		})
	}
	return legend, nil
}

func (repo legendRepository) UpsertLegend(ctx context.Context, entries ...calendar.LegendEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting legend transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := `INSERT INTO legend (abbreviation, full_description, usage_count, last_used)
		VALUES (:abbreviation, :full_description, :usage_count, :last_used)
		ON CONFLICT (abbreviation) DO UPDATE SET full_description = excluded.full_description`
	for _, entry := range entries {
		row := legendRow{Abbreviation: entry.Abbreviation, FullDescription: entry.FullDescription}
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			return errors.Wrapf(err, "upserting legend entry %s", entry.Abbreviation)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing legend")
	}
	return nil
}
