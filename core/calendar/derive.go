package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DeriveTasks computes one EmailTask per day cell of entry holding at least one code.
// Cell (week w, day d) falls w*7+d days after the entry's parsed month label;
// this offset is authoritative, so week 2 Monday of "1-Jun" is June 9.
// Tasks come out week-major, day-minor. IDs are left empty.
func DeriveTasks(entry CalendarEntry, year int, loc *time.Location) []EmailTask {
	base, ok := ParseMonthLabel(entry.Month, year, loc)
	if !ok {
		return nil
	}
	return deriveFrom(entry, year, base, Permissive, nil)
}

// DeriveTasksOn derives, on the fly, the tasks of entry that fall on day's calendar date.
// The legacy notification path uses it for entries stored without materialized tasks.
func DeriveTasksOn(entry CalendarEntry, year int, day time.Time, mode ExtractionMode) []EmailTask {
	base, ok := ParseMonthLabel(entry.Month, year, day.Location())
	if !ok {
		return nil
	}
	return deriveFrom(entry, year, base, mode, func(date time.Time) bool {
		return sameDay(date, day)
	})
}

func deriveFrom(entry CalendarEntry, year int, base time.Time, mode ExtractionMode, keep func(time.Time) bool) []EmailTask {
	var entryID *string
	if entry.ID != "" {
		id := entry.ID
		entryID = &id
	}

	var tasks []EmailTask
	for wi, week := range entry.Weeks() {
		for di, cell := range week {
			if strings.TrimSpace(cell) == "" {
				continue
			}
			date := base.AddDate(0, 0, wi*7+di)
			if keep != nil && !keep(date) {
				continue
			}
			codes := ExtractCodes(cell, mode)
			if len(codes) == 0 {
				continue
			}

			weekCtx := fmt.Sprintf("Week %d", wi+1)
			tasks = append(tasks, EmailTask{
				CalendarEntryID: entryID,
				Date:            date,
				Codes:           codes,
				Description:     fmt.Sprintf("%s - %s: %s", DayNames[di], weekCtx, cell),
				MonthContext:    entry.Month,
				Year:            year,
				WeekContext:     weekCtx,
				DayContext:      DayNames[di],
			})
		}
	}
	return tasks
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last instant of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
