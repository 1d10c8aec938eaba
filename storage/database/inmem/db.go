package inmemdb

import (
	"sync"

	"github.com/trezcool/ratiba/core/calendar"
)

type (
	DB struct {
		entry  *entryTable
		task   *taskTable
		legend *legendTable
	}

	entryTable struct {
		sync.RWMutex
		table map[string]*calendar.CalendarEntry
	}

	taskTable struct {
		sync.RWMutex
		table map[string]*calendar.EmailTask
	}

	legendTable struct {
		sync.RWMutex
		table map[string]*calendar.LegendEntry
	}
)

func Open() *DB {
	return &DB{
		entry:  &entryTable{table: make(map[string]*calendar.CalendarEntry)},
		task:   &taskTable{table: make(map[string]*calendar.EmailTask)},
		legend: &legendTable{table: make(map[string]*calendar.LegendEntry)},
	}
}
