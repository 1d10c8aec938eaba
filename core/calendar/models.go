package calendar

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// Methods telling which path answered a task query.
const (
	MethodEnhanced = "enhanced"
	MethodLegacy   = "legacy"
)

// CellsPerWeek is the number of day cells in a calendar entry week: Sunday to Wednesday.
const CellsPerWeek = 4

// DayNames names the day cells of a week, in order.
var DayNames = [CellsPerWeek]string{"Sunday", "Monday", "Tuesday", "Wednesday"}

// Week holds the free-text cells of one week slot; missing cells are empty strings.
type Week [CellsPerWeek]string

// NewWeek copies up to CellsPerWeek cells, padding the rest with empty strings.
func NewWeek(cells []string) Week {
	var w Week
	copy(w[:], cells)
	return w
}

func (w Week) IsBlank() bool {
	for _, cell := range w {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

type CalendarEntry struct {
	ID        string    `json:"id"`
	Month     string    `json:"month"`
	Year      *int      `json:"year"`
	Week1     Week      `json:"week1"`
	Week2     Week      `json:"week2"`
	Week3     Week      `json:"week3"`
	Week4     Week      `json:"week4"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (e CalendarEntry) Weeks() [4]Week {
	return [4]Week{e.Week1, e.Week2, e.Week3, e.Week4}
}

func (e CalendarEntry) HasYear(year int) bool {
	return e.Year != nil && *e.Year == year
}

// EmailTask is one dated set of codes, derived from a calendar cell or created manually.
type EmailTask struct {
	ID              string    `json:"id"`
	CalendarEntryID *string   `json:"calendarEntryId"`
	Date            time.Time `json:"date"`
	Codes           []string  `json:"codes"`
	Description     string    `json:"description"`
	MonthContext    string    `json:"monthContext,omitempty"`
	Year            int       `json:"year,omitempty"`
	WeekContext     string    `json:"weekContext,omitempty"`
	DayContext      string    `json:"dayContext,omitempty"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

type LegendEntry struct {
	Abbreviation    string    `json:"abbreviation"`
	FullDescription string    `json:"full_description"`
	UsageCount      int       `json:"usage_count"`
	LastUsed        time.Time `json:"last_used"`
}

// TaskResult is the answer to a task query.
type TaskResult struct {
	From   time.Time   `json:"from"`
	To     time.Time   `json:"to"`
	Method string      `json:"method"`
	Tasks  []EmailTask `json:"tasks"`
}

// Codes returns the distinct codes of all tasks in task order.
func (r TaskResult) Codes() []string {
	var codes []string
	seen := make(map[string]struct{})
	for _, task := range r.Tasks {
		for _, code := range task.Codes {
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	return codes
}

// NewCalendarEntry contains information needed to create a new CalendarEntry.
type NewCalendarEntry struct {
	Month string   `json:"month" validate:"notblank"`
	Year  *int     `json:"year" validate:"omitempty,min=1900,max=9999"`
	Week1 []string `json:"week1" validate:"max=4"`
	Week2 []string `json:"week2" validate:"max=4"`
	Week3 []string `json:"week3" validate:"max=4"`
	Week4 []string `json:"week4" validate:"max=4"`
}

func (ne *NewCalendarEntry) Validate(validate *validator.Validate) error {
	ne.Month = core.CleanString(ne.Month)
	return validate.Struct(ne)
}

// UpdateCalendarEntry defines what information may be provided to modify an existing CalendarEntry.
// A nil week leaves the stored week untouched.
type UpdateCalendarEntry struct {
	Month string   `json:"month"`
	Year  *int     `json:"year" validate:"omitempty,min=1900,max=9999"`
	Week1 []string `json:"week1" validate:"omitempty,max=4"`
	Week2 []string `json:"week2" validate:"omitempty,max=4"`
	Week3 []string `json:"week3" validate:"omitempty,max=4"`
	Week4 []string `json:"week4" validate:"omitempty,max=4"`
}

func (ue *UpdateCalendarEntry) Validate(validate *validator.Validate) error {
	ue.Month = core.CleanString(ue.Month)
	return validate.Struct(ue)
}

// HasWeeks reports whether any week was provided.
func (ue UpdateCalendarEntry) HasWeeks() bool {
	return ue.Week1 != nil || ue.Week2 != nil || ue.Week3 != nil || ue.Week4 != nil
}

// NewEmailTask contains information needed to create a standalone EmailTask.
type NewEmailTask struct {
	CalendarEntryID *string  `json:"calendarEntryId"`
	Date            string   `json:"date" validate:"required,taskdate"`
	Codes           []string `json:"codes" validate:"required,min=1,dive,taskcode"`
	Description     string   `json:"description"`
	MonthContext    string   `json:"monthContext"`
}

func (nt *NewEmailTask) Validate(validate *validator.Validate) error {
	nt.Date = core.CleanString(nt.Date)
	nt.Description = core.CleanString(nt.Description)
	nt.MonthContext = core.CleanString(nt.MonthContext)
	for i, code := range nt.Codes {
		nt.Codes[i] = strings.ToUpper(core.CleanString(code))
	}
	return validate.Struct(nt)
}

// ParseDate reads the task date; bare dates are midnight in loc.
func (nt NewEmailTask) ParseDate(loc *time.Location) (time.Time, error) {
	return ParseTaskDate(nt.Date, loc)
}

var errInvalidDate = errors.New("invalid date")

// ParseTaskDate accepts "2006-01-02" (midnight in loc) or RFC 3339 timestamps.
func ParseTaskDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, errInvalidDate
}

const dateLayout = "2006-01-02"
