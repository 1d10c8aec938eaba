package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
)

var (
	dateParam     = "date"
	upcomingParam = "upcoming"
)

// TaskQuery selects tasks either on one day or over the upcoming window.
type TaskQuery struct {
	Date     time.Time
	Upcoming bool
}

// Bind reads `?date=YYYY-MM-DD` or `?upcoming=true`; no date means today in loc.
func (q *TaskQuery) Bind(ctx echo.Context, loc *time.Location, now time.Time) error {
	if s := ctx.QueryParam(upcomingParam); s != "" {
		q.Upcoming, _ = strconv.ParseBool(strings.TrimSpace(s))
	}

	s := core.CleanString(ctx.QueryParam(dateParam))
	if s == "" {
		q.Date = now.In(loc)
		return nil
	}
	date, err := calendar.ParseTaskDate(s, loc)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: dateParam, Error: "date must be formatted as YYYY-MM-DD"})
	}
	q.Date = date.In(loc)
	return nil
}
