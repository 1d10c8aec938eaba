package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	ical "github.com/arran4/golang-ical"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/calendar"
)

type emailTaskApi struct {
	svc      *calendar.Service
	validate *validator.Validate
	appName  string
}

func registerEmailTaskAPI(g *echo.Group, svc *calendar.Service, validate *validator.Validate, appName string) {
	api := emailTaskApi{svc: svc, validate: validate, appName: appName}

	tg := g.Group("/email-tasks")
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.DELETE("", api.destroy)
	tg.GET("/feed.ics", api.feed)
	tg.GET("/:id", api.retrieve)
}

func (api *emailTaskApi) tasks(ctx echo.Context) (calendar.TaskResult, error) {
	var q TaskQuery
	if err := q.Bind(ctx, api.svc.Location(), calendar.NowFunc()); err != nil {
		return calendar.TaskResult{}, err
	}

	var res calendar.TaskResult
	var err error
	if q.Upcoming {
		res, err = api.svc.TasksUpcoming(ctx.Request().Context(), calendar.NowFunc().In(api.svc.Location()))
	} else {
		res, err = api.svc.TasksOnDate(ctx.Request().Context(), q.Date)
	}
	if err != nil {
		return calendar.TaskResult{}, errors.Wrap(err, "querying tasks")
	}
	if res.Tasks == nil {
		res.Tasks = []calendar.EmailTask{}
	}
	return res, nil
}

// Handlers

func (api *emailTaskApi) query(ctx echo.Context) error {
	res, err := api.tasks(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *emailTaskApi) create(ctx echo.Context) error {
	var data calendar.NewEmailTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEmailTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	task, err := api.svc.CreateTask(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating email task")
	}
	return ctx.JSON(http.StatusCreated, task)
}

func (api *emailTaskApi) retrieve(ctx echo.Context) error {
	task, err := api.svc.GetTask(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding email task")
	}
	return ctx.JSON(http.StatusOK, task)
}

func (api *emailTaskApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteTask(ctx.Request().Context(), ctx.QueryParam("id")); err != nil {
		return errors.Wrap(err, "deleting email task")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// feed exports the queried tasks as all-day iCalendar events.
func (api *emailTaskApi) feed(ctx echo.Context) error {
	res, err := api.tasks(ctx)
	if err != nil {
		return err
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(fmt.Sprintf("-//%s//Email Tasks//EN", api.appName))
	cal.SetXWRCalName(api.appName + " email tasks")
	cal.SetXWRTimezone(api.svc.Location().String())

	loc := api.svc.Location()
	for _, task := range res.Tasks {
		day := task.Date.In(loc)
		event := cal.AddEvent(task.ID + "@" + strings.ToLower(api.appName))
		event.SetCreatedTime(task.CreatedAt)
		event.SetDtStampTime(task.CreatedAt)
		event.SetAllDayStartAt(day)
		event.SetAllDayEndAt(day.AddDate(0, 0, 1))
		event.SetSummary(strings.Join(task.Codes, ", "))
		event.SetDescription(task.Description)
		event.AddProperty(ical.ComponentPropertyCategories, strings.Join(task.Codes, ","))
	}

	return ctx.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(cal.Serialize()))
}
