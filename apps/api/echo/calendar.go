package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/calendar"
)

type calendarApi struct {
	svc      *calendar.Service
	validate *validator.Validate
}

func registerCalendarAPI(g *echo.Group, svc *calendar.Service, validate *validator.Validate) {
	api := calendarApi{svc: svc, validate: validate}

	cg := g.Group("/calendar")
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)

	lg := g.Group("/legend")
	lg.GET("", api.legend)
	lg.POST("/seed", api.seedLegend)
}

// Handlers

func (api *calendarApi) query(ctx echo.Context) error {
	entries, err := api.svc.QueryEntries(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying calendar entries")
	}
	if entries == nil {
		entries = []calendar.CalendarEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *calendarApi) create(ctx echo.Context) error {
	var data calendar.NewCalendarEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCalendarEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entry, err := api.svc.CreateEntry(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating calendar entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *calendarApi) retrieve(ctx echo.Context) error {
	entry, err := api.svc.GetEntry(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding calendar entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *calendarApi) update(ctx echo.Context) error {
	var data calendar.UpdateCalendarEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCalendarEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entry, err := api.svc.UpdateEntry(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating calendar entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *calendarApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteEntry(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting calendar entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *calendarApi) legend(ctx echo.Context) error {
	legend, err := api.svc.Legend(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying legend")
	}
	if legend == nil {
		legend = []calendar.LegendEntry{}
	}
	return ctx.JSON(http.StatusOK, legend)
}

func (api *calendarApi) seedLegend(ctx echo.Context) error {
	n, err := api.svc.SeedLegend(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "seeding legend")
	}
	return ctx.JSON(http.StatusOK, SeedResponse{Seeded: n})
}

type SeedResponse struct {
	Seeded int `json:"seeded"`
}
