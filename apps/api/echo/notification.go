package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/notification"
)

type notificationApi struct {
	svc       *notification.Service
	scheduler *notification.Scheduler
}

func registerNotificationAPI(g *echo.Group, svc *notification.Service, scheduler *notification.Scheduler) {
	api := notificationApi{svc: svc, scheduler: scheduler}

	ng := g.Group("/daily-notifications")
	ng.GET("", api.preview)
	ng.POST("", api.send)

	sg := g.Group("/scheduler")
	sg.GET("", api.status)
	sg.POST("/start", api.start)
	sg.POST("/stop", api.stop)
}

// Handlers

func (api *notificationApi) preview(ctx echo.Context) error {
	if test, _ := strconv.ParseBool(ctx.QueryParam("test")); test {
		return ctx.JSON(http.StatusOK, api.svc.Verify())
	}

	var q TaskQuery
	if err := q.Bind(ctx, api.svc.Location(), notification.NowFunc()); err != nil {
		return err
	}
	report, err := api.svc.Preview(ctx.Request().Context(), q.Date)
	if err != nil {
		return errors.Wrap(err, "computing daily digest")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *notificationApi) send(ctx echo.Context) error {
	var q TaskQuery
	if err := q.Bind(ctx, api.svc.Location(), notification.NowFunc()); err != nil {
		return err
	}
	res, err := api.svc.Send(ctx.Request().Context(), q.Date)
	if err != nil {
		return errors.Wrap(err, "sending daily notification")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *notificationApi) status(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.scheduler.Status())
}

func (api *notificationApi) start(ctx echo.Context) error {
	started := api.scheduler.Start()
	return ctx.JSON(http.StatusOK, SchedulerResponse{Changed: started, Status: api.scheduler.Status()})
}

func (api *notificationApi) stop(ctx echo.Context) error {
	running := api.scheduler.Status().Running
	<-api.scheduler.Stop().Done()
	return ctx.JSON(http.StatusOK, SchedulerResponse{Changed: running, Status: api.scheduler.Status()})
}

type SchedulerResponse struct {
	Changed bool                `json:"changed"`
	Status  notification.Status `json:"status"`
}
