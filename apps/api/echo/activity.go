package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/udereva/core/activity"
)

const defaultRecentEventsLimit = 20

type activityApi struct {
	svc *activity.Service
}

func registerActivityAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	member memberGuard,
	svc *activity.Service,
) {
	api := activityApi{svc: svc}

	ag := g.Group("/activity", jwt)
	ag.GET("/points", api.points, member())
	ag.GET("/leaderboard", api.leaderboard, member())
}

// Handlers

func (api *activityApi) points(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	total, err := api.svc.TotalPoints(reqCtx, mbr.SchoolID, mbr.UserID)
	if err != nil {
		return errors.Wrap(err, "summing points")
	}

	limit := defaultRecentEventsLimit
	if l, err := strconv.Atoi(ctx.QueryParam("limit")); err == nil && l > 0 {
		limit = l
	}
	events, err := api.svc.RecentEvents(reqCtx, mbr.SchoolID, mbr.UserID, limit)
	if err != nil {
		return errors.Wrap(err, "querying recent events")
	}
	if events == nil {
		events = []activity.Event{}
	}

	return ctx.JSON(http.StatusOK, PointsResponse{TotalPoints: total, RecentEvents: events})
}

func (api *activityApi) leaderboard(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	board, err := api.svc.Leaderboard(ctx.Request().Context(), mbr.SchoolID, mbr.UserID)
	if err != nil {
		return errors.Wrap(err, "building leaderboard")
	}
	return ctx.JSON(http.StatusOK, board)
}

type PointsResponse struct {
	TotalPoints  int              `json:"total_points"`
	RecentEvents []activity.Event `json:"recent_events"`
}
