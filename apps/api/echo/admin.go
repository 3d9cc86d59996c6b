package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/udereva/core/school"
	"github.com/trezcool/udereva/core/user"
)

// registerAdminAPI mounts the superuser-only surface.
func registerAdminAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	schoolSvc *school.Service,
	usrSvc *user.Service,
	validate *validator.Validate,
) {
	api := adminApi{schoolSvc: schoolSvc, usrSvc: usrSvc, validate: validate}

	ag := g.Group("/admin", jwt, superuserMiddleware())
	ag.GET("/schools", api.querySchools)
	ag.PUT("/schools/:id/subscription", api.setSubscription)
	ag.DELETE("/schools/:id", api.deleteSchool)
}

type adminApi struct {
	schoolSvc *school.Service
	usrSvc    *user.Service
	validate  *validator.Validate
}

func (api *adminApi) querySchools(ctx echo.Context) error {
	schools, err := api.schoolSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []school.SchoolInfo{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *adminApi) setSubscription(ctx echo.Context) error {
	var data SubscriptionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubscriptionRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	sch, err := api.schoolSvc.SetSubscriptionStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating subscription status")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *adminApi) deleteSchool(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if _, err := api.schoolSvc.GetByID(reqCtx, ctx.Param("id")); err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding school by ID")
	}
	if err := api.schoolSvc.Delete(reqCtx, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting school")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type SubscriptionRequest struct {
	Status string `json:"status" validate:"required,oneof=active trialing past_due canceled incomplete"`
}
