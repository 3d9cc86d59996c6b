package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/udereva/core/content"
	"github.com/trezcool/udereva/core/school"
)

type contentApi struct {
	svc      *content.Service
	validate *validator.Validate
}

func registerContentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	member memberGuard,
	svc *content.Service,
	validate *validator.Validate,
) {
	api := contentApi{svc: svc, validate: validate}

	cg := g.Group("/content", jwt)

	// any active member; students only see published content
	cg.GET("/modules", api.queryModules, member())
	cg.GET("/modules/:id", api.retrieveModule, member())
	cg.GET("/modules/:id/lessons", api.queryLessons, member())
	cg.GET("/lessons/:id", api.retrieveLesson, member())
	cg.POST("/lessons/:id/complete", api.completeLesson, member())
	cg.GET("/progress", api.progress, member())

	// staff-only content management
	cg.POST("/modules", api.createModule, member(school.StaffRoles...))
	cg.PUT("/modules/:id", api.updateModule, member(school.StaffRoles...))
	cg.DELETE("/modules/:id", api.deleteModule, member(school.StaffRoles...))
	cg.POST("/lessons", api.createLesson, member(school.StaffRoles...))
	cg.PUT("/lessons/:id", api.updateLesson, member(school.StaffRoles...))
	cg.DELETE("/lessons/:id", api.deleteLesson, member(school.StaffRoles...))
}

// Handlers

func (api *contentApi) createModule(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	var data content.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mod, err := api.svc.CreateModule(ctx.Request().Context(), mbr.SchoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, mod)
}

func (api *contentApi) queryModules(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	mods, err := api.svc.QueryModules(ctx.Request().Context(), mbr.SchoolID, !mbr.IsStaff())
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}
	if mods == nil {
		mods = []content.Module{}
	}
	return ctx.JSON(http.StatusOK, mods)
}

func (api *contentApi) retrieveModule(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	mod, err := api.getModule(ctx, mbr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, mod)
}

func (api *contentApi) updateModule(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}
	mod, err := api.getModule(ctx, mbr)
	if err != nil {
		return err
	}

	var data content.UpdateModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateModule")
	}
	if err := data.Validate(mod, api.validate); err != nil {
		return err
	}

	mod, err = api.svc.UpdateModule(ctx.Request().Context(), mod, data)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	return ctx.JSON(http.StatusOK, mod)
}

func (api *contentApi) deleteModule(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteModules(ctx.Request().Context(), mbr.SchoolID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contentApi) createLesson(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	var data content.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lsn, err := api.svc.CreateLesson(ctx.Request().Context(), mbr.SchoolID, data)
	if err != nil {
		if errors.Cause(err) == content.ErrModuleNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *contentApi) queryLessons(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	lessons, err := api.svc.QueryLessons(ctx.Request().Context(), mbr.SchoolID, ctx.Param("id"), !mbr.IsStaff())
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []content.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *contentApi) retrieveLesson(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	lsn, err := api.getLesson(ctx, mbr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *contentApi) updateLesson(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}
	lsn, err := api.getLesson(ctx, mbr)
	if err != nil {
		return err
	}

	var data content.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err := data.Validate(lsn, api.validate); err != nil {
		return err
	}

	lsn, err = api.svc.UpdateLesson(ctx.Request().Context(), lsn, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *contentApi) deleteLesson(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteLessons(ctx.Request().Context(), mbr.SchoolID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contentApi) completeLesson(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	prog, err := api.svc.CompleteLesson(ctx.Request().Context(), mbr.SchoolID, mbr.UserID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == content.ErrLessonNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "completing lesson")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *contentApi) progress(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	sum, err := api.svc.Progress(ctx.Request().Context(), mbr.SchoolID, mbr.UserID)
	if err != nil {
		return errors.Wrap(err, "computing progress")
	}
	return ctx.JSON(http.StatusOK, sum)
}

// getModule fetches the :id module, hiding unpublished content from students.
func (api *contentApi) getModule(ctx echo.Context, mbr school.Member) (content.Module, error) {
	mod, err := api.svc.GetModule(ctx.Request().Context(), mbr.SchoolID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == content.ErrModuleNotFound {
			return content.Module{}, errHttpNotFound
		}
		return content.Module{}, errors.Wrap(err, "finding module by ID")
	}
	if !mod.IsPublished && !mbr.IsStaff() {
		return content.Module{}, errHttpNotFound
	}
	return mod, nil
}

func (api *contentApi) getLesson(ctx echo.Context, mbr school.Member) (content.Lesson, error) {
	lsn, err := api.svc.GetLesson(ctx.Request().Context(), mbr.SchoolID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == content.ErrLessonNotFound {
			return content.Lesson{}, errHttpNotFound
		}
		return content.Lesson{}, errors.Wrap(err, "finding lesson by ID")
	}
	if !lsn.IsPublished && !mbr.IsStaff() {
		return content.Lesson{}, errHttpNotFound
	}
	return lsn, nil
}
