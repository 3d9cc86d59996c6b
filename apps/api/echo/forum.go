package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/udereva/core/forum"
)

type forumApi struct {
	svc      *forum.Service
	validate *validator.Validate
}

func registerForumAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	member memberGuard,
	svc *forum.Service,
	validate *validator.Validate,
) {
	api := forumApi{svc: svc, validate: validate}

	fg := g.Group("/forum", jwt)
	fg.POST("/posts", api.createPost, member())
	fg.GET("/posts", api.queryPosts, member())
	fg.GET("/posts/:id", api.retrievePost, member())
	fg.DELETE("/posts/:id", api.deletePost, member())
	fg.POST("/posts/:id/comments", api.createComment, member())
	fg.GET("/posts/:id/comments", api.queryComments, member())
	fg.DELETE("/posts/:id/comments/:cid", api.deleteComment, member())
}

// Handlers

func (api *forumApi) createPost(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	var data forum.NewPost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pst, err := api.svc.CreatePost(ctx.Request().Context(), mbr.SchoolID, mbr.UserID, data)
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	return ctx.JSON(http.StatusCreated, pst)
}

func (api *forumApi) queryPosts(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	posts, err := api.svc.QueryPosts(ctx.Request().Context(), mbr.SchoolID)
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}
	if posts == nil {
		posts = []forum.Post{}
	}
	return ctx.JSON(http.StatusOK, posts)
}

func (api *forumApi) retrievePost(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	pst, err := api.svc.GetPost(ctx.Request().Context(), mbr.SchoolID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == forum.ErrPostNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding post by ID")
	}
	return ctx.JSON(http.StatusOK, pst)
}

// deletePost allows authors to delete their own posts; staff can delete any.
func (api *forumApi) deletePost(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	pst, err := api.svc.GetPost(reqCtx, mbr.SchoolID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == forum.ErrPostNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding post by ID")
	}
	if pst.AuthorID != mbr.UserID && !mbr.IsStaff() {
		return errHttpForbidden
	}

	if err := api.svc.DeletePost(reqCtx, mbr.SchoolID, pst.ID); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *forumApi) createComment(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	var data forum.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cmt, err := api.svc.CreateComment(ctx.Request().Context(), mbr.SchoolID, ctx.Param("id"), mbr.UserID, data)
	if err != nil {
		if errors.Cause(err) == forum.ErrPostNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "creating comment")
	}
	return ctx.JSON(http.StatusCreated, cmt)
}

func (api *forumApi) queryComments(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	// scope the lookup to the member's school before listing
	pst, err := api.svc.GetPost(reqCtx, mbr.SchoolID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == forum.ErrPostNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding post by ID")
	}

	comments, err := api.svc.QueryComments(reqCtx, pst.ID)
	if err != nil {
		return errors.Wrap(err, "querying comments")
	}
	if comments == nil {
		comments = []forum.Comment{}
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *forumApi) deleteComment(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	pst, err := api.svc.GetPost(reqCtx, mbr.SchoolID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == forum.ErrPostNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding post by ID")
	}

	cmt, err := api.svc.GetComment(reqCtx, pst.ID, ctx.Param("cid"))
	if err != nil {
		if errors.Cause(err) == forum.ErrCommentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding comment by ID")
	}
	if cmt.AuthorID != mbr.UserID && !mbr.IsStaff() {
		return errHttpForbidden
	}

	if err := api.svc.DeleteComment(reqCtx, pst.ID, cmt.ID); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
