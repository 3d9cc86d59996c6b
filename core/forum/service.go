package forum

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/udereva/core/activity"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
)

type (
	Repository interface {
		CreatePost(ctx context.Context, pst Post) (Post, error)
		GetPostByID(ctx context.Context, schoolID, id string) (Post, error)
		QueryPosts(ctx context.Context, schoolID string) ([]Post, error)
		DeletePostsByID(ctx context.Context, schoolID string, ids ...string) error

		CreateComment(ctx context.Context, cmt Comment) (Comment, error)
		GetCommentByID(ctx context.Context, postID, id string) (Comment, error)
		QueryComments(ctx context.Context, postID string) ([]Comment, error)
		DeleteCommentsByID(ctx context.Context, postID string, ids ...string) error
	}

	Service struct {
		repo     Repository
		activity *activity.Service
	}
)

func NewService(repo Repository, activitySvc *activity.Service) *Service {
	return &Service{repo: repo, activity: activitySvc}
}

// CreatePost opens a thread and awards its author points.
func (svc *Service) CreatePost(ctx context.Context, schoolID, authorID string, np NewPost) (Post, error) {
	now := time.Now().UTC()
	pst, err := svc.repo.CreatePost(ctx, Post{
		ID:        uuid.New().String(),
		SchoolID:  schoolID,
		AuthorID:  authorID,
		Title:     np.Title,
		Body:      np.Body,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Post{}, err
	}
	if _, err = svc.activity.Record(ctx, authorID, schoolID, activity.EventPostCreated, pst.ID); err != nil {
		return Post{}, errors.Wrap(err, "awarding points")
	}
	return pst, nil
}

func (svc *Service) GetPost(ctx context.Context, schoolID, id string) (Post, error) {
	return svc.repo.GetPostByID(ctx, schoolID, id)
}

func (svc *Service) QueryPosts(ctx context.Context, schoolID string) ([]Post, error) {
	return svc.repo.QueryPosts(ctx, schoolID)
}

func (svc *Service) DeletePost(ctx context.Context, schoolID string, ids ...string) error {
	return svc.repo.DeletePostsByID(ctx, schoolID, ids...)
}

// CreateComment replies to a thread and awards its author points.
func (svc *Service) CreateComment(ctx context.Context, schoolID, postID, authorID string, nc NewComment) (Comment, error) {
	pst, err := svc.repo.GetPostByID(ctx, schoolID, postID)
	if err != nil {
		return Comment{}, err
	}

	cmt, err := svc.repo.CreateComment(ctx, Comment{
		ID:        uuid.New().String(),
		PostID:    pst.ID,
		AuthorID:  authorID,
		Body:      nc.Body,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Comment{}, err
	}
	if _, err = svc.activity.Record(ctx, authorID, schoolID, activity.EventCommentCreated, cmt.ID); err != nil {
		return Comment{}, errors.Wrap(err, "awarding points")
	}
	return cmt, nil
}

func (svc *Service) GetComment(ctx context.Context, postID, id string) (Comment, error) {
	return svc.repo.GetCommentByID(ctx, postID, id)
}

func (svc *Service) QueryComments(ctx context.Context, postID string) ([]Comment, error) {
	return svc.repo.QueryComments(ctx, postID)
}

func (svc *Service) DeleteComment(ctx context.Context, postID string, ids ...string) error {
	return svc.repo.DeleteCommentsByID(ctx, postID, ids...)
}
