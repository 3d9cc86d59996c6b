package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/udereva/core/forum"
)

type forumRepository struct {
	db *sqlx.DB
}

var _ forum.Repository = (*forumRepository)(nil) // interface compliance check

func NewForumRepository(db *sqlx.DB) *forumRepository {
	return &forumRepository{db: db}
}

type postRow struct {
	ID        string    `db:"id"`
	SchoolID  string    `db:"school_id"`
	AuthorID  string    `db:"author_id"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	CreatedAt null.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`

	AuthorName   null.String `db:"author_name"`
	CommentCount int         `db:"comment_count"`
}

func (row postRow) unpack() forum.Post {
	return forum.Post{
		ID:           row.ID,
		SchoolID:     row.SchoolID,
		AuthorID:     row.AuthorID,
		Title:        row.Title,
		Body:         row.Body,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
		AuthorName:   row.AuthorName.String,
		CommentCount: row.CommentCount,
	}
}

type commentRow struct {
	ID        string    `db:"id"`
	PostID    string    `db:"post_id"`
	AuthorID  string    `db:"author_id"`
	Body      string    `db:"body"`
	CreatedAt null.Time `db:"created_at"`

	AuthorName null.String `db:"author_name"`
}

func (row commentRow) unpack() forum.Comment {
	return forum.Comment{
		ID:         row.ID,
		PostID:     row.PostID,
		AuthorID:   row.AuthorID,
		Body:       row.Body,
		CreatedAt:  row.CreatedAt.Time,
		AuthorName: row.AuthorName.String,
	}
}

const postSelect = `
	SELECT p.id, p.school_id, p.author_id, p.title, p.body, p.created_at, p.updated_at,
	       u.name AS author_name,
	       (SELECT COUNT(*) FROM forum_comment c WHERE c.post_id = p.id) AS comment_count
	FROM forum_post p
	JOIN "user" u ON u.id = p.author_id`

// Posts

func (repo forumRepository) CreatePost(ctx context.Context, pst forum.Post) (forum.Post, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO forum_post (id, school_id, author_id, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pst.ID, pst.SchoolID, pst.AuthorID, pst.Title, pst.Body, pst.CreatedAt, pst.UpdatedAt,
	)
	if err != nil {
		return forum.Post{}, errors.Wrap(err, "inserting post")
	}
	return pst, nil
}

func (repo forumRepository) GetPostByID(ctx context.Context, schoolID, id string) (forum.Post, error) {
	var row postRow
	err := repo.db.GetContext(ctx, &row, postSelect+` WHERE p.school_id = $1 AND p.id = $2`, schoolID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return forum.Post{}, forum.ErrPostNotFound
		}
		return forum.Post{}, errors.Wrap(err, "getting post by ID")
	}
	return row.unpack(), nil
}

func (repo forumRepository) QueryPosts(ctx context.Context, schoolID string) ([]forum.Post, error) {
	var rows []postRow
	err := repo.db.SelectContext(ctx, &rows, postSelect+` WHERE p.school_id = $1 ORDER BY p.created_at DESC`, schoolID)
	if err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}

	posts := make([]forum.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.unpack())
	}
	return posts, nil
}

func (repo forumRepository) DeletePostsByID(ctx context.Context, schoolID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM forum_post WHERE school_id = ? AND id IN (?)`, schoolID, ids)
	if err != nil {
		return errors.Wrap(err, "deleting posts")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting posts")
	}
	return nil
}

// Comments

const commentSelect = `
	SELECT c.id, c.post_id, c.author_id, c.body, c.created_at, u.name AS author_name
	FROM forum_comment c
	JOIN "user" u ON u.id = c.author_id`

func (repo forumRepository) CreateComment(ctx context.Context, cmt forum.Comment) (forum.Comment, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO forum_comment (id, post_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		cmt.ID, cmt.PostID, cmt.AuthorID, cmt.Body, cmt.CreatedAt,
	)
	if err != nil {
		return forum.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return cmt, nil
}

func (repo forumRepository) GetCommentByID(ctx context.Context, postID, id string) (forum.Comment, error) {
	var row commentRow
	err := repo.db.GetContext(ctx, &row, commentSelect+` WHERE c.post_id = $1 AND c.id = $2`, postID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return forum.Comment{}, forum.ErrCommentNotFound
		}
		return forum.Comment{}, errors.Wrap(err, "getting comment by ID")
	}
	return row.unpack(), nil
}

func (repo forumRepository) QueryComments(ctx context.Context, postID string) ([]forum.Comment, error) {
	var rows []commentRow
	err := repo.db.SelectContext(ctx, &rows, commentSelect+` WHERE c.post_id = $1 ORDER BY c.created_at`, postID)
	if err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}

	comments := make([]forum.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.unpack())
	}
	return comments, nil
}

func (repo forumRepository) DeleteCommentsByID(ctx context.Context, postID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM forum_comment WHERE post_id = ? AND id IN (?)`, postID, ids)
	if err != nil {
		return errors.Wrap(err, "deleting comments")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting comments")
	}
	return nil
}
