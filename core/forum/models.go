package forum

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/udereva/core"
)

// Post is a forum thread within a school.
type Post struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC

	// denormalized for listings
	AuthorName   string `json:"author_name,omitempty"`
	CommentCount int    `json:"comment_count,omitempty"`
}

// Comment is a reply to a Post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"` // UTC

	AuthorName string `json:"author_name,omitempty"`
}

// NewPost contains information needed to open a thread.
type NewPost struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"required"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Body = core.CleanString(np.Body)
	return validate.Struct(np)
}

// NewComment contains information needed to reply to a thread.
type NewComment struct {
	Body string `json:"body" validate:"required"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Body = core.CleanString(nc.Body)
	return validate.Struct(nc)
}
