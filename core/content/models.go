package content

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/udereva/core"
)

// Module is an ordered group of lessons within a school.
type Module struct {
	ID          string    `json:"id"`
	SchoolID    string    `json:"school_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OrderIndex  int       `json:"order_index"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Lesson is a single video-backed content unit; the video blob lives in
// external storage, only its path is persisted.
type Lesson struct {
	ID              string    `json:"id"`
	ModuleID        string    `json:"module_id"`
	SchoolID        string    `json:"school_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	OrderIndex      int       `json:"order_index"`
	IsPublished     bool      `json:"is_published"`
	VideoPath       string    `json:"video_path"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// LessonProgress records that a user completed a lesson; at most one row per
// (user, lesson) — absence means not completed.
type LessonProgress struct {
	UserID      string    `json:"user_id"`
	LessonID    string    `json:"lesson_id"`
	CompletedAt time.Time `json:"completed_at"` // UTC
}

// NewModule contains information needed to create a Module.
type NewModule struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index" validate:"min=0"`
	IsPublished bool   `json:"is_published"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Name = core.CleanString(nm.Name)
	nm.Description = core.CleanString(nm.Description)
	return validate.Struct(nm)
}

// UpdateModule defines what information may be provided to modify a Module.
type UpdateModule struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	OrderIndex  *int   `json:"order_index" validate:"omitempty,min=0"`
	IsPublished *bool  `json:"is_published"`
}

func (um *UpdateModule) Validate(orig Module, validate *validator.Validate) error {
	if name := core.CleanString(um.Name); name != "" {
		um.Name = name
	} else {
		um.Name = orig.Name
	}
	if desc := core.CleanString(um.Description); desc != "" {
		um.Description = desc
	} else {
		um.Description = orig.Description
	}
	return validate.Struct(um)
}

// NewLesson contains information needed to create a Lesson.
type NewLesson struct {
	ModuleID        string `json:"module_id" validate:"required"`
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description"`
	OrderIndex      int    `json:"order_index" validate:"min=0"`
	IsPublished     bool   `json:"is_published"`
	VideoPath       string `json:"video_path"`
	DurationSeconds int    `json:"duration_seconds" validate:"min=0"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Description = core.CleanString(nl.Description)
	return validate.Struct(nl)
}

// UpdateLesson defines what information may be provided to modify a Lesson.
type UpdateLesson struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	OrderIndex      *int   `json:"order_index" validate:"omitempty,min=0"`
	IsPublished     *bool  `json:"is_published"`
	VideoPath       string `json:"video_path"`
	DurationSeconds *int   `json:"duration_seconds" validate:"omitempty,min=0"`
}

func (ul *UpdateLesson) Validate(orig Lesson, validate *validator.Validate) error {
	if title := core.CleanString(ul.Title); title != "" {
		ul.Title = title
	} else {
		ul.Title = orig.Title
	}
	if desc := core.CleanString(ul.Description); desc != "" {
		ul.Description = desc
	} else {
		ul.Description = orig.Description
	}
	return validate.Struct(ul)
}
