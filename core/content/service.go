package content

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/udereva/core/activity"
)

var (
	ErrModuleNotFound = errors.New("module not found")
	ErrLessonNotFound = errors.New("lesson not found")
)

type (
	Repository interface {
		CreateModule(ctx context.Context, mod Module) (Module, error)
		GetModuleByID(ctx context.Context, schoolID, id string) (Module, error)
		QueryModules(ctx context.Context, schoolID string, publishedOnly bool) ([]Module, error)
		UpdateModule(ctx context.Context, mod Module, isPublished *bool) (Module, error)
		DeleteModulesByID(ctx context.Context, schoolID string, ids ...string) error

		CreateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, schoolID, id string) (Lesson, error)
		QueryLessons(ctx context.Context, schoolID, moduleID string, publishedOnly bool) ([]Lesson, error)
		UpdateLesson(ctx context.Context, lsn Lesson, isPublished *bool) (Lesson, error)
		DeleteLessonsByID(ctx context.Context, schoolID string, ids ...string) error

		QueryPublishedLessonRefs(ctx context.Context, schoolID string) ([]LessonRef, error)
		GetCompletedLessonIDs(ctx context.Context, schoolID, userID string) (map[string]bool, error)
		// CreateLessonProgress records a completion; returns false when the
		// (user, lesson) pair was already recorded.
		CreateLessonProgress(ctx context.Context, prog LessonProgress) (bool, error)
	}

	Service struct {
		repo     Repository
		activity *activity.Service
	}
)

func NewService(repo Repository, activitySvc *activity.Service) *Service {
	return &Service{repo: repo, activity: activitySvc}
}

// Modules

func (svc *Service) CreateModule(ctx context.Context, schoolID string, nm NewModule) (Module, error) {
	now := time.Now().UTC()
	mod := Module{
		SchoolID:    schoolID,
		Name:        nm.Name,
		Description: nm.Description,
		OrderIndex:  nm.OrderIndex,
		IsPublished: nm.IsPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateModule(ctx, mod)
}

func (svc *Service) GetModule(ctx context.Context, schoolID, id string) (Module, error) {
	return svc.repo.GetModuleByID(ctx, schoolID, id)
}

func (svc *Service) QueryModules(ctx context.Context, schoolID string, publishedOnly bool) ([]Module, error) {
	return svc.repo.QueryModules(ctx, schoolID, publishedOnly)
}

func (svc *Service) UpdateModule(ctx context.Context, orig Module, um UpdateModule) (Module, error) {
	mod := orig
	mod.Name = um.Name
	mod.Description = um.Description
	if um.OrderIndex != nil {
		mod.OrderIndex = *um.OrderIndex
	}
	mod.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateModule(ctx, mod, um.IsPublished)
}

func (svc *Service) DeleteModules(ctx context.Context, schoolID string, ids ...string) error {
	return svc.repo.DeleteModulesByID(ctx, schoolID, ids...)
}

// Lessons

func (svc *Service) CreateLesson(ctx context.Context, schoolID string, nl NewLesson) (Lesson, error) {
	// the module must exist in this school
	if _, err := svc.repo.GetModuleByID(ctx, schoolID, nl.ModuleID); err != nil {
		return Lesson{}, err
	}

	now := time.Now().UTC()
	lsn := Lesson{
		ModuleID:        nl.ModuleID,
		SchoolID:        schoolID,
		Title:           nl.Title,
		Description:     nl.Description,
		OrderIndex:      nl.OrderIndex,
		IsPublished:     nl.IsPublished,
		VideoPath:       nl.VideoPath,
		DurationSeconds: nl.DurationSeconds,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return svc.repo.CreateLesson(ctx, lsn)
}

func (svc *Service) GetLesson(ctx context.Context, schoolID, id string) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, schoolID, id)
}

func (svc *Service) QueryLessons(ctx context.Context, schoolID, moduleID string, publishedOnly bool) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, schoolID, moduleID, publishedOnly)
}

func (svc *Service) UpdateLesson(ctx context.Context, orig Lesson, ul UpdateLesson) (Lesson, error) {
	lsn := orig
	lsn.Title = ul.Title
	lsn.Description = ul.Description
	if ul.OrderIndex != nil {
		lsn.OrderIndex = *ul.OrderIndex
	}
	if ul.VideoPath != "" {
		lsn.VideoPath = ul.VideoPath
	}
	if ul.DurationSeconds != nil {
		lsn.DurationSeconds = *ul.DurationSeconds
	}
	lsn.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLesson(ctx, lsn, ul.IsPublished)
}

func (svc *Service) DeleteLessons(ctx context.Context, schoolID string, ids ...string) error {
	return svc.repo.DeleteLessonsByID(ctx, schoolID, ids...)
}

// Progress

// CompleteLesson marks a published lesson as completed by the user; the first
// completion awards points, repeats are no-ops.
func (svc *Service) CompleteLesson(ctx context.Context, schoolID, userID, lessonID string) (LessonProgress, error) {
	lsn, err := svc.repo.GetLessonByID(ctx, schoolID, lessonID)
	if err != nil {
		return LessonProgress{}, err
	}
	if !lsn.IsPublished {
		return LessonProgress{}, ErrLessonNotFound
	}

	prog := LessonProgress{
		UserID:      userID,
		LessonID:    lsn.ID,
		CompletedAt: time.Now().UTC(),
	}
	created, err := svc.repo.CreateLessonProgress(ctx, prog)
	if err != nil {
		return LessonProgress{}, errors.Wrap(err, "recording completion")
	}
	if created {
		if _, err = svc.activity.Record(ctx, userID, schoolID, activity.EventLessonCompleted, lsn.ID); err != nil {
			return LessonProgress{}, errors.Wrap(err, "awarding points")
		}
	}
	return prog, nil
}

// Progress computes the user's completion summary over the school's published lessons.
func (svc *Service) Progress(ctx context.Context, schoolID, userID string) (ProgressSummary, error) {
	refs, err := svc.repo.QueryPublishedLessonRefs(ctx, schoolID)
	if err != nil {
		return ProgressSummary{}, errors.Wrap(err, "querying published lessons")
	}
	completed, err := svc.repo.GetCompletedLessonIDs(ctx, schoolID, userID)
	if err != nil {
		return ProgressSummary{}, errors.Wrap(err, "querying completions")
	}
	return Summarize(refs, completed), nil
}
