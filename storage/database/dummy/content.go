package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/udereva/core/content"
)

type contentRepository struct {
	db *contentTable
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db *DB) *contentRepository {
	return &contentRepository{db: db.content}
}

// Modules

func (repo *contentRepository) CreateModule(ctx context.Context, mod content.Module) (content.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	mod.ID = uuid.New().String()
	repo.db.modules[mod.ID] = &mod
	return mod, nil
}

func (repo *contentRepository) GetModuleByID(ctx context.Context, schoolID, id string) (content.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if mod, ok := repo.db.modules[id]; ok && mod.SchoolID == schoolID {
		return *mod, nil
	}
	return content.Module{}, content.ErrModuleNotFound
}

func (repo *contentRepository) QueryModules(ctx context.Context, schoolID string, publishedOnly bool) ([]content.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	modules := make([]content.Module, 0, len(repo.db.modules))
	for _, mod := range repo.db.modules {
		if mod.SchoolID != schoolID {
			continue
		}
		if publishedOnly && !mod.IsPublished {
			continue
		}
		modules = append(modules, *mod)
	}
	sort.Slice(modules, func(i, j int) bool {
		if modules[i].OrderIndex != modules[j].OrderIndex {
			return modules[i].OrderIndex < modules[j].OrderIndex
		}
		return modules[i].ID < modules[j].ID
	})
	return modules, nil
}

func (repo *contentRepository) UpdateModule(ctx context.Context, mod content.Module, isPublished *bool) (content.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.modules[mod.ID]
	if !ok || orig.SchoolID != mod.SchoolID {
		return content.Module{}, content.ErrModuleNotFound
	}

	if mod.Name == "" {
		mod.Name = orig.Name
	}
	if mod.Description == "" {
		mod.Description = orig.Description
	}
	mod.IsPublished = orig.IsPublished
	if isPublished != nil {
		mod.IsPublished = *isPublished
	}
	mod.CreatedAt = orig.CreatedAt

	repo.db.modules[mod.ID] = &mod
	return mod, nil
}

func (repo *contentRepository) DeleteModulesByID(ctx context.Context, schoolID string, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		if mod, ok := repo.db.modules[id]; ok && mod.SchoolID == schoolID {
			delete(repo.db.modules, id)
			for lid, lsn := range repo.db.lessons {
				if lsn.ModuleID == id {
					delete(repo.db.lessons, lid)
				}
			}
		}
	}
	return nil
}

// Lessons

func (repo *contentRepository) CreateLesson(ctx context.Context, lsn content.Lesson) (content.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	lsn.ID = uuid.New().String()
	repo.db.lessons[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *contentRepository) GetLessonByID(ctx context.Context, schoolID, id string) (content.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if lsn, ok := repo.db.lessons[id]; ok && lsn.SchoolID == schoolID {
		return *lsn, nil
	}
	return content.Lesson{}, content.ErrLessonNotFound
}

func (repo *contentRepository) QueryLessons(ctx context.Context, schoolID, moduleID string, publishedOnly bool) ([]content.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make([]content.Lesson, 0, len(repo.db.lessons))
	for _, lsn := range repo.db.lessons {
		if lsn.SchoolID != schoolID {
			continue
		}
		if moduleID != "" && lsn.ModuleID != moduleID {
			continue
		}
		if publishedOnly && !lsn.IsPublished {
			continue
		}
		lessons = append(lessons, *lsn)
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].OrderIndex != lessons[j].OrderIndex {
			return lessons[i].OrderIndex < lessons[j].OrderIndex
		}
		return lessons[i].ID < lessons[j].ID
	})
	return lessons, nil
}

func (repo *contentRepository) UpdateLesson(ctx context.Context, lsn content.Lesson, isPublished *bool) (content.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.lessons[lsn.ID]
	if !ok || orig.SchoolID != lsn.SchoolID {
		return content.Lesson{}, content.ErrLessonNotFound
	}

	if lsn.Title == "" {
		lsn.Title = orig.Title
	}
	if lsn.Description == "" {
		lsn.Description = orig.Description
	}
	if lsn.VideoPath == "" {
		lsn.VideoPath = orig.VideoPath
	}
	if lsn.DurationSeconds == 0 {
		lsn.DurationSeconds = orig.DurationSeconds
	}
	lsn.ModuleID = orig.ModuleID
	lsn.IsPublished = orig.IsPublished
	if isPublished != nil {
		lsn.IsPublished = *isPublished
	}
	lsn.CreatedAt = orig.CreatedAt

	repo.db.lessons[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *contentRepository) DeleteLessonsByID(ctx context.Context, schoolID string, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		if lsn, ok := repo.db.lessons[id]; ok && lsn.SchoolID == schoolID {
			delete(repo.db.lessons, id)
		}
	}
	return nil
}

// Progress

func (repo *contentRepository) QueryPublishedLessonRefs(ctx context.Context, schoolID string) ([]content.LessonRef, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	refs := make([]content.LessonRef, 0, len(repo.db.lessons))
	for _, lsn := range repo.db.lessons {
		if lsn.SchoolID != schoolID || !lsn.IsPublished {
			continue
		}
		mod, ok := repo.db.modules[lsn.ModuleID]
		if !ok || !mod.IsPublished {
			continue
		}
		refs = append(refs, content.LessonRef{
			ID:          lsn.ID,
			ModuleID:    lsn.ModuleID,
			ModuleOrder: mod.OrderIndex,
			LessonOrder: lsn.OrderIndex,
		})
	}
	return refs, nil
}

func (repo *contentRepository) GetCompletedLessonIDs(ctx context.Context, schoolID, userID string) (map[string]bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	completed := make(map[string]bool)
	for lessonID := range repo.db.progress[userID] {
		if lsn, ok := repo.db.lessons[lessonID]; ok && lsn.SchoolID == schoolID {
			completed[lessonID] = true
		}
	}
	return completed, nil
}

func (repo *contentRepository) CreateLessonProgress(ctx context.Context, prog content.LessonProgress) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	userProgress, ok := repo.db.progress[prog.UserID]
	if !ok {
		userProgress = make(map[string]content.LessonProgress)
		repo.db.progress[prog.UserID] = userProgress
	}
	if _, done := userProgress[prog.LessonID]; done {
		return false, nil
	}
	userProgress[prog.LessonID] = prog
	return true, nil
}
