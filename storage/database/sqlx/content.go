package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/udereva/core/content"
)

type contentRepository struct {
	db *sqlx.DB
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db *sqlx.DB) *contentRepository {
	return &contentRepository{db: db}
}

type moduleRow struct {
	ID          string      `db:"id"`
	SchoolID    string      `db:"school_id"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	OrderIndex  int         `db:"order_index"`
	IsPublished bool        `db:"is_published"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

func (row moduleRow) unpack() content.Module {
	return content.Module{
		ID:          row.ID,
		SchoolID:    row.SchoolID,
		Name:        row.Name,
		Description: row.Description.String,
		OrderIndex:  row.OrderIndex,
		IsPublished: row.IsPublished,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

type lessonRow struct {
	ID              string      `db:"id"`
	ModuleID        string      `db:"module_id"`
	SchoolID        string      `db:"school_id"`
	Title           string      `db:"title"`
	Description     null.String `db:"description"`
	OrderIndex      int         `db:"order_index"`
	IsPublished     bool        `db:"is_published"`
	VideoPath       null.String `db:"video_path"`
	DurationSeconds int         `db:"duration_seconds"`
	CreatedAt       null.Time   `db:"created_at"`
	UpdatedAt       null.Time   `db:"updated_at"`
}

func (row lessonRow) unpack() content.Lesson {
	return content.Lesson{
		ID:              row.ID,
		ModuleID:        row.ModuleID,
		SchoolID:        row.SchoolID,
		Title:           row.Title,
		Description:     row.Description.String,
		OrderIndex:      row.OrderIndex,
		IsPublished:     row.IsPublished,
		VideoPath:       row.VideoPath.String,
		DurationSeconds: row.DurationSeconds,
		CreatedAt:       row.CreatedAt.Time,
		UpdatedAt:       row.UpdatedAt.Time,
	}
}

// Modules

func (repo contentRepository) CreateModule(ctx context.Context, mod content.Module) (content.Module, error) {
	mod.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO module (id, school_id, name, description, order_index, is_published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		mod.ID, mod.SchoolID, mod.Name, null.NewString(mod.Description, mod.Description != ""),
		mod.OrderIndex, mod.IsPublished, mod.CreatedAt, mod.UpdatedAt,
	)
	if err != nil {
		return content.Module{}, errors.Wrap(err, "inserting module")
	}
	return mod, nil
}

func (repo contentRepository) GetModuleByID(ctx context.Context, schoolID, id string) (content.Module, error) {
	var row moduleRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM module WHERE school_id = $1 AND id = $2`, schoolID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return content.Module{}, content.ErrModuleNotFound
		}
		return content.Module{}, errors.Wrap(err, "getting module by ID")
	}
	return row.unpack(), nil
}

func (repo contentRepository) QueryModules(ctx context.Context, schoolID string, publishedOnly bool) ([]content.Module, error) {
	q := `SELECT * FROM module WHERE school_id = $1`
	if publishedOnly {
		q += ` AND is_published`
	}
	q += ` ORDER BY order_index, id`

	var rows []moduleRow
	if err := repo.db.SelectContext(ctx, &rows, q, schoolID); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}

	modules := make([]content.Module, 0, len(rows))
	for _, row := range rows {
		modules = append(modules, row.unpack())
	}
	return modules, nil
}

// UpdateModule only overwrites non-zero fields; isPublished applies when non-nil.
func (repo contentRepository) UpdateModule(ctx context.Context, mod content.Module, isPublished *bool) (content.Module, error) {
	orig, err := repo.GetModuleByID(ctx, mod.SchoolID, mod.ID)
	if err != nil {
		return content.Module{}, err
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

	_, err = repo.db.ExecContext(ctx, `
		UPDATE module
		SET name = $1, description = $2, order_index = $3, is_published = $4, updated_at = $5
		WHERE school_id = $6 AND id = $7`,
		mod.Name, null.NewString(mod.Description, mod.Description != ""),
		mod.OrderIndex, mod.IsPublished, mod.UpdatedAt, mod.SchoolID, mod.ID,
	)
	if err != nil {
		return content.Module{}, errors.Wrap(err, "updating module")
	}
	return mod, nil
}

func (repo contentRepository) DeleteModulesByID(ctx context.Context, schoolID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM module WHERE school_id = ? AND id IN (?)`, schoolID, ids)
	if err != nil {
		return errors.Wrap(err, "deleting modules")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting modules")
	}
	return nil
}

// Lessons

func (repo contentRepository) CreateLesson(ctx context.Context, lsn content.Lesson) (content.Lesson, error) {
	lsn.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO lesson (id, module_id, school_id, title, description, order_index, is_published,
		                    video_path, duration_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		lsn.ID, lsn.ModuleID, lsn.SchoolID, lsn.Title, null.NewString(lsn.Description, lsn.Description != ""),
		lsn.OrderIndex, lsn.IsPublished, null.NewString(lsn.VideoPath, lsn.VideoPath != ""),
		lsn.DurationSeconds, lsn.CreatedAt, lsn.UpdatedAt,
	)
	if err != nil {
		return content.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return lsn, nil
}

func (repo contentRepository) GetLessonByID(ctx context.Context, schoolID, id string) (content.Lesson, error) {
	var row lessonRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM lesson WHERE school_id = $1 AND id = $2`, schoolID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return content.Lesson{}, content.ErrLessonNotFound
		}
		return content.Lesson{}, errors.Wrap(err, "getting lesson by ID")
	}
	return row.unpack(), nil
}

func (repo contentRepository) QueryLessons(ctx context.Context, schoolID, moduleID string, publishedOnly bool) ([]content.Lesson, error) {
	q := `SELECT * FROM lesson WHERE school_id = ?`
	args := []interface{}{schoolID}
	if moduleID != "" {
		q += ` AND module_id = ?`
		args = append(args, moduleID)
	}
	if publishedOnly {
		q += ` AND is_published`
	}
	q = repo.db.Rebind(q + ` ORDER BY order_index, id`)

	var rows []lessonRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}

	lessons := make([]content.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, row.unpack())
	}
	return lessons, nil
}

// UpdateLesson only overwrites non-zero fields; isPublished applies when non-nil.
func (repo contentRepository) UpdateLesson(ctx context.Context, lsn content.Lesson, isPublished *bool) (content.Lesson, error) {
	orig, err := repo.GetLessonByID(ctx, lsn.SchoolID, lsn.ID)
	if err != nil {
		return content.Lesson{}, err
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

	_, err = repo.db.ExecContext(ctx, `
		UPDATE lesson
		SET title = $1, description = $2, order_index = $3, is_published = $4,
		    video_path = $5, duration_seconds = $6, updated_at = $7
		WHERE school_id = $8 AND id = $9`,
		lsn.Title, null.NewString(lsn.Description, lsn.Description != ""),
		lsn.OrderIndex, lsn.IsPublished, null.NewString(lsn.VideoPath, lsn.VideoPath != ""),
		lsn.DurationSeconds, lsn.UpdatedAt, lsn.SchoolID, lsn.ID,
	)
	if err != nil {
		return content.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	return lsn, nil
}

func (repo contentRepository) DeleteLessonsByID(ctx context.Context, schoolID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM lesson WHERE school_id = ? AND id IN (?)`, schoolID, ids)
	if err != nil {
		return errors.Wrap(err, "deleting lessons")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting lessons")
	}
	return nil
}

// Progress

func (repo contentRepository) QueryPublishedLessonRefs(ctx context.Context, schoolID string) ([]content.LessonRef, error) {
	var rows []struct {
		ID          string `db:"id"`
		ModuleID    string `db:"module_id"`
		ModuleOrder int    `db:"module_order"`
		LessonOrder int    `db:"lesson_order"`
	}
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT l.id, l.module_id, m.order_index AS module_order, l.order_index AS lesson_order
		FROM lesson l
		JOIN module m ON m.id = l.module_id
		WHERE l.school_id = $1 AND l.is_published AND m.is_published`,
		schoolID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying lesson refs")
	}

	refs := make([]content.LessonRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, content.LessonRef{
			ID:          row.ID,
			ModuleID:    row.ModuleID,
			ModuleOrder: row.ModuleOrder,
			LessonOrder: row.LessonOrder,
		})
	}
	return refs, nil
}

func (repo contentRepository) GetCompletedLessonIDs(ctx context.Context, schoolID, userID string) (map[string]bool, error) {
	var ids []string
	err := repo.db.SelectContext(ctx, &ids, `
		SELECT p.lesson_id
		FROM lesson_progress p
		JOIN lesson l ON l.id = p.lesson_id
		WHERE l.school_id = $1 AND p.user_id = $2`,
		schoolID, userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying completed lessons")
	}

	completed := make(map[string]bool, len(ids))
	for _, id := range ids {
		completed[id] = true
	}
	return completed, nil
}

// CreateLessonProgress is idempotent; re-completions are swallowed by the
// (user_id, lesson_id) primary key.
func (repo contentRepository) CreateLessonProgress(ctx context.Context, prog content.LessonProgress) (bool, error) {
	res, err := repo.db.ExecContext(ctx, `
		INSERT INTO lesson_progress (user_id, lesson_id, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, lesson_id) DO NOTHING`,
		prog.UserID, prog.LessonID, prog.CompletedAt,
	)
	if err != nil {
		return false, errors.Wrap(err, "inserting lesson progress")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "inserting lesson progress")
	}
	return n > 0, nil
}
