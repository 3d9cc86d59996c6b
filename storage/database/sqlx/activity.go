package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/udereva/core/activity"
)

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *sqlx.DB) *activityRepository {
	return &activityRepository{db: db}
}

type eventRow struct {
	ID          string      `db:"id"`
	UserID      string      `db:"user_id"`
	SchoolID    string      `db:"school_id"`
	EventType   string      `db:"event_type"`
	Points      int         `db:"points"`
	ReferenceID null.String `db:"reference_id"`
	CreatedAt   null.Time   `db:"created_at"`
}

func (row eventRow) unpack() activity.Event {
	return activity.Event{
		ID:          row.ID,
		UserID:      row.UserID,
		SchoolID:    row.SchoolID,
		EventType:   row.EventType,
		Points:      row.Points,
		ReferenceID: row.ReferenceID.String,
		CreatedAt:   row.CreatedAt.Time,
	}
}

// CreateEvent appends to the ledger; events are never updated or deleted.
func (repo activityRepository) CreateEvent(ctx context.Context, ev activity.Event) (activity.Event, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO activity_event (id, user_id, school_id, event_type, points, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.UserID, ev.SchoolID, ev.EventType, ev.Points,
		null.NewString(ev.ReferenceID, ev.ReferenceID != ""), ev.CreatedAt,
	)
	if err != nil {
		return activity.Event{}, errors.Wrap(err, "inserting activity event")
	}
	return ev, nil
}

func (repo activityRepository) SumPoints(ctx context.Context, schoolID, userID string) (int, error) {
	var total int
	err := repo.db.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(points), 0) FROM activity_event WHERE school_id = $1 AND user_id = $2`,
		schoolID, userID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "summing points")
	}
	return total, nil
}

func (repo activityRepository) SumPointsByUser(ctx context.Context, schoolID string) (map[string]int, error) {
	var rows []struct {
		UserID string `db:"user_id"`
		Total  int    `db:"total"`
	}
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT user_id, SUM(points) AS total
		FROM activity_event
		WHERE school_id = $1
		GROUP BY user_id`,
		schoolID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "summing points by user")
	}

	sums := make(map[string]int, len(rows))
	for _, row := range rows {
		sums[row.UserID] = row.Total
	}
	return sums, nil
}

func (repo activityRepository) QueryEvents(ctx context.Context, schoolID, userID string, limit int) ([]activity.Event, error) {
	var rows []eventRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM activity_event
		WHERE school_id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT $3`,
		schoolID, userID, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying activity events")
	}

	events := make([]activity.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.unpack())
	}
	return events, nil
}
