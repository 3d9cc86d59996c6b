package dummydb

import (
	"context"

	"github.com/trezcool/udereva/core/activity"
)

type activityRepository struct {
	db *activityTable
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) *activityRepository {
	return &activityRepository{db: db.activity}
}

func (repo *activityRepository) CreateEvent(ctx context.Context, ev activity.Event) (activity.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.events = append(repo.db.events, ev)
	return ev, nil
}

func (repo *activityRepository) SumPoints(ctx context.Context, schoolID, userID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var total int
	for _, ev := range repo.db.events {
		if ev.SchoolID == schoolID && ev.UserID == userID {
			total += ev.Points
		}
	}
	return total, nil
}

func (repo *activityRepository) SumPointsByUser(ctx context.Context, schoolID string) (map[string]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sums := make(map[string]int)
	for _, ev := range repo.db.events {
		if ev.SchoolID == schoolID {
			sums[ev.UserID] += ev.Points
		}
	}
	return sums, nil
}

func (repo *activityRepository) QueryEvents(ctx context.Context, schoolID, userID string, limit int) ([]activity.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	// newest first
	events := make([]activity.Event, 0, limit)
	for i := len(repo.db.events) - 1; i >= 0 && len(events) < limit; i-- {
		ev := repo.db.events[i]
		if ev.SchoolID == schoolID && ev.UserID == userID {
			events = append(events, ev)
		}
	}
	return events, nil
}
