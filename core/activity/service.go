package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/udereva/core/school"
)

var ErrUnknownEvent = errors.New("unknown event type")

type (
	Repository interface {
		CreateEvent(ctx context.Context, ev Event) (Event, error)
		SumPoints(ctx context.Context, schoolID, userID string) (int, error)
		SumPointsByUser(ctx context.Context, schoolID string) (map[string]int, error)
		QueryEvents(ctx context.Context, schoolID, userID string, limit int) ([]Event, error)
	}

	Service struct {
		repo    Repository
		schools *school.Service
	}
)

func NewService(repo Repository, schoolSvc *school.Service) *Service {
	return &Service{repo: repo, schools: schoolSvc}
}

// Record appends an award to the ledger.
func (svc *Service) Record(ctx context.Context, userID, schoolID, eventType, referenceID string) (Event, error) {
	points := PointsFor(eventType)
	if points == 0 {
		return Event{}, ErrUnknownEvent
	}
	ev := Event{
		ID:          uuid.New().String(),
		UserID:      userID,
		SchoolID:    schoolID,
		EventType:   eventType,
		Points:      points,
		ReferenceID: referenceID,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateEvent(ctx, ev)
}

func (svc *Service) TotalPoints(ctx context.Context, schoolID, userID string) (int, error) {
	return svc.repo.SumPoints(ctx, schoolID, userID)
}

func (svc *Service) RecentEvents(ctx context.Context, schoolID, userID string, limit int) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, schoolID, userID, limit)
}

// Leaderboard ranks a school's active students by total points.
func (svc *Service) Leaderboard(ctx context.Context, schoolID, userID string) (Board, error) {
	members, err := svc.schools.QueryMembers(ctx, schoolID, school.MemberFilter{
		Role:   school.RoleStudent,
		Status: school.MemberActive,
	})
	if err != nil {
		return Board{}, errors.Wrap(err, "querying active students")
	}
	sums, err := svc.repo.SumPointsByUser(ctx, schoolID)
	if err != nil {
		return Board{}, errors.Wrap(err, "summing points")
	}

	entries := make([]Entry, 0, len(members))
	for _, mbr := range members {
		entries = append(entries, Entry{
			UserID: mbr.UserID,
			Name:   mbr.UserName,
			Points: sums[mbr.UserID],
		})
	}
	ranked := Rank(entries)

	board := Board{
		Entries:      ranked,
		TotalMembers: len(ranked),
	}
	if len(board.Entries) > DisplayLimit {
		board.Entries = board.Entries[:DisplayLimit]
	}
	for _, e := range ranked {
		if e.UserID == userID {
			board.MyRank = e.Rank
			board.MyPoints = e.Points
			break
		}
	}
	return board, nil
}
