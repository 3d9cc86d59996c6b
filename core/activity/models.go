package activity

import "time"

// Point-earning event types and their awards.
const (
	EventLessonCompleted = "lesson_completed" // +10
	EventPostCreated     = "post_created"     // +5
	EventCommentCreated  = "comment_created"  // +2
)

var eventPoints = map[string]int{
	EventLessonCompleted: 10,
	EventPostCreated:     5,
	EventCommentCreated:  2,
}

// PointsFor returns the award for an event type; 0 for unknown types.
func PointsFor(eventType string) int {
	return eventPoints[eventType]
}

// Event is one immutable entry of the points ledger. Totals are always
// derived as the sum of a user's events; no running total is stored anywhere,
// so concurrent awards cannot lose points.
type Event struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SchoolID    string    `json:"school_id"`
	EventType   string    `json:"event_type"`
	Points      int       `json:"points"`
	ReferenceID string    `json:"reference_id"` // lesson/post/comment the award refers to
	CreatedAt   time.Time `json:"created_at"`   // UTC
}
