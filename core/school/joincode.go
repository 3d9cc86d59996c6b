package school

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// Join code statuses. Codes are never flipped to "expired" in storage; expiry
// is derived from ExpiresAt at validation time.
const (
	CodeActive  = "active"
	CodeRevoked = "revoked"
	CodeUsed    = "used"
	CodeExpired = "expired" // derived only
)

var (
	ErrCodeNotFound  = errors.New("join code not found")
	ErrCodeRevoked   = errors.New("join code has been revoked")
	ErrCodeExpired   = errors.New("join code has expired")
	ErrCodeExhausted = errors.New("join code has already been used")
	// ErrCodeConflict reports a redemption that lost to a concurrent state
	// change on the code; the use was not consumed and a retry may succeed.
	ErrCodeConflict = errors.New("join code could not be redeemed, try again")
)

// codeAlphabet leaves out easily-confused characters (0/O, 1/I/L).
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"
	codeLen      = 8
)

// JoinCode allows self-service enrollment into a school, up to MaxUses times
// before ExpiresAt.
type JoinCode struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	Code      string    `json:"code"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	MaxUses   int       `json:"max_uses"`
	UsedCount int       `json:"used_count"`
	ExpiresAt time.Time `json:"expires_at"` // UTC
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Validate reports why this code cannot be redeemed at `now`, if so.
func (c JoinCode) Validate(now time.Time) error {
	switch c.Status {
	case CodeRevoked:
		return ErrCodeRevoked
	case CodeUsed:
		return ErrCodeExhausted
	}
	if !now.Before(c.ExpiresAt) {
		return ErrCodeExpired
	}
	if c.UsedCount >= c.MaxUses {
		return ErrCodeExhausted
	}
	return nil
}

// DisplayStatus derives the user-facing status; lazily-expired codes stay
// "active" in storage.
func (c JoinCode) DisplayStatus(now time.Time) string {
	if c.Status == CodeActive && !now.Before(c.ExpiresAt) {
		return CodeExpired
	}
	return c.Status
}

func generateCode() (string, error) {
	buf := make([]byte, codeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// NewJoinCode contains information needed to issue a JoinCode.
type NewJoinCode struct {
	Role      string    `json:"role" validate:"omitempty,oneof=student admin"`
	MaxUses   int       `json:"max_uses" validate:"omitempty,min=1,max=500"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (nc *NewJoinCode) Validate(validate *validator.Validate, now time.Time, defaultTimeout time.Duration) error {
	if nc.Role == "" {
		nc.Role = RoleStudent
	}
	if nc.MaxUses == 0 {
		nc.MaxUses = 1
	}
	if nc.ExpiresAt.IsZero() {
		nc.ExpiresAt = now.Add(defaultTimeout)
	}
	return validate.Struct(nc)
}
