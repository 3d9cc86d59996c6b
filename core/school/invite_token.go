package school

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	inviteSalt = []byte("udereva.core.school.invite_token")
	nowFunc    = time.Now // mockable

	// set by NewService
	secretKey             []byte
	inviteExpirationDelta time.Duration

	// errors
	errInvalidInvite = errors.New("invalid invitation")
	errInviteExpired = errors.New("invitation expired")
)

// Invite is the payload carried by a signed invitation token. Unlike join
// codes, invites are stateless: the token itself is the record.
type Invite struct {
	SchoolID string
	Email    string
	Role     string
}

// makeInviteToken signs an invitation into a self-contained token:
// base64(schoolID|email|role|ts)-signature.
func makeInviteToken(inv Invite) string {
	return makeInviteTokenWithTimestamp(inv, numDaysSince2001(nowFunc()))
}

// verifyInviteToken checks the signature and expiry and returns the payload.
func verifyInviteToken(token string) (Invite, error) {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return Invite{}, errInvalidInvite
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Invite{}, errInvalidInvite
	}
	fields := strings.Split(string(payload), "|")
	if len(fields) != 4 {
		return Invite{}, errInvalidInvite
	}
	ts, err := strconv.Atoi(fields[3])
	if err != nil {
		return Invite{}, errInvalidInvite
	}
	inv := Invite{SchoolID: fields[0], Email: fields[1], Role: fields[2]}

	// check that token has not been tampered with
	newToken := makeInviteTokenWithTimestamp(inv, ts)
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return Invite{}, errInvalidInvite
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(time.Now()) - ts) > int(inviteExpirationDelta/(24*time.Hour)) {
		return Invite{}, errInviteExpired
	}
	return inv, nil
}

func makeInviteTokenWithTimestamp(inv Invite, ts int) string {
	payload := strings.Join([]string{inv.SchoolID, inv.Email, inv.Role, strconv.Itoa(ts)}, "|")
	b64 := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return fmt.Sprintf("%s-%s", b64, sign([]byte(payload)))
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func sign(val []byte) string {
	key := sha256.Sum256(append(inviteSalt, secretKey...))
	h := hmac.New(sha256.New, key[:])
	h.Write(val)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
