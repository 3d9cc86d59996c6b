package school

import (
	"testing"
	"time"
)

func TestMakeVerifyInviteToken(t *testing.T) {
	secretKey = []byte("secret")
	inviteExpirationDelta = 7 * 24 * time.Hour

	inv := Invite{
		SchoolID: "0a41d586-2f57-4b61-a3cb-1f54c3a0f9b2",
		Email:    "student@test.cd",
		Role:     RoleStudent,
	}
	validToken := makeInviteToken(inv)

	// generate an expired token
	dayLate := inviteExpirationDelta + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := makeInviteToken(inv)
	nowFunc = time.Now // reset

	tests := []struct {
		name    string
		token   string
		want    Invite
		wantErr error
	}{
		{name: "no token", wantErr: errInvalidInvite},
		{name: "invalid parts len", token: "nope", wantErr: errInvalidInvite},
		{name: "invalid base64", token: "ièé!-sig", wantErr: errInvalidInvite},
		{name: "tampered payload", token: "c2Nob29sfGhhY2tlckB0ZXN0LmNkfG93bmVyfDc0MDA-sig", wantErr: errInvalidInvite},
		{name: "expired token", token: expiredToken, wantErr: errInviteExpired},
		{name: "valid token", token: validToken, want: inv},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := verifyInviteToken(tt.token)
			if err != tt.wantErr {
				t.Errorf("verifyInviteToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("verifyInviteToken() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
