package sqlxrepos

import (
	"testing"
	"time"

	"github.com/trezcool/udereva/core/school"
)

func Test_redeemFailure(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name string
		jc   school.JoinCode
		want error
	}{
		{
			name: "revoked",
			jc:   school.JoinCode{Status: school.CodeRevoked, MaxUses: 1, ExpiresAt: now.Add(time.Hour)},
			want: school.ErrCodeRevoked,
		},
		{
			name: "expired",
			jc:   school.JoinCode{Status: school.CodeActive, MaxUses: 1, ExpiresAt: now.Add(-time.Hour)},
			want: school.ErrCodeExpired,
		},
		{
			name: "exhausted",
			jc:   school.JoinCode{Status: school.CodeActive, MaxUses: 1, UsedCount: 1, ExpiresAt: now.Add(time.Hour)},
			want: school.ErrCodeExhausted,
		},
		{
			// the code re-validated between the claim and the read; the caller
			// lost a concurrent state change and must never get a free success
			name: "redeemable again",
			jc:   school.JoinCode{Status: school.CodeActive, MaxUses: 2, UsedCount: 1, ExpiresAt: now.Add(time.Hour)},
			want: school.ErrCodeConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := redeemFailure(tt.jc, now); err != tt.want {
				t.Errorf("redeemFailure() error = %v, want %v", err, tt.want)
			}
		})
	}
}
