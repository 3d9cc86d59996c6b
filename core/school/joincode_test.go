package school

import (
	"strings"
	"testing"
	"time"
)

func TestJoinCodeValidate(t *testing.T) {
	now := time.Date(2021, time.March, 10, 12, 0, 0, 0, time.UTC)
	later := now.Add(7 * 24 * time.Hour)

	tests := []struct {
		name    string
		code    JoinCode
		wantErr error
	}{
		{name: "valid", code: JoinCode{Status: CodeActive, MaxUses: 1, ExpiresAt: later}},
		{name: "valid multi-use", code: JoinCode{Status: CodeActive, MaxUses: 5, UsedCount: 4, ExpiresAt: later}},
		{name: "revoked", code: JoinCode{Status: CodeRevoked, MaxUses: 1, ExpiresAt: later}, wantErr: ErrCodeRevoked},
		{name: "used status", code: JoinCode{Status: CodeUsed, MaxUses: 1, UsedCount: 1, ExpiresAt: later}, wantErr: ErrCodeExhausted},
		{name: "expired", code: JoinCode{Status: CodeActive, MaxUses: 1, ExpiresAt: now.Add(-time.Minute)}, wantErr: ErrCodeExpired},
		{name: "expires exactly now", code: JoinCode{Status: CodeActive, MaxUses: 1, ExpiresAt: now}, wantErr: ErrCodeExpired},
		{name: "exhausted but still active", code: JoinCode{Status: CodeActive, MaxUses: 3, UsedCount: 3, ExpiresAt: later}, wantErr: ErrCodeExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.code.Validate(now); err != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJoinCodeDisplayStatus(t *testing.T) {
	now := time.Date(2021, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		code JoinCode
		want string
	}{
		{name: "active", code: JoinCode{Status: CodeActive, ExpiresAt: now.Add(time.Hour)}, want: CodeActive},
		{name: "lazily expired", code: JoinCode{Status: CodeActive, ExpiresAt: now.Add(-time.Hour)}, want: CodeExpired},
		{name: "revoked stays revoked past expiry", code: JoinCode{Status: CodeRevoked, ExpiresAt: now.Add(-time.Hour)}, want: CodeRevoked},
		{name: "used", code: JoinCode{Status: CodeUsed, ExpiresAt: now.Add(time.Hour)}, want: CodeUsed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.code.DisplayStatus(now); got != tt.want {
				t.Errorf("DisplayStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode() failed: %v", err)
		}
		if len(code) != codeLen {
			t.Errorf("generateCode() len = %d, want %d", len(code), codeLen)
		}
		for _, char := range code {
			if !strings.ContainsRune(codeAlphabet, char) {
				t.Errorf("generateCode() produced char %q outside alphabet", char)
			}
		}
		if seen[code] {
			t.Errorf("generateCode() produced duplicate %q", code)
		}
		seen[code] = true
	}
}
