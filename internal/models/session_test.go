package models

import (
	"strings"
	"testing"
	"time"
)

func TestSession_Valid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		isActive  bool
		expiresAt time.Time
		want      bool
	}{
		{name: "active and unexpired", isActive: true, expiresAt: now.Add(time.Hour), want: true},
		{name: "active but expired", isActive: true, expiresAt: now.Add(-time.Minute), want: false},
		{name: "inactive", isActive: false, expiresAt: now.Add(time.Hour), want: false},
		{name: "expires exactly now", isActive: true, expiresAt: now, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{
				Token:     strings.Repeat("a", SessionTokenLength),
				AccountID: "acct-1",
				CreatedAt: now.Add(-time.Hour),
				ExpiresAt: tt.expiresAt,
				IsActive:  tt.isActive,
			}
			if got := s.Valid(now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSession_Validate(t *testing.T) {
	now := time.Now()

	valid := func() *Session {
		return &Session{
			ID:           "sess-1",
			Token:        strings.Repeat("a", SessionTokenLength),
			AccountID:    "acct-1",
			CreatedAt:    now,
			ExpiresAt:    now.Add(24 * time.Hour),
			IsActive:     true,
			LastActivity: now,
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Session)
		wantErr bool
	}{
		{name: "valid", mutate: func(s *Session) {}},
		{name: "short token", mutate: func(s *Session) { s.Token = "abc" }, wantErr: true},
		{name: "missing account", mutate: func(s *Session) { s.AccountID = "" }, wantErr: true},
		{name: "expiry equals creation", mutate: func(s *Session) { s.ExpiresAt = s.CreatedAt }, wantErr: true},
		{name: "expiry before creation", mutate: func(s *Session) { s.ExpiresAt = s.CreatedAt.Add(-time.Second) }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
