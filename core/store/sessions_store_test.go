package store

import (
	"context"
	"testing"
	"time"
)

func sessionFixture(id string, expires time.Time) *SessionRecord {
	now := time.Now().UTC()
	return &SessionRecord{
		ID:         id,
		UserID:     1,
		Username:   "admin",
		Roles:      []string{"admin"},
		CSRFToken:  "token",
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  expires,
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := newTestDB(t)
	s := NewSessionsStore(db)
	ctx := context.Background()

	rec := sessionFixture("s1", time.Now().UTC().Add(time.Hour))
	if err := s.SaveSession(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.GetSession(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if len(got.Roles) != 1 || got.Roles[0] != "admin" {
		t.Fatalf("roles %v", got.Roles)
	}
	if err := s.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = s.GetSession(ctx, "s1")
	if err != nil || got != nil {
		t.Fatalf("revoked session must read as absent, got %+v", got)
	}
}

func TestExpiredSessionNotReturned(t *testing.T) {
	db := newTestDB(t)
	s := NewSessionsStore(db)
	ctx := context.Background()

	if err := s.SaveSession(ctx, sessionFixture("old", time.Now().UTC().Add(-time.Minute))); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.GetSession(ctx, "old")
	if err != nil || got != nil {
		t.Fatalf("expired session must read as absent, got %+v", got)
	}
}

func TestDeleteExpired(t *testing.T) {
	db := newTestDB(t)
	s := NewSessionsStore(db)
	ctx := context.Background()

	_ = s.SaveSession(ctx, sessionFixture("live", time.Now().UTC().Add(time.Hour)))
	_ = s.SaveSession(ctx, sessionFixture("dead", time.Now().UTC().Add(-time.Hour)))

	n, err := s.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Fatalf("removed %d", n)
	}
	if got, _ := s.GetSession(ctx, "live"); got == nil {
		t.Fatal("live session must survive cleanup")
	}
}
