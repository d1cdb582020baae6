package expiry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/store"
)

type fakeExpirer struct {
	calls atomic.Int32
	at    time.Time
}

func (f *fakeExpirer) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	f.calls.Add(1)
	f.at = now
	return 2, nil
}

func TestRunNowPassesClock(t *testing.T) {
	fixed := time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC)
	s := NewScheduler(context.Background(), time.Second)
	s.now = func() time.Time { return fixed }

	exp := &fakeExpirer{}
	n, err := s.RunNow(OverdueItems(exp))
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 changed, got %d", n)
	}
	if !exp.at.Equal(fixed) {
		t.Errorf("expected sweep at %v, got %v", fixed, exp.at)
	}
}

func TestRunNowReportsErrors(t *testing.T) {
	s := NewScheduler(context.Background(), time.Second)
	boom := errors.New("boom")

	_, err := s.RunNow(Job{Name: "failing", Run: func(context.Context, time.Time) (int, error) {
		return 0, boom
	}})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestAddRejectsBadSpec(t *testing.T) {
	s := NewScheduler(context.Background(), time.Second)
	if err := s.Add("not a schedule", OverdueItems(&fakeExpirer{})); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}

func TestScheduledRun(t *testing.T) {
	s := NewScheduler(context.Background(), time.Second)
	exp := &fakeExpirer{}
	if err := s.Add("@every 10ms", OverdueItems(exp)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	s.Start()
	deadline := time.Now().Add(3 * time.Second)
	for exp.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	if exp.calls.Load() == 0 {
		t.Error("expected the job to run at least once")
	}
}

func TestRevokedTokensJob(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	store.RevokeToken(ctx, database, "old", now.Add(-time.Hour))
	store.RevokeToken(ctx, database, "new", now.Add(time.Hour))

	s := NewScheduler(ctx, time.Second)
	s.now = func() time.Time { return now }
	n, err := s.RunNow(RevokedTokens(database))
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged, got %d", n)
	}
}
