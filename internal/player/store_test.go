package player

import (
	"context"
	"testing"
	"time"
)

func TestStoreSweepsIdleSessions(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(time.Hour)
	store.now = func() time.Time { return now }

	idle := &Session{Player: New(time.Second, nil)}
	idle.Player.Load(questions(2))
	store.Add(idle)

	now = now.Add(30 * time.Minute)
	active := &Session{UserID: "u1", Player: New(time.Second, nil)}
	active.Player.Load(questions(2))
	store.Add(active)

	now = now.Add(45 * time.Minute)
	if _, ok := store.Get(active.ID); !ok {
		t.Fatal("active session missing")
	}

	if n := store.Sweep(); n != 1 {
		t.Fatalf("Sweep() removed %d, want 1", n)
	}
	if _, ok := store.Get(idle.ID); ok {
		t.Error("idle session still present")
	}
	if idle.Player.State() != StateCancelled {
		t.Errorf("idle player state = %v, want cancelled", idle.Player.State())
	}
	if store.Len() != 1 || active.Anonymous() || !idle.Anonymous() {
		t.Errorf("unexpected store contents")
	}
}

func TestStoreRemove(t *testing.T) {
	store := NewStore(time.Hour)
	sess := &Session{Player: New(time.Second, nil)}
	store.Add(sess)
	if sess.ID == "" {
		t.Fatal("Add() did not assign an id")
	}
	if _, ok := store.Remove(sess.ID); !ok {
		t.Fatal("Remove() found nothing")
	}
	if _, ok := store.Remove(sess.ID); ok {
		t.Error("second Remove() found a session")
	}
}

func TestStoreRunStopsWithContext(t *testing.T) {
	store := NewStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
