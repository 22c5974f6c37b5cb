package session

import (
	"errors"
	"sync"
	"testing"
)

func TestStartOverwrites(t *testing.T) {
	store := NewMemoryStore()
	store.Start(1, "morning", "alice")
	if err := store.Update(1, func(s *Session) { s.Score = 13; s.Part = 4 }); err != nil {
		t.Fatalf("Update: %v", err)
	}

	s := store.Start(1, "tea", "alice")
	if s.ChapterID != "tea" || s.Part != 0 || s.Score != 0 {
		t.Fatalf("Start did not reset session: %+v", s)
	}
}

func TestUpdateWithoutSession(t *testing.T) {
	store := NewMemoryStore()
	err := store.Update(42, func(s *Session) { s.Score++ })
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("want ErrNoSession, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	store.Start(1, "morning", "alice")

	a, _ := store.Get(1)
	a.Score = 99
	a.ShownMedia["x.jpg"] = true

	b, _ := store.Get(1)
	if b.Score != 0 {
		t.Fatal("Get leaked a mutable reference to the score")
	}
	if b.ShownMedia["x.jpg"] {
		t.Fatal("Get leaked a mutable reference to the media set")
	}
}

func TestClearEndsSession(t *testing.T) {
	store := NewMemoryStore()
	store.Start(1, "morning", "alice")
	store.Clear(1)
	if store.InProgress(1) {
		t.Fatal("session still present after Clear")
	}
	if _, ok := store.Get(1); ok {
		t.Fatal("Get returned a cleared session")
	}
}

func TestUsersArePartitioned(t *testing.T) {
	store := NewMemoryStore()
	store.Start(1, "morning", "alice")
	store.Start(2, "tea", "bob")

	if err := store.Update(1, func(s *Session) { s.Score = 5 }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	b, _ := store.Get(2)
	if b.Score != 0 || b.ChapterID != "tea" {
		t.Fatalf("user 2 session affected by user 1 update: %+v", b)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	store := NewMemoryStore()
	store.Start(1, "morning", "alice")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Update(1, func(s *Session) { s.Score++ })
		}()
	}
	wg.Wait()

	s, _ := store.Get(1)
	if s.Score != 100 {
		t.Fatalf("lost updates: score=%d", s.Score)
	}
}
