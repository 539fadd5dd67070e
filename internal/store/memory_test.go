package store

import (
	"context"
	"testing"
	"time"

	"github.com/greenroomhq/greenroom/internal/protocol"
)

func testSession(id string, createdAt time.Time) Session {
	return Session{
		ID:             id,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
		Status:         protocol.SessionActive,
		Provider:       "mock",
		StartRound:     1,
		JobSpec:        "Backend engineer",
		CVText:         "Seven years of Go",
		TotalQuestions: 5,
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if _, err := m.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}

	s := testSession("s-1", time.Now().UTC())
	s.Questions = []protocol.Question{{QuestionID: "q1", Text: "Tell me about yourself."}}
	if err := m.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := m.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "s-1" || len(got.Questions) != 1 {
		t.Fatalf("got %+v", got)
	}

	// mutating the returned copy must not touch stored state
	got.Questions[0].Text = "mutated"
	again, _ := m.Get(ctx, "s-1")
	if again.Questions[0].Text != "Tell me about yourself." {
		t.Fatalf("stored question mutated: %q", again.Questions[0].Text)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	base := time.Now().UTC()

	for i, id := range []string{"old", "mid", "new"} {
		if err := m.Save(ctx, testSession(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	list, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	if list[0].ID != "new" || list[1].ID != "mid" || list[2].ID != "old" {
		t.Fatalf("order = %s, %s, %s", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestCacheReloadsAfterEviction(t *testing.T) {
	ctx := context.Background()
	backing := NewMemoryStore()
	cache := NewCache(backing, 5*time.Second)

	s := testSession("s-1", time.Now().UTC())
	if err := cache.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if cache.CachedCount() != 1 {
		t.Fatalf("cached = %d, want 1", cache.CachedCount())
	}

	// backdate the entry and evict
	cache.mu.Lock()
	cache.entries["s-1"].lastAccess = time.Now().UTC().Add(-time.Minute)
	cache.mu.Unlock()
	cache.evictIdle()
	if cache.CachedCount() != 0 {
		t.Fatalf("cached after evict = %d, want 0", cache.CachedCount())
	}

	got, err := cache.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("Get after evict: %v", err)
	}
	if got.ID != "s-1" {
		t.Fatalf("got %+v", got)
	}
	if cache.CachedCount() != 1 {
		t.Fatalf("cached after reload = %d, want 1", cache.CachedCount())
	}
}

func TestCacheEvictionHookFires(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(NewMemoryStore(), 5*time.Second)

	var evicted []string
	cache.OnEvict(func(id string) { evicted = append(evicted, id) })

	if err := cache.Save(ctx, testSession("s-idle", time.Now().UTC())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := cache.Save(ctx, testSession("s-hot", time.Now().UTC())); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cache.mu.Lock()
	cache.entries["s-idle"].lastAccess = time.Now().UTC().Add(-time.Minute)
	cache.mu.Unlock()
	cache.evictIdle()

	if len(evicted) != 1 || evicted[0] != "s-idle" {
		t.Fatalf("evicted = %v, want [s-idle]", evicted)
	}
	if cache.CachedCount() != 1 {
		t.Fatalf("cached = %d, want 1", cache.CachedCount())
	}
}

func TestCacheMissPropagatesNotFound(t *testing.T) {
	cache := NewCache(NewMemoryStore(), time.Minute)
	if _, err := cache.Get(context.Background(), "nope"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
