package watchstate

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newRedisBackend(t *testing.T) *RedisBackend {
	t.Helper()
	mr := miniredis.RunT(t)
	b, err := NewRedisBackend("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("new redis backend: %v", err)
	}
	return b
}

func TestRedisBackend_RoundTrip(t *testing.T) {
	b := newRedisBackend(t)
	s := New(b, nil)

	s.Upsert(Record{VideoID: "v1", CurrentTime: 90, Duration: 100})
	rec, ok := s.Get("v1")
	if !ok {
		t.Fatal("expected record")
	}
	if !rec.IsCompleted {
		t.Fatalf("expected completed at 90%%, got %+v", rec)
	}
}

func TestRedisBackend_EmptyKeyIsEmpty(t *testing.T) {
	b := newRedisBackend(t)
	states, err := b.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(states) != 0 {
		t.Fatalf("expected empty map, got %d", len(states))
	}
}

func TestRedisBackend_SingleDocumentKey(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBackend("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("new redis backend: %v", err)
	}
	s := New(b, nil)
	s.Upsert(Record{VideoID: "a", CurrentTime: 1, Duration: 10})
	s.Upsert(Record{VideoID: "b", CurrentTime: 2, Duration: 10})

	// Everything lives under one key, written whole.
	if got := len(mr.Keys()); got != 1 {
		t.Fatalf("expected a single storage key, got %d: %v", got, mr.Keys())
	}
}
