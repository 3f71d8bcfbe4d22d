package watchstate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "watchstate.json")
	b, err := NewFileBackend(path)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}

	s := New(b, nil)
	s.Upsert(Record{VideoID: "v1", CurrentTime: 42, Duration: 100})

	reloaded := New(b, nil)
	rec, ok := reloaded.Get("v1")
	if !ok {
		t.Fatal("expected record to survive reload")
	}
	if rec.CurrentTime != 42 || rec.CompletionPercentage != 42 {
		t.Fatalf("unexpected reloaded record: %+v", rec)
	}
}

func TestFileBackend_MissingFileIsEmpty(t *testing.T) {
	b, err := NewFileBackend(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	states, err := b.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(states) != 0 {
		t.Fatalf("expected empty map, got %d records", len(states))
	}
}

func TestFileBackend_CorruptFileDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchstate.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := NewFileBackend(path)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	if _, err := b.Load(); err == nil {
		t.Fatal("expected load error for corrupt file")
	}

	// The store swallows the backend error and keeps working.
	s := New(b, nil)
	if _, ok := s.Get("v1"); ok {
		t.Fatal("expected absent record")
	}
	s.Upsert(Record{VideoID: "v1", CurrentTime: 1, Duration: 10})
	if rec, ok := s.Get("v1"); !ok || rec.CurrentTime != 1 {
		t.Fatalf("expected the corrupt file to be overwritten, got %+v ok=%v", rec, ok)
	}
}
