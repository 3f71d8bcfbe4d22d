// Package watchstate persists per-video watch progress. The store is a
// best-effort cache: every operation degrades to a no-op or an empty result
// when the backend is unavailable, and never surfaces an error to playback.
package watchstate

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Backend loads and saves the whole progress map as one document. There are
// deliberately no partial updates at this layer.
type Backend interface {
	Load() (map[string]Record, error)
	Save(map[string]Record) error
}

type Store struct {
	mu      sync.Mutex
	backend Backend
	log     *zap.Logger
	now     func() time.Time
}

func New(backend Backend, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{backend: backend, log: log.Named("watchstate"), now: time.Now}
}

// Get returns the stored record for a video, if any.
func (s *Store) Get(videoID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := s.load()
	rec, ok := states[videoID]
	return rec, ok
}

// GetAll returns the whole progress map.
func (s *Store) GetAll() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Upsert writes progress for a video, recomputing the derived fields and
// stamping LastWatched. It never un-completes a previously completed video.
func (s *Store) Upsert(rec Record) {
	if rec.VideoID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	states := s.load()
	prev, existed := states[rec.VideoID]
	rec.LastWatched = s.now().UTC()
	rec.normalize(existed && prev.IsCompleted)
	states[rec.VideoID] = rec
	s.save(states)
}

// MarkCompleted replaces the record wholesale with a finished one.
func (s *Store) MarkCompleted(videoID string, duration float64) {
	if videoID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	states := s.load()
	states[videoID] = Record{
		VideoID:              videoID,
		CurrentTime:          duration,
		Duration:             duration,
		IsCompleted:          true,
		LastWatched:          s.now().UTC(),
		CompletionPercentage: 100,
	}
	s.save(states)
}

// Remove deletes one video's record.
func (s *Store) Remove(videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := s.load()
	if _, ok := states[videoID]; !ok {
		return
	}
	delete(states, videoID)
	s.save(states)
}

// Clear drops every record.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save(map[string]Record{})
}

func (s *Store) load() map[string]Record {
	states, err := s.backend.Load()
	if err != nil {
		s.log.Warn("load failed, proceeding without stored progress", zap.Error(err))
		return map[string]Record{}
	}
	if states == nil {
		states = map[string]Record{}
	}
	return states
}

func (s *Store) save(states map[string]Record) {
	if err := s.backend.Save(states); err != nil {
		s.log.Warn("save failed, progress not persisted", zap.Error(err))
	}
}
