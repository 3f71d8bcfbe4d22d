package player

import "github.com/example/tubeview/internal/watchstate"

// ProgressReader is the read-only slice of the watch-state store the queue
// needs. *watchstate.Store satisfies it.
type ProgressReader interface {
	Get(videoID string) (watchstate.Record, bool)
}

// Advance picks the next video to play from a session queue. Starting after
// current, it returns the index of the first video that has not been watched
// to completion. If everything ahead is completed, it falls back to the
// immediate next index so the user still moves forward. ok is false when
// current is already the last entry.
func Advance(ids []string, current int, progress ProgressReader) (next int, ok bool) {
	if current < 0 || current >= len(ids)-1 {
		return 0, false
	}
	for i := current + 1; i < len(ids); i++ {
		rec, found := progress.Get(ids[i])
		if !found || !rec.IsCompleted {
			return i, true
		}
	}
	return current + 1, true
}
