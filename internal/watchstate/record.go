package watchstate

import (
	"math"
	"time"
)

// completionRatio is the watched fraction at which a video counts as done.
const completionRatio = 0.9

// Record is the stored progress for one video.
type Record struct {
	VideoID              string    `json:"videoId"`
	CurrentTime          float64   `json:"currentTime"`
	Duration             float64   `json:"duration"`
	IsCompleted          bool      `json:"isCompleted"`
	LastWatched          time.Time `json:"lastWatched"`
	CompletionPercentage int       `json:"completionPercentage"`
}

// normalize recomputes the derived fields from CurrentTime and Duration.
// Completion is one-way here: a record that was completed stays completed
// until it is explicitly replaced or removed.
func (r *Record) normalize(wasCompleted bool) {
	if r.CurrentTime < 0 {
		r.CurrentTime = 0
	}
	if r.Duration < 0 {
		r.Duration = 0
	}
	if r.Duration > 0 {
		r.CompletionPercentage = int(math.Round(r.CurrentTime / r.Duration * 100))
		if r.CompletionPercentage > 100 {
			r.CompletionPercentage = 100
		}
		r.IsCompleted = r.CurrentTime/r.Duration >= completionRatio
	} else {
		r.CompletionPercentage = 0
		r.IsCompleted = false
	}
	if wasCompleted {
		r.IsCompleted = true
	}
}
