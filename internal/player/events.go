package player

// Event is the normalized form of everything the embed can tell us. The
// wire protocol spreads the same facts across several frame shapes; the
// bridge folds them all into this union so the controller never sees the
// difference.
type Event interface {
	isEvent()
}

// Ready signals the embedded player finished initializing.
type Ready struct{}

// StateChanged reports a play/pause transition.
type StateChanged struct {
	Playing bool
}

// TimeUpdate reports the current playback position in seconds.
type TimeUpdate struct {
	Seconds float64
}

// DurationUpdate reports the video duration in seconds.
type DurationUpdate struct {
	Seconds float64
}

func (Ready) isEvent()          {}
func (StateChanged) isEvent()   {}
func (TimeUpdate) isEvent()     {}
func (DurationUpdate) isEvent() {}
