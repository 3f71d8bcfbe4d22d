package player

import (
	"bytes"
	"encoding/json"

	"go.uber.org/zap"
)

// Player function names understood by the embed.
const (
	funcPlay            = "playVideo"
	funcPause           = "pauseVideo"
	funcSeekTo          = "seekTo"
	funcSetPlaybackRate = "setPlaybackRate"
	funcGetDuration     = "getDuration"
	funcGetCurrentTime  = "getCurrentTime"
	funcGetPlayerState  = "getPlayerState"
)

// Player-state code reported by the embed; 1 means playing.
const stateCodePlaying = 1

// acceptedOrigins is the trust boundary: inbound frames claiming any other
// origin are dropped without inspection.
var acceptedOrigins = map[string]struct{}{
	"https://www.youtube.com":          {},
	"https://youtube.com":              {},
	"https://www.youtube-nocookie.com": {},
}

// Messenger delivers a raw command frame toward the embed. Implementations
// may fail; the bridge treats delivery as fire-and-forget either way.
type Messenger interface {
	PostToEmbed(payload []byte) error
}

// Bridge translates controller intent into the embed's message protocol and
// classifies inbound traffic into normalized events. It never errors on
// malformed frames: the channel is noisy and dropping is the correct
// response.
type Bridge struct {
	messenger Messenger
	log       *zap.Logger
	handler   func(Event)
	ready     bool
}

func NewBridge(m Messenger, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{messenger: m, log: log.Named("bridge")}
}

// OnEvent registers the single handler for normalized events. Events are
// delivered in frame-arrival order.
func (b *Bridge) OnEvent(h func(Event)) {
	b.handler = h
}

// SetReady flips the readiness flag. Send is a silent no-op until the embed
// is ready; callers are expected to retry.
func (b *Bridge) SetReady(ready bool) {
	b.ready = ready
}

func (b *Bridge) Ready() bool {
	return b.ready
}

type commandFrame struct {
	Event string `json:"event"`
	Func  string `json:"func"`
	Args  []any  `json:"args"`
}

// Send issues a fire-and-forget command. The protocol offers no
// acknowledgement, and an unready player swallows the call entirely.
func (b *Bridge) Send(fn string, args ...any) {
	if b.messenger == nil || !b.ready {
		return
	}
	if args == nil {
		args = []any{}
	}
	payload, err := json.Marshal(commandFrame{Event: "command", Func: fn, Args: args})
	if err != nil {
		return
	}
	if err := b.messenger.PostToEmbed(payload); err != nil {
		b.log.Debug("command delivery failed", zap.String("func", fn), zap.Error(err))
	}
}

// Listen sends the handshake frame that asks the embed to start reporting.
func (b *Bridge) Listen() {
	if b.messenger == nil {
		return
	}
	_ = b.messenger.PostToEmbed([]byte(`{"event":"listening"}`))
}

// inboundFrame is the loose superset of every wire shape we care about.
// Numeric fields may appear at the top level (command replies) or nested
// under info (delivery bundles); both normalize identically.
type inboundFrame struct {
	Event       string          `json:"event"`
	Func        string          `json:"func"`
	Info        json.RawMessage `json:"info"`
	CurrentTime *float64        `json:"currentTime"`
	Duration    *float64        `json:"duration"`
	PlayerState *float64        `json:"playerState"`
}

type infoBundle struct {
	CurrentTime *float64 `json:"currentTime"`
	Duration    *float64 `json:"duration"`
	PlayerState *float64 `json:"playerState"`
}

// HandleMessage classifies one inbound frame. Frames from unexpected
// origins, frames that do not look like encoded data, and frames that fail
// to decode are all dropped silently.
func (b *Bridge) HandleMessage(origin string, data []byte) {
	if _, ok := acceptedOrigins[origin]; !ok {
		b.log.Debug("dropping frame from unexpected origin", zap.String("origin", origin))
		return
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || (data[0] != '{' && data[0] != '[') {
		return
	}

	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}

	switch frame.Event {
	case "onReady":
		b.ready = true
		b.emit(Ready{})
	case "onStateChange":
		// info is the bare player-state code for this event kind.
		var code float64
		if err := json.Unmarshal(frame.Info, &code); err != nil {
			return
		}
		b.emit(StateChanged{Playing: int(code) == stateCodePlaying})
	case "infoDelivery", "initialDelivery":
		var info infoBundle
		if len(frame.Info) > 0 {
			if err := json.Unmarshal(frame.Info, &info); err != nil {
				return
			}
		}
		b.emitBundle(info.CurrentTime, info.Duration, info.PlayerState)
	default:
		// Direct command replies carry their numbers at the top level,
		// keyed by the echoed func.
		b.emitBundle(frame.CurrentTime, frame.Duration, frame.PlayerState)
	}
}

func (b *Bridge) emitBundle(currentTime, duration, playerState *float64) {
	if duration != nil && *duration > 0 {
		b.emit(DurationUpdate{Seconds: *duration})
	}
	if currentTime != nil {
		b.emit(TimeUpdate{Seconds: *currentTime})
	}
	if playerState != nil {
		b.emit(StateChanged{Playing: int(*playerState) == stateCodePlaying})
	}
}

func (b *Bridge) emit(ev Event) {
	if b.handler != nil {
		b.handler(ev)
	}
}
