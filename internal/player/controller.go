package player

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/example/tubeview/internal/platform/analytics"
	"github.com/example/tubeview/internal/watchstate"
)

// Timing constants for the mount/retry/poll machinery.
const (
	settleDelay       = 1500 * time.Millisecond
	dataRetryInterval = time.Second
	dataRetryBudget   = 5
	pollWhilePlaying  = time.Second
	pollWhilePaused   = 5 * time.Second
	saveInterval      = 10 * time.Second
	controlsHideDelay = 3 * time.Second
	resumeThreshold   = 10 // seconds watched before a resume prompt makes sense
	skipStep          = 30 // seconds for the skip buttons
)

// SpeedLadder is the discrete set of playback rates the UI may request.
var SpeedLadder = []float64{0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 2.5, 3.0}

// phase is the controller's readiness state for one mounted video.
type phase int

const (
	phaseNotReady phase = iota
	phaseAwaitingData
	phaseReady
)

// ViewState is the reconciled play/pause/time model exposed to the UI.
type ViewState struct {
	IsPlaying       bool    `json:"isPlaying"`
	CurrentTime     float64 `json:"currentTime"`
	Duration        float64 `json:"duration"`
	PlaybackSpeed   float64 `json:"playbackSpeed"`
	IsFullscreen    bool    `json:"isFullscreen"`
	ControlsVisible bool    `json:"controlsVisible"`
}

// Prompter asks the user a yes/no question. The call may block the
// controller's own loop but nothing else; implementations should time out
// rather than hang forever.
type Prompter interface {
	Confirm(text string) bool
}

// Surface is the presentation side the controller renders into.
type Surface interface {
	ViewChanged(ViewState)
	SetControlsVisible(bool)
	RequestFullscreen(enter bool)
}

// Controller drives one mounted video: it owns the bridge, the retry and
// polling timers, the resume flow, and write-through persistence. All state
// is confined to the Run loop; public methods enqueue work onto it.
type Controller struct {
	videoID  string
	bridge   *Bridge
	store    *watchstate.Store
	prompter Prompter
	surface  Surface
	events   *analytics.Publisher
	log      *zap.Logger

	actions chan func()

	status        phase
	view          ViewState
	retries       int
	resumeTarget  float64
	pendingResume bool
	completedOnce bool
	startedOnce   bool
	settleTimer   *time.Timer
	retryTicker   *time.Ticker
	pollTicker    *time.Ticker
	pollInterval  time.Duration
	saveTicker    *time.Ticker
	controlsTimer *time.Timer
}

type Options struct {
	VideoID  string
	Bridge   *Bridge
	Store    *watchstate.Store
	Prompter Prompter
	Surface  Surface
	Events   *analytics.Publisher
	Logger   *zap.Logger
}

func NewController(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		videoID:  opts.VideoID,
		bridge:   opts.Bridge,
		store:    opts.Store,
		prompter: opts.Prompter,
		surface:  opts.Surface,
		events:   opts.Events,
		log:      log.Named("controller").With(zap.String("video_id", opts.VideoID)),
		actions:  make(chan func(), 64),
		view:     ViewState{PlaybackSpeed: 1.0, ControlsVisible: true},
	}
	c.bridge.OnEvent(c.handleEvent)
	return c
}

// Run executes the controller loop until ctx is cancelled. Every timer and
// listener is torn down on return, on every exit path.
func (c *Controller) Run(ctx context.Context) {
	c.checkResume()

	c.settleTimer = time.NewTimer(settleDelay)
	c.saveTicker = time.NewTicker(saveInterval)
	c.retryTicker = time.NewTicker(dataRetryInterval)
	c.retryTicker.Stop()
	c.pollTicker = time.NewTicker(pollWhilePaused)
	c.pollTicker.Stop()
	c.controlsTimer = time.NewTimer(controlsHideDelay)
	c.controlsTimer.Stop()

	defer func() {
		c.settleTimer.Stop()
		c.retryTicker.Stop()
		c.pollTicker.Stop()
		c.saveTicker.Stop()
		c.controlsTimer.Stop()
		c.saveProgress()
		c.log.Debug("controller disposed")
	}()

	c.bridge.Listen()
	c.pushView()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-c.actions:
			fn()
		case <-c.settleTimer.C:
			// No load signal observed inside the settle window; assume the
			// embed is there and start asking for data anyway.
			if c.status == phaseNotReady {
				c.bridge.SetReady(true)
				c.enterAwaitingData()
			}
		case <-c.retryTicker.C:
			c.retryTick()
		case <-c.pollTicker.C:
			c.pollTick()
		case <-c.saveTicker.C:
			c.saveProgress()
		case <-c.controlsTimer.C:
			if c.view.IsPlaying && c.view.ControlsVisible {
				c.view.ControlsVisible = false
				c.surface.SetControlsVisible(false)
				c.pushView()
			}
		}
	}
}

// do enqueues work onto the loop. Drops are acceptable under pathological
// backpressure; every enqueued action is idempotent against the next tick.
func (c *Controller) do(fn func()) {
	select {
	case c.actions <- fn:
	default:
		c.log.Warn("action queue full, dropping")
	}
}

// HandleFrame feeds one relayed iframe message through the bridge. Parsing
// and event handling happen on the loop goroutine.
func (c *Controller) HandleFrame(origin string, data []byte) {
	c.do(func() { c.bridge.HandleMessage(origin, data) })
}

// Loaded records the embed's load signal.
func (c *Controller) Loaded() {
	c.do(func() {
		c.bridge.SetReady(true)
		if c.status == phaseNotReady {
			c.enterAwaitingData()
		}
	})
}

// PlayPause toggles playback, mirroring the last known state optimistically
// since the protocol never acknowledges commands.
func (c *Controller) PlayPause() {
	c.do(func() {
		if c.view.IsPlaying {
			c.bridge.Send(funcPause)
		} else {
			c.bridge.Send(funcPlay)
		}
		c.setPlaying(!c.view.IsPlaying)
	})
}

// Seek jumps to t seconds, clamped to the known duration.
func (c *Controller) Seek(t float64) {
	c.do(func() { c.seek(t) })
}

// Skip moves forward for next=true, backward otherwise, by 30 seconds.
func (c *Controller) Skip(forward bool) {
	c.do(func() {
		delta := float64(skipStep)
		if !forward {
			delta = -delta
		}
		c.seek(c.view.CurrentTime + delta)
	})
}

// SetSpeed requests a playback rate, snapped to the ladder.
func (c *Controller) SetSpeed(rate float64) {
	c.do(func() {
		snapped := snapSpeed(rate)
		c.bridge.Send(funcSetPlaybackRate, snapped)
		c.view.PlaybackSpeed = snapped
		c.pushView()
	})
}

// ToggleFullscreen asks the surface to enter or leave fullscreen; the
// authoritative state comes back through FullscreenChanged.
func (c *Controller) ToggleFullscreen() {
	c.do(func() { c.surface.RequestFullscreen(!c.view.IsFullscreen) })
}

// FullscreenChanged records the platform notification.
func (c *Controller) FullscreenChanged(active bool) {
	c.do(func() {
		c.view.IsFullscreen = active
		c.pushView()
	})
}

// PointerActivity shows the controls and re-arms the auto-hide timer.
func (c *Controller) PointerActivity() {
	c.do(func() {
		if !c.view.ControlsVisible {
			c.view.ControlsVisible = true
			c.surface.SetControlsVisible(true)
			c.pushView()
		}
		c.armControlsTimer()
	})
}

// View returns a snapshot of the current view state via the loop.
func (c *Controller) View() ViewState {
	out := make(chan ViewState, 1)
	c.do(func() { out <- c.view })
	select {
	case v := <-out:
		return v
	case <-time.After(time.Second):
		return ViewState{}
	}
}

// ── loop internals ─────────────────────────────────────────────────────────

func (c *Controller) handleEvent(ev Event) {
	switch e := ev.(type) {
	case Ready:
		if c.status == phaseNotReady {
			c.enterAwaitingData()
		}
	case DurationUpdate:
		if e.Seconds > 0 {
			c.view.Duration = e.Seconds
			if c.status == phaseAwaitingData {
				c.enterReady()
			}
			c.pushView()
		}
	case TimeUpdate:
		c.view.CurrentTime = e.Seconds
		c.checkCompletion()
		c.pushView()
	case StateChanged:
		if e.Playing != c.view.IsPlaying {
			c.setPlaying(e.Playing)
		}
	}
}

func (c *Controller) enterAwaitingData() {
	c.status = phaseAwaitingData
	c.retries = 0
	c.settleTimer.Stop()
	c.retryTicker.Reset(dataRetryInterval)
	c.issueDataQueries()
}

func (c *Controller) retryTick() {
	if c.status != phaseAwaitingData {
		return
	}
	c.retries++
	if c.view.Duration > 0 || c.retries >= dataRetryBudget {
		c.enterReady()
		return
	}
	c.issueDataQueries()
}

func (c *Controller) enterReady() {
	c.status = phaseReady
	c.retryTicker.Stop()
	c.resetPollTicker()
	if c.pendingResume {
		c.pendingResume = false
		c.seek(c.resumeTarget)
	}
}

func (c *Controller) issueDataQueries() {
	c.bridge.Send(funcGetDuration)
	c.bridge.Send(funcGetCurrentTime)
	c.bridge.Send(funcGetPlayerState)
}

func (c *Controller) pollTick() {
	if c.status != phaseReady {
		return
	}
	c.bridge.Send(funcGetCurrentTime)
	if c.view.Duration <= 0 {
		c.bridge.Send(funcGetDuration)
	}
}

// resetPollTicker picks the idle-friendly cadence while paused and the
// tighter one while playing.
func (c *Controller) resetPollTicker() {
	interval := pollWhilePaused
	if c.view.IsPlaying {
		interval = pollWhilePlaying
	}
	if interval == c.pollInterval {
		return
	}
	c.pollInterval = interval
	c.pollTicker.Reset(interval)
}

func (c *Controller) setPlaying(playing bool) {
	c.view.IsPlaying = playing
	if playing && !c.startedOnce {
		c.startedOnce = true
		c.events.Publish(analytics.SubjectPlaybackStarted, "playback_started", c.videoID, nil)
	}
	if c.status == phaseReady {
		c.resetPollTicker()
	}
	if playing {
		c.armControlsTimer()
	} else {
		// Paused players keep their controls on screen.
		c.controlsTimer.Stop()
		if !c.view.ControlsVisible {
			c.view.ControlsVisible = true
			c.surface.SetControlsVisible(true)
		}
	}
	c.pushView()
}

func (c *Controller) armControlsTimer() {
	c.controlsTimer.Stop()
	if c.view.IsPlaying {
		c.controlsTimer.Reset(controlsHideDelay)
	}
}

func (c *Controller) seek(t float64) {
	if t < 0 {
		t = 0
	}
	if c.view.Duration > 0 && t > c.view.Duration {
		t = c.view.Duration
	}
	c.bridge.Send(funcSeekTo, t, true)
	c.view.CurrentTime = t
	c.checkCompletion()
	c.pushView()
}

func (c *Controller) checkResume() {
	rec, ok := c.store.Get(c.videoID)
	if !ok || rec.IsCompleted || rec.CurrentTime <= resumeThreshold {
		return
	}
	text := fmt.Sprintf("Resume from %s?", formatTime(rec.CurrentTime))
	if c.prompter != nil && c.prompter.Confirm(text) {
		c.pendingResume = true
		c.resumeTarget = rec.CurrentTime
	}
}

func (c *Controller) checkCompletion() {
	if c.completedOnce || c.view.Duration <= 0 {
		return
	}
	if c.view.CurrentTime/c.view.Duration >= 0.9 {
		c.completedOnce = true
		c.store.MarkCompleted(c.videoID, c.view.Duration)
		c.events.Publish(analytics.SubjectVideoCompleted, "video_completed", c.videoID, map[string]any{
			"duration": c.view.Duration,
		})
	}
}

func (c *Controller) saveProgress() {
	if c.view.Duration <= 0 || c.view.CurrentTime <= 0 {
		return
	}
	c.store.Upsert(watchstate.Record{
		VideoID:     c.videoID,
		CurrentTime: c.view.CurrentTime,
		Duration:    c.view.Duration,
	})
	c.events.Publish(analytics.SubjectProgressSaved, "progress_saved", c.videoID, map[string]any{
		"current_time": c.view.CurrentTime,
		"duration":     c.view.Duration,
	})
}

func (c *Controller) pushView() {
	c.surface.ViewChanged(c.view)
}

func snapSpeed(rate float64) float64 {
	best := SpeedLadder[0]
	for _, r := range SpeedLadder {
		if math.Abs(r-rate) < math.Abs(best-rate) {
			best = r
		}
	}
	return best
}

func formatTime(seconds float64) string {
	s := int(seconds)
	h, m, sec := s/3600, s%3600/60, s%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
