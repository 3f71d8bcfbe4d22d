// Package relay carries the browser page's player traffic over a WebSocket
// so the controller can run server-side. The page hosts the embed and a thin
// shim that forwards window messages up and posts command frames back down;
// everything stateful lives here.
package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/example/tubeview/internal/platform/analytics"
	"github.com/example/tubeview/internal/player"
	"github.com/example/tubeview/internal/watchstate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	promptTimeout  = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Same-origin page; the session cookie is checked before upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler owns the /ws/player route. Each accepted connection gets its own
// controller, torn down when the socket closes.
type Handler struct {
	store  *watchstate.Store
	events *analytics.Publisher
	log    *zap.Logger
}

func NewHandler(store *watchstate.Store, events *analytics.Publisher, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: store, events: events, log: log.Named("relay")}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/ws/player/{videoID}", h.handlePlayer)
}

// inboundFrame is everything the shim can send. Type discriminates; the
// remaining fields are sparse.
type inboundFrame struct {
	Type    string          `json:"type"`
	Origin  string          `json:"origin,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Action  string          `json:"action,omitempty"`
	Target  float64         `json:"target,omitempty"`
	Forward bool            `json:"forward,omitempty"`
	Rate    float64         `json:"rate,omitempty"`
	ID      int             `json:"id,omitempty"`
	Accept  bool            `json:"accept,omitempty"`
	Active  bool            `json:"active,omitempty"`
}

func (h *Handler) handlePlayer(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		http.Error(w, "missing video id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	log := h.log.With(zap.String("video_id", videoID))
	sess := newSession(conn, log)

	ctrl := player.NewController(player.Options{
		VideoID:  videoID,
		Bridge:   player.NewBridge(sess, log),
		Store:    h.store,
		Prompter: sess,
		Surface:  sess,
		Events:   h.events,
		Logger:   log,
	})

	ctx, cancel := context.WithCancel(r.Context())
	go ctrl.Run(ctx)
	go sess.writePump()

	log.Info("player session opened")
	sess.readPump(ctrl)
	cancel()
	log.Info("player session closed")
}

// session is one live connection. It implements the controller's messenger,
// prompter and surface by translating calls into outbound frames.
type session struct {
	conn *websocket.Conn
	send chan []byte
	log  *zap.Logger

	prompts *promptTable
}

func newSession(conn *websocket.Conn, log *zap.Logger) *session {
	return &session{
		conn:    conn,
		send:    make(chan []byte, 64),
		log:     log,
		prompts: newPromptTable(),
	}
}

// enqueue hands a frame to the write pump. A full buffer means the client
// stopped draining; dropping is preferable to blocking the controller.
func (s *session) enqueue(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case s.send <- data:
	default:
		s.log.Warn("send buffer full, dropping frame")
	}
}

// PostToEmbed implements player.Messenger.
func (s *session) PostToEmbed(payload []byte) error {
	s.enqueue(struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}{Type: "command", Payload: payload})
	return nil
}

// Confirm implements player.Prompter. It blocks the calling controller until
// the shim answers or the timeout elapses; no answer counts as a decline.
func (s *session) Confirm(text string) bool {
	id, ch := s.prompts.add()
	defer s.prompts.remove(id)

	s.enqueue(struct {
		Type string `json:"type"`
		ID   int    `json:"id"`
		Text string `json:"text"`
	}{Type: "prompt", ID: id, Text: text})

	select {
	case accept := <-ch:
		return accept
	case <-time.After(promptTimeout):
		return false
	}
}

// ViewChanged implements player.Surface.
func (s *session) ViewChanged(v player.ViewState) {
	s.enqueue(struct {
		Type string `json:"type"`
		player.ViewState
	}{Type: "view", ViewState: v})
}

func (s *session) SetControlsVisible(visible bool) {
	s.enqueue(struct {
		Type    string `json:"type"`
		Visible bool   `json:"visible"`
	}{Type: "controls", Visible: visible})
}

func (s *session) RequestFullscreen(enter bool) {
	s.enqueue(struct {
		Type  string `json:"type"`
		Enter bool   `json:"enter"`
	}{Type: "fullscreen_request", Enter: enter})
}

func (s *session) readPump(ctrl *player.Controller) {
	defer s.conn.Close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("read failed", zap.Error(err))
			}
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		s.dispatch(ctrl, frame)
	}
}

func (s *session) dispatch(ctrl *player.Controller, frame inboundFrame) {
	switch frame.Type {
	case "message":
		ctrl.HandleFrame(frame.Origin, frame.Data)
	case "loaded":
		ctrl.Loaded()
	case "fullscreen":
		ctrl.FullscreenChanged(frame.Active)
	case "prompt_result":
		s.prompts.resolve(frame.ID, frame.Accept)
	case "intent":
		switch frame.Action {
		case "playpause":
			ctrl.PlayPause()
		case "seek":
			ctrl.Seek(frame.Target)
		case "skip":
			ctrl.Skip(frame.Forward)
		case "speed":
			ctrl.SetSpeed(frame.Rate)
		case "fullscreen":
			ctrl.ToggleFullscreen()
		case "pointer":
			ctrl.PointerActivity()
		}
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
