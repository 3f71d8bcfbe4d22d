package relay

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/example/tubeview/internal/watchstate"
)

type testConn struct {
	t  *testing.T
	ws *websocket.Conn
}

func dialPlayer(t *testing.T, store *watchstate.Store, videoID string) *testConn {
	t.Helper()
	if store == nil {
		store = watchstate.New(watchstate.NewMemoryBackend(), nil)
	}
	h := NewHandler(store, nil, nil)
	r := chi.NewRouter()
	h.Routes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/player/" + videoID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return &testConn{t: t, ws: ws}
}

func (c *testConn) sendFrame(v any) {
	c.t.Helper()
	if err := c.ws.WriteJSON(v); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

// waitFrame reads until a frame of the wanted type arrives or the deadline
// passes. Other frame types are consumed and ignored.
func (c *testConn) waitFrame(wantType string) map[string]json.RawMessage {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = c.ws.SetReadDeadline(deadline)
		var frame map[string]json.RawMessage
		if err := c.ws.ReadJSON(&frame); err != nil {
			c.t.Fatalf("waiting for %q frame: %v", wantType, err)
		}
		var ft string
		if json.Unmarshal(frame["type"], &ft) == nil && ft == wantType {
			return frame
		}
	}
	c.t.Fatalf("no %q frame before deadline", wantType)
	return nil
}

// waitCommand reads until a command frame carrying the wanted player func
// arrives.
func (c *testConn) waitCommand(wantFunc string) []any {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		frame := c.waitFrame("command")
		var payload struct {
			Event string `json:"event"`
			Func  string `json:"func"`
			Args  []any  `json:"args"`
		}
		if err := json.Unmarshal(frame["payload"], &payload); err != nil {
			continue
		}
		if payload.Func == wantFunc {
			return payload.Args
		}
	}
	c.t.Fatalf("no %q command before deadline", wantFunc)
	return nil
}

func TestRelayHandshakeAndDataQueries(t *testing.T) {
	c := dialPlayer(t, nil, "abc123")

	// The controller opens with the listening handshake.
	frame := c.waitFrame("command")
	var payload struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(frame["payload"], &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Event != "listening" {
		t.Fatalf("first command event = %q, want listening", payload.Event)
	}

	// The load signal triggers the data queries.
	c.sendFrame(map[string]any{"type": "loaded"})
	c.waitCommand("getDuration")
}

func TestRelayForwardsEmbedTraffic(t *testing.T) {
	c := dialPlayer(t, nil, "abc123")
	c.sendFrame(map[string]any{"type": "loaded"})

	c.sendFrame(map[string]any{
		"type":   "message",
		"origin": "https://www.youtube.com",
		"data":   json.RawMessage(`{"event":"infoDelivery","info":{"currentTime":12,"duration":240,"playerState":1}}`),
	})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		frame := c.waitFrame("view")
		var view struct {
			CurrentTime float64 `json:"currentTime"`
			Duration    float64 `json:"duration"`
			IsPlaying   bool    `json:"isPlaying"`
		}
		raw, _ := json.Marshal(frame)
		if err := json.Unmarshal(raw, &view); err != nil {
			t.Fatal(err)
		}
		if view.Duration == 240 && view.CurrentTime == 12 && view.IsPlaying {
			return
		}
	}
	t.Fatal("view never reflected the delivered data")
}

func TestRelayIntentPlayPause(t *testing.T) {
	c := dialPlayer(t, nil, "abc123")
	c.sendFrame(map[string]any{"type": "loaded"})
	c.waitCommand("getDuration")

	c.sendFrame(map[string]any{"type": "intent", "action": "playpause"})
	c.waitCommand("playVideo")
}

func TestRelayIntentSpeed(t *testing.T) {
	c := dialPlayer(t, nil, "abc123")
	c.sendFrame(map[string]any{"type": "loaded"})
	c.waitCommand("getDuration")

	c.sendFrame(map[string]any{"type": "intent", "action": "speed", "rate": 1.5})
	args := c.waitCommand("setPlaybackRate")
	if len(args) != 1 || args[0].(float64) != 1.5 {
		t.Fatalf("setPlaybackRate args = %v", args)
	}
}

func TestRelayResumePromptFlow(t *testing.T) {
	store := watchstate.New(watchstate.NewMemoryBackend(), nil)
	store.Upsert(watchstate.Record{VideoID: "abc123", CurrentTime: 90, Duration: 600})

	c := dialPlayer(t, store, "abc123")

	frame := c.waitFrame("prompt")
	var id int
	if err := json.Unmarshal(frame["id"], &id); err != nil {
		t.Fatal(err)
	}
	var text string
	_ = json.Unmarshal(frame["text"], &text)
	if text != "Resume from 1:30?" {
		t.Fatalf("prompt text = %q", text)
	}

	c.sendFrame(map[string]any{"type": "prompt_result", "id": id, "accept": true})
	c.sendFrame(map[string]any{"type": "loaded"})
	c.sendFrame(map[string]any{
		"type":   "message",
		"origin": "https://www.youtube.com",
		"data":   json.RawMessage(`{"event":"infoDelivery","info":{"duration":600,"currentTime":0}}`),
	})

	args := c.waitCommand("seekTo")
	if len(args) < 1 || args[0].(float64) != 90 {
		t.Fatalf("seekTo args = %v", args)
	}
}

func TestRelayFullscreenRoundTrip(t *testing.T) {
	c := dialPlayer(t, nil, "abc123")
	c.sendFrame(map[string]any{"type": "loaded"})
	c.waitCommand("getDuration")

	c.sendFrame(map[string]any{"type": "intent", "action": "fullscreen"})
	frame := c.waitFrame("fullscreen_request")
	var enter bool
	if err := json.Unmarshal(frame["enter"], &enter); err != nil {
		t.Fatal(err)
	}
	if !enter {
		t.Fatal("expected enter=true")
	}

	c.sendFrame(map[string]any{"type": "fullscreen", "active": true})
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		frame := c.waitFrame("view")
		var view struct {
			IsFullscreen bool `json:"isFullscreen"`
		}
		raw, _ := json.Marshal(frame)
		_ = json.Unmarshal(raw, &view)
		if view.IsFullscreen {
			return
		}
	}
	t.Fatal("fullscreen state never reflected")
}

func TestRelayRejectsMissingVideoID(t *testing.T) {
	store := watchstate.New(watchstate.NewMemoryBackend(), nil)
	h := NewHandler(store, nil, nil)
	r := chi.NewRouter()
	h.Routes(r)

	server := httptest.NewServer(r)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/player/"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp != nil && resp.StatusCode == 101 {
		t.Fatal("upgrade must not succeed without a video id")
	}
}
