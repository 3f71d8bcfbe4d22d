package player

import (
	"encoding/json"
	"strconv"
	"sync"
	"testing"
)

type fakeMessenger struct {
	mu     sync.Mutex
	frames [][]byte
}

func (m *fakeMessenger) PostToEmbed(payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.frames = append(m.frames, cp)
	return nil
}

func (m *fakeMessenger) sentFuncs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, f := range m.frames {
		var frame struct {
			Event string `json:"event"`
			Func  string `json:"func"`
		}
		if json.Unmarshal(f, &frame) == nil && frame.Event == "command" {
			out = append(out, frame.Func)
		}
	}
	return out
}

func collectBridge() (*Bridge, *fakeMessenger, *[]Event) {
	m := &fakeMessenger{}
	b := NewBridge(m, nil)
	events := &[]Event{}
	b.OnEvent(func(ev Event) { *events = append(*events, ev) })
	return b, m, events
}

func TestBridgeRejectsUnknownOrigins(t *testing.T) {
	b, _, events := collectBridge()

	for _, origin := range []string{
		"https://evil.example.com",
		"https://www.youtube.com.evil.example",
		"http://www.youtube.com", // scheme matters
		"",
	} {
		b.HandleMessage(origin, []byte(`{"event":"onReady"}`))
	}
	if len(*events) != 0 {
		t.Fatalf("expected no events from untrusted origins, got %d", len(*events))
	}
	if b.Ready() {
		t.Fatal("untrusted frame must not flip readiness")
	}
}

func TestBridgeAcceptsAllTrustedOrigins(t *testing.T) {
	for _, origin := range []string{
		"https://www.youtube.com",
		"https://youtube.com",
		"https://www.youtube-nocookie.com",
	} {
		b, _, events := collectBridge()
		b.HandleMessage(origin, []byte(`{"event":"onReady"}`))
		if len(*events) != 1 {
			t.Fatalf("origin %q: expected 1 event, got %d", origin, len(*events))
		}
		if _, ok := (*events)[0].(Ready); !ok {
			t.Fatalf("origin %q: expected Ready, got %T", origin, (*events)[0])
		}
	}
}

func TestBridgeDropsNoiseSilently(t *testing.T) {
	b, _, events := collectBridge()

	for _, payload := range [][]byte{
		nil,
		[]byte("   "),
		[]byte("not json at all"),
		[]byte(`"a bare string"`),
		[]byte(`{"event":"onReady"`), // truncated
		[]byte(`{"event":"onStateChange","info":"oops"}`),
	} {
		b.HandleMessage("https://www.youtube.com", payload)
	}
	if len(*events) != 0 {
		t.Fatalf("expected noise to be dropped, got %d events", len(*events))
	}
}

func TestBridgeStateChange(t *testing.T) {
	cases := []struct {
		code    int
		playing bool
	}{
		{-1, false}, {0, false}, {1, true}, {2, false}, {3, false}, {5, false},
	}
	for _, tc := range cases {
		b, _, events := collectBridge()
		payload := []byte(`{"event":"onStateChange","info":` + strconv.Itoa(tc.code) + `}`)
		b.HandleMessage("https://www.youtube.com", payload)
		if len(*events) != 1 {
			t.Fatalf("code %d: expected 1 event, got %d", tc.code, len(*events))
		}
		sc, ok := (*events)[0].(StateChanged)
		if !ok {
			t.Fatalf("code %d: expected StateChanged, got %T", tc.code, (*events)[0])
		}
		if sc.Playing != tc.playing {
			t.Errorf("code %d: playing = %v, want %v", tc.code, sc.Playing, tc.playing)
		}
	}
}

func TestBridgeInfoDeliveryBundle(t *testing.T) {
	b, _, events := collectBridge()

	payload := []byte(`{"event":"infoDelivery","info":{"currentTime":42.5,"duration":300,"playerState":1}}`)
	b.HandleMessage("https://www.youtube.com", payload)

	if len(*events) != 3 {
		t.Fatalf("expected 3 events, got %d: %#v", len(*events), *events)
	}
	if d, ok := (*events)[0].(DurationUpdate); !ok || d.Seconds != 300 {
		t.Errorf("event 0: got %#v, want DurationUpdate{300}", (*events)[0])
	}
	if tu, ok := (*events)[1].(TimeUpdate); !ok || tu.Seconds != 42.5 {
		t.Errorf("event 1: got %#v, want TimeUpdate{42.5}", (*events)[1])
	}
	if sc, ok := (*events)[2].(StateChanged); !ok || !sc.Playing {
		t.Errorf("event 2: got %#v, want StateChanged{true}", (*events)[2])
	}
}

func TestBridgeZeroDurationSuppressed(t *testing.T) {
	b, _, events := collectBridge()

	// Live streams and not-yet-loaded videos report duration 0; that must
	// not surface as a DurationUpdate.
	b.HandleMessage("https://www.youtube.com",
		[]byte(`{"event":"initialDelivery","info":{"currentTime":0,"duration":0}}`))

	for _, ev := range *events {
		if _, ok := ev.(DurationUpdate); ok {
			t.Fatal("duration 0 must not be emitted")
		}
	}
}

func TestBridgeTopLevelCommandReply(t *testing.T) {
	b, _, events := collectBridge()

	b.HandleMessage("https://www.youtube.com",
		[]byte(`{"event":"command","func":"getCurrentTime","currentTime":17.2}`))

	if len(*events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(*events))
	}
	if tu, ok := (*events)[0].(TimeUpdate); !ok || tu.Seconds != 17.2 {
		t.Fatalf("got %#v, want TimeUpdate{17.2}", (*events)[0])
	}
}

func TestBridgeSendGatedOnReadiness(t *testing.T) {
	b, m, _ := collectBridge()

	b.Send(funcPlay)
	if got := m.sentFuncs(); len(got) != 0 {
		t.Fatalf("send before ready must be dropped, got %v", got)
	}

	b.SetReady(true)
	b.Send(funcSeekTo, 30.0, true)

	frames := m.sentFuncs()
	if len(frames) != 1 || frames[0] != "seekTo" {
		t.Fatalf("got %v, want [seekTo]", frames)
	}
	var frame struct {
		Args []any `json:"args"`
	}
	if err := json.Unmarshal(m.frames[0], &frame); err != nil {
		t.Fatal(err)
	}
	if len(frame.Args) != 2 || frame.Args[0].(float64) != 30 || frame.Args[1].(bool) != true {
		t.Fatalf("args = %v, want [30 true]", frame.Args)
	}
}

func TestBridgeSendEmptyArgsIsArray(t *testing.T) {
	b, m, _ := collectBridge()
	b.SetReady(true)
	b.Send(funcGetDuration)

	var frame map[string]json.RawMessage
	if err := json.Unmarshal(m.frames[0], &frame); err != nil {
		t.Fatal(err)
	}
	if string(frame["args"]) != "[]" {
		t.Fatalf("args = %s, want []", frame["args"])
	}
}

func TestBridgeListenHandshake(t *testing.T) {
	b, m, _ := collectBridge()
	b.Listen()

	if len(m.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(m.frames))
	}
	var frame struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(m.frames[0], &frame); err != nil {
		t.Fatal(err)
	}
	if frame.Event != "listening" {
		t.Fatalf("event = %q, want listening", frame.Event)
	}
}
