package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"gridreplay/internal/models"
	"gridreplay/internal/replay"
	"gridreplay/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// --- parseInterval unit tests ---

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil)

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", 1 * time.Second},
		{"interval_string_valid", "/ws?interval=200ms", 200 * time.Millisecond},
		{"interval_ms_valid", "/ws?interval_ms=150", 150 * time.Millisecond},
		{"interval_too_large", "/ws?interval=20s", 1 * time.Second},
		{"interval_ms_too_large", "/ws?interval_ms=20000", 1 * time.Second},
		{"interval_invalid_string", "/ws?interval=bogus", 1 * time.Second},
		{"interval_ms_invalid", "/ws?interval_ms=NaN", 1 * time.Second},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=150", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=250", 250 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.u, nil)
			c, _ := gin.CreateTestContext(w)
			c.Request = req
			got := h.parseInterval(c)
			if got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

// --- websocket integration tests ---

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialStream(t *testing.T, s *service.Service, query url.Values) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(s, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = query.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func annotated(i int) models.AnnotatedRow {
	return models.AnnotatedRow{RawRow: models.RawRow{Index: i}, BatteryAction: models.ActionIdle}
}

func TestWebSocket_StreamsRowsSummaryAndDone(t *testing.T) {
	rep := &mockReplay{}
	rep.set(replay.Summary{DatasetID: "ds", TotalRows: 3, CurrentRow: 1, Phase: replay.PhaseLoaded},
		[]models.AnnotatedRow{annotated(0)})

	conn := dialStream(t, &service.Service{Replay: rep}, url.Values{"session": {"s1"}, "interval_ms": {"20"}})

	// Catch-up: the existing row, then the summary.
	env := readEnvelope(t, conn)
	if env.Type != envRow {
		t.Fatalf("expected row, got %+v", env)
	}
	var row models.AnnotatedRow
	if err := json.Unmarshal(env.Data, &row); err != nil || row.Index != 0 {
		t.Fatalf("bad row %s: %v", env.Data, err)
	}
	if env = readEnvelope(t, conn); env.Type != envSummary {
		t.Fatalf("expected summary, got %+v", env)
	}

	// The session advances to the end between ticks.
	rep.set(replay.Summary{DatasetID: "ds", TotalRows: 3, CurrentRow: 3, Phase: replay.PhaseExhausted},
		[]models.AnnotatedRow{annotated(0), annotated(1), annotated(2)})

	var types []string
	for len(types) < 4 {
		types = append(types, readEnvelope(t, conn).Type)
	}
	want := []string{envRow, envRow, envSummary, envDone}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("envelopes=%v, want %v", types, want)
		}
	}
}

func TestWebSocket_ReloadOfSameDatasetRestartsStream(t *testing.T) {
	rep := &mockReplay{}
	rep.set(replay.Summary{DatasetID: "ds", TotalRows: 5, CurrentRow: 2, Phase: replay.PhaseLoaded, Generation: 1},
		[]models.AnnotatedRow{annotated(0), annotated(1)})

	conn := dialStream(t, &service.Service{Replay: rep}, url.Values{"session": {"s1"}, "interval_ms": {"20"}})
	for _, want := range []string{envRow, envRow, envSummary} {
		if env := readEnvelope(t, conn); env.Type != want {
			t.Fatalf("expected %s, got %+v", want, env)
		}
	}

	// Reloaded and already advanced past the stream's cursor before the next tick.
	rep.set(replay.Summary{DatasetID: "ds", TotalRows: 5, CurrentRow: 3, Phase: replay.PhaseLoaded, Generation: 2},
		[]models.AnnotatedRow{annotated(0), annotated(1), annotated(2)})

	var indexes []int
	for len(indexes) < 3 {
		env := readEnvelope(t, conn)
		if env.Type != envRow {
			t.Fatalf("expected row, got %+v (rows so far %v)", env, indexes)
		}
		var row models.AnnotatedRow
		if err := json.Unmarshal(env.Data, &row); err != nil {
			t.Fatalf("bad row %s: %v", env.Data, err)
		}
		indexes = append(indexes, row.Index)
	}
	if indexes[0] != 0 || indexes[2] != 2 {
		t.Fatalf("stream did not restart from row 0: %v", indexes)
	}

	env := readEnvelope(t, conn)
	var sum replay.Summary
	if env.Type != envSummary || json.Unmarshal(env.Data, &sum) != nil || sum.Generation != 2 {
		t.Fatalf("expected summary for generation 2, got %+v", env)
	}
}

func TestWebSocket_UnknownSessionSendsErrorAndCloses(t *testing.T) {
	rep := &mockReplay{summaryErr: service.ErrSessionNotFound}
	conn := dialStream(t, &service.Service{Replay: rep}, url.Values{"session": {"nope"}})

	env := readEnvelope(t, conn)
	if env.Type != envError || env.Error != service.ErrSessionNotFound.Error() {
		t.Fatalf("expected error envelope, got %+v", env)
	}

	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("expected read error (closed), got message: %s", string(raw))
	}
}

func TestWebSocket_MissingSessionIsBadRequest(t *testing.T) {
	r := newTestRouter(&service.Service{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
