package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"gridreplay/internal/replay"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms
)

// Envelope types sent on the stream.
const (
	envRow     = "row"
	envSummary = "summary"
	envDone    = "done"
	envError   = "error"
)

type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Origins are enforced by the CORS layer in front of the router.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// rowStream tracks what one connection has already been sent.
type rowStream struct {
	sessionID string
	next      int
	last      replay.Summary
	started   bool
	doneSent  bool
}

// @Summary      Live row stream
// @Description  WebSocket. Sends a "row" envelope per annotated row, a "summary" after each batch, "done" once on exhaustion and "error" before closing.
// @Tags         sessions
// @Param        session      query  string  true   "Session ID"
// @Param        from         query  int     false  "First row index to send"
// @Param        interval_ms  query  int     false  "Poll interval in ms (max 10000)"
// @Success      101
// @Failure      400  {object}  map[string]string
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	sessionID := c.Query("session")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'session' query parameter"})
		return
	}
	from, _ := strconv.Atoi(c.Query("from"))
	if from < 0 {
		from = 0
	}
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	stream := &rowStream{sessionID: sessionID, next: from}
	ctx := c.Request.Context()

	// Catch up immediately.
	if err := h.pushRows(ctx, conn, stream); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "session", sessionID, "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.pushRows(ctx, conn, stream); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "session", sessionID, "err", err)
				}
				return
			}
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	interval := defaultInterval

	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return interval
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// pushRows sends rows advanced since the last push, then the summary when
// anything changed. A failed read is sent as an error envelope and ends the
// stream.
func (h *Handler) pushRows(ctx context.Context, conn *websocket.Conn, s *rowStream) error {
	sum, err := h.services.Replay.Summary(ctx, s.sessionID)
	if err != nil {
		h.writeEnvelope(conn, wsEnvelope{Type: envError, Error: err.Error()})
		return err
	}
	// A reload restarts the history, even of the same dataset.
	if s.started && sum.Generation != s.last.Generation {
		s.next = 0
		s.doneSent = false
	}

	if sum.CurrentRow > s.next {
		rows, err := h.services.Rows(ctx, s.sessionID, s.next)
		if err != nil {
			h.writeEnvelope(conn, wsEnvelope{Type: envError, Error: err.Error()})
			return err
		}
		for _, row := range rows {
			if err := h.writeEnvelope(conn, wsEnvelope{Type: envRow, Data: row}); err != nil {
				return err
			}
			s.next = row.Index + 1
		}
	}

	if !s.started || sum != s.last {
		if err := h.writeEnvelope(conn, wsEnvelope{Type: envSummary, Data: sum}); err != nil {
			return err
		}
	}
	s.started = true
	s.last = sum

	if sum.Phase == replay.PhaseExhausted && !s.doneSent && s.next >= sum.TotalRows {
		if err := h.writeEnvelope(conn, wsEnvelope{Type: envDone, Data: sum}); err != nil {
			return err
		}
		s.doneSent = true
	}
	return nil
}

func (h *Handler) writeEnvelope(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
