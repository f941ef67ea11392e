package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gridreplay/internal/service"

	"github.com/gin-gonic/gin"
)

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly}

var errBadTime = errors.New("use RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'")

// parseBound reads a from/to query value in UTC. A date-only upper bound
// covers the whole day.
func parseBound(raw string, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if upper && layout == time.DateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return t.UTC(), nil
	}
	return time.Time{}, errBadTime
}

// eventFilter builds the log filter from the request, writing a 400 on a bad bound.
func eventFilter(c *gin.Context) (service.LogFilter, bool) {
	f := service.LogFilter{SessionID: c.Param("id"), Type: c.Query("type")}
	for _, b := range []struct {
		key   string
		dst   *time.Time
		upper bool
	}{
		{"from", &f.From, false},
		{"to", &f.To, true},
	} {
		raw := c.Query(b.key)
		if raw == "" {
			continue
		}
		t, err := parseBound(raw, b.upper)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid '" + b.key + "' time; " + err.Error()})
			return service.LogFilter{}, false
		}
		*b.dst = t
	}
	return f, true
}

// @Summary      List session events
// @Description  Bounds accept RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD' and are inclusive. A date-only 'to' covers the whole day.
// @Tags         sessions
// @Produce      json
// @Param        id    path    string  true   "Session ID"
// @Param        from  query   string  false  "Start of range"  example(2024-06-01)
// @Param        to    query   string  false  "End of range"    example(2024-06-30)
// @Param        type  query   string  false  "Event type"  Enums(LOAD,ALERT,VALIDATION,DONE,EXPORT,PLAYBACK)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/sessions/{id}/events [get]
// @Security     BearerAuth
func (h *Handler) getEvents(c *gin.Context) {
	f, ok := eventFilter(c)
	if !ok {
		return
	}
	events, err := h.services.EventLog.List(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, "events_list_failed", err, "session", f.SessionID, "type", f.Type)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
}
