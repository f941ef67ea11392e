package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type intervalRequest struct {
	IntervalMS int64 `json:"interval_ms"`
}

// IntervalRequest documents the playback payloads.
type IntervalRequest struct {
	// Milliseconds between rows; 0 selects the configured default
	IntervalMS int64 `json:"interval_ms" example:"500"`
}

// bindInterval accepts an empty body as interval 0.
func (h *Handler) bindInterval(c *gin.Context) (time.Duration, bool) {
	var req intervalRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return 0, false
		}
	}
	if req.IntervalMS < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval_ms must be >= 0"})
		return 0, false
	}
	return time.Duration(req.IntervalMS) * time.Millisecond, true
}

// @Summary      Start playback
// @Description  Advances the session automatically. The interval is clamped to the configured minimum and 10s.
// @Tags         playback
// @Accept       json
// @Produce      json
// @Param        id    path      string           true   "Session ID"
// @Param        body  body      IntervalRequest  false  "Interval payload"
// @Success      200   {object}  service.PlaybackStatus
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/sessions/{id}/play [post]
// @Security     BearerAuth
func (h *Handler) play(c *gin.Context) {
	d, ok := h.bindInterval(c)
	if !ok {
		return
	}
	id := c.Param("id")
	st, err := h.services.Play(c.Request.Context(), id, d)
	if err != nil {
		h.respondError(c, "playback_play_failed", err, "session", id)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Pause playback
// @Tags         playback
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  service.PlaybackStatus
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/sessions/{id}/pause [post]
// @Security     BearerAuth
func (h *Handler) pause(c *gin.Context) {
	id := c.Param("id")
	st, err := h.services.Pause(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "playback_pause_failed", err, "session", id)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Change playback speed
// @Description  A paused session stays paused.
// @Tags         playback
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Session ID"
// @Param        body  body      IntervalRequest  true  "Interval payload"
// @Success      200   {object}  service.PlaybackStatus
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/sessions/{id}/speed [put]
// @Security     BearerAuth
func (h *Handler) setSpeed(c *gin.Context) {
	d, ok := h.bindInterval(c)
	if !ok {
		return
	}
	id := c.Param("id")
	st, err := h.services.SetSpeed(c.Request.Context(), id, d)
	if err != nil {
		h.respondError(c, "playback_speed_failed", err, "session", id)
		return
	}
	c.JSON(http.StatusOK, st)
}
