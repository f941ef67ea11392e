package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gridreplay/internal/dataset"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidBodyPref = "invalid body: "
	errInvalidFrom     = "invalid 'from' row index"

	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type createSessionRequest struct {
	DatasetID  string `json:"dataset_id" binding:"required"`
	IntervalMS int64  `json:"interval_ms,omitempty"`
}

type reloadRequest struct {
	DatasetID string `json:"dataset_id" binding:"required"`
	Discard   bool   `json:"discard"`
}

// CreateSessionRequest documents the payload of POST /sessions.
type CreateSessionRequest struct {
	// Stored dataset to replay
	DatasetID string `json:"dataset_id" example:"3f1c2a9e-8d1b-4f7a-9c55-0e6f1b2a7d44"`
	// Start playback right away at this interval; 0 leaves the session paused
	IntervalMS int64 `json:"interval_ms,omitempty" example:"1000"`
}

// ReloadRequest documents the payload of POST /sessions/{id}/load.
type ReloadRequest struct {
	DatasetID string `json:"dataset_id" example:"3f1c2a9e-8d1b-4f7a-9c55-0e6f1b2a7d44"`
	// Drop annotated rows that were never exported
	Discard bool `json:"discard" example:"false"`
}

// @Summary      Open a replay session
// @Description  Loads a stored dataset into a new session. With interval_ms > 0 playback starts immediately.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        body  body      CreateSessionRequest  true  "Session payload"
// @Success      201   {object}  map[string]interface{}  "session_id, summary, playback"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/sessions [post]
// @Security     BearerAuth
func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()

	id, sum, err := h.services.LoadDataset(ctx, req.DatasetID)
	if err != nil {
		h.respondError(c, "session_create_failed", err, "dataset", req.DatasetID)
		return
	}
	resp := gin.H{"session_id": id, "summary": sum}
	if req.IntervalMS > 0 {
		st, err := h.services.Play(ctx, id, time.Duration(req.IntervalMS)*time.Millisecond)
		if err != nil {
			h.respondError(c, "session_play_failed", err, "session", id)
			return
		}
		resp["playback"] = st
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary      Reload a session with another dataset
// @Description  Destroys the session's annotated history. Unexported history is only dropped with discard=true; otherwise 409.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Session ID"
// @Param        body  body      ReloadRequest  true  "Reload payload"
// @Success      200   {object}  replay.Summary
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/sessions/{id}/load [post]
// @Security     BearerAuth
func (h *Handler) reloadSession(c *gin.Context) {
	var req reloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id := c.Param("id")
	ctx := c.Request.Context()

	sum, err := h.services.ReloadDataset(ctx, id, req.DatasetID, req.Discard)
	if err != nil {
		h.respondError(c, "session_reload_failed", err, "session", id, "dataset", req.DatasetID)
		return
	}
	// Playback never advances a newer load than the one it started on, so
	// pausing after the reload cannot step the new dataset.
	if _, err := h.services.Pause(ctx, id); err != nil {
		h.respondError(c, "session_reload_failed", err, "session", id)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary      Advance one row
// @Description  Returns the newly annotated row, or done=true with the final summary once the dataset is exhausted.
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  service.AdvanceResult
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/sessions/{id}/advance [post]
// @Security     BearerAuth
func (h *Handler) advance(c *gin.Context) {
	id := c.Param("id")
	res, err := h.services.Advance(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "session_advance_failed", err, "session", id)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Session summary
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  replay.Summary
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/sessions/{id}/summary [get]
// @Security     BearerAuth
func (h *Handler) getSummary(c *gin.Context) {
	id := c.Param("id")
	sum, err := h.services.Summary(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "session_summary_failed", err, "session", id)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary      Session status
// @Description  Summary plus playback state. Falls back to the last persisted snapshot for closed sessions (live=false).
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  service.SessionStatus
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/sessions/{id}/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	id := c.Param("id")
	st, err := h.services.GetStatus(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "session_status_failed", err, "session", id)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Annotated rows
// @Description  Rows already advanced over, starting at index from.
// @Tags         sessions
// @Produce      json
// @Param        id    path      string  true   "Session ID"
// @Param        from  query     int     false  "First row index"  default(0)
// @Success      200   {object}  map[string]interface{}  "count, rows"
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/sessions/{id}/rows [get]
// @Security     BearerAuth
func (h *Handler) getRows(c *gin.Context) {
	id := c.Param("id")
	from := 0
	if qs := c.Query("from"); qs != "" {
		v, err := strconv.Atoi(qs)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidFrom})
			return
		}
		from = v
	}
	rows, err := h.services.Rows(c.Request.Context(), id, from)
	if err != nil {
		h.respondError(c, "session_rows_failed", err, "session", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(rows),
		"rows":  rows,
	})
}

// @Summary      Export the annotated dataset
// @Description  Every dataset row in order; only rows already advanced over carry derived columns. Marks the history exported.
// @Tags         sessions
// @Produce      octet-stream
// @Param        id      path   string  true   "Session ID"
// @Param        format  query  string  false  "csv or xlsx"  Enums(csv,xlsx)  default(csv)
// @Success      200
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/sessions/{id}/export [get]
// @Security     BearerAuth
func (h *Handler) export(c *gin.Context) {
	id := c.Param("id")
	format, err := dataset.ParseFormat(c.Query("format"))
	if err != nil {
		h.respondError(c, "session_export_failed", err)
		return
	}

	var buf bytes.Buffer
	if err := h.services.Export(c.Request.Context(), id, format, &buf); err != nil {
		h.respondError(c, "session_export_failed", err, "session", id, "format", format)
		return
	}

	contentType := contentTypeCSV
	if format == dataset.FormatXLSX {
		contentType = contentTypeXLSX
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="session-%s.%s"`, id, format))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// @Summary      Close a session
// @Description  Stops playback and drops the in-memory session. Persisted rows, snapshot and events stay.
// @Tags         sessions
// @Produce      json
// @Param        id   path  string  true  "Session ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/sessions/{id} [delete]
// @Security     BearerAuth
func (h *Handler) closeSession(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	if _, err := h.services.Pause(ctx, id); err != nil {
		h.respondError(c, "session_close_failed", err, "session", id)
		return
	}
	if err := h.services.CloseSession(ctx, id); err != nil {
		h.respondError(c, "session_close_failed", err, "session", id)
		return
	}
	c.Status(http.StatusNoContent)
}
