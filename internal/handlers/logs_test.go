package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"gridreplay/internal/models"
	"gridreplay/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBound(t *testing.T) {
	cases := []struct {
		raw   string
		upper bool
		want  time.Time
	}{
		{"2024-06-01T12:00:00+02:00", false, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-06-01T12:00:00.5Z", true, time.Date(2024, 6, 1, 12, 0, 0, 5e8, time.UTC)},
		{"2024-06-01 12:00:20", false, time.Date(2024, 6, 1, 12, 0, 20, 0, time.UTC)},
		{"2024-06-01", false, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{" 2024-06-30 ", true, time.Date(2024, 6, 30, 23, 59, 59, 999999999, time.UTC)},
	}
	for _, tc := range cases {
		got, err := parseBound(tc.raw, tc.upper)
		require.NoError(t, err, tc.raw)
		assert.True(t, tc.want.Equal(got), "%s: got %v", tc.raw, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	_, err := parseBound("yesterday", false)
	assert.ErrorIs(t, err, errBadTime)
}

func TestEventsHandler(t *testing.T) {
	stamp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	stored := []models.SessionEvent{
		{EventID: "e1", SessionID: "s1", OccurredAt: stamp, Type: models.EventLoad, RowIndex: -1, Description: "Dataset loaded"},
		{EventID: "e2", SessionID: "s1", OccurredAt: stamp.Add(time.Second), Type: models.EventAlert, RowIndex: 2, Description: "Battery low at 20.0%"},
	}

	t.Run("passes filter through", func(t *testing.T) {
		logs := &mockEventLog{resp: stored}
		r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: logs})

		w := serve(r, authedRequest(http.MethodGet, "/api/v1/sessions/s1/events?from=2024-06-01&to=2024-06-01&type=alert", nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var out struct {
			Count  int                   `json:"count"`
			Events []models.SessionEvent `json:"events"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		assert.Equal(t, 2, out.Count)
		assert.Equal(t, "Battery low at 20.0%", out.Events[1].Description)

		assert.Equal(t, "s1", logs.lastSession)
		assert.Equal(t, "alert", logs.lastType)
		assert.True(t, logs.lastFrom.Equal(stamp.Truncate(24*time.Hour)))
		assert.True(t, logs.lastTo.Equal(time.Date(2024, 6, 1, 23, 59, 59, 999999999, time.UTC)))
	})

	t.Run("open bounds stay zero", func(t *testing.T) {
		logs := &mockEventLog{}
		r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: logs})

		w := serve(r, authedRequest(http.MethodGet, "/api/v1/sessions/s1/events", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"count":0,"events":null}`, w.Body.String())
		assert.True(t, logs.lastFrom.IsZero())
		assert.True(t, logs.lastTo.IsZero())
	})

	cases := []struct {
		name     string
		query    string
		svcErr   error
		wantCode int
		wantMsg  string
	}{
		{"bad from", "?from=notatime", nil, http.StatusBadRequest, "invalid 'from' time; " + errBadTime.Error()},
		{"bad to", "?to=06/01/2024", nil, http.StatusBadRequest, "invalid 'to' time; " + errBadTime.Error()},
		{"inverted range", "?from=2024-06-02&to=2024-06-01", service.ErrInvalidTimeRange, http.StatusBadRequest, service.ErrInvalidTimeRange.Error()},
		{"unknown type", "?type=heartbeat", service.ErrUnknownEventType, http.StatusBadRequest, service.ErrUnknownEventType.Error()},
		{"store down", "", assert.AnError, http.StatusInternalServerError, errInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logs := &mockEventLog{err: tc.svcErr}
			r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: logs})

			w := serve(r, authedRequest(http.MethodGet, "/api/v1/sessions/s1/events"+tc.query, nil))
			assert.Equal(t, tc.wantCode, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.wantMsg, body["error"])
		})
	}
}
