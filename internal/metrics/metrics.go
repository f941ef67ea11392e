// Package metrics exposes replay activity to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"gridreplay/internal/engine"
	"gridreplay/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rowsAdvanced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridreplay_rows_advanced_total",
		Help: "Total number of telemetry rows classified across all sessions.",
	})

	alerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridreplay_alerts_total",
		Help: "Operational alerts raised, by alert code.",
	}, []string{"code"})

	validationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridreplay_validation_errors_total",
		Help: "Row-level errors, by input field. Unclassified rows count under field \"grid_status\".",
	}, []string{"field"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridreplay_sessions_active",
		Help: "Number of sessions with a dataset loaded.",
	})

	dischargeCycles = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gridreplay_discharge_cycles",
		Help: "Discharge cycles counted so far, by session.",
	}, []string{"session"})
)

// ObserveRow records one advanced row and its row-level errors.
func ObserveRow(sessionID string, row models.AnnotatedRow, rowErr error) {
	rowsAdvanced.Inc()
	for _, a := range row.Alerts {
		alerts.WithLabelValues(a.Code).Inc()
	}
	for _, err := range engine.RowErrors(rowErr) {
		var verr *engine.DataValidationError
		var uerr *engine.UnclassifiedStateError
		switch {
		case errors.As(err, &verr):
			validationErrors.WithLabelValues(verr.Field).Inc()
		case errors.As(err, &uerr):
			validationErrors.WithLabelValues(models.FieldGridStatus).Inc()
		}
	}
	dischargeCycles.WithLabelValues(sessionID).Set(float64(row.DischargeCycles))
}

// SessionLoaded is called the first time a session gets a dataset.
func SessionLoaded(sessionID string) {
	sessionsActive.Inc()
	dischargeCycles.WithLabelValues(sessionID).Set(0)
}

// SessionReloaded resets the per-session gauge.
func SessionReloaded(sessionID string) {
	dischargeCycles.WithLabelValues(sessionID).Set(0)
}

func SessionClosed(sessionID string) {
	sessionsActive.Dec()
	dischargeCycles.DeleteLabelValues(sessionID)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
