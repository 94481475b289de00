package metrics

import (
	"time"

	"github.com/stocklens/stocklens/internal/observability"
)

// Application metrics following Prometheus conventions.
var (
	AnalysesTotal    = "stocklens_analyses_total"
	AnalysisDuration = "stocklens_analysis_duration_ms"
	VerdictsTotal    = "stocklens_verdicts_total"

	SpeechTotal    = "stocklens_speech_total"
	SpeechDuration = "stocklens_speech_duration_ms"

	ActiveSessions = "stocklens_active_sessions"

	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	ServerStartTime = "app_server_start_time_seconds"
)

// RecordAnalysis records one classification exchange. status is "success",
// "violation" (at least one check found a problem) or "failure".
func RecordAnalysis(status string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(AnalysesTotal, 1, map[string]string{"status": status})
	_ = observability.TelemetrySystem.Histogram(AnalysisDuration, duration, map[string]string{"status": status})
}

// RecordVerdict counts one policy outcome.
func RecordVerdict(policy, verdict string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(VerdictsTotal, 1, map[string]string{
		"policy":  policy,
		"verdict": verdict,
	})
}

// RecordSpeech records a speech request. status is "played", "skipped" or "failure".
func RecordSpeech(status string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(SpeechTotal, 1, map[string]string{"status": status})
	if duration > 0 {
		_ = observability.TelemetrySystem.Histogram(SpeechDuration, duration, map[string]string{"status": status})
	}
}

// SetActiveSessions sets the number of live sessions.
func SetActiveSessions(count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ActiveSessions, float64(count), nil)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
