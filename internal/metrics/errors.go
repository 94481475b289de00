package metrics

import (
	"strconv"

	"github.com/stocklens/stocklens/internal/observability"
)

// Error metric names.
const (
	ErrorsTotalName      = "stocklens_errors_total"
	PanicsTotalName      = "stocklens_panics_total"
	ErrorsByEndpointName = "stocklens_errors_by_endpoint"
)

func count(name string, labels map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(name, 1, labels)
}

// RecordError counts an error response by envelope code and HTTP status.
func RecordError(errorCode string, httpStatus int) {
	count(ErrorsTotalName, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordPanic counts a recovered handler panic.
func RecordPanic(endpoint string) {
	count(PanicsTotalName, map[string]string{"endpoint": endpoint})
}

// RecordErrorByEndpoint counts an error response per route.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	count(ErrorsByEndpointName, map[string]string{
		"endpoint":   endpoint,
		"error_code": errorCode,
	})
}
