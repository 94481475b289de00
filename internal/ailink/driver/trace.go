package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// TraceEntry is one remote call as written to the trace file.
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Driver      string          `json:"driver"`
	Operation   string          `json:"operation"`
	Endpoint    string          `json:"endpoint"`
	Method      string          `json:"method"`
	Model       string          `json:"model,omitempty"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

// traceSink serialises entries as NDJSON.
type traceSink struct {
	mu  sync.Mutex
	enc *json.Encoder
	c   io.Closer
}

func (s *traceSink) write(entry TraceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(entry)
}

func (s *traceSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.c.Close()
}

var activeSink atomic.Pointer[traceSink]

// EnableTracing appends a trace of every remote call to path, replacing any
// trace already active. The returned func stops tracing.
func EnableTracing(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	if prev := activeSink.Swap(&traceSink{enc: json.NewEncoder(f), c: f}); prev != nil {
		prev.close()
	}
	return DisableTracing, nil
}

func DisableTracing() {
	if prev := activeSink.Swap(nil); prev != nil {
		prev.close()
	}
}

func IsTracingEnabled() bool {
	return activeSink.Load() != nil
}

// Trace records entry when tracing is on, with the API key masked.
func Trace(entry TraceEntry) {
	sink := activeSink.Load()
	if sink == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Endpoint = RedactURL(entry.Endpoint)
	sink.write(entry)
}

// RedactURL masks the "key" query parameter of a request URL.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("key") == "" {
		return raw
	}
	q.Set("key", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
