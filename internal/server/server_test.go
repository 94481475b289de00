package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/stocklens/stocklens/internal/errors"
	"github.com/stocklens/stocklens/internal/server/handlers"
	servermw "github.com/stocklens/stocklens/internal/server/middleware"
	"github.com/stocklens/stocklens/internal/session"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := New(Options{Host: "127.0.0.1"})

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	req.Header.Set(servermw.RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeEnvelope(t, rec)
	require.Equal(t, "NOT_FOUND", body.Error.Code)
	require.Equal(t, "req-1", body.Error.RequestID)
}

func TestServerMethodNotAllowed(t *testing.T) {
	srv := New(Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/version", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "METHOD_NOT_ALLOWED", decodeEnvelope(t, rec).Error.Code)
}

func TestServerServesVersionAndHealth(t *testing.T) {
	srv := New(Options{Build: handlers.BuildInfo{Version: "0.4.0"}})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var version handlers.VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&version))
	require.Equal(t, "stocklens", version.App.Name)
	require.Equal(t, "0.4.0", version.App.Version)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServerMountsSessionRoutes(t *testing.T) {
	store := session.NewStore(func() (session.Analyzer, session.Speaker) { return nil, nil }, 0, nil)
	srv := New(Options{Sessions: store})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/session/analyze", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_INPUT", decodeEnvelope(t, rec).Error.Code)
	require.NotEmpty(t, rec.Header().Get(handlers.SessionHeader))
	require.Equal(t, 1, store.Len())
}

func TestServerWithoutSessionsHasNoSessionRoutes(t *testing.T) {
	srv := New(Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/session", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminEndpointRequiresToken(t *testing.T) {
	rec := httptest.NewRecorder()
	New(Options{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/signal", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	New(Options{AdminToken: "secret"}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/signal", nil))
	require.NotEqual(t, http.StatusNotFound, rec.Code)
}
