package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/appid"
)

func TestVersionHandlerIncludesIdentityMetadata(t *testing.T) {
	handler := VersionHandler(appid.Identity{BinaryName: "example-service"}, BuildInfo{
		Version:   "1.2.3",
		Commit:    "abcd123",
		BuildDate: "2025-11-07T12:00:00Z",
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "example-service", resp.App.Name)
	require.Equal(t, "1.2.3", resp.App.Version)
	require.Equal(t, "abcd123", resp.App.Commit)
	require.NotEmpty(t, resp.Dependencies.Gofulmen)
	require.NotEmpty(t, resp.Dependencies.Crucible)
}

func TestVersionResponseDefaults(t *testing.T) {
	resp := NewVersionResponse(appid.Get(), BuildInfo{})
	require.Equal(t, "stocklens", resp.App.Name)
	require.Equal(t, "dev", resp.App.Version)
	require.Equal(t, "unknown", resp.App.Commit)
}
