package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/ailink"
	"github.com/stocklens/stocklens/internal/ailink/driver"
	"github.com/stocklens/stocklens/internal/imaging"
	"github.com/stocklens/stocklens/internal/review"
	"github.com/stocklens/stocklens/internal/session"
	"github.com/stocklens/stocklens/internal/speech"
)

func TestFromDomainMapsSentinels(t *testing.T) {
	providerDown := &driver.ProviderError{Provider: "gemini", StatusCode: 503, Message: "overloaded"}

	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"no image", review.ErrNoImage, CodeInvalidInput, http.StatusBadRequest},
		{"busy", session.ErrBusy, CodeConflict, http.StatusConflict},
		{"image changed", session.ErrImageChanged, CodeConflict, http.StatusConflict},
		{"credential via analysis", fmt.Errorf("%w: %w", review.ErrAnalysisFailed, ailink.ErrMissingCredential), CodeConfigInvalid, http.StatusInternalServerError},
		{"credential via speech", speech.ErrMissingCredential, CodeConfigInvalid, http.StatusInternalServerError},
		{"remote analysis", fmt.Errorf("%w: %w", review.ErrAnalysisFailed, providerDown), CodeExternalService, http.StatusBadGateway},
		{"remote speech", fmt.Errorf("%w: %w", speech.ErrSynthesisFailed, providerDown), CodeExternalService, http.StatusBadGateway},
		{"bad model output", fmt.Errorf("%w: decode classification: bad", review.ErrAnalysisFailed), CodeExternalService, http.StatusBadGateway},
		{"timeout", fmt.Errorf("%w: %w", review.ErrAnalysisFailed, context.DeadlineExceeded), CodeTimeout, http.StatusGatewayTimeout},
		{"too large", fmt.Errorf("%w: 30 bytes", imaging.ErrTooLarge), CodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"not image", imaging.ErrNotImage, CodeUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{"other", stderrors.New("disk on fire"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := FromDomain(context.Background(), tt.err)
			require.Equal(t, tt.code, env.Code)
			require.Equal(t, tt.status, HTTPStatusFromCode(env.Code))
			require.NotEmpty(t, env.CorrelationID)
		})
	}
}

func TestEnvelopeConstructors(t *testing.T) {
	tests := []struct {
		env    *errors.ErrorEnvelope
		code   string
		status int
	}{
		{NewNotFoundError("gone"), CodeNotFound, http.StatusNotFound},
		{NewMethodNotAllowedError("nope"), CodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{NewConflictError("taken"), CodeConflict, http.StatusConflict},
		{NewInternalError("boom"), CodeInternal, http.StatusInternalServerError},
		{NewServiceUnavailableError("later"), CodeServiceUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		require.Equal(t, tt.code, tt.env.Code)
		require.Equal(t, tt.status, HTTPStatusFromCode(tt.env.Code))
	}
}

func TestFromDomainKeepsEnvelopes(t *testing.T) {
	env := NewConflictError("taken")
	require.Same(t, env, FromDomain(context.Background(), env))
}

func TestRemoteFailureCarriesAilinkCode(t *testing.T) {
	err := fmt.Errorf("%w: %w", review.ErrAnalysisFailed, &driver.ProviderError{StatusCode: 429})
	env := FromDomain(context.Background(), err)
	require.Equal(t, ailink.CodeProviderRateLimit, env.Details["ailink_code"])
}

func TestRespondWithErrorWritesEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithError(rec, httptest.NewRequest(http.MethodPost, "/v1/session/analyze", nil), session.ErrBusy)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, CodeConflict, body.Error.Code)
	require.Equal(t, "analysis already in progress", body.Error.Details["wrapped_error"])
	require.NotEmpty(t, body.Error.RequestID)
}

func TestEnsureEnvelopeNil(t *testing.T) {
	env := EnsureEnvelope(nil)
	require.Equal(t, CodeInternal, env.Code)
}
