package ailink

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/ailink/driver"
)

func TestMapErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		wantCode   string
	}{
		{"auth", 401, CodeProviderAuth},
		{"forbidden", 403, CodeProviderAuth},
		{"rate", 429, CodeProviderRateLimit},
		{"bad", 400, CodeProviderBadRequest},
		{"unavail", 503, CodeProviderUnavailable},
		{"odd", 302, CodeProviderError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &driver.ProviderError{Provider: "gemini", StatusCode: tc.statusCode, Message: "boom\nline"})
			mapped := MapError(err)
			require.NotNil(t, mapped)
			require.Equal(t, tc.wantCode, mapped.Code)
			require.Equal(t, "boom line", mapped.Details)
		})
	}
}

func TestMapErrorSentinels(t *testing.T) {
	require.Nil(t, MapError(nil))
	require.Equal(t, CodeCredentialMissing, MapError(ErrMissingCredential).Code)
	require.Equal(t, CodeProviderTimeout, MapError(fmt.Errorf("x: %w", context.DeadlineExceeded)).Code)
	require.Equal(t, CodeCanceled, MapError(context.Canceled).Code)
	require.Equal(t, CodeResponseInvalid, MapError(&RawResponseError{Err: errors.New("bad shape")}).Code)

	generic := MapError(errors.New("dial tcp: refused"))
	require.Equal(t, CodeProviderError, generic.Code)
	require.Contains(t, generic.Details, "refused")
}
