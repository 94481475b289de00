package ailink

import (
	"context"
	"errors"
	"strings"

	"github.com/stocklens/stocklens/internal/ailink/driver"
)

// Failure codes reported for remote collaborator errors.
const (
	CodeProviderTimeout     = "AILINK_PROVIDER_TIMEOUT"
	CodeProviderAuth        = "AILINK_PROVIDER_AUTH"
	CodeProviderRateLimit   = "AILINK_PROVIDER_RATE_LIMIT"
	CodeProviderUnavailable = "AILINK_PROVIDER_UNAVAILABLE"
	CodeProviderBadRequest  = "AILINK_PROVIDER_BAD_REQUEST"
	CodeProviderError       = "AILINK_PROVIDER_ERROR"
	CodeCredentialMissing   = "AILINK_CREDENTIAL_MISSING"
	CodeResponseInvalid     = "AILINK_RESPONSE_INVALID"
	CodeCanceled            = "AILINK_CANCELED"
)

// Failure summarises an ailink error for display without losing the cause.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MapError classifies err into a Failure. It returns nil for a nil error.
func MapError(err error) *Failure {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrMissingCredential) {
		return &Failure{Code: CodeCredentialMissing, Message: "api credential not configured"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Code: CodeProviderTimeout, Message: "provider request timed out"}
	}
	if errors.Is(err, context.Canceled) {
		return &Failure{Code: CodeCanceled, Message: "request canceled"}
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		details := safeOneLine(perr.Message)
		switch {
		case status == 401 || status == 403:
			return &Failure{Code: CodeProviderAuth, Message: "provider authentication failed", Details: details}
		case status == 429:
			return &Failure{Code: CodeProviderRateLimit, Message: "provider rate limited", Details: details}
		case status >= 500 && status <= 599:
			return &Failure{Code: CodeProviderUnavailable, Message: "provider unavailable", Details: details}
		case status >= 400 && status <= 499:
			return &Failure{Code: CodeProviderBadRequest, Message: "provider rejected request", Details: details}
		default:
			return &Failure{Code: CodeProviderError, Message: "provider request failed", Details: details}
		}
	}

	var rerr *RawResponseError
	if errors.As(err, &rerr) {
		return &Failure{Code: CodeResponseInvalid, Message: "provider response did not match the expected shape", Details: safeOneLine(rerr.Error())}
	}

	return &Failure{Code: CodeProviderError, Message: "provider request failed", Details: strings.TrimSpace(err.Error())}
}
