package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v2"

	"github.com/doeshing/cligent-go/internal/domain"
)

// statusError is returned by the generic HTTP client for non-2xx replies.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// malformedError marks replies that arrived but could not be decoded.
type malformedError struct {
	err error
}

func (e *malformedError) Error() string { return e.err.Error() }
func (e *malformedError) Unwrap() error { return e.err }

// mapError converts client failures into *domain.ProviderError.
func mapError(providerID string, err error) error {
	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) {
		return providerErr
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return domain.NewProviderError(kindForStatus(anthropicErr.StatusCode), providerID, err)
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return domain.NewProviderError(kindForStatus(openaiErr.StatusCode), providerID, err)
	}
	var httpErr *statusError
	if errors.As(err, &httpErr) {
		return domain.NewProviderError(kindForStatus(httpErr.StatusCode), providerID, err)
	}

	var malformed *malformedError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &malformed) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return domain.NewProviderError(domain.ProviderMalformed, providerID, err)
	}

	return domain.NewProviderError(domain.ProviderNetwork, providerID, err)
}

func kindForStatus(code int) domain.ProviderErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ProviderAuth
	case http.StatusTooManyRequests:
		return domain.ProviderRateLimit
	default:
		return domain.ProviderNetwork
	}
}
