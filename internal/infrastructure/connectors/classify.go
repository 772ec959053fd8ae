package connectors

import (
	"fmt"
	"net/http"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// classifyStatus maps a provider HTTP status into the connector error
// taxonomy. The snippet is provider response detail for the sync log.
func classifyStatus(status int, snippet string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", integration.ErrAuth, status, snippet)
	case status == http.StatusNotFound || status == http.StatusGone:
		return fmt.Errorf("%w: status %d", integration.ErrNotFound, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", integration.ErrRateLimit, status, snippet)
	case status >= 400 && status < 500:
		return fmt.Errorf("%w: status %d: %s", integration.ErrValidation, status, snippet)
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", integration.ErrTransient, status, snippet)
	default:
		return nil
	}
}

// transportError wraps a network-level failure as transient.
func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", integration.ErrTransient, op, err)
}

// snippet truncates a response body for error messages.
func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
