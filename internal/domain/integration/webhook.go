package integration

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ledgercrm/backend/internal/domain/shared"
)

// Webhook is a registered callback from a provider to this service. The
// secret signs inbound payloads; events whose type matches a data-change
// pattern trigger an out-of-interval sync for the inferred entity type.
type Webhook struct {
	shared.BaseEntity
	IntegrationID uuid.UUID
	URL           string
	EventTypes    []string
	Secret        string
	// RemoteID is the provider-side registration handle, empty when
	// registration happened out-of-band.
	RemoteID string
	Enabled  bool
}

// NewWebhook creates an enabled webhook registration.
func NewWebhook(integrationID uuid.UUID, url string, eventTypes []string, secret string) (*Webhook, error) {
	if url == "" || secret == "" {
		return nil, shared.ErrInvalidInput
	}
	return &Webhook{
		BaseEntity:    shared.NewBaseEntity(),
		IntegrationID: integrationID,
		URL:           url,
		EventTypes:    eventTypes,
		Secret:        secret,
		Enabled:       true,
	}, nil
}

// Accepts reports whether the webhook subscribes to the event type. An
// empty EventTypes list accepts everything.
func (w *Webhook) Accepts(eventType string) bool {
	if !w.Enabled {
		return false
	}
	if len(w.EventTypes) == 0 {
		return true
	}
	for _, t := range w.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// WebhookEvent is an inbound provider event, persisted on arrival even
// when no sync config currently wants it.
type WebhookEvent struct {
	shared.BaseEntity
	IntegrationID uuid.UUID
	EventType     string
	Payload       []byte
	Processed     bool
}

// NewWebhookEvent records an inbound event.
func NewWebhookEvent(integrationID uuid.UUID, eventType string, payload []byte) *WebhookEvent {
	return &WebhookEvent{
		BaseEntity:    shared.NewBaseEntity(),
		IntegrationID: integrationID,
		EventType:     eventType,
		Payload:       payload,
	}
}

// dataChangePrefixes are event-type prefixes that indicate a remote data
// mutation worth resyncing.
var dataChangePrefixes = []string{"created", "updated", "deleted", "create", "update", "delete", "changed"}

// InferEntityType extracts the entity name from a data-change event type
// such as "customer.updated" or "invoices/create". The second return is
// false when the event does not look like a data change.
func InferEntityType(eventType string) (string, bool) {
	normalized := strings.ToLower(strings.ReplaceAll(eventType, "/", "."))
	parts := strings.Split(normalized, ".")
	if len(parts) < 2 {
		return "", false
	}
	action := parts[len(parts)-1]
	for _, p := range dataChangePrefixes {
		if action == p {
			return strings.Join(parts[:len(parts)-1], "."), true
		}
	}
	return "", false
}

// EntityNamesMatch reports whether two entity names refer to the same
// entity, tolerating singular/plural drift ("customer" vs "customers").
func EntityNamesMatch(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return true
	}
	return strings.TrimSuffix(a, "s") == strings.TrimSuffix(b, "s")
}
