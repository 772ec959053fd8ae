package integration

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// TokenSet is the result of a token exchange or refresh. Some providers do
// not rotate the refresh token on refresh; callers must retain the prior
// one when RefreshToken is empty.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	Scope        string
	// Extras carries provider-specific values returned alongside the
	// tokens (realm id, instance URL, shop domain).
	Extras map[string]string
}

// ExpiresAt converts ExpiresIn to an absolute expiry from now.
func (t TokenSet) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	at := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	return &at
}

// SchemaField describes one field of a remote entity.
type SchemaField struct {
	Name     string
	Type     string
	Required bool
	ReadOnly bool
}

// Schema describes a remote entity's shape.
type Schema struct {
	Entity   string
	IDField  string
	Fields   []SchemaField
	// MetadataFields lists provider bookkeeping keys (sync tokens, etags,
	// audit timestamps) stripped before content hashing.
	MetadataFields []string
	// ModifiedField names the remote last-modified timestamp field, empty
	// when the provider does not expose one.
	ModifiedField string
}

// ListQuery parameterizes a ListRecords call.
type ListQuery struct {
	Entity   string
	Filters  map[string]any
	Fields   []string
	Page     int
	PageSize int
	// ModifiedSince is advisory; the engine still hashes every record
	// because providers differ in timestamp granularity.
	ModifiedSince *time.Time
}

// ListPage is one page of records. Pagination is strictly forward; a
// connector must never deliver the same record twice for the same cursor.
type ListPage struct {
	Records []Record
	HasMore bool
}

// BulkResult aggregates a bulk create/update. One record's failure never
// aborts the rest of the batch.
type BulkResult struct {
	Created int
	Updated int
	Failed  int
	Errors  []BulkError
}

// BulkError describes one failed record within a bulk call.
type BulkError struct {
	RecordID string
	Message  string
}

// ConnectionStatus is the result of TestConnection. TestConnection never
// returns an error; failures are reported in Message.
type ConnectionStatus struct {
	OK      bool
	Message string
}

// WebhookRegistration is the provider-side handle of a registered webhook.
type WebhookRegistration struct {
	// Supported is false when the provider has no webhook API; the caller
	// must treat this as a normal outcome, not a failure.
	Supported bool
	RemoteID  string
}

// ---------------------------------------------------------------------------
// Connector Port
// ---------------------------------------------------------------------------

// Connector is the capability contract every provider adapter implements.
// One instance serves one (integration, provider) pair. All methods that
// touch the network take a context and surface failures through the error
// taxonomy in errors.go.
type Connector interface {
	// Provider returns the provider code this connector handles.
	Provider() ProviderCode

	// -----------------------------------------------------------------------
	// Authentication
	// -----------------------------------------------------------------------

	// GetAuthorizationURL builds the provider authorization redirect URL.
	// Pure URL construction, no I/O.
	GetAuthorizationURL(redirectURI, state string) (string, error)

	// ExchangeCodeForTokens trades an authorization code for a TokenSet.
	// Fails with ErrAuth on a rejected or invalid code.
	ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*TokenSet, error)

	// RefreshAccessToken obtains a fresh TokenSet. Fails with ErrAuth when
	// the refresh token is no longer valid.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenSet, error)

	// TestConnection probes the remote API with the current credentials.
	TestConnection(ctx context.Context) ConnectionStatus

	// -----------------------------------------------------------------------
	// Schema
	// -----------------------------------------------------------------------

	// GetEntitySchema returns the schema for a remote entity, or nil when
	// the entity is unknown to the provider (not an error).
	GetEntitySchema(entity string) *Schema

	// -----------------------------------------------------------------------
	// Records
	// -----------------------------------------------------------------------

	// ListRecords returns one page of remote records.
	ListRecords(ctx context.Context, query ListQuery) (*ListPage, error)

	// GetRecord fetches a single record, nil when absent.
	GetRecord(ctx context.Context, entity, remoteID string) (Record, error)

	// CreateRecord creates a remote record and returns it with the
	// provider-assigned id populated.
	CreateRecord(ctx context.Context, entity string, record Record) (Record, error)

	// UpdateRecord updates a remote record.
	UpdateRecord(ctx context.Context, entity, remoteID string, record Record) (Record, error)

	// DeleteRecord removes a remote record. Depending on provider
	// semantics this may be a soft archive; callers must not assume
	// hard deletion.
	DeleteRecord(ctx context.Context, entity, remoteID string) error

	// BulkCreate creates many records, aggregating per-record failures.
	BulkCreate(ctx context.Context, entity string, records []Record) (*BulkResult, error)

	// BulkUpdate updates many records, aggregating per-record failures.
	// Keys of records are remote ids.
	BulkUpdate(ctx context.Context, entity string, records map[string]Record) (*BulkResult, error)

	// -----------------------------------------------------------------------
	// Webhooks
	// -----------------------------------------------------------------------

	// RegisterWebhook registers a callback URL for the given event types.
	// A provider without webhook support returns Supported=false.
	RegisterWebhook(ctx context.Context, url string, eventTypes []string) (*WebhookRegistration, error)

	// UnregisterWebhook removes a previously registered webhook.
	UnregisterWebhook(ctx context.Context, remoteID string) error

	// VerifyWebhookSignature checks an inbound payload's signature before
	// the payload may be trusted.
	VerifyWebhookSignature(payload []byte, signature, secret string) bool
}

// ConnectorFactory builds a Connector bound to one integration's
// credentials.
type ConnectorFactory func(integ *Integration) (Connector, error)

// ConnectorRegistry resolves connectors by provider code.
type ConnectorRegistry interface {
	// Connector returns a connector bound to the integration's provider
	// and credentials.
	Connector(integ *Integration) (Connector, error)

	// ProviderConfig returns the OAuth configuration for a provider.
	ProviderConfig(code ProviderCode) (*ProviderConfig, error)

	// Providers lists the registered provider codes.
	Providers() []ProviderCode
}
