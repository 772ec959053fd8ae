package integration

import "errors"

// ---------------------------------------------------------------------------
// Connector error taxonomy
// ---------------------------------------------------------------------------
//
// Every connector call surfaces failures through one of these sentinels,
// wrapped with provider detail via fmt.Errorf("%w: ...").  The sync engine
// keys its retry and abort decisions off errors.Is against this set.

var (
	// ErrAuth indicates an invalid or expired token. The caller should
	// attempt exactly one refresh-and-retry before surfacing it.
	ErrAuth = errors.New("integration: authentication failed")
	// ErrRateLimit indicates the provider throttled the call. The whole
	// call should be retried after backoff, never partial-failed.
	ErrRateLimit = errors.New("integration: rate limited by provider")
	// ErrNotFound indicates the remote record does not exist.
	ErrNotFound = errors.New("integration: remote record not found")
	// ErrValidation indicates the provider rejected the payload. Not
	// retryable without caller changes.
	ErrValidation = errors.New("integration: provider rejected payload")
	// ErrTransient indicates a network failure or provider 5xx.
	// Retryable with backoff.
	ErrTransient = errors.New("integration: transient provider error")
)

// ---------------------------------------------------------------------------
// Domain errors
// ---------------------------------------------------------------------------

var (
	// Integration errors
	ErrIntegrationNotFound     = errors.New("integration: integration not found")
	ErrIntegrationNotActive    = errors.New("integration: integration is not active")
	ErrIntegrationExists       = errors.New("integration: integration already exists for provider")
	ErrInvalidProvider         = errors.New("integration: invalid provider")
	ErrProviderNotRegistered   = errors.New("integration: no connector registered for provider")
	ErrMissingCredentials      = errors.New("integration: missing client credentials")
	ErrWebhookNotSupported     = errors.New("integration: provider does not support webhooks")
	ErrInvalidWebhookSignature = errors.New("integration: invalid webhook signature")

	// SyncConfig errors
	ErrSyncConfigNotFound  = errors.New("integration: sync config not found")
	ErrSyncConfigExists    = errors.New("integration: active sync config already exists for entity type")
	ErrSyncConfigDisabled  = errors.New("integration: sync config is disabled")
	ErrInvalidDirection    = errors.New("integration: invalid sync direction")
	ErrInvalidConflictMode = errors.New("integration: invalid conflict resolution strategy")

	// FieldMapping errors
	ErrFieldMappingNotFound = errors.New("integration: field mapping not found")
	ErrInvalidTransform     = errors.New("integration: invalid transform type")

	// SyncRecord errors
	ErrSyncRecordNotFound  = errors.New("integration: sync record not found")
	ErrRecordNotInConflict = errors.New("integration: sync record is not in conflict")

	// SyncLog errors
	ErrSyncLogNotFound  = errors.New("integration: sync log not found")
	ErrSyncLogImmutable = errors.New("integration: sync log already completed")
	ErrSyncInProgress   = errors.New("integration: a sync run is already in progress for this config")

	// OAuth errors
	ErrOAuthStateNotFound  = errors.New("integration: oauth state not found or already consumed")
	ErrOAuthStateExpired   = errors.New("integration: oauth state expired")
	ErrTokenExchangeFailed = errors.New("integration: token exchange failed")
	ErrNoRefreshToken      = errors.New("integration: no refresh token available")

	// Webhook errors
	ErrWebhookNotFound = errors.New("integration: webhook not found")
)
