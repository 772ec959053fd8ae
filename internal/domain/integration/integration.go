package integration

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgercrm/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// IntegrationStatus
// ---------------------------------------------------------------------------

// IntegrationStatus is the lifecycle state of an Integration.
type IntegrationStatus string

const (
	// IntegrationStatusPending indicates the integration was created but
	// authorization has not completed.
	IntegrationStatusPending IntegrationStatus = "PENDING"
	// IntegrationStatusActive indicates OAuth completed or a connection
	// test succeeded.
	IntegrationStatusActive IntegrationStatus = "ACTIVE"
	// IntegrationStatusError indicates an unrecoverable auth or API
	// failure; scheduled syncs are halted until re-authorization.
	IntegrationStatusError IntegrationStatus = "ERROR"
)

// IsValid returns true if the status is valid
func (s IntegrationStatus) IsValid() bool {
	switch s {
	case IntegrationStatusPending, IntegrationStatusActive, IntegrationStatusError:
		return true
	default:
		return false
	}
}

// String returns the string representation of IntegrationStatus
func (s IntegrationStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials holds the OAuth client and token material for one
// integration. Tokens are stored encrypted at rest by the persistence
// layer; the domain always sees plaintext.
type Credentials struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
	TokenExpiry  *time.Time
	// Extras carries provider-specific values (realm id, instance URL,
	// shop domain) required to address tenant-specific endpoints.
	Extras map[string]string
}

// HasClient reports whether client id and secret are present.
func (c Credentials) HasClient() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// ExpiringWithin reports whether the access token expires inside the
// given safety margin. A missing expiry is treated as not expiring.
func (c Credentials) ExpiringWithin(margin time.Duration, now time.Time) bool {
	if c.TokenExpiry == nil {
		return false
	}
	return c.TokenExpiry.Before(now.Add(margin))
}

// ---------------------------------------------------------------------------
// Integration
// ---------------------------------------------------------------------------

// Integration is the aggregate root for one connected external platform
// account of an organization.
type Integration struct {
	shared.BaseEntity
	OrganizationID uuid.UUID
	Provider       ProviderCode
	Category       Category
	Name           string
	Credentials    Credentials
	Status         IntegrationStatus
	// LastError retains the most recent failure message for operator
	// visibility.
	LastError string
}

// NewIntegration creates a pending integration for a first connect attempt.
func NewIntegration(orgID uuid.UUID, provider ProviderCode, name, clientID, clientSecret string) (*Integration, error) {
	if !provider.IsValid() {
		return nil, ErrInvalidProvider
	}
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if name == "" {
		name = provider.String()
	}
	return &Integration{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: orgID,
		Provider:       provider,
		Category:       DefaultCategory(provider),
		Name:           name,
		Credentials: Credentials{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Extras:       map[string]string{},
		},
		Status: IntegrationStatusPending,
	}, nil
}

// Activate transitions the integration to active and clears the last error.
func (i *Integration) Activate() {
	i.Status = IntegrationStatusActive
	i.LastError = ""
	i.UpdatedAt = time.Now()
}

// MarkError transitions the integration to error, retaining the message.
func (i *Integration) MarkError(message string) {
	i.Status = IntegrationStatusError
	i.LastError = message
	i.UpdatedAt = time.Now()
}

// IsActive reports whether scheduled syncs may run.
func (i *Integration) IsActive() bool {
	return i.Status == IntegrationStatusActive
}

// ApplyTokenSet stores a newly exchanged or refreshed token set. A refresh
// response without a new refresh token keeps the prior one.
func (i *Integration) ApplyTokenSet(tokens *TokenSet, now time.Time) {
	i.Credentials.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		i.Credentials.RefreshToken = tokens.RefreshToken
	}
	i.Credentials.TokenExpiry = tokens.ExpiresAt(now)
	if i.Credentials.Extras == nil {
		i.Credentials.Extras = map[string]string{}
	}
	for k, v := range tokens.Extras {
		i.Credentials.Extras[k] = v
	}
	i.UpdatedAt = now
}
