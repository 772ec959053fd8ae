package integration

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// DefaultOAuthStateTTL bounds how long an authorization redirect may take
// before its state token is rejected.
const DefaultOAuthStateTTL = 10 * time.Minute

// OAuthState is the single-use CSRF token binding an authorization
// redirect to its originating request. Validation of a missing, consumed
// or expired state fails closed: no token exchange is attempted.
type OAuthState struct {
	Token          string            `json:"token"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	Provider       ProviderCode      `json:"provider"`
	UserID         uuid.UUID         `json:"user_id"`
	IntegrationID  uuid.UUID         `json:"integration_id"`
	RedirectURI    string            `json:"redirect_uri"`
	Extra          map[string]string `json:"extra,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// NewOAuthState mints an unguessable state token for a connect attempt.
func NewOAuthState(orgID, userID, integrationID uuid.UUID, provider ProviderCode, redirectURI string, extra map[string]string) (*OAuthState, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return &OAuthState{
		Token:          base64.RawURLEncoding.EncodeToString(buf),
		OrganizationID: orgID,
		Provider:       provider,
		UserID:         userID,
		IntegrationID:  integrationID,
		RedirectURI:    redirectURI,
		Extra:          extra,
		CreatedAt:      time.Now(),
	}, nil
}

// Expired reports whether the state is past its TTL.
func (s *OAuthState) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.CreatedAt) > ttl
}
