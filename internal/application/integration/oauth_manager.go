package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// DefaultRefreshMargin is how long before expiry a token counts as
// expiring and gets refreshed eagerly.
const DefaultRefreshMargin = 5 * time.Minute

// OAuthManager owns the OAuth authorization flow and the token lifecycle
// of every integration. State tokens are single-use with a short TTL;
// validation of a missing, consumed or expired state fails closed.
// Refreshes are serialized per integration so concurrent sync runs
// cannot race a provider that rotates refresh tokens.
type OAuthManager struct {
	integrations  integration.IntegrationRepository
	states        integration.OAuthStateStore
	registry      integration.ConnectorRegistry
	stateTTL      time.Duration
	refreshMargin time.Duration
	logger        *zap.Logger

	mu        sync.Mutex
	refreshMu map[uuid.UUID]*sync.Mutex
}

// NewOAuthManager creates an OAuth manager. Zero durations fall back to
// DefaultOAuthStateTTL and DefaultRefreshMargin.
func NewOAuthManager(
	integrations integration.IntegrationRepository,
	states integration.OAuthStateStore,
	registry integration.ConnectorRegistry,
	stateTTL, refreshMargin time.Duration,
	logger *zap.Logger,
) *OAuthManager {
	if stateTTL <= 0 {
		stateTTL = integration.DefaultOAuthStateTTL
	}
	if refreshMargin <= 0 {
		refreshMargin = DefaultRefreshMargin
	}
	return &OAuthManager{
		integrations:  integrations,
		states:        states,
		registry:      registry,
		stateTTL:      stateTTL,
		refreshMargin: refreshMargin,
		logger:        logger,
		refreshMu:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// ---------------------------------------------------------------------------
// Authorization flow
// ---------------------------------------------------------------------------

// StartAuthorization mints a single-use state for an integration and
// returns the provider authorization URL to redirect the user to.
func (m *OAuthManager) StartAuthorization(ctx context.Context, integ *integration.Integration, userID uuid.UUID, redirectURI string) (string, error) {
	if !integ.Credentials.HasClient() {
		return "", integration.ErrMissingCredentials
	}
	connector, err := m.registry.Connector(integ)
	if err != nil {
		return "", err
	}

	state, err := integration.NewOAuthState(integ.OrganizationID, userID, integ.ID, integ.Provider, redirectURI, nil)
	if err != nil {
		return "", err
	}
	if err := m.states.Put(ctx, state, m.stateTTL); err != nil {
		return "", err
	}

	url, err := connector.GetAuthorizationURL(redirectURI, state.Token)
	if err != nil {
		return "", err
	}

	m.logger.Info("authorization started",
		zap.String("integration_id", integ.ID.String()),
		zap.String("provider", integ.Provider.String()))
	return url, nil
}

// CompleteAuthorization handles the provider callback: it consumes the
// state (a replayed or forged token fails here), exchanges the code and
// activates the integration. A failed exchange leaves the integration in
// error status with the reason recorded.
func (m *OAuthManager) CompleteAuthorization(ctx context.Context, stateToken, code string) (*integration.Integration, error) {
	state, err := m.states.Consume(ctx, stateToken)
	if err != nil {
		return nil, err
	}
	if state.Expired(m.stateTTL, time.Now()) {
		return nil, integration.ErrOAuthStateExpired
	}

	integ, err := m.integrations.FindByID(ctx, state.IntegrationID)
	if err != nil {
		return nil, err
	}
	if integ.Provider != state.Provider || integ.OrganizationID != state.OrganizationID {
		return nil, integration.ErrOAuthStateNotFound
	}

	connector, err := m.registry.Connector(integ)
	if err != nil {
		return nil, err
	}

	tokens, err := connector.ExchangeCodeForTokens(ctx, code, state.RedirectURI)
	if err != nil {
		integ.MarkError(err.Error())
		if saveErr := m.integrations.Save(ctx, integ); saveErr != nil {
			m.logger.Error("save integration after failed exchange", zap.Error(saveErr))
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrTokenExchangeFailed, err)
	}

	integ.ApplyTokenSet(tokens, time.Now())
	integ.Activate()
	if err := m.integrations.Save(ctx, integ); err != nil {
		return nil, err
	}

	m.logger.Info("authorization completed",
		zap.String("integration_id", integ.ID.String()),
		zap.String("provider", integ.Provider.String()))
	return integ, nil
}

// ---------------------------------------------------------------------------
// Token refresh
// ---------------------------------------------------------------------------

// EnsureFresh refreshes the token when it expires within the configured
// margin. Tokens without a known expiry are left alone until a call
// fails with an auth error.
func (m *OAuthManager) EnsureFresh(ctx context.Context, integ *integration.Integration) error {
	if !integ.Credentials.ExpiringWithin(m.refreshMargin, time.Now()) {
		return nil
	}
	return m.Refresh(ctx, integ)
}

// Refresh obtains a fresh token set for the integration. Serialized per
// integration; a caller that lost the race to a concurrent refresh
// adopts the stored credentials instead of spending the refresh token
// again. A rejected refresh token flags the integration for
// re-authorization.
func (m *OAuthManager) Refresh(ctx context.Context, integ *integration.Integration) error {
	lock := m.lockFor(integ.ID)
	lock.Lock()
	defer lock.Unlock()

	if stored, err := m.integrations.FindByID(ctx, integ.ID); err == nil && stored != nil {
		if stored.Credentials.AccessToken != integ.Credentials.AccessToken &&
			!stored.Credentials.ExpiringWithin(m.refreshMargin, time.Now()) {
			integ.Credentials = stored.Credentials
			return nil
		}
	}

	if integ.Credentials.RefreshToken == "" {
		return integration.ErrNoRefreshToken
	}

	connector, err := m.registry.Connector(integ)
	if err != nil {
		return err
	}

	tokens, err := connector.RefreshAccessToken(ctx, integ.Credentials.RefreshToken)
	if err != nil {
		if errors.Is(err, integration.ErrAuth) {
			integ.MarkError("refresh token rejected; re-authorization required")
			if saveErr := m.integrations.Save(ctx, integ); saveErr != nil {
				m.logger.Error("save integration after failed refresh", zap.Error(saveErr))
			}
		}
		return err
	}

	integ.ApplyTokenSet(tokens, time.Now())
	if err := m.integrations.Save(ctx, integ); err != nil {
		return err
	}

	m.logger.Debug("token refreshed",
		zap.String("integration_id", integ.ID.String()),
		zap.String("provider", integ.Provider.String()))
	return nil
}

func (m *OAuthManager) lockFor(id uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.refreshMu[id]
	if !ok {
		lock = &sync.Mutex{}
		m.refreshMu[id] = lock
	}
	return lock
}
