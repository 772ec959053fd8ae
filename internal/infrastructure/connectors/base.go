package connectors

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// maxResponseSize bounds provider response bodies to prevent memory
// exhaustion on a misbehaving endpoint.
const maxResponseSize = 10 * 1024 * 1024

// defaultHTTPClient is used when a connector is built without one.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// BaseConnector carries the pieces every provider adapter shares: the
// bound integration, the provider's OAuth configuration and an HTTP
// client. It implements the generic OAuth2 authorization-code flow;
// concrete connectors embed it and add record operations.
type BaseConnector struct {
	integ  *integration.Integration
	config integration.ProviderConfig
	client *http.Client
}

// NewBaseConnector binds a base connector to one integration.
func NewBaseConnector(integ *integration.Integration, config integration.ProviderConfig, client *http.Client) BaseConnector {
	if client == nil {
		client = defaultHTTPClient()
	}
	return BaseConnector{integ: integ, config: config, client: client}
}

// Provider returns the provider code this connector handles.
func (c *BaseConnector) Provider() integration.ProviderCode {
	return c.config.Code
}

// Integration returns the bound integration.
func (c *BaseConnector) Integration() *integration.Integration {
	return c.integ
}

// accessToken reads the current token at call time, so a refresh done
// mid-run is picked up without rebuilding the connector.
func (c *BaseConnector) accessToken() string {
	return c.integ.Credentials.AccessToken
}

// ---------------------------------------------------------------------------
// OAuth2 flow
// ---------------------------------------------------------------------------

// GetAuthorizationURL builds the provider authorization redirect URL.
func (c *BaseConnector) GetAuthorizationURL(redirectURI, state string) (string, error) {
	base := c.config.ResolveAuthorizeURL(c.integ.Credentials.Extras)
	if base == "" {
		return "", fmt.Errorf("%w: %s has no authorize url", integration.ErrProviderNotRegistered, c.config.Code)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", c.integ.Credentials.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("state", state)
	if scope := c.config.Scope(); scope != "" {
		q.Set("scope", scope)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCodeForTokens trades an authorization code for tokens.
func (c *BaseConnector) ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*integration.TokenSet, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}
	return c.requestToken(ctx, form)
}

// RefreshAccessToken obtains a fresh token set.
func (c *BaseConnector) RefreshAccessToken(ctx context.Context, refreshToken string) (*integration.TokenSet, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return c.requestToken(ctx, form)
}

// requestToken posts to the provider token endpoint, sending client
// credentials the way the provider expects: HTTP Basic or form body.
func (c *BaseConnector) requestToken(ctx context.Context, form url.Values) (*integration.TokenSet, error) {
	endpoint := c.config.ResolveTokenURL(c.integ.Credentials.Extras)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: %s has no token url", integration.ErrProviderNotRegistered, c.config.Code)
	}
	if c.config.Transport == integration.TransportBody {
		form.Set("client_id", c.integ.Credentials.ClientID)
		form.Set("client_secret", c.integ.Credentials.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.config.Transport != integration.TransportBody {
		req.SetBasicAuth(c.integ.Credentials.ClientID, c.integ.Credentials.ClientSecret)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError("token request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, transportError("token response", err)
	}
	if resp.StatusCode != http.StatusOK {
		// Token endpoints signal a bad grant with 400 as often as 401.
		if resp.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", integration.ErrAuth, snippet(body))
		}
		return nil, classifyStatus(resp.StatusCode, snippet(body))
	}

	return parseTokenResponse(body)
}

// parseTokenResponse decodes a token endpoint response, keeping unknown
// string fields (realm ids, instance urls, shop domains) as extras.
func parseTokenResponse(body []byte) (*integration.TokenSet, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed token response", integration.ErrAuth)
	}

	tokens := &integration.TokenSet{Extras: map[string]string{}}
	for key, value := range raw {
		switch key {
		case "access_token":
			tokens.AccessToken, _ = value.(string)
		case "refresh_token":
			tokens.RefreshToken, _ = value.(string)
		case "scope":
			tokens.Scope, _ = value.(string)
		case "expires_in":
			if n, ok := value.(float64); ok {
				tokens.ExpiresIn = int(n)
			}
		case "token_type":
			// Always bearer; not retained.
		default:
			if s, ok := value.(string); ok {
				tokens.Extras[key] = s
			}
		}
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response missing access_token", integration.ErrAuth)
	}
	return tokens, nil
}

// ---------------------------------------------------------------------------
// Webhook defaults
// ---------------------------------------------------------------------------

// RegisterWebhook reports no webhook support. Providers with a webhook
// API override this.
func (c *BaseConnector) RegisterWebhook(_ context.Context, _ string, _ []string) (*integration.WebhookRegistration, error) {
	return &integration.WebhookRegistration{Supported: false}, nil
}

// UnregisterWebhook is a no-op for providers without webhook support.
func (c *BaseConnector) UnregisterWebhook(_ context.Context, _ string) error {
	return nil
}

// VerifyWebhookSignature checks an HMAC-SHA256 hex signature, the de
// facto convention across providers. A "sha256=" prefix is tolerated.
func (c *BaseConnector) VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha256=")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ---------------------------------------------------------------------------
// Bulk helpers
// ---------------------------------------------------------------------------

// bulkCreateSerially implements BulkCreate for providers without a bulk
// API. One record's failure never aborts the rest.
func bulkCreateSerially(ctx context.Context, c integration.Connector, entity string, records []integration.Record) (*integration.BulkResult, error) {
	result := &integration.BulkResult{}
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := c.CreateRecord(ctx, entity, record); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, integration.BulkError{Message: err.Error()})
			continue
		}
		result.Created++
	}
	return result, nil
}

// bulkUpdateSerially implements BulkUpdate for providers without a bulk
// API.
func bulkUpdateSerially(ctx context.Context, c integration.Connector, entity string, records map[string]integration.Record) (*integration.BulkResult, error) {
	result := &integration.BulkResult{}
	for remoteID, record := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := c.UpdateRecord(ctx, entity, remoteID, record); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, integration.BulkError{RecordID: remoteID, Message: err.Error()})
			continue
		}
		result.Updated++
	}
	return result, nil
}
