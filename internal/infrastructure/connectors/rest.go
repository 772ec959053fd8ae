package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// RESTConnector serves providers whose APIs follow plain JSON REST
// conventions: GET /{entity}?page=&per_page= returning {"data": [...],
// "has_more": bool}, and GET/POST/PUT/DELETE /{entity}/{id} for single
// records. Provider-specific shapes beyond that get their own connector.
type RESTConnector struct {
	BaseConnector
	schemas map[string]*integration.Schema
}

var _ integration.Connector = (*RESTConnector)(nil)

// NewRESTConnector creates a REST connector bound to one integration.
func NewRESTConnector(integ *integration.Integration, config integration.ProviderConfig, client *http.Client, schemas []integration.Schema) *RESTConnector {
	byEntity := make(map[string]*integration.Schema, len(schemas))
	for i := range schemas {
		byEntity[schemas[i].Entity] = &schemas[i]
	}
	return &RESTConnector{
		BaseConnector: NewBaseConnector(integ, config, client),
		schemas:       byEntity,
	}
}

// baseURL resolves the API base, substituting the tenant placeholder
// from the integration extras when the provider uses one.
func (c *RESTConnector) baseURL() string {
	base := c.config.APIBaseURL
	if c.config.ExtrasKey != "" && strings.Contains(base, "{tenant}") {
		base = strings.ReplaceAll(base, "{tenant}", c.integ.Credentials.Extras[c.config.ExtrasKey])
	}
	return strings.TrimRight(base, "/")
}

// TestConnection probes the API base with the current credentials.
func (c *RESTConnector) TestConnection(ctx context.Context) integration.ConnectionStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/", nil)
	if err != nil {
		return integration.ConnectionStatus{OK: false, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken())

	resp, err := c.client.Do(req)
	if err != nil {
		return integration.ConnectionStatus{OK: false, Message: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode >= 400 {
		return integration.ConnectionStatus{OK: false, Message: fmt.Sprintf("provider returned status %d", resp.StatusCode)}
	}
	return integration.ConnectionStatus{OK: true}
}

// GetEntitySchema returns the configured schema for an entity, nil when
// unknown.
func (c *RESTConnector) GetEntitySchema(entity string) *integration.Schema {
	return c.schemas[entity]
}

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

type listEnvelope struct {
	Data    []map[string]any `json:"data"`
	HasMore bool             `json:"has_more"`
}

// ListRecords fetches one page of remote records.
func (c *RESTConnector) ListRecords(ctx context.Context, query integration.ListQuery) (*integration.ListPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(query.Page))
	params.Set("per_page", strconv.Itoa(query.PageSize))
	if query.ModifiedSince != nil {
		params.Set("modified_since", query.ModifiedSince.UTC().Format(time.RFC3339))
	}
	for key, value := range query.Filters {
		params.Set(key, fmt.Sprint(value))
	}

	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s?%s", c.baseURL(), query.Entity, params.Encode()), nil)
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed list response: %v", integration.ErrTransient, err)
	}
	page := &integration.ListPage{HasMore: envelope.HasMore}
	for _, item := range envelope.Data {
		page.Records = append(page.Records, integration.Record(item))
	}
	return page, nil
}

// GetRecord fetches a single record, nil when absent.
func (c *RESTConnector) GetRecord(ctx context.Context, entity, remoteID string) (integration.Record, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s/%s", c.baseURL(), entity, url.PathEscape(remoteID)), nil)
	if err != nil {
		if errors.Is(err, integration.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return decodeRecord(body)
}

// CreateRecord creates a remote record.
func (c *RESTConnector) CreateRecord(ctx context.Context, entity string, record integration.Record) (integration.Record, error) {
	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/%s", c.baseURL(), entity), record)
	if err != nil {
		return nil, err
	}
	return decodeRecord(body)
}

// UpdateRecord updates a remote record.
func (c *RESTConnector) UpdateRecord(ctx context.Context, entity, remoteID string, record integration.Record) (integration.Record, error) {
	body, err := c.do(ctx, http.MethodPut, fmt.Sprintf("%s/%s/%s", c.baseURL(), entity, url.PathEscape(remoteID)), record)
	if err != nil {
		return nil, err
	}
	return decodeRecord(body)
}

// DeleteRecord removes a remote record.
func (c *RESTConnector) DeleteRecord(ctx context.Context, entity, remoteID string) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%s/%s", c.baseURL(), entity, url.PathEscape(remoteID)), nil)
	return err
}

// BulkCreate creates many records one call at a time.
func (c *RESTConnector) BulkCreate(ctx context.Context, entity string, records []integration.Record) (*integration.BulkResult, error) {
	return bulkCreateSerially(ctx, c, entity, records)
}

// BulkUpdate updates many records one call at a time.
func (c *RESTConnector) BulkUpdate(ctx context.Context, entity string, records map[string]integration.Record) (*integration.BulkResult, error) {
	return bulkUpdateSerially(ctx, c, entity, records)
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// do executes one authenticated JSON request and returns the raw body,
// with failures mapped into the error taxonomy.
func (c *RESTConnector) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encode request: %v", integration.ErrValidation, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken())
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(method+" "+endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, transportError("read response", err)
	}
	if err := classifyStatus(resp.StatusCode, snippet(body)); err != nil {
		return nil, err
	}
	return body, nil
}

func decodeRecord(body []byte) (integration.Record, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var record map[string]any
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("%w: malformed record response: %v", integration.ErrTransient, err)
	}
	return integration.Record(record), nil
}
