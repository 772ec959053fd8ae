package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Stripe Connector
// ---------------------------------------------------------------------------

// StripeConnector syncs Stripe customers and invoices through the official
// SDK rather than the generic REST path. Customers are read-write; invoices
// are read-only because Stripe derives them from subscriptions and usage.
type StripeConnector struct {
	BaseConnector
	logger *zap.Logger

	mu     sync.Mutex
	api    *client.API
	apiKey string
	// cursors bridges page-numbered listing onto Stripe's cursor
	// pagination. Keyed entity:page, populated as pages are served in
	// order within a run.
	cursors map[string]string
}

var _ integration.Connector = (*StripeConnector)(nil)

var stripeSchemas = map[string]*integration.Schema{
	"customers": {
		Entity:  "customers",
		IDField: "id",
		Fields: []integration.SchemaField{
			{Name: "id", Type: "string", ReadOnly: true},
			{Name: "name", Type: "string"},
			{Name: "email", Type: "string"},
			{Name: "phone", Type: "string"},
			{Name: "description", Type: "string"},
			{Name: "metadata", Type: "object"},
		},
		MetadataFields: []string{"object", "livemode", "created"},
	},
	"invoices": {
		Entity:  "invoices",
		IDField: "id",
		Fields: []integration.SchemaField{
			{Name: "id", Type: "string", ReadOnly: true},
			{Name: "customer", Type: "string", ReadOnly: true},
			{Name: "status", Type: "string", ReadOnly: true},
			{Name: "total", Type: "number", ReadOnly: true},
			{Name: "currency", Type: "string", ReadOnly: true},
		},
		MetadataFields: []string{"object", "livemode", "created", "lines", "status_transitions"},
	},
}

// NewStripeConnector builds a connector bound to one integration's Stripe
// credentials.
func NewStripeConnector(integ *integration.Integration, config integration.ProviderConfig, logger *zap.Logger) *StripeConnector {
	return &StripeConnector{
		BaseConnector: NewBaseConnector(integ, config, nil),
		logger:        logger,
		cursors:       make(map[string]string),
	}
}

// sdk returns a client bound to the current key, rebuilt when a token
// refresh has swapped the credentials mid-run.
func (c *StripeConnector) sdk() *client.API {
	key := c.integ.Credentials.AccessToken
	if key == "" {
		// API-key mode: the secret key doubles as the bearer credential.
		key = c.integ.Credentials.ClientSecret
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api == nil || c.apiKey != key {
		api := &client.API{}
		api.Init(key, nil)
		c.api = api
		c.apiKey = key
	}
	return c.api
}

func (c *StripeConnector) TestConnection(ctx context.Context) integration.ConnectionStatus {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	if _, err := c.sdk().Balance.Get(params); err != nil {
		return integration.ConnectionStatus{OK: false, Message: stripeError("balance", err).Error()}
	}
	return integration.ConnectionStatus{OK: true, Message: "connected"}
}

func (c *StripeConnector) GetEntitySchema(entity string) *integration.Schema {
	return stripeSchemas[entity]
}

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

func (c *StripeConnector) ListRecords(ctx context.Context, query integration.ListQuery) (*integration.ListPage, error) {
	if stripeSchemas[query.Entity] == nil {
		return nil, fmt.Errorf("%w: unknown entity %q", integration.ErrValidation, query.Entity)
	}

	// Stripe has no modified-since list filter, so incremental runs still
	// walk the full collection and rely on hashing upstream.
	cursor := c.takeCursor(query.Entity, query.Page)

	listParams := stripe.ListParams{
		Context: ctx,
		Limit:   stripe.Int64(int64(query.PageSize)),
		Single:  true,
	}
	if cursor != "" {
		listParams.StartingAfter = stripe.String(cursor)
	}

	var (
		records []integration.Record
		hasMore bool
		lastID  string
	)
	switch query.Entity {
	case "customers":
		iter := c.sdk().Customers.List(&stripe.CustomerListParams{ListParams: listParams})
		for iter.Next() {
			cust := iter.Customer()
			rec, err := stripeToRecord(cust)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
			lastID = cust.ID
		}
		if err := iter.Err(); err != nil {
			return nil, stripeError("list customers", err)
		}
		hasMore = iter.Meta().HasMore
	case "invoices":
		iter := c.sdk().Invoices.List(&stripe.InvoiceListParams{ListParams: listParams})
		for iter.Next() {
			inv := iter.Invoice()
			rec, err := stripeToRecord(inv)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
			lastID = inv.ID
		}
		if err := iter.Err(); err != nil {
			return nil, stripeError("list invoices", err)
		}
		hasMore = iter.Meta().HasMore
	}

	if hasMore && lastID != "" {
		c.storeCursor(query.Entity, query.Page+1, lastID)
	}
	return &integration.ListPage{Records: records, HasMore: hasMore}, nil
}

func (c *StripeConnector) GetRecord(ctx context.Context, entity, remoteID string) (integration.Record, error) {
	switch entity {
	case "customers":
		params := &stripe.CustomerParams{}
		params.Context = ctx
		cust, err := c.sdk().Customers.Get(remoteID, params)
		if err != nil {
			return stripeGetResult(err)
		}
		return stripeToRecord(cust)
	case "invoices":
		params := &stripe.InvoiceParams{}
		params.Context = ctx
		inv, err := c.sdk().Invoices.Get(remoteID, params)
		if err != nil {
			return stripeGetResult(err)
		}
		return stripeToRecord(inv)
	default:
		return nil, fmt.Errorf("%w: unknown entity %q", integration.ErrValidation, entity)
	}
}

func (c *StripeConnector) CreateRecord(ctx context.Context, entity string, record integration.Record) (integration.Record, error) {
	if entity != "customers" {
		return nil, fmt.Errorf("%w: %s records are read-only", integration.ErrValidation, entity)
	}

	params := customerParams(ctx, record)
	cust, err := c.sdk().Customers.New(params)
	if err != nil {
		return nil, stripeError("create customer", err)
	}
	c.logger.Debug("created stripe customer",
		zap.String("integration_id", c.integ.ID.String()),
		zap.String("customer_id", cust.ID))
	return stripeToRecord(cust)
}

func (c *StripeConnector) UpdateRecord(ctx context.Context, entity, remoteID string, record integration.Record) (integration.Record, error) {
	if entity != "customers" {
		return nil, fmt.Errorf("%w: %s records are read-only", integration.ErrValidation, entity)
	}

	params := customerParams(ctx, record)
	cust, err := c.sdk().Customers.Update(remoteID, params)
	if err != nil {
		return nil, stripeError("update customer", err)
	}
	return stripeToRecord(cust)
}

func (c *StripeConnector) DeleteRecord(ctx context.Context, entity, remoteID string) error {
	if entity != "customers" {
		return fmt.Errorf("%w: %s records are read-only", integration.ErrValidation, entity)
	}

	params := &stripe.CustomerParams{}
	params.Context = ctx
	if _, err := c.sdk().Customers.Del(remoteID, params); err != nil {
		return stripeError("delete customer", err)
	}
	return nil
}

func (c *StripeConnector) BulkCreate(ctx context.Context, entity string, records []integration.Record) (*integration.BulkResult, error) {
	return bulkCreateSerially(ctx, c, entity, records)
}

func (c *StripeConnector) BulkUpdate(ctx context.Context, entity string, records map[string]integration.Record) (*integration.BulkResult, error) {
	return bulkUpdateSerially(ctx, c, entity, records)
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

func (c *StripeConnector) RegisterWebhook(ctx context.Context, url string, eventTypes []string) (*integration.WebhookRegistration, error) {
	if len(eventTypes) == 0 {
		eventTypes = []string{"customer.created", "customer.updated", "customer.deleted", "invoice.updated"}
	}
	params := &stripe.WebhookEndpointParams{
		URL:           stripe.String(url),
		EnabledEvents: stripe.StringSlice(eventTypes),
	}
	params.Context = ctx
	endpoint, err := c.sdk().WebhookEndpoints.New(params)
	if err != nil {
		return nil, stripeError("register webhook", err)
	}
	return &integration.WebhookRegistration{Supported: true, RemoteID: endpoint.ID}, nil
}

func (c *StripeConnector) UnregisterWebhook(ctx context.Context, remoteID string) error {
	params := &stripe.WebhookEndpointParams{}
	params.Context = ctx
	if _, err := c.sdk().WebhookEndpoints.Del(remoteID, params); err != nil {
		if isStripeMissing(err) {
			return nil
		}
		return stripeError("unregister webhook", err)
	}
	return nil
}

func (c *StripeConnector) VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	_, err := webhook.ConstructEvent(payload, signature, secret)
	return err == nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (c *StripeConnector) takeCursor(entity string, page int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if page <= 1 {
		// A fresh listing pass invalidates cursors left by a prior run.
		for k := range c.cursors {
			delete(c.cursors, k)
		}
		return ""
	}
	return c.cursors[fmt.Sprintf("%s:%d", entity, page)]
}

func (c *StripeConnector) storeCursor(entity string, page int, cursor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursors[fmt.Sprintf("%s:%d", entity, page)] = cursor
}

// stripeToRecord flattens an SDK struct through its JSON form so mapped
// field paths line up with Stripe's documented payload shape.
func stripeToRecord(v any) (integration.Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode stripe record: %w", err)
	}
	var rec integration.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode stripe record: %w", err)
	}
	return rec, nil
}

func customerParams(ctx context.Context, record integration.Record) *stripe.CustomerParams {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if v, ok := record["name"].(string); ok {
		params.Name = stripe.String(v)
	}
	if v, ok := record["email"].(string); ok {
		params.Email = stripe.String(v)
	}
	if v, ok := record["phone"].(string); ok {
		params.Phone = stripe.String(v)
	}
	if v, ok := record["description"].(string); ok {
		params.Description = stripe.String(v)
	}
	if meta, ok := record["metadata"].(map[string]any); ok {
		for k, v := range meta {
			if s, ok := v.(string); ok {
				params.AddMetadata(k, s)
			}
		}
	}
	return params
}

// stripeGetResult absorbs missing-resource errors so GetRecord reports
// absence as nil, nil.
func stripeGetResult(err error) (integration.Record, error) {
	if isStripeMissing(err) {
		return nil, nil
	}
	return nil, stripeError("get record", err)
}

func isStripeMissing(err error) bool {
	var sErr *stripe.Error
	return errors.As(err, &sErr) && sErr.Code == stripe.ErrorCodeResourceMissing
}

// stripeError maps SDK failures onto the connector error taxonomy.
func stripeError(op string, err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		if sErr.Code == stripe.ErrorCodeResourceMissing {
			return fmt.Errorf("%w: %s", integration.ErrNotFound, op)
		}
		if mapped := classifyStatus(sErr.HTTPStatusCode, sErr.Msg); mapped != nil {
			return fmt.Errorf("%s: %w", op, mapped)
		}
	}
	return transportError(op, err)
}
