package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

func newTestLogger() *zap.Logger { return zap.NewNop() }

// Stateful in-memory fakes. The engine drives its collaborators through
// many interleaved calls, which mock expectation setups express poorly;
// these fakes keep real state so tests assert on outcomes instead.

// ---------------------------------------------------------------------------
// Repositories
// ---------------------------------------------------------------------------

type memIntegrationRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]integration.Integration
}

func newMemIntegrationRepo() *memIntegrationRepo {
	return &memIntegrationRepo{items: make(map[uuid.UUID]integration.Integration)}
}

func (r *memIntegrationRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, integration.ErrIntegrationNotFound
	}
	return &item, nil
}

func (r *memIntegrationRepo) FindByOrgAndProvider(_ context.Context, orgID uuid.UUID, provider integration.ProviderCode) (*integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.OrganizationID == orgID && item.Provider == provider {
			out := item
			return &out, nil
		}
	}
	return nil, integration.ErrIntegrationNotFound
}

func (r *memIntegrationRepo) FindAllByOrg(_ context.Context, orgID uuid.UUID) ([]integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.Integration
	for _, item := range r.items {
		if item.OrganizationID == orgID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memIntegrationRepo) FindActive(_ context.Context) ([]integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.Integration
	for _, item := range r.items {
		if item.Status == integration.IntegrationStatusActive {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memIntegrationRepo) Save(_ context.Context, integ *integration.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[integ.ID] = *integ
	return nil
}

func (r *memIntegrationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

type memConfigRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]integration.SyncConfig
}

func newMemConfigRepo() *memConfigRepo {
	return &memConfigRepo{items: make(map[uuid.UUID]integration.SyncConfig)}
}

func (r *memConfigRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.SyncConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, integration.ErrSyncConfigNotFound
	}
	return &item, nil
}

func (r *memConfigRepo) FindByIntegration(_ context.Context, integrationID uuid.UUID) ([]integration.SyncConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.SyncConfig
	for _, item := range r.items {
		if item.IntegrationID == integrationID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memConfigRepo) FindByIntegrationAndEntity(_ context.Context, integrationID uuid.UUID, entityType string) (*integration.SyncConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.IntegrationID == integrationID && item.EntityType == entityType {
			out := item
			return &out, nil
		}
	}
	return nil, integration.ErrSyncConfigNotFound
}

func (r *memConfigRepo) FindEnabled(_ context.Context) ([]integration.SyncConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.SyncConfig
	for _, item := range r.items {
		if item.Enabled {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memConfigRepo) Save(_ context.Context, cfg *integration.SyncConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[cfg.ID] = *cfg
	return nil
}

func (r *memConfigRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

type memMappingRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]integration.FieldMapping
}

func newMemMappingRepo() *memMappingRepo {
	return &memMappingRepo{items: make(map[uuid.UUID]integration.FieldMapping)}
}

func (r *memMappingRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.FieldMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, integration.ErrFieldMappingNotFound
	}
	return &item, nil
}

func (r *memMappingRepo) FindBySyncConfig(_ context.Context, syncConfigID uuid.UUID) ([]integration.FieldMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.FieldMapping
	for _, item := range r.items {
		if item.SyncConfigID == syncConfigID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memMappingRepo) Save(_ context.Context, mapping *integration.FieldMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[mapping.ID] = *mapping
	return nil
}

func (r *memMappingRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

type memRecordRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]integration.SyncRecord
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{items: make(map[uuid.UUID]integration.SyncRecord)}
}

func (r *memRecordRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.SyncRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, integration.ErrSyncRecordNotFound
	}
	return &item, nil
}

func (r *memRecordRepo) FindByRemoteID(_ context.Context, syncConfigID uuid.UUID, remoteID string) (*integration.SyncRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.SyncConfigID == syncConfigID && item.RemoteID == remoteID {
			out := item
			return &out, nil
		}
	}
	return nil, integration.ErrSyncRecordNotFound
}

func (r *memRecordRepo) FindByLocalID(_ context.Context, syncConfigID uuid.UUID, localID string) (*integration.SyncRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.SyncConfigID == syncConfigID && item.LocalID == localID {
			out := item
			return &out, nil
		}
	}
	return nil, integration.ErrSyncRecordNotFound
}

func (r *memRecordRepo) FindByStatus(_ context.Context, syncConfigID uuid.UUID, status integration.SyncRecordStatus) ([]integration.SyncRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.SyncRecord
	for _, item := range r.items {
		if item.SyncConfigID == syncConfigID && item.Status == status {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocalID < out[j].LocalID })
	return out, nil
}

func (r *memRecordRepo) Save(_ context.Context, record *integration.SyncRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[record.ID] = *record
	return nil
}

type memLogRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]integration.SyncLog
}

func newMemLogRepo() *memLogRepo {
	return &memLogRepo{items: make(map[uuid.UUID]integration.SyncLog)}
}

func (r *memLogRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, integration.ErrSyncLogNotFound
	}
	return &item, nil
}

func (r *memLogRepo) FindBySyncConfig(_ context.Context, syncConfigID uuid.UUID, limit int) ([]integration.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.SyncLog
	for _, item := range r.items {
		if item.SyncConfigID == syncConfigID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memLogRepo) FindRunning(_ context.Context, syncConfigID uuid.UUID) (*integration.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.SyncConfigID == syncConfigID && item.Status == integration.RunRunning {
			out := item
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memLogRepo) FindRecent(_ context.Context, integrationID uuid.UUID, limit int) ([]integration.SyncLog, error) {
	// Not needed by these tests; per-config listing covers them.
	return nil, nil
}

func (r *memLogRepo) Save(_ context.Context, log *integration.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[log.ID] = *log
	return nil
}

type memWebhookRepo struct {
	mu     sync.Mutex
	items  map[uuid.UUID]integration.Webhook
	events []integration.WebhookEvent
}

func newMemWebhookRepo() *memWebhookRepo {
	return &memWebhookRepo{items: make(map[uuid.UUID]integration.Webhook)}
}

func (r *memWebhookRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, integration.ErrWebhookNotFound
	}
	return &item, nil
}

func (r *memWebhookRepo) FindByIntegration(_ context.Context, integrationID uuid.UUID) ([]integration.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.Webhook
	for _, item := range r.items {
		if item.IntegrationID == integrationID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memWebhookRepo) Save(_ context.Context, webhook *integration.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[webhook.ID] = *webhook
	return nil
}

func (r *memWebhookRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *memWebhookRepo) SaveEvent(_ context.Context, event *integration.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

// ---------------------------------------------------------------------------
// OAuth state store
// ---------------------------------------------------------------------------

type memStateStore struct {
	mu     sync.Mutex
	states map[string]integration.OAuthState
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[string]integration.OAuthState)}
}

func (s *memStateStore) Put(_ context.Context, state *integration.OAuthState, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Token] = *state
	return nil
}

func (s *memStateStore) Consume(_ context.Context, token string) (*integration.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[token]
	if !ok {
		return nil, integration.ErrOAuthStateNotFound
	}
	delete(s.states, token)
	return &state, nil
}

// ---------------------------------------------------------------------------
// Local store
// ---------------------------------------------------------------------------

type memLocalStore struct {
	mu        sync.Mutex
	items     map[string]map[string]integration.LocalRecord
	nextID    int
	createErr func(data integration.Record) error
}

func newMemLocalStore() *memLocalStore {
	return &memLocalStore{items: make(map[string]map[string]integration.LocalRecord)}
}

func (s *memLocalStore) Get(_ context.Context, entityType, id string) (*integration.LocalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[entityType][id]
	if !ok {
		return nil, fmt.Errorf("local %s %s not found", entityType, id)
	}
	return &item, nil
}

func (s *memLocalStore) Create(_ context.Context, entityType string, data integration.Record) (*integration.LocalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		if err := s.createErr(data); err != nil {
			return nil, err
		}
	}
	s.nextID++
	rec := integration.LocalRecord{
		ID:        fmt.Sprintf("local-%d", s.nextID),
		Data:      data.Clone(),
		UpdatedAt: time.Now(),
	}
	if s.items[entityType] == nil {
		s.items[entityType] = make(map[string]integration.LocalRecord)
	}
	s.items[entityType][rec.ID] = rec
	return &rec, nil
}

func (s *memLocalStore) Update(_ context.Context, entityType, id string, data integration.Record) (*integration.LocalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[entityType][id]
	if !ok {
		return nil, fmt.Errorf("local %s %s not found", entityType, id)
	}
	item.Data = data.Clone()
	item.UpdatedAt = time.Now()
	s.items[entityType][id] = item
	return &item, nil
}

// put seeds a local record with a fixed id.
func (s *memLocalStore) put(entityType, id string, data integration.Record, updatedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items[entityType] == nil {
		s.items[entityType] = make(map[string]integration.LocalRecord)
	}
	s.items[entityType][id] = integration.LocalRecord{ID: id, Data: data, UpdatedAt: updatedAt}
}

// ---------------------------------------------------------------------------
// Connector
// ---------------------------------------------------------------------------

// fakeConnector serves records from an in-memory remote table, paged.
// Error hooks inject failures per call site.
type fakeConnector struct {
	mu       sync.Mutex
	provider integration.ProviderCode
	schema   *integration.Schema

	remote   map[string]integration.Record
	order    []string
	pageSize int
	nextID   int

	listErrs   []error // consumed one per ListRecords call
	createErr  func(record integration.Record) error
	updateErr  func(remoteID string) error
	refreshErr error

	refreshCalls int
	createCalls  int
	updateCalls  int
	listCalls    int
}

var _ integration.Connector = (*fakeConnector)(nil)

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		provider: integration.ProviderStripe,
		schema: &integration.Schema{
			Entity:         "customers",
			IDField:        "id",
			MetadataFields: []string{"sync_token"},
			ModifiedField:  "updated_at",
		},
		remote:   make(map[string]integration.Record),
		pageSize: 100,
	}
}

func (c *fakeConnector) seed(id string, record integration.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record["id"] = id
	c.remote[id] = record
	c.order = append(c.order, id)
}

func (c *fakeConnector) Provider() integration.ProviderCode { return c.provider }

func (c *fakeConnector) GetAuthorizationURL(redirectURI, state string) (string, error) {
	return "https://provider.example.com/authorize?state=" + state, nil
}

func (c *fakeConnector) ExchangeCodeForTokens(_ context.Context, code, _ string) (*integration.TokenSet, error) {
	if code == "bad-code" {
		return nil, fmt.Errorf("%w: code rejected", integration.ErrAuth)
	}
	return &integration.TokenSet{AccessToken: "access-" + code, RefreshToken: "refresh-" + code, ExpiresIn: 3600}, nil
}

func (c *fakeConnector) RefreshAccessToken(_ context.Context, refreshToken string) (*integration.TokenSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshCalls++
	if c.refreshErr != nil {
		return nil, c.refreshErr
	}
	return &integration.TokenSet{AccessToken: fmt.Sprintf("refreshed-%d", c.refreshCalls), ExpiresIn: 3600}, nil
}

func (c *fakeConnector) TestConnection(_ context.Context) integration.ConnectionStatus {
	return integration.ConnectionStatus{OK: true}
}

func (c *fakeConnector) GetEntitySchema(entity string) *integration.Schema {
	if c.schema != nil && c.schema.Entity == entity {
		return c.schema
	}
	return c.schema
}

func (c *fakeConnector) ListRecords(_ context.Context, query integration.ListQuery) (*integration.ListPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listCalls++
	if len(c.listErrs) > 0 {
		err := c.listErrs[0]
		c.listErrs = c.listErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	size := query.PageSize
	if size <= 0 {
		size = c.pageSize
	}
	start := (query.Page - 1) * size
	if start >= len(c.order) {
		return &integration.ListPage{}, nil
	}
	end := start + size
	if end > len(c.order) {
		end = len(c.order)
	}
	page := &integration.ListPage{HasMore: end < len(c.order)}
	for _, id := range c.order[start:end] {
		page.Records = append(page.Records, c.remote[id].Clone())
	}
	return page, nil
}

func (c *fakeConnector) GetRecord(_ context.Context, _ string, remoteID string) (integration.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.remote[remoteID]
	if !ok {
		return nil, integration.ErrNotFound
	}
	return rec.Clone(), nil
}

func (c *fakeConnector) CreateRecord(_ context.Context, _ string, record integration.Record) (integration.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createCalls++
	if c.createErr != nil {
		if err := c.createErr(record); err != nil {
			return nil, err
		}
	}
	c.nextID++
	id := fmt.Sprintf("rem-%d", c.nextID)
	out := record.Clone()
	out["id"] = id
	c.remote[id] = out
	c.order = append(c.order, id)
	return out.Clone(), nil
}

func (c *fakeConnector) UpdateRecord(_ context.Context, _ string, remoteID string, record integration.Record) (integration.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateCalls++
	if c.updateErr != nil {
		if err := c.updateErr(remoteID); err != nil {
			return nil, err
		}
	}
	if _, ok := c.remote[remoteID]; !ok {
		return nil, integration.ErrNotFound
	}
	out := record.Clone()
	out["id"] = remoteID
	c.remote[remoteID] = out
	return out.Clone(), nil
}

func (c *fakeConnector) DeleteRecord(_ context.Context, _ string, remoteID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.remote, remoteID)
	return nil
}

func (c *fakeConnector) BulkCreate(ctx context.Context, entity string, records []integration.Record) (*integration.BulkResult, error) {
	result := &integration.BulkResult{}
	for _, rec := range records {
		if _, err := c.CreateRecord(ctx, entity, rec); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, integration.BulkError{Message: err.Error()})
			continue
		}
		result.Created++
	}
	return result, nil
}

func (c *fakeConnector) BulkUpdate(ctx context.Context, entity string, records map[string]integration.Record) (*integration.BulkResult, error) {
	result := &integration.BulkResult{}
	for id, rec := range records {
		if _, err := c.UpdateRecord(ctx, entity, id, rec); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, integration.BulkError{RecordID: id, Message: err.Error()})
			continue
		}
		result.Updated++
	}
	return result, nil
}

func (c *fakeConnector) RegisterWebhook(_ context.Context, _ string, _ []string) (*integration.WebhookRegistration, error) {
	return &integration.WebhookRegistration{Supported: true, RemoteID: "wh-1"}, nil
}

func (c *fakeConnector) UnregisterWebhook(_ context.Context, _ string) error { return nil }

func (c *fakeConnector) VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	return signature == "sig:"+secret
}

type fakeRegistry struct {
	connector *fakeConnector
}

func (r *fakeRegistry) Connector(_ *integration.Integration) (integration.Connector, error) {
	return r.connector, nil
}

func (r *fakeRegistry) ProviderConfig(code integration.ProviderCode) (*integration.ProviderConfig, error) {
	return &integration.ProviderConfig{Code: code}, nil
}

func (r *fakeRegistry) Providers() []integration.ProviderCode {
	return []integration.ProviderCode{integration.ProviderStripe}
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type engineHarness struct {
	integrations *memIntegrationRepo
	configs      *memConfigRepo
	mappings     *memMappingRepo
	records      *memRecordRepo
	logs         *memLogRepo
	webhooks     *memWebhookRepo
	local        *memLocalStore
	states       *memStateStore
	connector    *fakeConnector
	registry     *fakeRegistry
	oauth        *OAuthManager
	engine       *SyncEngine
	service      *IntegrationServiceImpl

	integ *integration.Integration
	cfg   *integration.SyncConfig
}

func newEngineHarness() *engineHarness {
	h := &engineHarness{
		integrations: newMemIntegrationRepo(),
		configs:      newMemConfigRepo(),
		mappings:     newMemMappingRepo(),
		records:      newMemRecordRepo(),
		logs:         newMemLogRepo(),
		webhooks:     newMemWebhookRepo(),
		local:        newMemLocalStore(),
		states:       newMemStateStore(),
		connector:    newFakeConnector(),
	}
	h.registry = &fakeRegistry{connector: h.connector}

	logger := newTestLogger()
	h.oauth = NewOAuthManager(h.integrations, h.states, h.registry, 0, 0, logger)
	h.engine = NewSyncEngine(h.integrations, h.configs, h.mappings, h.records, h.logs, h.local, h.registry, h.oauth, logger)
	h.engine.transientBackoff = time.Millisecond
	h.service = NewIntegrationService(h.integrations, h.configs, h.mappings, h.records, h.logs, h.webhooks, h.registry, h.engine, h.oauth, logger)

	integ, _ := integration.NewIntegration(uuid.New(), integration.ProviderStripe, "Stripe", "client-id", "client-secret")
	expiry := time.Now().Add(2 * time.Hour)
	integ.Credentials.AccessToken = "access-token"
	integ.Credentials.RefreshToken = "refresh-token"
	integ.Credentials.TokenExpiry = &expiry
	integ.Activate()
	_ = h.integrations.Save(context.Background(), integ)
	h.integ = integ

	cfg, _ := integration.NewSyncConfig(integ.ID, "customers", "customers", integration.DirectionBidirectional, 3600, integration.ConflictLastWriteWins, integration.PriorityRemote)
	_ = h.configs.Save(context.Background(), cfg)
	h.cfg = cfg

	h.addMapping("name", "name", integration.TransformDirect, nil, false)
	h.addMapping("email", "email", integration.TransformDirect, nil, false)
	h.addMapping("updated_at", "updated_at", integration.TransformDirect, nil, false)

	return h
}

func (h *engineHarness) addMapping(local, remote string, transform integration.TransformType, config map[string]any, required bool) {
	m, err := integration.NewFieldMapping(h.cfg.ID, local, remote, transform, config, integration.MappingBidirectional, required, nil)
	if err != nil {
		panic(err)
	}
	if err := h.mappings.Save(context.Background(), m); err != nil {
		panic(err)
	}
}

func (h *engineHarness) run(syncType integration.SyncType) (*integration.SyncLog, error) {
	return h.engine.Run(context.Background(), h.integ, h.cfg, syncType, integration.TriggerManual)
}
