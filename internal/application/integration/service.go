package integration

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// staleRunAge is how old a still-running log must be before it is
// presumed orphaned by a crashed process and reaped.
const staleRunAge = time.Hour

// healthRunWindow is how many recent runs back the rolling success rate.
const healthRunWindow = 20

// IntegrationServiceImpl orchestrates integration lifecycle, sync policy
// management and run triggering on top of the engine and OAuth manager.
type IntegrationServiceImpl struct {
	integrations integration.IntegrationRepository
	configs      integration.SyncConfigRepository
	mappings     integration.FieldMappingRepository
	records      integration.SyncRecordRepository
	logs         integration.SyncLogRepository
	webhooks     integration.WebhookRepository
	registry     integration.ConnectorRegistry
	engine       *SyncEngine
	oauth        *OAuthManager
	logger       *zap.Logger

	defaultRedirectURI string
}

// SetDefaultRedirectURI sets the callback URL used when a connect request
// does not supply one, typically derived from the deployment's public
// base URL.
func (s *IntegrationServiceImpl) SetDefaultRedirectURI(uri string) {
	s.defaultRedirectURI = uri
}

// NewIntegrationService creates a new IntegrationServiceImpl
func NewIntegrationService(
	integrations integration.IntegrationRepository,
	configs integration.SyncConfigRepository,
	mappings integration.FieldMappingRepository,
	records integration.SyncRecordRepository,
	logs integration.SyncLogRepository,
	webhooks integration.WebhookRepository,
	registry integration.ConnectorRegistry,
	engine *SyncEngine,
	oauth *OAuthManager,
	logger *zap.Logger,
) *IntegrationServiceImpl {
	return &IntegrationServiceImpl{
		integrations: integrations,
		configs:      configs,
		mappings:     mappings,
		records:      records,
		logs:         logs,
		webhooks:     webhooks,
		registry:     registry,
		engine:       engine,
		oauth:        oauth,
		logger:       logger,
	}
}

// ---------------------------------------------------------------------------
// Integration lifecycle
// ---------------------------------------------------------------------------

// CreateIntegration registers a provider integration for an organization.
// One integration per (organization, provider).
func (s *IntegrationServiceImpl) CreateIntegration(ctx context.Context, orgID uuid.UUID, req CreateIntegrationRequest) (*integration.Integration, error) {
	provider, err := integration.ParseProviderCode(req.Provider)
	if err != nil {
		return nil, err
	}
	if _, err := s.registry.ProviderConfig(provider); err != nil {
		return nil, err
	}

	existing, err := s.integrations.FindByOrgAndProvider(ctx, orgID, provider)
	if err != nil && !errors.Is(err, integration.ErrIntegrationNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, integration.ErrIntegrationExists
	}

	integ, err := integration.NewIntegration(orgID, provider, req.Name, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if err := s.integrations.Save(ctx, integ); err != nil {
		return nil, err
	}

	s.logger.Info("integration created",
		zap.String("integration_id", integ.ID.String()),
		zap.String("provider", provider.String()))
	return integ, nil
}

// GetIntegration retrieves an integration scoped to an organization.
func (s *IntegrationServiceImpl) GetIntegration(ctx context.Context, orgID, id uuid.UUID) (*integration.Integration, error) {
	integ, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if integ.OrganizationID != orgID {
		return nil, integration.ErrIntegrationNotFound
	}
	return integ, nil
}

// ListIntegrations lists an organization's integrations.
func (s *IntegrationServiceImpl) ListIntegrations(ctx context.Context, orgID uuid.UUID) ([]integration.Integration, error) {
	return s.integrations.FindAllByOrg(ctx, orgID)
}

// DeleteIntegration disconnects and removes an integration. Provider-side
// webhooks are unregistered best-effort; sync configs, mappings, records
// and logs cascade.
func (s *IntegrationServiceImpl) DeleteIntegration(ctx context.Context, orgID, id uuid.UUID) error {
	integ, err := s.GetIntegration(ctx, orgID, id)
	if err != nil {
		return err
	}

	if hooks, err := s.webhooks.FindByIntegration(ctx, id); err == nil && len(hooks) > 0 {
		if connector, cerr := s.registry.Connector(integ); cerr == nil {
			for _, hook := range hooks {
				if hook.RemoteID == "" {
					continue
				}
				if uerr := connector.UnregisterWebhook(ctx, hook.RemoteID); uerr != nil {
					s.logger.Warn("unregister webhook",
						zap.String("webhook_id", hook.ID.String()),
						zap.Error(uerr))
				}
			}
		}
	}

	if err := s.integrations.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("integration deleted",
		zap.String("integration_id", id.String()),
		zap.String("provider", integ.Provider.String()))
	return nil
}

// ListProviders lists the providers connectors are registered for.
func (s *IntegrationServiceImpl) ListProviders() []ProviderResponse {
	codes := s.registry.Providers()
	out := make([]ProviderResponse, 0, len(codes))
	for _, code := range codes {
		out = append(out, ProviderResponse{Code: code, Category: integration.DefaultCategory(code)})
	}
	return out
}

// TestConnection probes the provider with the integration's credentials.
func (s *IntegrationServiceImpl) TestConnection(ctx context.Context, orgID, id uuid.UUID) (ConnectionTestResponse, error) {
	integ, err := s.GetIntegration(ctx, orgID, id)
	if err != nil {
		return ConnectionTestResponse{}, err
	}
	connector, err := s.registry.Connector(integ)
	if err != nil {
		return ConnectionTestResponse{}, err
	}
	if err := s.oauth.EnsureFresh(ctx, integ); err != nil {
		return ConnectionTestResponse{OK: false, Message: err.Error()}, nil
	}
	status := connector.TestConnection(ctx)
	return ConnectionTestResponse{OK: status.OK, Message: status.Message}, nil
}

// ---------------------------------------------------------------------------
// OAuth flow
// ---------------------------------------------------------------------------

// Connect starts the authorization flow for an integration and returns
// the provider URL to redirect the user to.
func (s *IntegrationServiceImpl) Connect(ctx context.Context, orgID, userID, id uuid.UUID, redirectURI string) (string, error) {
	integ, err := s.GetIntegration(ctx, orgID, id)
	if err != nil {
		return "", err
	}
	if redirectURI == "" {
		redirectURI = s.defaultRedirectURI
	}
	return s.oauth.StartAuthorization(ctx, integ, userID, redirectURI)
}

// HandleCallback completes the authorization flow from the provider
// redirect.
func (s *IntegrationServiceImpl) HandleCallback(ctx context.Context, stateToken, code string) (*integration.Integration, error) {
	return s.oauth.CompleteAuthorization(ctx, stateToken, code)
}

// ---------------------------------------------------------------------------
// Sync configs and field mappings
// ---------------------------------------------------------------------------

// CreateSyncConfig creates a sync config for an integration. At most one
// per (integration, entity type).
func (s *IntegrationServiceImpl) CreateSyncConfig(ctx context.Context, orgID, integrationID uuid.UUID, req CreateSyncConfigRequest) (*integration.SyncConfig, error) {
	if _, err := s.GetIntegration(ctx, orgID, integrationID); err != nil {
		return nil, err
	}

	existing, err := s.configs.FindByIntegrationAndEntity(ctx, integrationID, req.EntityType)
	if err != nil && !errors.Is(err, integration.ErrSyncConfigNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, integration.ErrSyncConfigExists
	}

	cfg, err := integration.NewSyncConfig(integrationID, req.EntityType, req.RemoteEntity, req.Direction, req.SyncInterval, req.ConflictResolution, req.PrioritySource)
	if err != nil {
		return nil, err
	}
	if err := s.configs.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UpdateSyncConfig applies a partial update to a sync config.
func (s *IntegrationServiceImpl) UpdateSyncConfig(ctx context.Context, orgID, id uuid.UUID, req UpdateSyncConfigRequest) (*integration.SyncConfig, error) {
	cfg, err := s.getSyncConfig(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Direction != nil {
		if !req.Direction.IsValid() {
			return nil, integration.ErrInvalidDirection
		}
		cfg.Direction = *req.Direction
	}
	if req.ConflictResolution != nil {
		if !req.ConflictResolution.IsValid() {
			return nil, integration.ErrInvalidConflictMode
		}
		cfg.ConflictResolution = *req.ConflictResolution
	}
	if req.PrioritySource != nil && req.PrioritySource.IsValid() {
		cfg.PrioritySource = *req.PrioritySource
	}
	if req.SyncInterval != nil && *req.SyncInterval >= 60 {
		cfg.SyncInterval = *req.SyncInterval
	}
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	cfg.UpdatedAt = time.Now()

	if err := s.configs.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListSyncConfigs lists an integration's sync configs.
func (s *IntegrationServiceImpl) ListSyncConfigs(ctx context.Context, orgID, integrationID uuid.UUID) ([]integration.SyncConfig, error) {
	if _, err := s.GetIntegration(ctx, orgID, integrationID); err != nil {
		return nil, err
	}
	return s.configs.FindByIntegration(ctx, integrationID)
}

// DeleteSyncConfig removes a sync config.
func (s *IntegrationServiceImpl) DeleteSyncConfig(ctx context.Context, orgID, id uuid.UUID) error {
	if _, err := s.getSyncConfig(ctx, orgID, id); err != nil {
		return err
	}
	return s.configs.Delete(ctx, id)
}

// CreateFieldMapping adds a field mapping to a sync config.
func (s *IntegrationServiceImpl) CreateFieldMapping(ctx context.Context, orgID, syncConfigID uuid.UUID, req CreateFieldMappingRequest) (*integration.FieldMapping, error) {
	if _, err := s.getSyncConfig(ctx, orgID, syncConfigID); err != nil {
		return nil, err
	}
	mapping, err := integration.NewFieldMapping(syncConfigID, req.LocalField, req.RemoteField, req.Transform, req.Config, req.Direction, req.Required, req.Default)
	if err != nil {
		return nil, err
	}
	if err := s.mappings.Save(ctx, mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// ListFieldMappings lists a sync config's field mappings.
func (s *IntegrationServiceImpl) ListFieldMappings(ctx context.Context, orgID, syncConfigID uuid.UUID) ([]integration.FieldMapping, error) {
	if _, err := s.getSyncConfig(ctx, orgID, syncConfigID); err != nil {
		return nil, err
	}
	return s.mappings.FindBySyncConfig(ctx, syncConfigID)
}

// DeleteFieldMapping removes a field mapping.
func (s *IntegrationServiceImpl) DeleteFieldMapping(ctx context.Context, orgID, id uuid.UUID) error {
	mapping, err := s.mappings.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.getSyncConfig(ctx, orgID, mapping.SyncConfigID); err != nil {
		return err
	}
	return s.mappings.Delete(ctx, id)
}

// getSyncConfig loads a config and verifies its integration belongs to
// the organization.
func (s *IntegrationServiceImpl) getSyncConfig(ctx context.Context, orgID, id uuid.UUID) (*integration.SyncConfig, error) {
	cfg, err := s.configs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetIntegration(ctx, orgID, cfg.IntegrationID); err != nil {
		return nil, integration.ErrSyncConfigNotFound
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Sync triggering
// ---------------------------------------------------------------------------

// SyncEntity triggers a run for one entity type of an integration.
func (s *IntegrationServiceImpl) SyncEntity(ctx context.Context, orgID, integrationID uuid.UUID, entityType string, full bool, trigger integration.TriggerType) (*integration.SyncLog, error) {
	integ, err := s.GetIntegration(ctx, orgID, integrationID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.configs.FindByIntegrationAndEntity(ctx, integrationID, entityType)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, integration.ErrSyncConfigNotFound
	}

	syncType := integration.SyncTypeIncremental
	if full || cfg.LastSyncAt == nil {
		syncType = integration.SyncTypeFull
	}
	s.reapStaleRun(ctx, cfg.ID)
	return s.engine.Run(ctx, integ, cfg, syncType, trigger)
}

// SyncAll triggers runs for every enabled config of an integration.
// Configs that fail to start are reported in the returned runs where a
// log exists; start-up failures are logged and skipped.
func (s *IntegrationServiceImpl) SyncAll(ctx context.Context, orgID, integrationID uuid.UUID, full bool) ([]*integration.SyncLog, error) {
	integ, err := s.GetIntegration(ctx, orgID, integrationID)
	if err != nil {
		return nil, err
	}
	cfgs, err := s.configs.FindByIntegration(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	runs := make([]*integration.SyncLog, 0, len(cfgs))
	for i := range cfgs {
		cfg := &cfgs[i]
		if !cfg.Enabled {
			continue
		}
		syncType := integration.SyncTypeIncremental
		if full || cfg.LastSyncAt == nil {
			syncType = integration.SyncTypeFull
		}
		s.reapStaleRun(ctx, cfg.ID)
		run, err := s.engine.Run(ctx, integ, cfg, syncType, integration.TriggerManual)
		if err != nil {
			s.logger.Warn("sync run not started",
				zap.String("sync_config_id", cfg.ID.String()),
				zap.Error(err))
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// RunScheduled executes a due config on behalf of the scheduler.
func (s *IntegrationServiceImpl) RunScheduled(ctx context.Context, cfg *integration.SyncConfig) (*integration.SyncLog, error) {
	integ, err := s.integrations.FindByID(ctx, cfg.IntegrationID)
	if err != nil {
		return nil, err
	}
	syncType := integration.SyncTypeIncremental
	if cfg.LastSyncAt == nil {
		syncType = integration.SyncTypeFull
	}
	s.reapStaleRun(ctx, cfg.ID)
	return s.engine.Run(ctx, integ, cfg, syncType, integration.TriggerScheduled)
}

// DueConfigs returns the enabled configs whose interval has elapsed.
func (s *IntegrationServiceImpl) DueConfigs(ctx context.Context, now time.Time) ([]integration.SyncConfig, error) {
	enabled, err := s.configs.FindEnabled(ctx)
	if err != nil {
		return nil, err
	}
	due := enabled[:0]
	for _, cfg := range enabled {
		if cfg.Due(now) {
			due = append(due, cfg)
		}
	}
	return due, nil
}

// reapStaleRun fails a running log orphaned by a crashed process so it
// stops blocking new runs.
func (s *IntegrationServiceImpl) reapStaleRun(ctx context.Context, syncConfigID uuid.UUID) {
	running, err := s.logs.FindRunning(ctx, syncConfigID)
	if err != nil || running == nil {
		return
	}
	if time.Since(running.StartedAt) < staleRunAge {
		return
	}
	if err := running.Fail("run abandoned; reaped by supervisor"); err != nil {
		return
	}
	if err := s.logs.Save(ctx, running); err != nil {
		s.logger.Error("reap stale run", zap.Error(err))
		return
	}
	s.logger.Warn("stale sync run reaped",
		zap.String("sync_log_id", running.ID.String()),
		zap.String("sync_config_id", syncConfigID.String()))
}

// ---------------------------------------------------------------------------
// Run history and conflicts
// ---------------------------------------------------------------------------

// ListSyncRuns lists recent runs of a sync config, newest first.
func (s *IntegrationServiceImpl) ListSyncRuns(ctx context.Context, orgID, syncConfigID uuid.UUID, limit int) ([]integration.SyncLog, error) {
	if _, err := s.getSyncConfig(ctx, orgID, syncConfigID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.logs.FindBySyncConfig(ctx, syncConfigID, limit)
}

// ListConflicts lists records parked for manual review under a config.
func (s *IntegrationServiceImpl) ListConflicts(ctx context.Context, orgID, syncConfigID uuid.UUID) ([]integration.SyncRecord, error) {
	if _, err := s.getSyncConfig(ctx, orgID, syncConfigID); err != nil {
		return nil, err
	}
	return s.records.FindByStatus(ctx, syncConfigID, integration.RecordConflict)
}

// ResolveConflict releases a parked record, keeping either the local or
// the remote side. The next run applies the choice.
func (s *IntegrationServiceImpl) ResolveConflict(ctx context.Context, orgID, recordID uuid.UUID, keepLocal bool) (*integration.SyncRecord, error) {
	rec, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if _, err := s.getSyncConfig(ctx, orgID, rec.SyncConfigID); err != nil {
		return nil, err
	}
	if err := rec.ResolveConflict(keepLocal, time.Now()); err != nil {
		return nil, err
	}
	if err := s.records.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// NotifyLocalChange flags a local record as pending outbound for every
// outbound-capable sync config covering its entity type. The CRM and
// invoicing subsystems call this from their own write paths.
func (s *IntegrationServiceImpl) NotifyLocalChange(ctx context.Context, orgID uuid.UUID, entityType, localID string, at time.Time) error {
	integs, err := s.integrations.FindAllByOrg(ctx, orgID)
	if err != nil {
		return err
	}
	for i := range integs {
		if !integs[i].IsActive() {
			continue
		}
		cfg, err := s.configs.FindByIntegrationAndEntity(ctx, integs[i].ID, entityType)
		if err != nil || cfg == nil || !cfg.Enabled || !cfg.Direction.Outbound() {
			continue
		}
		rec, err := s.records.FindByLocalID(ctx, cfg.ID, localID)
		if err != nil && !errors.Is(err, integration.ErrSyncRecordNotFound) {
			return err
		}
		if rec == nil {
			rec = integration.NewSyncRecord(cfg.ID, localID, "", "", integration.RecordPendingOutbound)
		}
		if rec.Status == integration.RecordConflict {
			// Parked; resolution decides what happens to this change.
			continue
		}
		rec.MarkPendingOutbound(at)
		if err := s.records.Save(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// CreateWebhook registers an inbound webhook for an integration, both
// locally and with the provider when it supports registration.
func (s *IntegrationServiceImpl) CreateWebhook(ctx context.Context, orgID, integrationID uuid.UUID, req CreateWebhookRequest) (*integration.Webhook, error) {
	integ, err := s.GetIntegration(ctx, orgID, integrationID)
	if err != nil {
		return nil, err
	}

	secret, err := newWebhookSecret()
	if err != nil {
		return nil, err
	}
	hook, err := integration.NewWebhook(integrationID, req.URL, req.EventTypes, secret)
	if err != nil {
		return nil, err
	}

	connector, err := s.registry.Connector(integ)
	if err != nil {
		return nil, err
	}
	reg, err := connector.RegisterWebhook(ctx, req.URL, req.EventTypes)
	if err != nil {
		return nil, err
	}
	if reg != nil && reg.Supported {
		hook.RemoteID = reg.RemoteID
	}

	if err := s.webhooks.Save(ctx, hook); err != nil {
		return nil, err
	}
	return hook, nil
}

// ListWebhooks lists an integration's webhooks.
func (s *IntegrationServiceImpl) ListWebhooks(ctx context.Context, orgID, integrationID uuid.UUID) ([]integration.Webhook, error) {
	if _, err := s.GetIntegration(ctx, orgID, integrationID); err != nil {
		return nil, err
	}
	return s.webhooks.FindByIntegration(ctx, integrationID)
}

// DeleteWebhook removes a webhook, unregistering it with the provider
// best-effort.
func (s *IntegrationServiceImpl) DeleteWebhook(ctx context.Context, orgID, id uuid.UUID) error {
	hook, err := s.webhooks.FindByID(ctx, id)
	if err != nil {
		return err
	}
	integ, err := s.GetIntegration(ctx, orgID, hook.IntegrationID)
	if err != nil {
		return err
	}
	if hook.RemoteID != "" {
		if connector, cerr := s.registry.Connector(integ); cerr == nil {
			if uerr := connector.UnregisterWebhook(ctx, hook.RemoteID); uerr != nil {
				s.logger.Warn("unregister webhook",
					zap.String("webhook_id", hook.ID.String()),
					zap.Error(uerr))
			}
		}
	}
	return s.webhooks.Delete(ctx, id)
}

// ProcessWebhook verifies and records an inbound provider event, then
// triggers an incremental run for the affected entity type when one is
// configured. An unverifiable signature rejects the event.
func (s *IntegrationServiceImpl) ProcessWebhook(ctx context.Context, integrationID uuid.UUID, eventType string, payload []byte, signature string) error {
	integ, err := s.integrations.FindByID(ctx, integrationID)
	if err != nil {
		return err
	}
	connector, err := s.registry.Connector(integ)
	if err != nil {
		return err
	}

	hooks, err := s.webhooks.FindByIntegration(ctx, integrationID)
	if err != nil {
		return err
	}
	verified := false
	for i := range hooks {
		if !hooks[i].Enabled || !hooks[i].Accepts(eventType) {
			continue
		}
		if connector.VerifyWebhookSignature(payload, signature, hooks[i].Secret) {
			verified = true
			break
		}
	}
	if !verified {
		return integration.ErrInvalidWebhookSignature
	}

	event := integration.NewWebhookEvent(integrationID, eventType, payload)
	if err := s.webhooks.SaveEvent(ctx, event); err != nil {
		return err
	}

	entityType, ok := integration.InferEntityType(eventType)
	if !ok {
		return nil
	}
	// The event noun is the provider's; match it against the remote entity
	// as well as the local one.
	cfgs, err := s.configs.FindByIntegration(ctx, integrationID)
	if err != nil {
		return err
	}
	var cfg *integration.SyncConfig
	for i := range cfgs {
		if integration.EntityNamesMatch(cfgs[i].EntityType, entityType) ||
			integration.EntityNamesMatch(cfgs[i].RemoteEntity, entityType) {
			cfg = &cfgs[i]
			break
		}
	}
	if cfg == nil || !cfg.Enabled || !cfg.Direction.Inbound() {
		return nil
	}

	if _, err := s.engine.Run(ctx, integ, cfg, integration.SyncTypeIncremental, integration.TriggerWebhook); err != nil {
		if errors.Is(err, integration.ErrSyncInProgress) {
			// The in-flight run will pick the change up.
			return nil
		}
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// Health summarizes token and per-entity sync health for an integration.
func (s *IntegrationServiceImpl) Health(ctx context.Context, orgID, integrationID uuid.UUID) (*HealthResponse, error) {
	integ, err := s.GetIntegration(ctx, orgID, integrationID)
	if err != nil {
		return nil, err
	}
	cfgs, err := s.configs.FindByIntegration(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	resp := &HealthResponse{
		IntegrationID: integ.ID,
		Provider:      integ.Provider,
		Status:        integ.Status,
		TokenExpiry:   integ.Credentials.TokenExpiry,
		LastError:     integ.LastError,
		Entities:      make([]EntityHealth, 0, len(cfgs)),
	}
	var sampled, succeeded int
	for i := range cfgs {
		entity := EntityHealth{
			EntityType: cfgs[i].EntityType,
			Enabled:    cfgs[i].Enabled,
			LastSyncAt: cfgs[i].LastSyncAt,
		}
		if runs, err := s.logs.FindBySyncConfig(ctx, cfgs[i].ID, healthRunWindow); err == nil && len(runs) > 0 {
			entity.LastStatus = runs[0].Status
			entity.LastCounts = runs[0].Counts
			var completed int
			for j := range runs {
				if !runs[j].Status.IsTerminal() {
					continue
				}
				entity.RunsSampled++
				if runs[j].Status == integration.RunCompleted {
					completed++
				}
			}
			if entity.RunsSampled > 0 {
				entity.SuccessRate = float64(completed) / float64(entity.RunsSampled)
			}
			sampled += entity.RunsSampled
			succeeded += completed
		}
		resp.Entities = append(resp.Entities, entity)
	}
	if sampled > 0 {
		resp.SuccessRate = float64(succeeded) / float64(sampled)
	}
	return resp, nil
}

func newWebhookSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
