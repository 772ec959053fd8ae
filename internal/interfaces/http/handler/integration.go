package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appintegration "github.com/ledgercrm/backend/internal/application/integration"
	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/interfaces/http/dto"
)

// IntegrationService is the application surface the HTTP layer depends on.
// Implemented by appintegration.IntegrationServiceImpl.
type IntegrationService interface {
	CreateIntegration(ctx context.Context, orgID uuid.UUID, req appintegration.CreateIntegrationRequest) (*integration.Integration, error)
	GetIntegration(ctx context.Context, orgID, id uuid.UUID) (*integration.Integration, error)
	ListIntegrations(ctx context.Context, orgID uuid.UUID) ([]integration.Integration, error)
	DeleteIntegration(ctx context.Context, orgID, id uuid.UUID) error
	ListProviders() []appintegration.ProviderResponse
	TestConnection(ctx context.Context, orgID, id uuid.UUID) (appintegration.ConnectionTestResponse, error)
	Connect(ctx context.Context, orgID, userID, id uuid.UUID, redirectURI string) (string, error)
	HandleCallback(ctx context.Context, stateToken, code string) (*integration.Integration, error)

	CreateSyncConfig(ctx context.Context, orgID, integrationID uuid.UUID, req appintegration.CreateSyncConfigRequest) (*integration.SyncConfig, error)
	UpdateSyncConfig(ctx context.Context, orgID, id uuid.UUID, req appintegration.UpdateSyncConfigRequest) (*integration.SyncConfig, error)
	ListSyncConfigs(ctx context.Context, orgID, integrationID uuid.UUID) ([]integration.SyncConfig, error)
	DeleteSyncConfig(ctx context.Context, orgID, id uuid.UUID) error

	CreateFieldMapping(ctx context.Context, orgID, syncConfigID uuid.UUID, req appintegration.CreateFieldMappingRequest) (*integration.FieldMapping, error)
	ListFieldMappings(ctx context.Context, orgID, syncConfigID uuid.UUID) ([]integration.FieldMapping, error)
	DeleteFieldMapping(ctx context.Context, orgID, id uuid.UUID) error

	SyncEntity(ctx context.Context, orgID, integrationID uuid.UUID, entityType string, full bool, trigger integration.TriggerType) (*integration.SyncLog, error)
	NotifyLocalChange(ctx context.Context, orgID uuid.UUID, entityType, localID string, at time.Time) error
	SyncAll(ctx context.Context, orgID, integrationID uuid.UUID, full bool) ([]*integration.SyncLog, error)
	ListSyncRuns(ctx context.Context, orgID, syncConfigID uuid.UUID, limit int) ([]integration.SyncLog, error)
	ListConflicts(ctx context.Context, orgID, syncConfigID uuid.UUID) ([]integration.SyncRecord, error)
	ResolveConflict(ctx context.Context, orgID, recordID uuid.UUID, keepLocal bool) (*integration.SyncRecord, error)
	Health(ctx context.Context, orgID, integrationID uuid.UUID) (*appintegration.HealthResponse, error)

	ProcessWebhook(ctx context.Context, integrationID uuid.UUID, eventType string, payload []byte, signature string) error
	CreateWebhook(ctx context.Context, orgID, integrationID uuid.UUID, req appintegration.CreateWebhookRequest) (*integration.Webhook, error)
	ListWebhooks(ctx context.Context, orgID, integrationID uuid.UUID) ([]integration.Webhook, error)
	DeleteWebhook(ctx context.Context, orgID, id uuid.UUID) error
}

// IntegrationHandler handles integration management HTTP requests
type IntegrationHandler struct {
	BaseHandler
	service IntegrationService
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(service IntegrationService) *IntegrationHandler {
	return &IntegrationHandler{service: service}
}

// ============================================================================
// Request DTOs for HTTP layer
// ============================================================================

// CreateIntegrationHTTPRequest represents the HTTP request body for registering an integration
type CreateIntegrationHTTPRequest struct {
	Provider     string `json:"provider" binding:"required" example:"XERO"`
	Name         string `json:"name" binding:"required,min=1,max=120" example:"Xero (EU entity)"`
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
}

// ConnectHTTPRequest represents the HTTP request body for starting an OAuth flow
type ConnectHTTPRequest struct {
	RedirectURI string `json:"redirect_uri,omitempty" binding:"omitempty,url"`
}

// CreateSyncConfigHTTPRequest represents the HTTP request body for creating a sync config
type CreateSyncConfigHTTPRequest struct {
	EntityType         string `json:"entity_type" binding:"required" example:"customers"`
	RemoteEntity       string `json:"remote_entity" binding:"required" example:"Contacts"`
	Direction          string `json:"direction" binding:"required,oneof=PUSH PULL BIDIRECTIONAL"`
	SyncInterval       int    `json:"sync_interval,omitempty" binding:"omitempty,min=60"`
	ConflictResolution string `json:"conflict_resolution" binding:"required,oneof=LAST_WRITE_WINS SOURCE_PRIORITY MANUAL"`
	PrioritySource     string `json:"priority_source,omitempty" binding:"omitempty,oneof=LOCAL REMOTE"`
}

// UpdateSyncConfigHTTPRequest represents a partial sync config update
type UpdateSyncConfigHTTPRequest struct {
	Direction          *string `json:"direction,omitempty" binding:"omitempty,oneof=PUSH PULL BIDIRECTIONAL"`
	SyncInterval       *int    `json:"sync_interval,omitempty" binding:"omitempty,min=60"`
	ConflictResolution *string `json:"conflict_resolution,omitempty" binding:"omitempty,oneof=LAST_WRITE_WINS SOURCE_PRIORITY MANUAL"`
	PrioritySource     *string `json:"priority_source,omitempty" binding:"omitempty,oneof=LOCAL REMOTE"`
	Enabled            *bool   `json:"enabled,omitempty"`
}

// CreateFieldMappingHTTPRequest represents the HTTP request body for creating a field mapping
type CreateFieldMappingHTTPRequest struct {
	LocalField  string         `json:"local_field,omitempty"`
	RemoteField string         `json:"remote_field,omitempty"`
	Transform   string         `json:"transform" binding:"required"`
	Config      map[string]any `json:"config,omitempty"`
	Direction   string         `json:"direction,omitempty" binding:"omitempty,oneof=TO_REMOTE FROM_REMOTE BOTH"`
	Required    bool           `json:"required,omitempty"`
	Default     any            `json:"default,omitempty"`
}

// CreateWebhookHTTPRequest represents the HTTP request body for registering a webhook
type CreateWebhookHTTPRequest struct {
	URL        string   `json:"url" binding:"required,url"`
	EventTypes []string `json:"event_types" binding:"required,min=1"`
}

// ResolveConflictHTTPRequest selects the winning side of a parked conflict
type ResolveConflictHTTPRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=keep_local keep_remote"`
}

// SyncTriggerHTTPRequest carries optional knobs for a manual sync trigger
type SyncTriggerHTTPRequest struct {
	EntityType string `json:"entity_type,omitempty"`
	Full       bool   `json:"full,omitempty"`
}

// LocalChangeHTTPRequest notifies the sync engine of a local entity change
type LocalChangeHTTPRequest struct {
	EntityType string `json:"entity_type" binding:"required"`
	LocalID    string `json:"local_id" binding:"required"`
	ChangedAt  string `json:"changed_at,omitempty"`
}

// ============================================================================
// Integration lifecycle
// ============================================================================

// Create godoc
//
//	@Summary		Register an integration
//	@Description	Register a provider integration for the caller's organization
//	@Tags			integrations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateIntegrationHTTPRequest	true	"Integration registration request"
//	@Success		201		{object}	APIResponse[appintegration.IntegrationResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/integrations [post]
func (h *IntegrationHandler) Create(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization context required")
		return
	}

	var req CreateIntegrationHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	integ, err := h.service.CreateIntegration(c.Request.Context(), orgID, appintegration.CreateIntegrationRequest{
		Provider:     req.Provider,
		Name:         req.Name,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
	})
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.Created(c, appintegration.ToIntegrationResponse(integ))
}

// List godoc
//
//	@Summary	List integrations
//	@Tags		integrations
//	@Produce	json
//	@Success	200	{object}	APIResponse[[]appintegration.IntegrationResponse]
//	@Security	BearerAuth
//	@Router		/integrations [get]
func (h *IntegrationHandler) List(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization context required")
		return
	}

	integs, err := h.service.ListIntegrations(c.Request.Context(), orgID)
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	resp := make([]appintegration.IntegrationResponse, 0, len(integs))
	for i := range integs {
		resp = append(resp, appintegration.ToIntegrationResponse(&integs[i]))
	}
	h.Success(c, resp)
}

// GetByID godoc
//
//	@Summary	Get an integration
//	@Tags		integrations
//	@Produce	json
//	@Param		id	path		string	true	"Integration ID"	format(uuid)
//	@Success	200	{object}	APIResponse[appintegration.IntegrationResponse]
//	@Failure	404	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/integrations/{id} [get]
func (h *IntegrationHandler) GetByID(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	integ, err := h.service.GetIntegration(c.Request.Context(), orgID, id)
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.Success(c, appintegration.ToIntegrationResponse(integ))
}

// Delete godoc
//
//	@Summary	Delete an integration
//	@Tags		integrations
//	@Param		id	path	string	true	"Integration ID"	format(uuid)
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/integrations/{id} [delete]
func (h *IntegrationHandler) Delete(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteIntegration(c.Request.Context(), orgID, id); err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.NoContent(c)
}

// ListProviders godoc
//
//	@Summary	List available providers
//	@Tags		integrations
//	@Produce	json
//	@Success	200	{object}	APIResponse[[]appintegration.ProviderResponse]
//	@Security	BearerAuth
//	@Router		/integrations/providers [get]
func (h *IntegrationHandler) ListProviders(c *gin.Context) {
	h.Success(c, h.service.ListProviders())
}

// TestConnection godoc
//
//	@Summary	Verify integration credentials
//	@Tags		integrations
//	@Produce	json
//	@Param		id	path		string	true	"Integration ID"	format(uuid)
//	@Success	200	{object}	APIResponse[appintegration.ConnectionTestResponse]
//	@Failure	404	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/integrations/{id}/test [post]
func (h *IntegrationHandler) TestConnection(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	result, err := h.service.TestConnection(c.Request.Context(), orgID, id)
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.Success(c, result)
}

// ============================================================================
// OAuth flow
// ============================================================================

// Connect godoc
//
//	@Summary		Start the OAuth authorization flow
//	@Description	Returns the provider authorization URL the user should be redirected to
//	@Tags			integrations
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Integration ID"	format(uuid)
//	@Param			request	body		ConnectHTTPRequest	false	"Optional redirect override"
//	@Success		200		{object}	APIResponse[appintegration.ConnectResponse]
//	@Failure		404		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/integrations/{id}/connect [post]
func (h *IntegrationHandler) Connect(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User context required")
		return
	}

	var req ConnectHTTPRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	authURL, err := h.service.Connect(c.Request.Context(), orgID, userID, id, req.RedirectURI)
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.Success(c, appintegration.ConnectResponse{AuthorizationURL: authURL})
}

// Callback godoc
//
//	@Summary		OAuth provider callback
//	@Description	Exchanges the authorization code; the state token identifies the pending flow
//	@Tags			integrations
//	@Produce		json
//	@Param			state	query		string	true	"Single-use state token"
//	@Param			code	query		string	true	"Authorization code"
//	@Success		200		{object}	APIResponse[appintegration.IntegrationResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Router			/integrations/oauth/callback [get]
func (h *IntegrationHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		h.BadRequest(c, "state and code query parameters are required")
		return
	}

	integ, err := h.service.HandleCallback(c.Request.Context(), state, code)
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.Success(c, appintegration.ToIntegrationResponse(integ))
}

// ============================================================================
// Sync configs
// ============================================================================

// CreateSyncConfig godoc
//
//	@Summary	Create a sync config
//	@Tags		integrations
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string						true	"Integration ID"	format(uuid)
//	@Param		request	body		CreateSyncConfigHTTPRequest	true	"Sync config request"
//	@Success	201		{object}	APIResponse[appintegration.SyncConfigResponse]
//	@Failure	409		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/integrations/{id}/sync-configs [post]
func (h *IntegrationHandler) CreateSyncConfig(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	var req CreateSyncConfigHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cfg, err := h.service.CreateSyncConfig(c.Request.Context(), orgID, id, appintegration.CreateSyncConfigRequest{
		EntityType:         req.EntityType,
		RemoteEntity:       req.RemoteEntity,
		Direction:          integration.SyncDirection(req.Direction),
		SyncInterval:       req.SyncInterval,
		ConflictResolution: integration.ConflictStrategy(req.ConflictResolution),
		PrioritySource:     integration.PrioritySource(req.PrioritySource),
	})
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.Created(c, appintegration.ToSyncConfigResponse(cfg))
}

// ListSyncConfigs godoc
//
//	@Summary	List sync configs for an integration
//	@Tags		integrations
//	@Produce	json
//	@Param		id	path		string	true	"Integration ID"	format(uuid)
//	@Success	200	{object}	APIResponse[[]appintegration.SyncConfigResponse]
//	@Security	BearerAuth
//	@Router		/integrations/{id}/sync-configs [get]
func (h *IntegrationHandler) ListSyncConfigs(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	cfgs, err := h.service.ListSyncConfigs(c.Request.Context(), orgID, id)
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	resp := make([]appintegration.SyncConfigResponse, 0, len(cfgs))
	for i := range cfgs {
		resp = append(resp, appintegration.ToSyncConfigResponse(&cfgs[i]))
	}
	h.Success(c, resp)
}

// UpdateSyncConfig godoc
//
//	@Summary	Update a sync config
//	@Tags		integrations
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string						true	"Sync config ID"	format(uuid)
//	@Param		request	body		UpdateSyncConfigHTTPRequest	true	"Partial update"
//	@Success	200		{object}	APIResponse[appintegration.SyncConfigResponse]
//	@Failure	404		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/sync-configs/{id} [patch]
func (h *IntegrationHandler) UpdateSyncConfig(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	var req UpdateSyncConfigHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := appintegration.UpdateSyncConfigRequest{
		SyncInterval: req.SyncInterval,
		Enabled:      req.Enabled,
	}
	if req.Direction != nil {
		d := integration.SyncDirection(*req.Direction)
		appReq.Direction = &d
	}
	if req.ConflictResolution != nil {
		s := integration.ConflictStrategy(*req.ConflictResolution)
		appReq.ConflictResolution = &s
	}
	if req.PrioritySource != nil {
		p := integration.PrioritySource(*req.PrioritySource)
		appReq.PrioritySource = &p
	}

	cfg, err := h.service.UpdateSyncConfig(c.Request.Context(), orgID, id, appReq)
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.Success(c, appintegration.ToSyncConfigResponse(cfg))
}

// DeleteSyncConfig godoc
//
//	@Summary	Delete a sync config
//	@Tags		integrations
//	@Param		id	path	string	true	"Sync config ID"	format(uuid)
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/sync-configs/{id} [delete]
func (h *IntegrationHandler) DeleteSyncConfig(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteSyncConfig(c.Request.Context(), orgID, id); err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.NoContent(c)
}

// ============================================================================
// Field mappings
// ============================================================================

// CreateFieldMapping godoc
//
//	@Summary	Create a field mapping
//	@Tags		integrations
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string							true	"Sync config ID"	format(uuid)
//	@Param		request	body		CreateFieldMappingHTTPRequest	true	"Field mapping request"
//	@Success	201		{object}	APIResponse[appintegration.FieldMappingResponse]
//	@Failure	400		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/sync-configs/{id}/mappings [post]
func (h *IntegrationHandler) CreateFieldMapping(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	var req CreateFieldMappingHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	m, err := h.service.CreateFieldMapping(c.Request.Context(), orgID, id, appintegration.CreateFieldMappingRequest{
		LocalField:  req.LocalField,
		RemoteField: req.RemoteField,
		Transform:   integration.TransformType(req.Transform),
		Config:      req.Config,
		Direction:   integration.MappingDirection(req.Direction),
		Required:    req.Required,
		Default:     req.Default,
	})
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.Created(c, appintegration.ToFieldMappingResponse(m))
}

// ListFieldMappings godoc
//
//	@Summary	List field mappings for a sync config
//	@Tags		integrations
//	@Produce	json
//	@Param		id	path		string	true	"Sync config ID"	format(uuid)
//	@Success	200	{object}	APIResponse[[]appintegration.FieldMappingResponse]
//	@Security	BearerAuth
//	@Router		/sync-configs/{id}/mappings [get]
func (h *IntegrationHandler) ListFieldMappings(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	mappings, err := h.service.ListFieldMappings(c.Request.Context(), orgID, id)
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	resp := make([]appintegration.FieldMappingResponse, 0, len(mappings))
	for i := range mappings {
		resp = append(resp, appintegration.ToFieldMappingResponse(&mappings[i]))
	}
	h.Success(c, resp)
}

// DeleteFieldMapping godoc
//
//	@Summary	Delete a field mapping
//	@Tags		integrations
//	@Param		id			path	string	true	"Sync config ID"	format(uuid)
//	@Param		mapping_id	path	string	true	"Field mapping ID"	format(uuid)
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/sync-configs/{id}/mappings/{mapping_id} [delete]
func (h *IntegrationHandler) DeleteFieldMapping(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization context required")
		return
	}
	mappingID, err := uuid.Parse(c.Param("mapping_id"))
	if err != nil {
		h.BadRequest(c, "Invalid mapping ID format")
		return
	}

	if err := h.service.DeleteFieldMapping(c.Request.Context(), orgID, mappingID); err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.NoContent(c)
}

// ============================================================================
// Sync triggers, runs, conflicts, health
// ============================================================================

// TriggerSync godoc
//
//	@Summary		Trigger a sync run
//	@Description	Runs a single entity type when entity_type is set, otherwise all enabled configs
//	@Tags			integrations
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Integration ID"	format(uuid)
//	@Param			request	body		SyncTriggerHTTPRequest	false	"Trigger options"
//	@Success		200		{object}	APIResponse[[]appintegration.SyncRunResponse]
//	@Failure		409		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/integrations/{id}/sync [post]
func (h *IntegrationHandler) TriggerSync(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	var req SyncTriggerHTTPRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	var logs []*integration.SyncLog
	var err error
	if req.EntityType != "" {
		var log *integration.SyncLog
		log, err = h.service.SyncEntity(c.Request.Context(), orgID, id, req.EntityType, req.Full, integration.TriggerManual)
		if log != nil {
			logs = append(logs, log)
		}
	} else {
		logs, err = h.service.SyncAll(c.Request.Context(), orgID, id, req.Full)
	}
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	resp := make([]appintegration.SyncRunResponse, 0, len(logs))
	for _, log := range logs {
		resp = append(resp, appintegration.ToSyncRunResponse(log))
	}
	h.Success(c, resp)
}

// ListSyncRuns godoc
//
//	@Summary	List recent sync runs for a sync config
//	@Tags		integrations
//	@Produce	json
//	@Param		id		path		string	true	"Sync config ID"	format(uuid)
//	@Param		limit	query		int		false	"Maximum runs returned"	default(20)
//	@Success	200		{object}	APIResponse[[]appintegration.SyncRunResponse]
//	@Security	BearerAuth
//	@Router		/sync-configs/{id}/runs [get]
func (h *IntegrationHandler) ListSyncRuns(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			h.BadRequest(c, "limit must be an integer between 1 and 200")
			return
		}
		limit = parsed
	}

	runs, err := h.service.ListSyncRuns(c.Request.Context(), orgID, id, limit)
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	resp := make([]appintegration.SyncRunResponse, 0, len(runs))
	for i := range runs {
		resp = append(resp, appintegration.ToSyncRunResponse(&runs[i]))
	}
	h.Success(c, resp)
}

// ListConflicts godoc
//
//	@Summary	List parked conflicts for a sync config
//	@Tags		integrations
//	@Produce	json
//	@Param		id	path		string	true	"Sync config ID"	format(uuid)
//	@Success	200	{object}	APIResponse[[]appintegration.SyncRecordResponse]
//	@Security	BearerAuth
//	@Router		/sync-configs/{id}/conflicts [get]
func (h *IntegrationHandler) ListConflicts(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	records, err := h.service.ListConflicts(c.Request.Context(), orgID, id)
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	resp := make([]appintegration.SyncRecordResponse, 0, len(records))
	for i := range records {
		resp = append(resp, appintegration.ToSyncRecordResponse(&records[i]))
	}
	h.Success(c, resp)
}

// ResolveConflict godoc
//
//	@Summary	Resolve a parked conflict
//	@Tags		integrations
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string						true	"Sync record ID"	format(uuid)
//	@Param		request	body		ResolveConflictHTTPRequest	true	"Winning side"
//	@Success	200		{object}	APIResponse[appintegration.SyncRecordResponse]
//	@Failure	422		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/sync-records/{id}/resolve [post]
func (h *IntegrationHandler) ResolveConflict(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	var req ResolveConflictHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	record, err := h.service.ResolveConflict(c.Request.Context(), orgID, id, req.Resolution == "keep_local")
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.Success(c, appintegration.ToSyncRecordResponse(record))
}

// NotifyLocalChange godoc
//
//	@Summary		Record a local entity change
//	@Description	Marks the entity dirty so the next run pushes it out
//	@Tags			integrations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LocalChangeHTTPRequest	true	"Changed entity"
//	@Success		200		{object}	APIResponse[dto.MessageResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/sync/local-changes [post]
func (h *IntegrationHandler) NotifyLocalChange(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization context required")
		return
	}

	var req LocalChangeHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	changedAt, err := parseChangedAt(req.ChangedAt)
	if err != nil {
		h.BadRequest(c, "changed_at must be RFC3339")
		return
	}

	if err := h.service.NotifyLocalChange(c.Request.Context(), orgID, req.EntityType, req.LocalID, changedAt); err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "change recorded"})
}

// Health godoc
//
//	@Summary	Integration sync health
//	@Tags		integrations
//	@Produce	json
//	@Param		id	path		string	true	"Integration ID"	format(uuid)
//	@Success	200	{object}	APIResponse[appintegration.HealthResponse]
//	@Failure	404	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/integrations/{id}/health [get]
func (h *IntegrationHandler) Health(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	health, err := h.service.Health(c.Request.Context(), orgID, id)
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.Success(c, health)
}

// ============================================================================
// Webhook registrations
// ============================================================================

// CreateWebhook godoc
//
//	@Summary	Register a webhook with the provider
//	@Tags		integrations
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"Integration ID"	format(uuid)
//	@Param		request	body		CreateWebhookHTTPRequest	true	"Webhook registration"
//	@Success	201		{object}	APIResponse[appintegration.WebhookResponse]
//	@Failure	422		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/integrations/{id}/webhooks [post]
func (h *IntegrationHandler) CreateWebhook(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	var req CreateWebhookHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	hook, err := h.service.CreateWebhook(c.Request.Context(), orgID, id, appintegration.CreateWebhookRequest{
		URL:        req.URL,
		EventTypes: req.EventTypes,
	})
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.Created(c, appintegration.ToWebhookResponse(hook))
}

// ListWebhooks godoc
//
//	@Summary	List webhook registrations
//	@Tags		integrations
//	@Produce	json
//	@Param		id	path		string	true	"Integration ID"	format(uuid)
//	@Success	200	{object}	APIResponse[[]appintegration.WebhookResponse]
//	@Security	BearerAuth
//	@Router		/integrations/{id}/webhooks [get]
func (h *IntegrationHandler) ListWebhooks(c *gin.Context) {
	orgID, id, ok := h.orgAndID(c)
	if !ok {
		return
	}

	hooks, err := h.service.ListWebhooks(c.Request.Context(), orgID, id)
	if err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	resp := make([]appintegration.WebhookResponse, 0, len(hooks))
	for i := range hooks {
		resp = append(resp, appintegration.ToWebhookResponse(&hooks[i]))
	}
	h.Success(c, resp)
}

// DeleteWebhook godoc
//
//	@Summary	Unregister a webhook
//	@Tags		integrations
//	@Param		id			path	string	true	"Integration ID"	format(uuid)
//	@Param		webhook_id	path	string	true	"Webhook ID"		format(uuid)
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/integrations/{id}/webhooks/{webhook_id} [delete]
func (h *IntegrationHandler) DeleteWebhook(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization context required")
		return
	}
	webhookID, err := uuid.Parse(c.Param("webhook_id"))
	if err != nil {
		h.BadRequest(c, "Invalid webhook ID format")
		return
	}

	if err := h.service.DeleteWebhook(c.Request.Context(), orgID, webhookID); err != nil {
		h.handleIntegrationError(c, err)
		return
	}

	h.NoContent(c)
}

// ============================================================================
// Helpers
// ============================================================================

// orgAndID pulls the organization context and the :id path parameter.
// Writes the error response and returns ok=false when either is missing.
func (h *IntegrationHandler) orgAndID(c *gin.Context) (orgID, id uuid.UUID, ok bool) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization context required")
		return uuid.Nil, uuid.Nil, false
	}
	id, err = uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, id, true
}

// parseChangedAt parses an RFC3339 change timestamp, defaulting to now.
func parseChangedAt(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

// handleIntegrationError maps integration domain errors to HTTP responses
func (h *IntegrationHandler) handleIntegrationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, integration.ErrIntegrationNotFound),
		errors.Is(err, integration.ErrSyncConfigNotFound),
		errors.Is(err, integration.ErrFieldMappingNotFound),
		errors.Is(err, integration.ErrSyncRecordNotFound),
		errors.Is(err, integration.ErrSyncLogNotFound),
		errors.Is(err, integration.ErrWebhookNotFound),
		errors.Is(err, integration.ErrNotFound):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, err.Error())

	case errors.Is(err, integration.ErrIntegrationExists),
		errors.Is(err, integration.ErrSyncConfigExists):
		h.Error(c, http.StatusConflict, dto.ErrCodeAlreadyExists, err.Error())

	case errors.Is(err, integration.ErrSyncInProgress):
		h.Error(c, http.StatusConflict, dto.ErrCodeSyncInProgress, err.Error())

	case errors.Is(err, integration.ErrOAuthStateNotFound),
		errors.Is(err, integration.ErrOAuthStateExpired):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, err.Error())

	case errors.Is(err, integration.ErrInvalidProvider),
		errors.Is(err, integration.ErrInvalidDirection),
		errors.Is(err, integration.ErrInvalidConflictMode),
		errors.Is(err, integration.ErrInvalidTransform),
		errors.Is(err, integration.ErrMissingCredentials),
		errors.Is(err, integration.ErrValidation):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())

	case errors.Is(err, integration.ErrIntegrationNotActive),
		errors.Is(err, integration.ErrSyncConfigDisabled),
		errors.Is(err, integration.ErrRecordNotInConflict),
		errors.Is(err, integration.ErrWebhookNotSupported),
		errors.Is(err, integration.ErrNoRefreshToken):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState, err.Error())

	case errors.Is(err, integration.ErrInvalidWebhookSignature):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, err.Error())

	case errors.Is(err, integration.ErrRateLimit):
		h.Error(c, http.StatusTooManyRequests, dto.ErrCodeProviderRateLimited, err.Error())

	case errors.Is(err, integration.ErrAuth),
		errors.Is(err, integration.ErrTokenExchangeFailed):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeBusinessRule, err.Error())

	case errors.Is(err, integration.ErrTransient):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeProviderUnavailable, err.Error())

	default:
		h.HandleError(c, err)
	}
}
