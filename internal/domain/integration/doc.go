// Package integration contains the domain model for external platform
// integrations: the provider-agnostic Connector port, the entities that
// track integration state (Integration, SyncConfig, FieldMapping,
// SyncRecord, SyncLog, OAuthState, Webhook), and the repository ports
// implemented by the persistence layer.
//
// Concrete provider adapters (Stripe, QuickBooks, ...) live in
// internal/infrastructure/connectors and implement the Connector port
// defined here, following the Ports & Adapters pattern used throughout
// the codebase.
package integration
