package connectors

import "github.com/ledgercrm/backend/internal/domain/integration"

// defaultSchemas is the entity catalog served by the generic REST
// connector. Providers that need a different shape register their own.
var defaultSchemas = []integration.Schema{
	{
		Entity:  "customers",
		IDField: "id",
		Fields: []integration.SchemaField{
			{Name: "id", Type: "string", ReadOnly: true},
			{Name: "name", Type: "string", Required: true},
			{Name: "email", Type: "string"},
			{Name: "phone", Type: "string"},
		},
		MetadataFields: []string{"sync_token", "etag"},
		ModifiedField:  "updated_at",
	},
	{
		Entity:  "invoices",
		IDField: "id",
		Fields: []integration.SchemaField{
			{Name: "id", Type: "string", ReadOnly: true},
			{Name: "customer_id", Type: "string", Required: true},
			{Name: "total", Type: "number"},
			{Name: "currency", Type: "string"},
			{Name: "status", Type: "string"},
		},
		MetadataFields: []string{"sync_token", "etag"},
		ModifiedField:  "updated_at",
	},
	{
		Entity:  "payments",
		IDField: "id",
		Fields: []integration.SchemaField{
			{Name: "id", Type: "string", ReadOnly: true},
			{Name: "invoice_id", Type: "string"},
			{Name: "amount", Type: "number"},
			{Name: "currency", Type: "string"},
		},
		MetadataFields: []string{"sync_token", "etag"},
		ModifiedField:  "updated_at",
	},
	{
		Entity:  "products",
		IDField: "id",
		Fields: []integration.SchemaField{
			{Name: "id", Type: "string", ReadOnly: true},
			{Name: "name", Type: "string", Required: true},
			{Name: "sku", Type: "string"},
			{Name: "price", Type: "number"},
		},
		MetadataFields: []string{"sync_token", "etag"},
		ModifiedField:  "updated_at",
	},
}

// DefaultProviderConfigs returns the built-in OAuth catalog. Endpoints
// follow each provider's published OAuth 2.0 documentation.
func DefaultProviderConfigs() []integration.ProviderConfig {
	return []integration.ProviderConfig{
		{
			Code:         integration.ProviderQuickBooks,
			AuthorizeURL: "https://appcenter.intuit.com/connect/oauth2",
			TokenURL:     "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer",
			Transport:    integration.TransportBasic,
			Scopes:       []string{"com.intuit.quickbooks.accounting"},
			APIBaseURL:   "https://quickbooks.api.intuit.com/v3",
		},
		{
			Code:         integration.ProviderXero,
			AuthorizeURL: "https://login.xero.com/identity/connect/authorize",
			TokenURL:     "https://identity.xero.com/connect/token",
			Transport:    integration.TransportBasic,
			Scopes:       []string{"accounting.transactions", "accounting.contacts", "offline_access"},
			APIBaseURL:   "https://api.xero.com/api.xro/2.0",
		},
		{
			Code:         integration.ProviderSalesforce,
			AuthorizeURL: "https://login.salesforce.com/services/oauth2/authorize",
			TokenURL:     "https://login.salesforce.com/services/oauth2/token",
			Transport:    integration.TransportBody,
			Scopes:       []string{"api", "refresh_token"},
			APIBaseURL:   "https://{tenant}.my.salesforce.com/services/data/v59.0",
			ExtrasKey:    "instance",
		},
		{
			Code:         integration.ProviderHubSpot,
			AuthorizeURL: "https://app.hubspot.com/oauth/authorize",
			TokenURL:     "https://api.hubapi.com/oauth/v1/token",
			Transport:    integration.TransportBody,
			Scopes:       []string{"crm.objects.contacts.read", "crm.objects.contacts.write"},
			APIBaseURL:   "https://api.hubapi.com/crm/v3",
		},
		{
			Code:         integration.ProviderShopify,
			AuthorizeURL: "https://{tenant}.myshopify.com/admin/oauth/authorize",
			TokenURL:     "https://{tenant}.myshopify.com/admin/oauth/access_token",
			Transport:    integration.TransportBody,
			Scopes:       []string{"read_customers", "write_customers", "read_orders"},
			APIBaseURL:   "https://{tenant}.myshopify.com/admin/api/2024-10",
			ExtrasKey:    "shop_domain",
		},
		{
			Code:         integration.ProviderStripe,
			AuthorizeURL: "https://connect.stripe.com/oauth/authorize",
			TokenURL:     "https://connect.stripe.com/oauth/token",
			Transport:    integration.TransportBody,
			Scopes:       []string{"read_write"},
			APIBaseURL:   "https://api.stripe.com/v1",
		},
		{
			Code:         integration.ProviderPlaid,
			AuthorizeURL: "https://cdn.plaid.com/link/v2/stable/link.html",
			TokenURL:     "https://production.plaid.com/item/public_token/exchange",
			Transport:    integration.TransportBody,
			APIBaseURL:   "https://production.plaid.com",
		},
	}
}
