package integration

import "strings"

// ---------------------------------------------------------------------------
// ProviderCode
// ---------------------------------------------------------------------------

// ProviderCode identifies an external platform.
type ProviderCode string

const (
	ProviderQuickBooks ProviderCode = "QUICKBOOKS"
	ProviderXero       ProviderCode = "XERO"
	ProviderSalesforce ProviderCode = "SALESFORCE"
	ProviderHubSpot    ProviderCode = "HUBSPOT"
	ProviderShopify    ProviderCode = "SHOPIFY"
	ProviderStripe     ProviderCode = "STRIPE"
	ProviderPlaid      ProviderCode = "PLAID"
)

// IsValid returns true if the provider code is valid
func (c ProviderCode) IsValid() bool {
	switch c {
	case ProviderQuickBooks, ProviderXero, ProviderSalesforce,
		ProviderHubSpot, ProviderShopify, ProviderStripe, ProviderPlaid:
		return true
	default:
		return false
	}
}

// String returns the string representation of ProviderCode
func (c ProviderCode) String() string {
	return string(c)
}

// ParseProviderCode normalizes a user-supplied provider name.
func ParseProviderCode(s string) (ProviderCode, error) {
	code := ProviderCode(strings.ToUpper(strings.TrimSpace(s)))
	if !code.IsValid() {
		return "", ErrInvalidProvider
	}
	return code, nil
}

// ---------------------------------------------------------------------------
// Category
// ---------------------------------------------------------------------------

// Category groups providers by the business function they serve.
type Category string

const (
	CategoryAccounting Category = "ACCOUNTING"
	CategoryCRM        Category = "CRM"
	CategoryEcommerce  Category = "ECOMMERCE"
	CategoryPayments   Category = "PAYMENTS"
	CategoryBanking    Category = "BANKING"
)

// IsValid returns true if the category is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryAccounting, CategoryCRM, CategoryEcommerce, CategoryPayments, CategoryBanking:
		return true
	default:
		return false
	}
}

// DefaultCategory returns the category a provider belongs to.
func DefaultCategory(code ProviderCode) Category {
	switch code {
	case ProviderQuickBooks, ProviderXero:
		return CategoryAccounting
	case ProviderSalesforce, ProviderHubSpot:
		return CategoryCRM
	case ProviderShopify:
		return CategoryEcommerce
	case ProviderStripe:
		return CategoryPayments
	case ProviderPlaid:
		return CategoryBanking
	default:
		return CategoryAccounting
	}
}

// ---------------------------------------------------------------------------
// ProviderConfig
// ---------------------------------------------------------------------------

// CredentialTransport selects how client credentials are sent during token
// exchange. Providers split roughly evenly between HTTP Basic and form-body
// parameters.
type CredentialTransport string

const (
	// TransportBasic sends client id/secret as an HTTP Basic Authorization header.
	TransportBasic CredentialTransport = "basic"
	// TransportBody sends client id/secret as form body parameters.
	TransportBody CredentialTransport = "body"
)

// ProviderConfig captures per-provider OAuth quirks as a value object so
// that a single generic OAuth flow serves every provider. Token and
// authorize URLs may contain a "{tenant}" placeholder resolved from the
// integration's extras (e.g. a Shopify shop domain).
type ProviderConfig struct {
	Code         ProviderCode
	AuthorizeURL string
	TokenURL     string
	Transport    CredentialTransport
	Scopes       []string
	APIBaseURL   string
	// ExtrasKey names the credentials extra used to resolve the "{tenant}"
	// placeholder, empty when URLs are static.
	ExtrasKey string
}

// ResolveTokenURL substitutes the tenant placeholder from integration extras.
func (p ProviderConfig) ResolveTokenURL(extras map[string]string) string {
	return p.resolve(p.TokenURL, extras)
}

// ResolveAuthorizeURL substitutes the tenant placeholder from integration extras.
func (p ProviderConfig) ResolveAuthorizeURL(extras map[string]string) string {
	return p.resolve(p.AuthorizeURL, extras)
}

func (p ProviderConfig) resolve(u string, extras map[string]string) string {
	if p.ExtrasKey == "" || !strings.Contains(u, "{tenant}") {
		return u
	}
	return strings.ReplaceAll(u, "{tenant}", extras[p.ExtrasKey])
}

// Scope returns the space-joined scope string for authorization URLs.
func (p ProviderConfig) Scope() string {
	return strings.Join(p.Scopes, " ")
}
