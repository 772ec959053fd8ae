package integration

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhook_Accepts(t *testing.T) {
	wh, err := NewWebhook(uuid.New(), "https://hooks.example.com/in", []string{"customer.updated"}, "s3cret")
	require.NoError(t, err)

	assert.True(t, wh.Accepts("customer.updated"))
	assert.False(t, wh.Accepts("invoice.created"))

	wh.Enabled = false
	assert.False(t, wh.Accepts("customer.updated"))

	all, err := NewWebhook(uuid.New(), "https://hooks.example.com/in", nil, "s3cret")
	require.NoError(t, err)
	assert.True(t, all.Accepts("anything.at.all"))
}

func TestInferEntityType(t *testing.T) {
	tests := []struct {
		event    string
		entity   string
		isChange bool
	}{
		{"customer.updated", "customer", true},
		{"invoice.created", "invoice", true},
		{"orders/create", "orders", true},
		{"payment_intent.succeeded", "", false},
		{"ping", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			entity, ok := InferEntityType(tt.event)
			assert.Equal(t, tt.isChange, ok)
			assert.Equal(t, tt.entity, entity)
		})
	}
}

func TestEntityNamesMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"customers", "customers", true},
		{"customer", "customers", true},
		{"Customers", "customer", true},
		{"invoices", "invoice", true},
		{"customers", "invoices", false},
		{"order", "orders_v2", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, EntityNamesMatch(tt.a, tt.b))
			assert.Equal(t, tt.want, EntityNamesMatch(tt.b, tt.a))
		})
	}
}

func TestProviderConfig_ResolveTokenURL(t *testing.T) {
	cfg := ProviderConfig{
		Code:      ProviderShopify,
		TokenURL:  "https://{tenant}/admin/oauth/access_token",
		ExtrasKey: "shop_domain",
	}

	resolved := cfg.ResolveTokenURL(map[string]string{"shop_domain": "acme.myshopify.com"})
	assert.Equal(t, "https://acme.myshopify.com/admin/oauth/access_token", resolved)

	static := ProviderConfig{TokenURL: "https://oauth.example.com/token"}
	assert.Equal(t, "https://oauth.example.com/token", static.ResolveTokenURL(nil))
}
