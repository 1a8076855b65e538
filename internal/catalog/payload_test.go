package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
)

func TestParseWebhookPayloadSplitsExtras(t *testing.T) {
	body := []byte(`{
		"event": " product.updated ",
		"product": {
			"id": 12345,
			"title": "  Wireless Earbuds ",
			"wholesalePrice": "19.99",
			"imageUrls": ["https://img/1.jpg"],
			"inventoryCount": 4,
			"color": "black",
			"dimensions": {"w": 3}
		}
	}`)

	payload, err := ParseWebhookPayload(body)
	require.NoError(t, err)
	assert.Equal(t, "product.updated", payload.Event)

	p := payload.Product
	assert.Equal(t, "12345", p.ExternalID)
	assert.Equal(t, "Wireless Earbuds", p.Title)
	require.NotNil(t, p.WholesalePrice)
	assertMoney(t, "19.99", *p.WholesalePrice)
	assert.Nil(t, p.Description)
	assert.Equal(t, []string{"https://img/1.jpg"}, p.ImageURLs)
	assert.Equal(t, 4, p.InventoryCount)
	assert.Equal(t, map[string]any{"color": "black", "dimensions": map[string]any{"w": float64(3)}}, p.Extra)
	assert.NoError(t, p.validate(true))
}

func TestParseWebhookPayloadRejectsMalformedBodies(t *testing.T) {
	for _, body := range []string{"", "   ", "{", `{"event":"product.created","product":[]}`, `{"product":{"id":{"nested":1}}}`} {
		_, err := ParseWebhookPayload([]byte(body))
		require.Error(t, err, "body %q", body)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	}
}

func TestProductPayloadValidate(t *testing.T) {
	neg := dec("-1")
	price := dec("3")
	tests := []struct {
		name    string
		payload ProductPayload
		upsert  bool
		wantErr bool
	}{
		{"delete needs only id", ProductPayload{ExternalID: "x"}, false, false},
		{"missing id", ProductPayload{Title: "t", WholesalePrice: &price}, true, true},
		{"missing title", ProductPayload{ExternalID: "x", WholesalePrice: &price}, true, true},
		{"missing price", ProductPayload{ExternalID: "x", Title: "t"}, true, true},
		{"negative price", ProductPayload{ExternalID: "x", Title: "t", WholesalePrice: &neg}, true, true},
		{"negative inventory", ProductPayload{ExternalID: "x", Title: "t", WholesalePrice: &price, InventoryCount: -1}, true, true},
		{"ok", ProductPayload{ExternalID: "x", Title: "t", WholesalePrice: &price}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.validate(tt.upsert)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
				return
			}
			assert.NoError(t, err)
		})
	}
}
