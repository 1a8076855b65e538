package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
)

// WebhookPayload is the body a supplier posts to its webhook endpoint.
type WebhookPayload struct {
	Event   string         `json:"event"`
	Product ProductPayload `json:"product"`
}

// ProductPayload is the supplier's view of one catalog item. Keys outside
// the known set are kept verbatim in Extra and stored as opaque metadata.
type ProductPayload struct {
	ExternalID     string
	Title          string
	Description    *string
	WholesalePrice *decimal.Decimal
	ImageURLs      []string
	InventoryCount int
	Extra          map[string]any
}

var knownProductKeys = map[string]struct{}{
	"id":             {},
	"title":          {},
	"description":    {},
	"wholesalePrice": {},
	"imageUrls":      {},
	"inventoryCount": {},
}

// UnmarshalJSON splits the payload into typed fields and opaque extras.
func (p *ProductPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("product must be an object: %w", err)
	}

	var out ProductPayload
	if v, ok := raw["id"]; ok {
		id, err := scalarString(v)
		if err != nil {
			return fmt.Errorf("product.id: %w", err)
		}
		out.ExternalID = strings.TrimSpace(id)
	}
	if v, ok := raw["title"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &out.Title); err != nil {
			return fmt.Errorf("product.title: %w", err)
		}
		out.Title = strings.TrimSpace(out.Title)
	}
	if v, ok := raw["description"]; ok && !isNull(v) {
		var desc string
		if err := json.Unmarshal(v, &desc); err != nil {
			return fmt.Errorf("product.description: %w", err)
		}
		out.Description = &desc
	}
	if v, ok := raw["wholesalePrice"]; ok && !isNull(v) {
		var price decimal.Decimal
		if err := json.Unmarshal(v, &price); err != nil {
			return fmt.Errorf("product.wholesalePrice: %w", err)
		}
		out.WholesalePrice = &price
	}
	if v, ok := raw["imageUrls"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &out.ImageURLs); err != nil {
			return fmt.Errorf("product.imageUrls: %w", err)
		}
	}
	if v, ok := raw["inventoryCount"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &out.InventoryCount); err != nil {
			return fmt.Errorf("product.inventoryCount: %w", err)
		}
	}

	for key, value := range raw {
		if _, known := knownProductKeys[key]; known {
			continue
		}
		var decoded any
		if err := json.Unmarshal(value, &decoded); err != nil {
			return fmt.Errorf("product.%s: %w", key, err)
		}
		if out.Extra == nil {
			out.Extra = map[string]any{}
		}
		out.Extra[key] = decoded
	}

	*p = out
	return nil
}

// ParseWebhookPayload decodes a raw webhook body. Structural problems are
// validation errors; the event name is checked later by Sync.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body required")
	}
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	payload.Event = strings.TrimSpace(payload.Event)
	return &payload, nil
}

func (p ProductPayload) validate(upsert bool) error {
	if p.ExternalID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product.id is required")
	}
	if !upsert {
		return nil
	}
	if p.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product.title is required")
	}
	if p.WholesalePrice == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product.wholesalePrice is required")
	}
	if p.WholesalePrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "product.wholesalePrice must be non-negative")
	}
	if p.InventoryCount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product.inventoryCount must be non-negative")
	}
	return nil
}

func scalarString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || isNull(trimmed) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		err := json.Unmarshal(trimmed, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", fmt.Errorf("must be a string or number")
	}
	return n.String(), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
