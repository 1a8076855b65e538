package suppliers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/security"
)

// SupplierDTO is the admin view of a supplier. WebhookSecret is only filled
// in the response that created the supplier; every other read gets the hint.
type SupplierDTO struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	PayoutAccountID *string         `json:"payout_account_id,omitempty"`
	DefaultMarkup   decimal.Decimal `json:"default_markup"`
	IsActive        bool            `json:"is_active"`
	WebhookSecret   string          `json:"webhook_secret,omitempty"`
	SecretHint      string          `json:"webhook_secret_hint"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func FromModel(s *models.Supplier) *SupplierDTO {
	return &SupplierDTO{
		ID:              s.ID,
		Name:            s.Name,
		PayoutAccountID: s.PayoutAccountID,
		DefaultMarkup:   s.DefaultMarkup,
		IsActive:        s.IsActive,
		SecretHint:      security.MaskSecret(s.WebhookSecret),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
