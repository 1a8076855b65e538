package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Supplier is a drop-shipper that pushes catalog events and receives payouts.
type Supplier struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name            string          `gorm:"column:name;not null"`
	WebhookSecret   string          `gorm:"column:webhook_secret;not null" json:"-"`
	PayoutAccountID *string         `gorm:"column:payout_account_id"`
	DefaultMarkup   decimal.Decimal `gorm:"column:default_markup;type:numeric(6,4);not null"`
	IsActive        bool            `gorm:"column:is_active;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Supplier) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// PayoutDestination returns the connected account to transfer to, if any.
func (s *Supplier) PayoutDestination() (string, bool) {
	if s == nil || s.PayoutAccountID == nil || *s.PayoutAccountID == "" {
		return "", false
	}
	return *s.PayoutAccountID, true
}
