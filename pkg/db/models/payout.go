package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/pkg/enums"
)

// Payout is the amount owed to one supplier for one order item.
type Payout struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderItemID   uuid.UUID          `gorm:"column:order_item_id;type:uuid;not null;uniqueIndex:ux_payouts_order_item"`
	SupplierID    uuid.UUID          `gorm:"column:supplier_id;type:uuid;not null;index"`
	Amount        decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      string             `gorm:"column:currency;not null;default:'usd'"`
	Status        enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TransferID    *string            `gorm:"column:transfer_id"`
	FailureReason *string            `gorm:"column:failure_reason"`
	Attempts      int                `gorm:"column:attempts;not null;default:0"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`

	Supplier  *Supplier  `gorm:"foreignKey:SupplierID"`
	OrderItem *OrderItem `gorm:"foreignKey:OrderItemID"`
}

func (p *Payout) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
