package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/pkg/types"
)

// SupplierProduct mirrors an item in a supplier's own catalog. Metadata holds
// whatever extra fields the supplier sent; it is never interpreted.
type SupplierProduct struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID     uuid.UUID         `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:ux_supplier_products_external,priority:1"`
	ExternalID     string            `gorm:"column:external_id;not null;uniqueIndex:ux_supplier_products_external,priority:2"`
	Title          string            `gorm:"column:title;not null"`
	Description    *string           `gorm:"column:description"`
	WholesalePrice decimal.Decimal   `gorm:"column:wholesale_price;type:numeric(12,2);not null"`
	ImageURLs      types.StringList  `gorm:"column:image_urls;type:jsonb;not null"`
	InventoryCount int               `gorm:"column:inventory_count;not null;default:0"`
	Metadata       datatypes.JSONMap `gorm:"column:metadata;type:jsonb"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Supplier *Supplier `gorm:"foreignKey:SupplierID"`
	Product  *Product  `gorm:"foreignKey:SupplierProductID"`
}

func (p *SupplierProduct) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.ImageURLs == nil {
		p.ImageURLs = types.StringList{}
	}
	return nil
}
