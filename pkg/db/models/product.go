package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/pkg/types"
)

// Product is the customer-facing listing published from a SupplierProduct.
// SellingPrice is derived and must be recomputed whenever the wholesale
// price, category or markup override changes.
type Product struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SupplierProductID uuid.UUID           `gorm:"column:supplier_product_id;type:uuid;not null;uniqueIndex:ux_products_supplier_product"`
	CategoryID        *uuid.UUID          `gorm:"column:category_id;type:uuid;index"`
	Name              string              `gorm:"column:name;not null"`
	Slug              string              `gorm:"column:slug;not null;uniqueIndex:ux_products_slug"`
	Description       *string             `gorm:"column:description"`
	ImageURLs         types.StringList    `gorm:"column:image_urls;type:jsonb;not null"`
	MarkupOverride    decimal.NullDecimal `gorm:"column:markup_override;type:numeric(6,4)"`
	SellingPrice      decimal.Decimal     `gorm:"column:selling_price;type:numeric(12,2);not null"`
	IsVisible         bool                `gorm:"column:is_visible;not null"`
	IsFeatured        bool                `gorm:"column:is_featured;not null;default:false"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Category        *Category        `gorm:"foreignKey:CategoryID"`
	SupplierProduct *SupplierProduct `gorm:"foreignKey:SupplierProductID"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.ImageURLs == nil {
		p.ImageURLs = types.StringList{}
	}
	return nil
}
