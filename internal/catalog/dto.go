package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/types"
)

// ProductDTO is the back-office view of a published product, including the
// wholesale side of its price.
type ProductDTO struct {
	ID                uuid.UUID        `json:"id"`
	SupplierProductID uuid.UUID        `json:"supplier_product_id"`
	SupplierID        uuid.UUID        `json:"supplier_id"`
	CategoryID        *uuid.UUID       `json:"category_id,omitempty"`
	Name              string           `json:"name"`
	Slug              string           `json:"slug"`
	Description       *string          `json:"description,omitempty"`
	ImageURLs         types.StringList `json:"image_urls"`
	MarkupOverride    *decimal.Decimal `json:"markup_override,omitempty"`
	EffectiveMarkup   decimal.Decimal  `json:"effective_markup"`
	WholesalePrice    decimal.Decimal  `json:"wholesale_price"`
	SellingPrice      decimal.Decimal  `json:"selling_price"`
	IsVisible         bool             `json:"is_visible"`
	IsFeatured        bool             `json:"is_featured"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func productFromModel(p *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:                p.ID,
		SupplierProductID: p.SupplierProductID,
		CategoryID:        p.CategoryID,
		Name:              p.Name,
		Slug:              p.Slug,
		Description:       p.Description,
		ImageURLs:         p.ImageURLs,
		SellingPrice:      p.SellingPrice,
		IsVisible:         p.IsVisible,
		IsFeatured:        p.IsFeatured,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.MarkupOverride.Valid {
		override := p.MarkupOverride.Decimal
		dto.MarkupOverride = &override
	}
	if inputs, err := inputsFor(p); err == nil {
		dto.WholesalePrice = inputs.wholesale
		dto.EffectiveMarkup = inputs.markup()
		dto.SupplierID = p.SupplierProduct.SupplierID
	}
	return dto
}

// SupplierProductDTO is one item of a supplier's mirrored catalog.
type SupplierProductDTO struct {
	ID                 uuid.UUID        `json:"id"`
	SupplierID         uuid.UUID        `json:"supplier_id"`
	SupplierName       string           `json:"supplier_name,omitempty"`
	ExternalID         string           `json:"external_id"`
	Title              string           `json:"title"`
	Description        *string          `json:"description,omitempty"`
	WholesalePrice     decimal.Decimal  `json:"wholesale_price"`
	ImageURLs          types.StringList `json:"image_urls"`
	InventoryCount     int              `json:"inventory_count"`
	Metadata           map[string]any   `json:"metadata,omitempty"`
	PublishedProductID *uuid.UUID       `json:"published_product_id,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func supplierProductFromRow(row SupplierProductRow) SupplierProductDTO {
	sp := row.SupplierProduct
	return SupplierProductDTO{
		ID:                 sp.ID,
		SupplierID:         sp.SupplierID,
		SupplierName:       row.SupplierName,
		ExternalID:         sp.ExternalID,
		Title:              sp.Title,
		Description:        sp.Description,
		WholesalePrice:     sp.WholesalePrice,
		ImageURLs:          sp.ImageURLs,
		InventoryCount:     sp.InventoryCount,
		Metadata:           sp.Metadata,
		PublishedProductID: row.PublishedProductID,
		CreatedAt:          sp.CreatedAt,
		UpdatedAt:          sp.UpdatedAt,
	}
}

// SupplierProductList is an offset page of supplier products.
type SupplierProductList struct {
	Items []SupplierProductDTO `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}
