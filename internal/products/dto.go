package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/pagination"
	"github.com/dropmart/dropmart-backend/pkg/types"
)

// ProductDTO is the storefront view of a listing. The wholesale side of the
// price never leaves the back office.
type ProductDTO struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Slug        string              `json:"slug"`
	Description *string             `json:"description,omitempty"`
	ImageURLs   types.StringList    `json:"image_urls"`
	Price       decimal.Decimal     `json:"price"`
	IsFeatured  bool                `json:"is_featured"`
	InStock     bool                `json:"in_stock"`
	Category    *CategorySummaryDTO `json:"category,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

type CategorySummaryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// ProductListResult is one cursor page of storefront products.
type ProductListResult = pagination.Page[ProductDTO]

func FromModel(p *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		ImageURLs:   p.ImageURLs,
		Price:       p.SellingPrice,
		IsFeatured:  p.IsFeatured,
		CreatedAt:   p.CreatedAt,
	}
	if dto.ImageURLs == nil {
		dto.ImageURLs = types.StringList{}
	}
	if p.SupplierProduct != nil {
		dto.InStock = p.SupplierProduct.InventoryCount > 0
	}
	if p.Category != nil {
		dto.Category = &CategorySummaryDTO{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
	}
	return dto
}
