package product

import (
	"github.com/shopspring/decimal"

	"github.com/dropmart/dropmart-backend/pkg/pagination"
)

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	CategorySlug *string
	Featured     *bool
	PriceMin     *decimal.Decimal
	PriceMax     *decimal.Decimal
	Query        string
}

// ListProductsInput captures the inputs needed to paginate/filter the storefront.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
}
