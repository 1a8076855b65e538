package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/pkg/db/models"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/pricing"
)

// priceInputs holds everything a selling price is derived from.
type priceInputs struct {
	wholesale decimal.Decimal
	override  decimal.NullDecimal
	category  *models.Category
	supplier  *models.Supplier
}

func (in priceInputs) markup() decimal.Decimal {
	categoryDefault := pricing.Undefined()
	if in.category != nil {
		categoryDefault = pricing.Defined(in.category.DefaultMarkup)
	}
	supplierDefault := pricing.Undefined()
	if in.supplier != nil {
		supplierDefault = pricing.Defined(in.supplier.DefaultMarkup)
	}
	return pricing.ResolveMarkup(in.override, categoryDefault, supplierDefault)
}

func (in priceInputs) sellingPrice() decimal.Decimal {
	return pricing.SellingPrice(in.wholesale, in.markup())
}

// inputsFor reads the price inputs off a product loaded with its category
// and supplier product (and that product's supplier).
func inputsFor(p *models.Product) (priceInputs, error) {
	if p.SupplierProduct == nil {
		return priceInputs{}, fmt.Errorf("product %s loaded without supplier product", p.ID)
	}
	return priceInputs{
		wholesale: p.SupplierProduct.WholesalePrice,
		override:  p.MarkupOverride,
		category:  p.Category,
		supplier:  p.SupplierProduct.Supplier,
	}, nil
}

// RepriceTx recomputes the selling price of every product in scope inside
// the caller's transaction and returns how many prices changed.
func (s *service) RepriceTx(ctx context.Context, tx *gorm.DB, scope PricingScope) (int, error) {
	repo := s.repo.WithTx(tx)
	products, err := repo.ListProductsForPricing(ctx, scope)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products for pricing")
	}
	changed := 0
	for i := range products {
		ok, err := s.repriceOne(ctx, repo, &products[i])
		if err != nil {
			return changed, err
		}
		if ok {
			changed++
		}
	}
	return changed, nil
}

func (s *service) repriceOne(ctx context.Context, repo *Repository, product *models.Product) (bool, error) {
	inputs, err := inputsFor(product)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price inputs")
	}
	price := inputs.sellingPrice()
	if price.Equal(product.SellingPrice) {
		return false, nil
	}
	if err := repo.UpdateProduct(ctx, product.ID, map[string]any{"selling_price": price}); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update selling price")
	}
	product.SellingPrice = price
	return true, nil
}
