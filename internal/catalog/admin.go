package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/pkg/db"
	"github.com/dropmart/dropmart-backend/pkg/db/models"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/types"
)

const publishSlugRetries = 3

const (
	defaultSupplierProductPage  = 1
	defaultSupplierProductLimit = 50
	maxSupplierProductLimit     = 200
)

// PublishInput creates a storefront listing from a supplier product. Name and
// description default to the supplier's copy.
type PublishInput struct {
	SupplierProductID uuid.UUID
	CategoryID        *uuid.UUID
	MarkupOverride    *decimal.Decimal
	Name              *string
	Description       *string
	IsVisible         *bool
	IsFeatured        bool
}

type DetailsInput struct {
	Name        *string
	Description *string
}

type SupplierProductQuery struct {
	SupplierID  *uuid.UUID
	Unpublished bool
	Page        int
	Limit       int
}

// Publish lists a supplier product on the storefront. The slug is allocated
// optimistically; a concurrent publish taking the same slug makes the insert
// fail on the unique index and the whole attempt is retried in a fresh
// transaction.
func (s *service) Publish(ctx context.Context, input PublishInput) (*ProductDTO, error) {
	if input.SupplierProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier_product_id required")
	}
	if input.MarkupOverride != nil && input.MarkupOverride.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "markup override must be >= 0")
	}

	var (
		productID uuid.UUID
		err       error
	)
	for attempt := 1; attempt <= publishSlugRetries; attempt++ {
		productID, err = s.publishOnce(ctx, input)
		if err == nil {
			break
		}
		if !db.IsUniqueViolation(err, "slug") {
			return nil, err
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "slug taken during publish; retrying")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "slug allocation kept colliding")
	}

	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", productID.String()), "product published")
	return productFromModel(product), nil
}

// publishOnce returns raw unique violations on the slug so Publish can retry.
func (s *service) publishOnce(ctx context.Context, input PublishInput) (uuid.UUID, error) {
	var productID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sp, err := repo.FindSupplierProduct(ctx, input.SupplierProductID)
		if err != nil {
			if isNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supplier product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier product")
		}
		if _, err := repo.FindProductBySupplierProduct(ctx, sp.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "supplier product already published")
		} else if !isNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check published product")
		}

		var category *models.Category
		if input.CategoryID != nil {
			category, err = repo.FindCategory(ctx, *input.CategoryID)
			if err != nil {
				if isNotFound(err) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
			}
		}

		name := sp.Title
		if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
			name = strings.TrimSpace(*input.Name)
		}
		description := sp.Description
		if input.Description != nil {
			description = input.Description
		}
		visible := true
		if input.IsVisible != nil {
			visible = *input.IsVisible
		}

		slugValue, err := s.allocator(repo).Allocate(ctx, name, nil)
		if err != nil {
			return err
		}

		inputs := priceInputs{wholesale: sp.WholesalePrice, category: category, supplier: sp.Supplier}
		if input.MarkupOverride != nil {
			inputs.override = decimal.NewNullDecimal(*input.MarkupOverride)
		}

		product := &models.Product{
			SupplierProductID: sp.ID,
			CategoryID:        input.CategoryID,
			Name:              name,
			Slug:              slugValue,
			Description:       description,
			ImageURLs:         append(types.StringList{}, sp.ImageURLs...),
			MarkupOverride:    inputs.override,
			SellingPrice:      inputs.sellingPrice(),
			IsVisible:         visible,
			IsFeatured:        input.IsFeatured,
		}
		if err := repo.CreateProduct(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "slug") {
				return err
			}
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "supplier product already published")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
		}
		productID = product.ID
		return nil
	})
	return productID, err
}

// UpdateDetails renames or re-describes a product. A new name re-slugs it.
func (s *service) UpdateDetails(ctx context.Context, id uuid.UUID, input DetailsInput) (*ProductDTO, error) {
	return s.mutate(ctx, id, false, func(repo *Repository, p *models.Product) (map[string]any, error) {
		updates := map[string]any{}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
			}
			if name != p.Name {
				slugValue, err := s.allocator(repo).Allocate(ctx, name, &p.ID)
				if err != nil {
					return nil, err
				}
				updates["name"] = name
				updates["slug"] = slugValue
			}
		}
		if input.Description != nil {
			updates["description"] = *input.Description
		}
		return updates, nil
	})
}

func (s *service) SetVisibility(ctx context.Context, id uuid.UUID, visible bool) (*ProductDTO, error) {
	return s.mutate(ctx, id, false, func(*Repository, *models.Product) (map[string]any, error) {
		return map[string]any{"is_visible": visible}, nil
	})
}

func (s *service) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) (*ProductDTO, error) {
	return s.mutate(ctx, id, false, func(*Repository, *models.Product) (map[string]any, error) {
		return map[string]any{"is_featured": featured}, nil
	})
}

// SetMarkupOverride sets or clears (nil) the product's own markup and reprices it.
func (s *service) SetMarkupOverride(ctx context.Context, id uuid.UUID, override *decimal.Decimal) (*ProductDTO, error) {
	if override != nil && override.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "markup override must be >= 0")
	}
	return s.mutate(ctx, id, true, func(*Repository, *models.Product) (map[string]any, error) {
		if override == nil {
			return map[string]any{"markup_override": nil}, nil
		}
		return map[string]any{"markup_override": *override}, nil
	})
}

// SetCategory assigns or clears (nil) the product category and reprices it.
func (s *service) SetCategory(ctx context.Context, id uuid.UUID, categoryID *uuid.UUID) (*ProductDTO, error) {
	return s.mutate(ctx, id, true, func(repo *Repository, _ *models.Product) (map[string]any, error) {
		if categoryID == nil {
			return map[string]any{"category_id": nil}, nil
		}
		if _, err := repo.FindCategory(ctx, *categoryID); err != nil {
			if isNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		return map[string]any{"category_id": *categoryID}, nil
	})
}

// mutate loads the product, applies the column updates returned by fn and,
// when reprice is set, recomputes the selling price from the updated row.
func (s *service) mutate(
	ctx context.Context,
	id uuid.UUID,
	reprice bool,
	fn func(repo *Repository, p *models.Product) (map[string]any, error),
) (*ProductDTO, error) {
	var out *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProduct(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		updates, err := fn(repo, product)
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := repo.UpdateProduct(ctx, id, updates); err != nil {
				if db.IsUniqueViolation(err, "slug") {
					return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "slug already taken")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
			}
		}
		if reprice {
			if _, err := s.RepriceTx(ctx, tx, PricingScope{ProductID: &id}); err != nil {
				return err
			}
		}

		out, err = repo.FindProduct(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return productFromModel(out), nil
}

// Unpublish removes the storefront listing. Order items keep their snapshot.
func (s *service) Unpublish(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if isNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", id.String()), "product unpublished")
	return nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return productFromModel(product), nil
}

func (s *service) ListSupplierProducts(ctx context.Context, query SupplierProductQuery) (*SupplierProductList, error) {
	page := query.Page
	if page < 1 {
		page = defaultSupplierProductPage
	}
	limit := query.Limit
	if limit < 1 {
		limit = defaultSupplierProductLimit
	}
	if limit > maxSupplierProductLimit {
		limit = maxSupplierProductLimit
	}

	rows, total, err := s.repo.ListSupplierProducts(ctx, SupplierProductFilter{
		SupplierID:  query.SupplierID,
		Unpublished: query.Unpublished,
		Limit:       limit,
		Offset:      (page - 1) * limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list supplier products")
	}

	items := make([]SupplierProductDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, supplierProductFromRow(row))
	}
	return &SupplierProductList{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *service) ExistingExternalIDs(ctx context.Context, supplierID uuid.UUID, externalIDs []string) ([]string, error) {
	found, err := s.repo.ExistingExternalIDs(ctx, supplierID, externalIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup external ids")
	}
	return found, nil
}
