package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/slug"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the supplier catalog mirror and the storefront listings
// published from it.
type Service interface {
	Sync(ctx context.Context, input SyncInput) (*SyncResult, error)

	Publish(ctx context.Context, input PublishInput) (*ProductDTO, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, input DetailsInput) (*ProductDTO, error)
	SetVisibility(ctx context.Context, id uuid.UUID, visible bool) (*ProductDTO, error)
	SetFeatured(ctx context.Context, id uuid.UUID, featured bool) (*ProductDTO, error)
	SetMarkupOverride(ctx context.Context, id uuid.UUID, override *decimal.Decimal) (*ProductDTO, error)
	SetCategory(ctx context.Context, id uuid.UUID, categoryID *uuid.UUID) (*ProductDTO, error)
	Unpublish(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)

	ListSupplierProducts(ctx context.Context, query SupplierProductQuery) (*SupplierProductList, error)
	ExistingExternalIDs(ctx context.Context, supplierID uuid.UUID, externalIDs []string) ([]string, error)

	RepriceTx(ctx context.Context, tx *gorm.DB, scope PricingScope) (int, error)
}

type ServiceParams struct {
	Repository      *Repository
	Tx              txRunner
	Logger          *logger.Logger
	SlugMaxAttempts int
}

type service struct {
	repo    *Repository
	tx      txRunner
	logg    *logger.Logger
	slugMax int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, errors.New("catalog repository required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	maxAttempts := params.SlugMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = slug.DefaultMaxAttempts
	}
	return &service{
		repo:    params.Repository,
		tx:      params.Tx,
		logg:    logg,
		slugMax: maxAttempts,
	}, nil
}

func (s *service) allocator(repo *Repository) *slug.Allocator {
	return slug.NewAllocator(slug.ProberFunc(repo.SlugExists), s.slugMax)
}
