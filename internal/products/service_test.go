package product

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/pkg/db/dbtest"
	"github.com/dropmart/dropmart-backend/pkg/db/models"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/pagination"
	"github.com/dropmart/dropmart-backend/pkg/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type seeder struct {
	t        *testing.T
	db       *gorm.DB
	supplier *models.Supplier
	base     time.Time
	n        int
}

func newSeeder(t *testing.T, db *gorm.DB) *seeder {
	supplier := &models.Supplier{Name: "Acme", WebhookSecret: "s", DefaultMarkup: dec("0.2"), IsActive: true}
	require.NoError(t, db.Create(supplier).Error)
	return &seeder{t: t, db: db, supplier: supplier, base: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (s *seeder) product(name string, price string, visible, featured bool, category *models.Category) *models.Product {
	s.n++
	sp := &models.SupplierProduct{
		SupplierID:     s.supplier.ID,
		ExternalID:     name,
		Title:          name,
		WholesalePrice: dec("1"),
		ImageURLs:      types.StringList{},
		InventoryCount: s.n % 2,
	}
	require.NoError(s.t, s.db.Omit("Supplier", "Product").Create(sp).Error)
	p := &models.Product{
		SupplierProductID: sp.ID,
		Name:              name,
		Slug:              name,
		SellingPrice:      dec(price),
		IsVisible:         visible,
		IsFeatured:        featured,
		CreatedAt:         s.base.Add(time.Duration(s.n) * time.Minute),
	}
	if category != nil {
		p.CategoryID = &category.ID
	}
	require.NoError(s.t, s.db.Omit("Category", "SupplierProduct").Create(p).Error)
	return p
}

func TestListProductsHidesInvisibleAndPaginates(t *testing.T) {
	client := dbtest.Open(t)
	seed := newSeeder(t, client.DB())
	for _, name := range []string{"a", "b", "c"} {
		seed.product(name, "10", true, false, nil)
	}
	seed.product("hidden", "10", false, false, nil)

	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.ListProducts(ctx, ListProductsInput{Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "c", first.Items[0].Slug)
	assert.Equal(t, "b", first.Items[1].Slug)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListProducts(ctx, ListProductsInput{Pagination: pagination.Params{Limit: 2, Cursor: first.NextCursor}})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "a", second.Items[0].Slug)
	assert.Empty(t, second.NextCursor)

	_, err = svc.ListProducts(ctx, ListProductsInput{Pagination: pagination.Params{Cursor: "%%%"}})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestListProductsFilters(t *testing.T) {
	client := dbtest.Open(t)
	seed := newSeeder(t, client.DB())
	audio := &models.Category{Name: "Audio", Slug: "audio", DefaultMarkup: dec("0.3")}
	require.NoError(t, client.DB().Create(audio).Error)

	seed.product("speaker", "50", true, true, audio)
	seed.product("earbuds", "20", true, false, audio)
	seed.product("mug", "5", true, true, nil)

	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()

	slug := "audio"
	res, err := svc.ListProducts(ctx, ListProductsInput{Filters: ProductListFilters{CategorySlug: &slug}})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	require.NotNil(t, res.Items[0].Category)
	assert.Equal(t, "audio", res.Items[0].Category.Slug)

	featured := true
	res, err = svc.ListProducts(ctx, ListProductsInput{Filters: ProductListFilters{Featured: &featured, CategorySlug: &slug}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "speaker", res.Items[0].Slug)

	minPrice, maxPrice := dec("10"), dec("30")
	res, err = svc.ListProducts(ctx, ListProductsInput{Filters: ProductListFilters{PriceMin: &minPrice, PriceMax: &maxPrice}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "earbuds", res.Items[0].Slug)

	res, err = svc.ListProducts(ctx, ListProductsInput{Filters: ProductListFilters{Query: "MU"}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "mug", res.Items[0].Slug)

	_, err = svc.ListProducts(ctx, ListProductsInput{Filters: ProductListFilters{PriceMin: &maxPrice, PriceMax: &minPrice}})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestGetBySlug(t *testing.T) {
	client := dbtest.Open(t)
	seed := newSeeder(t, client.DB())
	seed.product("lamp", "12.50", true, false, nil)
	seed.product("secret", "1", false, false, nil)

	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()

	dto, err := svc.GetBySlug(ctx, "lamp")
	require.NoError(t, err)
	assert.True(t, dec("12.50").Equal(dto.Price))
	assert.True(t, dto.InStock)

	_, err = svc.GetBySlug(ctx, "secret")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	_, err = svc.GetBySlug(ctx, " ")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
