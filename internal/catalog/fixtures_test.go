package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropmart/dropmart-backend/pkg/db"
	"github.com/dropmart/dropmart-backend/pkg/db/dbtest"
	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

type fixture struct {
	client *db.Client
	svc    Service
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repository:      NewRepository(client.DB()),
		Tx:              client,
		Logger:          logger.Nop(),
		SlugMaxAttempts: 20,
	})
	require.NoError(t, err)
	return &fixture{client: client, svc: svc, ctx: context.Background()}
}

func (f *fixture) supplier(t *testing.T, name, markup string) *models.Supplier {
	t.Helper()
	s := &models.Supplier{Name: name, WebhookSecret: "whsec", DefaultMarkup: dec(markup), IsActive: true}
	require.NoError(t, f.client.DB().Create(s).Error)
	return s
}

func (f *fixture) category(t *testing.T, slug, markup string) *models.Category {
	t.Helper()
	c := &models.Category{Name: slug, Slug: slug, DefaultMarkup: dec(markup)}
	require.NoError(t, f.client.DB().Create(c).Error)
	return c
}

func (f *fixture) supplierProduct(t *testing.T, supplier *models.Supplier, externalID, title, wholesale string) *models.SupplierProduct {
	t.Helper()
	sp := &models.SupplierProduct{
		SupplierID:     supplier.ID,
		ExternalID:     externalID,
		Title:          title,
		WholesalePrice: dec(wholesale),
		ImageURLs:      types.StringList{"https://img.example/" + externalID + ".jpg"},
		InventoryCount: 5,
	}
	require.NoError(t, f.client.DB().Omit("Supplier", "Product").Create(sp).Error)
	return sp
}

func (f *fixture) publish(t *testing.T, sp *models.SupplierProduct) *ProductDTO {
	t.Helper()
	dto, err := f.svc.Publish(f.ctx, PublishInput{SupplierProductID: sp.ID})
	require.NoError(t, err)
	return dto
}
