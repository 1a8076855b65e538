package suppliers

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropmart/dropmart-backend/internal/catalog"
	"github.com/dropmart/dropmart-backend/pkg/db"
	"github.com/dropmart/dropmart-backend/pkg/db/dbtest"
	"github.com/dropmart/dropmart-backend/pkg/db/models"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newServices(t *testing.T) (*db.Client, Service, catalog.Service) {
	t.Helper()
	client := dbtest.Open(t)
	catalogSvc, err := catalog.NewService(catalog.ServiceParams{
		Repository: catalog.NewRepository(client.DB()),
		Tx:         client,
	})
	require.NoError(t, err)
	svc, err := NewService(NewRepository(client.DB()), client, catalogSvc, nil)
	require.NoError(t, err)
	return client, svc, catalogSvc
}

func TestCreateReturnsSecretOnce(t *testing.T) {
	_, svc, _ := newServices(t)
	ctx := context.Background()
	account := "  acct_123 "

	created, err := svc.Create(ctx, CreateInput{Name: " Acme ", PayoutAccountID: &account, DefaultMarkup: dec("0.25")})
	require.NoError(t, err)
	assert.Equal(t, "Acme", created.Name)
	assert.True(t, created.IsActive)
	require.NotNil(t, created.PayoutAccountID)
	assert.Equal(t, "acct_123", *created.PayoutAccountID)
	assert.True(t, strings.HasPrefix(created.WebhookSecret, "whsec_"))

	fetched, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, fetched.WebhookSecret)
	assert.True(t, strings.HasSuffix(fetched.SecretHint, created.WebhookSecret[len(created.WebhookSecret)-4:]))

	_, err = svc.Create(ctx, CreateInput{Name: " "})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	_, err = svc.Create(ctx, CreateInput{Name: "x", DefaultMarkup: dec("-1")})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateMarkupRepricesSupplierProducts(t *testing.T) {
	client, svc, catalogSvc := newServices(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Name: "Acme", DefaultMarkup: dec("0.20")})
	require.NoError(t, err)
	sp := &models.SupplierProduct{SupplierID: created.ID, ExternalID: "a", Title: "Mug", WholesalePrice: dec("10.00"), ImageURLs: types.StringList{}}
	require.NoError(t, client.DB().Omit("Supplier", "Product").Create(sp).Error)
	product, err := catalogSvc.Publish(ctx, catalog.PublishInput{SupplierProductID: sp.ID})
	require.NoError(t, err)
	assert.True(t, dec("12.00").Equal(product.SellingPrice))

	markup := dec("0.50")
	empty := ""
	updated, err := svc.Update(ctx, created.ID, UpdateInput{DefaultMarkup: &markup, PayoutAccountID: &empty})
	require.NoError(t, err)
	assert.True(t, markup.Equal(updated.DefaultMarkup))
	assert.Nil(t, updated.PayoutAccountID)

	product, err = catalogSvc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, dec("15.00").Equal(product.SellingPrice), "got %s", product.SellingPrice)

	_, err = svc.Update(ctx, uuid.New(), UpdateInput{DefaultMarkup: &markup})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestSetActive(t *testing.T) {
	_, svc, _ := newServices(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, CreateInput{Name: "Acme"})
	require.NoError(t, err)

	dto, err := svc.SetActive(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, dto.IsActive)

	_, err = svc.SetActive(ctx, uuid.New(), true)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestDeleteRefusesSuppliersWithOrders(t *testing.T) {
	client, svc, _ := newServices(t)
	ctx := context.Background()
	busy, err := svc.Create(ctx, CreateInput{Name: "Busy"})
	require.NoError(t, err)
	idle, err := svc.Create(ctx, CreateInput{Name: "Idle"})
	require.NoError(t, err)

	order := &models.Order{UserID: uuid.New(), Status: "pending", Subtotal: dec("1"), Total: dec("1"), Currency: "usd"}
	require.NoError(t, client.DB().Omit("Items").Create(order).Error)
	item := &models.OrderItem{OrderID: order.ID, SupplierID: busy.ID, Name: "Mug", Quantity: 1, UnitPrice: dec("1"), WholesalePrice: dec("1")}
	require.NoError(t, client.DB().Omit("Payout").Create(item).Error)

	err = svc.Delete(ctx, busy.ID)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	sp := &models.SupplierProduct{SupplierID: idle.ID, ExternalID: "a", Title: "Cup", WholesalePrice: dec("1"), ImageURLs: types.StringList{}}
	require.NoError(t, client.DB().Omit("Supplier", "Product").Create(sp).Error)
	require.NoError(t, svc.Delete(ctx, idle.ID))

	var remaining int64
	require.NoError(t, client.DB().Model(&models.SupplierProduct{}).Where("supplier_id = ?", idle.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	err = svc.Delete(ctx, idle.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestEnsureBuiltinIsIdempotent(t *testing.T) {
	_, svc, _ := newServices(t)
	ctx := context.Background()
	builtin := Builtin{ID: uuid.MustParse("00000000-0000-0000-0000-0000000a11e0"), Name: "AliExpress", DefaultMarkup: dec("0.35")}

	first, err := svc.EnsureBuiltin(ctx, builtin)
	require.NoError(t, err)
	second, err := svc.EnsureBuiltin(ctx, builtin)
	require.NoError(t, err)
	assert.Equal(t, builtin.ID, first.ID)
	assert.Equal(t, first.WebhookSecret, second.WebhookSecret)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
