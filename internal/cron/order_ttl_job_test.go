package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropmart/dropmart-backend/internal/orders"
	"github.com/dropmart/dropmart-backend/pkg/db"
	"github.com/dropmart/dropmart-backend/pkg/db/dbtest"
	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/outbox"
)

type fakeCanceller struct {
	cancelled []string
	refuse    map[string]bool
}

func (f *fakeCanceller) CancelAuthorization(_ context.Context, ref string) error {
	if f.refuse[ref] {
		return errors.New("payment_intent_unexpected_state")
	}
	f.cancelled = append(f.cancelled, ref)
	return nil
}

func seedPendingOrder(t *testing.T, client *db.Client, createdAt time.Time, intent string, status enums.OrderStatus) models.Order {
	t.Helper()
	order := models.Order{
		UserID:    uuid.New(),
		Status:    status,
		Subtotal:  decimal.RequireFromString("12.00"),
		Total:     decimal.RequireFromString("12.00"),
		Currency:  "usd",
		CreatedAt: createdAt,
	}
	if intent != "" {
		order.PaymentIntentID = &intent
	}
	require.NoError(t, client.DB().Create(&order).Error)
	return order
}

func statusOf(t *testing.T, client *db.Client, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, client.DB().First(&order, "id = ?", id).Error)
	return order.Status
}

func TestOrderTTLJobExpiresAbandonedOrders(t *testing.T) {
	client := dbtest.Open(t)
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	stale := seedPendingOrder(t, client, now.Add(-72*time.Hour), "pi_stale", enums.OrderStatusPending)
	paidMeanwhile := seedPendingOrder(t, client, now.Add(-72*time.Hour), "pi_paid", enums.OrderStatusPending)
	noIntent := seedPendingOrder(t, client, now.Add(-50*time.Hour), "", enums.OrderStatusPending)
	fresh := seedPendingOrder(t, client, now.Add(-time.Hour), "pi_fresh", enums.OrderStatusPending)
	settled := seedPendingOrder(t, client, now.Add(-96*time.Hour), "pi_settled", enums.OrderStatusProcessing)

	repo := orders.NewRepository(client.DB())
	canceller := &fakeCanceller{refuse: map[string]bool{"pi_paid": true}}
	ordersSvc, err := orders.NewService(repo, client, outbox.NewService(outbox.NewRepository(client.DB()), nil), canceller, nil)
	require.NoError(t, err)

	job, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger:   logger.Nop(),
		Orders:   repo,
		Expirer:  ordersSvc,
		Payments: canceller,
		TTL:      48 * time.Hour,
	})
	require.NoError(t, err)
	job.(*orderTTLJob).now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, enums.OrderStatusCancelled, statusOf(t, client, stale.ID))
	assert.Equal(t, enums.OrderStatusCancelled, statusOf(t, client, noIntent.ID))
	assert.Equal(t, enums.OrderStatusPending, statusOf(t, client, paidMeanwhile.ID))
	assert.Equal(t, enums.OrderStatusPending, statusOf(t, client, fresh.ID))
	assert.Equal(t, enums.OrderStatusProcessing, statusOf(t, client, settled.ID))
	assert.Equal(t, []string{"pi_stale"}, canceller.cancelled)

	var events int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventOrderStatusChanged).Count(&events).Error)
	assert.Equal(t, int64(2), events)
}

func TestNewOrderTTLJobValidates(t *testing.T) {
	_, err := NewOrderTTLJob(OrderTTLJobParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
