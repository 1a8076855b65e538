package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/metrics"
)

const (
	defaultPendingOrderTTL = 48 * time.Hour
	orderTTLBatchSize      = 100
	expiryReason           = "payment abandoned"
)

// OrderTTLJobParams configure the abandoned order sweep.
type OrderTTLJobParams struct {
	Logger   *logger.Logger
	Orders   pendingOrderReader
	Expirer  orderExpirer
	Payments paymentCanceller
	Metrics  *metrics.CronJobMetrics
	TTL      time.Duration
}

type pendingOrderReader interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderExpirer interface {
	ExpirePending(ctx context.Context, orderID uuid.UUID, reason string) (bool, error)
}

type paymentCanceller interface {
	CancelAuthorization(ctx context.Context, externalRef string) error
}

// NewOrderTTLJob builds the cron job that cancels pending orders nobody paid.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment canceller required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &orderTTLJob{
		logg:     params.Logger,
		orders:   params.Orders,
		expirer:  params.Expirer,
		payments: params.Payments,
		metrics:  params.Metrics,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

type orderTTLJob struct {
	logg     *logger.Logger
	orders   pendingOrderReader
	expirer  orderExpirer
	payments paymentCanceller
	metrics  *metrics.CronJobMetrics
	ttl      time.Duration
	now      func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

// Run handles one batch per cycle; a backlog drains over several cycles.
func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	pending, err := j.orders.FindPendingBefore(ctx, cutoff, orderTTLBatchSize)
	if err != nil {
		return fmt.Errorf("query pending orders: %w", err)
	}

	var errs error
	expired, kept := 0, 0
	for _, order := range pending {
		ok, err := j.expire(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if ok {
			expired++
		} else {
			kept++
		}
	}
	j.metrics.AddAffected(j.Name(), expired)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"scanned": len(pending),
		"expired": expired,
		"kept":    kept,
	}), "pending order sweep complete")
	return errs
}

// expire cancels the processor intent first. When the processor refuses, the
// payment may have gone through, so the order is left for settlement.
func (j *orderTTLJob) expire(ctx context.Context, order models.Order) (bool, error) {
	ctx = j.logg.WithOrderID(ctx, order.ID.String())
	if order.PaymentIntentID != nil && *order.PaymentIntentID != "" {
		if err := j.payments.CancelAuthorization(ctx, *order.PaymentIntentID); err != nil {
			j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
				"payment_intent_id": *order.PaymentIntentID,
				"error":             err.Error(),
			}), "payment intent not cancellable; leaving order pending")
			return false, nil
		}
	}
	return j.expirer.ExpirePending(ctx, order.ID, expiryReason)
}
