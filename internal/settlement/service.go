package settlement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/internal/orders"
	"github.com/dropmart/dropmart-backend/internal/payouts"
	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/metrics"
	"github.com/dropmart/dropmart-backend/pkg/outbox"
	"github.com/dropmart/dropmart-backend/pkg/outbox/payloads"
	"github.com/dropmart/dropmart-backend/pkg/pricing"
	"github.com/dropmart/dropmart-backend/pkg/stripe"
)

const defaultConcurrency = 4

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Transferer moves money to a supplier's connected account.
type Transferer interface {
	Transfer(ctx context.Context, req stripe.TransferRequest) (*stripe.Transfer, error)
}

// Service settles paid orders into supplier payouts.
type Service interface {
	HandlePaymentSucceeded(ctx context.Context, paymentRef string) (*Result, error)
	RetryPayout(ctx context.Context, payoutID uuid.UUID) (*payouts.PayoutDTO, error)
}

// Result summarizes one settlement run. Skipped is set when the delivery was
// acknowledged without doing anything.
type Result struct {
	OrderID   uuid.UUID
	Skipped   string
	Completed int
	Pending   int
	Failed    int
}

const (
	SkipUnknownPayment = "unknown_payment"
	SkipAlreadySettled = "already_settled"
	SkipOrderClosed    = "order_closed"
)

// Deps bundles the collaborators settlement needs.
type Deps struct {
	Tx          txRunner
	Orders      orders.Repository
	Payouts     payouts.Repository
	Transfers   Transferer
	Outbox      outboxPublisher
	Metrics     *metrics.SettlementMetrics
	Concurrency int
	Logger      *logger.Logger
}

type service struct {
	tx          txRunner
	orders      orders.Repository
	payouts     payouts.Repository
	transfers   Transferer
	outbox      outboxPublisher
	metrics     *metrics.SettlementMetrics
	concurrency int
	logg        *logger.Logger
}

// NewService validates deps and builds the settlement service.
func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Payouts == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if deps.Transfers == nil {
		return nil, fmt.Errorf("transfer client required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = defaultConcurrency
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &service{
		tx:          deps.Tx,
		orders:      deps.Orders,
		payouts:     deps.Payouts,
		transfers:   deps.Transfers,
		outbox:      deps.Outbox,
		metrics:     deps.Metrics,
		concurrency: deps.Concurrency,
		logg:        deps.Logger,
	}, nil
}

func (s *service) HandlePaymentSucceeded(ctx context.Context, paymentRef string) (*Result, error) {
	if paymentRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	ctx = s.logg.WithField(ctx, "payment_intent_id", paymentRef)

	order, err := s.orders.FindByPaymentIntent(ctx, paymentRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, "payment succeeded for unknown order")
			return &Result{Skipped: SkipUnknownPayment}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order by payment")
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	result := &Result{OrderID: order.ID}
	if order.Status != enums.OrderStatusPending {
		result.Skipped = s.skipReason(ctx, order.Status)
		return result, nil
	}

	created, err := s.markPaid(ctx, order)
	if err != nil {
		return nil, err
	}
	if created == nil {
		status := enums.OrderStatusPaid
		if current, err := s.orders.FindByID(ctx, order.ID); err == nil {
			status = current.Status
		}
		result.Skipped = s.skipReason(ctx, status)
		return result, nil
	}

	rows, err := s.payouts.ListByOrderID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payouts")
	}
	s.dispatchAll(ctx, order, rows, result)

	if err := s.markProcessing(ctx, order.ID, result); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payouts_completed": result.Completed,
		"payouts_pending":   result.Pending,
		"payouts_failed":    result.Failed,
	}), "order settled")
	return result, nil
}

// skipReason classifies a payment for an order that already left pending.
// Cancelled and refunded orders hold captured money with no payouts behind
// it, which needs an operator refund.
func (s *service) skipReason(ctx context.Context, status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusCancelled, enums.OrderStatusRefunded:
		s.logg.Warn(s.logg.WithField(ctx, "status", string(status)), "payment succeeded for closed order")
		s.metrics.IncClosedOrderPayment(string(status))
		return SkipOrderClosed
	default:
		return SkipAlreadySettled
	}
}

// markPaid moves the order to paid and creates one payout per item. A nil
// slice with nil error means another delivery won the race.
func (s *service) markPaid(ctx context.Context, order *models.Order) ([]models.Payout, error) {
	var created []models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.orders.WithTx(tx).CompareAndSetStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusPaid)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		if !ok {
			return nil
		}

		rows := make([]models.Payout, 0, len(order.Items))
		for _, item := range order.Items {
			rows = append(rows, models.Payout{
				ID:          uuid.New(),
				OrderItemID: item.ID,
				SupplierID:  item.SupplierID,
				Amount:      item.PayoutAmount().Round(2),
				Currency:    order.Currency,
				Status:      enums.PayoutStatusPending,
			})
		}
		if err := s.payouts.WithTx(tx).CreateBatch(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payouts")
		}

		ids := make([]uuid.UUID, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}
		ref := ""
		if order.PaymentIntentID != nil {
			ref = *order.PaymentIntentID
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPaidEvent{
				OrderID:         order.ID,
				PaymentIntentID: ref,
				Total:           order.Total,
				PayoutIDs:       ids,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order paid")
		}
		created = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// dispatchAll attempts every pending payout. Individual failures are recorded
// on the payout and never abort the batch.
func (s *service) dispatchAll(ctx context.Context, order *models.Order, rows []models.Payout, result *Result) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range rows {
		payout := rows[i]
		if payout.Status != enums.PayoutStatusPending {
			continue
		}
		g.Go(func() error {
			status := s.dispatch(gctx, order.ID, &payout)
			mu.Lock()
			defer mu.Unlock()
			switch status {
			case enums.PayoutStatusCompleted:
				result.Completed++
			case enums.PayoutStatusFailed:
				result.Failed++
			default:
				result.Pending++
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *service) dispatch(ctx context.Context, orderID uuid.UUID, payout *models.Payout) enums.PayoutStatus {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"payout_id":   payout.ID.String(),
		"supplier_id": payout.SupplierID.String(),
	})
	if nothingOwed(payout) {
		outcome := s.settleEmpty(ctx, payout)
		if err := s.record(ctx, orderID, payout, outcome); err != nil {
			s.logg.Error(ctx, "record payout outcome", err)
		}
		return outcome.Status
	}
	destination, ok := payable(payout.Supplier)
	if !ok {
		s.metrics.IncPayout(string(enums.PayoutStatusPending))
		s.logg.Info(ctx, "payout left pending for manual settlement")
		return enums.PayoutStatusPending
	}

	outcome, _ := s.attempt(ctx, orderID, payout, destination)
	if err := s.record(ctx, orderID, payout, outcome); err != nil {
		s.logg.Error(ctx, "record payout outcome", err)
	}
	return outcome.Status
}

// settleEmpty closes a payout with nothing to transfer. The processor
// rejects zero-amount transfers, so no call is made.
func (s *service) settleEmpty(ctx context.Context, payout *models.Payout) payouts.Outcome {
	s.metrics.IncPayout(string(enums.PayoutStatusCompleted))
	s.logg.Info(ctx, "zero-amount payout completed without transfer")
	return payouts.Outcome{Status: enums.PayoutStatusCompleted, Attempts: payout.Attempts}
}

// attempt performs one transfer and reports the resulting payout state. The
// returned error is the processor error, already folded into the outcome.
func (s *service) attempt(ctx context.Context, orderID uuid.UUID, payout *models.Payout, destination string) (payouts.Outcome, error) {
	attempt := payout.Attempts + 1
	start := time.Now()
	transfer, err := s.transfers.Transfer(ctx, stripe.TransferRequest{
		AmountMinor: pricing.ToMinorUnits(payout.Amount),
		Currency:    payout.Currency,
		Destination: destination,
		Group:       orderID.String(),
		Metadata: map[string]string{
			"order_id":      orderID.String(),
			"payout_id":     payout.ID.String(),
			"order_item_id": payout.OrderItemID.String(),
		},
		IdempotencyKey: "payout:" + payout.ID.String() + ":" + strconv.Itoa(attempt),
	})
	s.metrics.ObserveTransfer(time.Since(start))
	if err != nil {
		reason := err.Error()
		s.metrics.IncPayout(string(enums.PayoutStatusFailed))
		if dump := pkgerrors.Dump(err); dump.ProviderRequestID != "" {
			ctx = s.logg.WithFields(ctx, map[string]any{
				"provider_code":       dump.ProviderCode,
				"provider_request_id": dump.ProviderRequestID,
			})
		}
		s.logg.Error(ctx, "payout transfer failed", err)
		return payouts.Outcome{Status: enums.PayoutStatusFailed, FailureReason: &reason, Attempts: attempt}, err
	}
	transferID := transfer.ID
	s.metrics.IncPayout(string(enums.PayoutStatusCompleted))
	return payouts.Outcome{Status: enums.PayoutStatusCompleted, TransferID: &transferID, Attempts: attempt}, nil
}

func (s *service) record(ctx context.Context, orderID uuid.UUID, payout *models.Payout, outcome payouts.Outcome) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.payouts.WithTx(tx).RecordOutcome(ctx, payout.ID, outcome); err != nil {
			return err
		}
		event := enums.EventPayoutCompleted
		if outcome.Status == enums.PayoutStatusFailed {
			event = enums.EventPayoutFailed
		}
		data := payloads.PayoutOutcomeEvent{
			OrderID:     orderID,
			PayoutID:    payout.ID,
			OrderItemID: payout.OrderItemID,
			SupplierID:  payout.SupplierID,
			Amount:      payout.Amount,
			Currency:    payout.Currency,
			Status:      outcome.Status,
			Attempt:     outcome.Attempts,
		}
		if outcome.TransferID != nil {
			data.TransferID = *outcome.TransferID
		}
		if outcome.FailureReason != nil {
			data.FailureReason = *outcome.FailureReason
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     event,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Data:          data,
		})
	})
}

func (s *service) markProcessing(ctx context.Context, orderID uuid.UUID, result *Result) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.orders.WithTx(tx).CompareAndSetStatus(ctx, orderID, enums.OrderStatusPaid, enums.OrderStatusProcessing)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order processing")
		}
		if !ok {
			s.logg.Warn(ctx, "order left paid before dispatch finished")
			return nil
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderProcessing,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data: payloads.OrderProcessingEvent{
				OrderID:          orderID,
				PayoutsCompleted: result.Completed,
				PayoutsPending:   result.Pending,
				PayoutsFailed:    result.Failed,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order processing")
		}
		return nil
	})
}

func (s *service) RetryPayout(ctx context.Context, payoutID uuid.UUID) (*payouts.PayoutDTO, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	payout, err := s.payouts.FindByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payout")
	}
	if payout.Status != enums.PayoutStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only failed payouts can be retried").
			WithDetails(map[string]any{"status": payout.Status})
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"payout_id":   payout.ID.String(),
		"supplier_id": payout.SupplierID.String(),
	})
	var orderID uuid.UUID
	if payout.OrderItem != nil {
		orderID = payout.OrderItem.OrderID
	}

	if nothingOwed(payout) {
		if err := s.record(ctx, orderID, payout, s.settleEmpty(ctx, payout)); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payout outcome")
		}
		return s.reload(ctx, payout.ID)
	}

	destination, ok := payable(payout.Supplier)
	if !ok {
		reset := payouts.Outcome{Status: enums.PayoutStatusPending, Attempts: payout.Attempts}
		if err := s.payouts.RecordOutcome(ctx, payout.ID, reset); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset payout")
		}
		s.logg.Info(ctx, "payout reset to pending; supplier cannot receive transfers")
		return s.reload(ctx, payout.ID)
	}

	outcome, transferErr := s.attempt(ctx, orderID, payout, destination)
	if err := s.record(ctx, orderID, payout, outcome); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payout outcome")
	}
	if transferErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransferFailed, transferErr, "transfer failed")
	}
	return s.reload(ctx, payout.ID)
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*payouts.PayoutDTO, error) {
	payout, err := s.payouts.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload payout")
	}
	dto := payouts.FromModel(*payout)
	return &dto, nil
}

func nothingOwed(payout *models.Payout) bool {
	return pricing.ToMinorUnits(payout.Amount) <= 0
}

// payable returns the transfer destination when the supplier can be paid.
func payable(supplier *models.Supplier) (string, bool) {
	if supplier == nil || !supplier.IsActive {
		return "", false
	}
	return supplier.PayoutDestination()
}
