package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/outbox"
	"github.com/dropmart/dropmart-backend/pkg/outbox/payloads"
	"github.com/dropmart/dropmart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentCanceller interface {
	CancelAuthorization(ctx context.Context, externalRef string) error
}

// Service exposes order reads for customers and operators plus the
// administrative status transitions.
type Service interface {
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	GetMine(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListAll(ctx context.Context, input AdminListInput) (*OrderList, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	ExpirePending(ctx context.Context, orderID uuid.UUID, reason string) (bool, error)
}

type AdminListInput struct {
	Status     *enums.OrderStatus
	Pagination pagination.Params
}

// UpdateStatusInput carries an operator-driven transition.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	Status      enums.OrderStatus
	Reason      string
	ActorUserID uuid.UUID
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	payments paymentCanceller
	logg     *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, payments paymentCanceller, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment canceller required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, outbox: outbox, payments: payments, logg: logg}, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.list(ctx, ListFilter{UserID: &userID}, params, false)
}

// GetMine returns the order only when it belongs to userID; anything else is
// reported as missing so order ids cannot be probed.
func (s *service) GetMine(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := FromModel(order, false)
	return &dto, nil
}

func (s *service) ListAll(ctx context.Context, input AdminListInput) (*OrderList, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	return s.list(ctx, ListFilter{Status: input.Status}, input.Pagination, true)
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	dto := FromModel(order, true)
	return &dto, nil
}

// UpdateStatus applies an administrative transition. The payment path
// (pending to paid to processing) belongs to settlement and is rejected here.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	if input.Status == enums.OrderStatusCancelled {
		if err := s.cancelUnpaidIntent(ctx, input.OrderID); err != nil {
			return nil, err
		}
	}

	var out *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
				WithDetails(map[string]any{"from": order.Status, "to": input.Status})
		}
		if err := s.transition(ctx, tx, repo, order, input.Status, input.Reason, &input.ActorUserID); err != nil {
			return err
		}
		out, err = s.load(ctx, repo, input.OrderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, input.OrderID.String()), map[string]any{
		"status": string(input.Status),
	}), "order status updated")
	dto := FromModel(out, true)
	return &dto, nil
}

// cancelUnpaidIntent voids the PaymentIntent of a pending order so the
// customer can no longer pay it. A refusal from the processor usually means
// the payment already went through, so the cancellation is refused too.
func (s *service) cancelUnpaidIntent(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return err
	}
	if order.Status != enums.OrderStatusPending || order.PaymentIntentID == nil || *order.PaymentIntentID == "" {
		return nil
	}
	ref := *order.PaymentIntentID
	if err := s.payments.CancelAuthorization(ctx, ref); err != nil {
		s.logg.Warn(s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
			"payment_intent_id": ref,
			"error":             err.Error(),
		}), "payment intent not cancellable; order left pending")
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "payment could not be cancelled").
			WithDetails(map[string]any{"payment_intent_id": ref})
	}
	return nil
}

// ExpirePending cancels an abandoned pending order. It reports false when
// the order already left pending, e.g. because payment landed meanwhile.
func (s *service) ExpirePending(ctx context.Context, orderID uuid.UUID, reason string) (bool, error) {
	var expired bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return nil
		}
		if err := s.transition(ctx, tx, repo, order, enums.OrderStatusCancelled, reason, nil); err != nil {
			if pkgerrors.As(err).Code() == pkgerrors.CodeStateConflict {
				return nil
			}
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

func (s *service) transition(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, to enums.OrderStatus, reason string, actor *uuid.UUID) error {
	changed, err := repo.CompareAndSetStatus(ctx, order.ID, order.Status, to)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !changed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data: payloads.OrderStatusChangedEvent{
			OrderID: order.ID,
			From:    order.Status,
			To:      to,
			Reason:  strings.TrimSpace(reason),
		},
	}
	if actor != nil && *actor != uuid.Nil {
		event.Actor = &outbox.ActorRef{UserID: *actor, Role: string(enums.UserRoleAdmin)}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
	}
	return nil
}

func (s *service) list(ctx context.Context, filter ListFilter, params pagination.Params, admin bool) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, FromModel(&rows[i], admin))
	}
	page := pagination.BuildPage(dtos, params.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
