package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/internal/orders"
	pkgcheckout "github.com/dropmart/dropmart-backend/pkg/checkout"
	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/outbox"
	"github.com/dropmart/dropmart-backend/pkg/outbox/payloads"
	"github.com/dropmart/dropmart-backend/pkg/pricing"
	"github.com/dropmart/dropmart-backend/pkg/stripe"
	"github.com/dropmart/dropmart-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Authorizer opens and abandons payments with the processor.
type Authorizer interface {
	Authorize(ctx context.Context, req stripe.AuthorizeRequest) (*stripe.Authorization, error)
	CancelAuthorization(ctx context.Context, externalRef string) error
}

// Service executes checkout orchestration.
type Service interface {
	Initiate(ctx context.Context, input Input) (*Result, error)
}

// Input is a customer's purchase request. Prices are never taken from the
// client.
type Input struct {
	UserID          uuid.UUID
	Lines           []pkgcheckout.Line
	ShippingAddress *types.Address
}

// Result is what the storefront needs to confirm the payment.
type Result struct {
	OrderID      uuid.UUID       `json:"order_id"`
	ClientSecret string          `json:"client_secret"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
}

type service struct {
	tx       txRunner
	repo     Repository
	orders   orders.Repository
	payments Authorizer
	outbox   outboxPublisher
	currency string
	logg     *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	repo Repository,
	ordersRepo orders.Repository,
	payments Authorizer,
	publisher outboxPublisher,
	currency string,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment authorizer required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = "usd"
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:       tx,
		repo:     repo,
		orders:   ordersRepo,
		payments: payments,
		outbox:   publisher,
		currency: currency,
		logg:     logg,
	}, nil
}

func (s *service) Initiate(ctx context.Context, input Input) (*Result, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	lines, err := pkgcheckout.NormalizeLines(input.Lines)
	if err != nil {
		return nil, err
	}

	order, err := s.buildOrder(ctx, input, lines)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	var auth *stripe.Authorization
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		if err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		created, err := s.payments.Authorize(ctx, stripe.AuthorizeRequest{
			AmountMinor: pricing.ToMinorUnits(order.Total),
			Currency:    order.Currency,
			Metadata: map[string]string{
				"order_id": order.ID.String(),
				"user_id":  order.UserID.String(),
			},
			IdempotencyKey: "checkout:" + order.ID.String(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeAuthorizationFailed, err, "payment authorization failed")
		}
		auth = created

		if err := ordersRepo.SetPaymentIntent(ctx, order.ID, created.ExternalRef); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist payment reference")
		}
		order.PaymentIntentID = &created.ExternalRef

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: order.UserID, Role: string(enums.UserRoleCustomer)},
			Data: payloads.OrderCreatedEvent{
				OrderID:         order.ID,
				UserID:          order.UserID,
				Total:           order.Total,
				Currency:        order.Currency,
				ItemCount:       len(order.Items),
				PaymentIntentID: created.ExternalRef,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}
		return nil
	})
	if err != nil {
		if auth != nil {
			s.abandon(ctx, auth.ExternalRef)
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"total":      order.Total.StringFixed(2),
		"item_count": len(order.Items),
	}), "checkout initiated")

	return &Result{
		OrderID:      order.ID,
		ClientSecret: auth.ClientSecret,
		Total:        order.Total,
		Currency:     order.Currency,
	}, nil
}

// buildOrder prices every line from the catalog as it is right now.
func (s *service) buildOrder(ctx context.Context, input Input, lines []pkgcheckout.Line) (*models.Order, error) {
	ids := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}
	products, err := s.repo.FindPurchasable(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	byID := make(map[uuid.UUID]models.Product, len(products))
	found := make(map[uuid.UUID]struct{}, len(products))
	for _, p := range products {
		if p.SupplierProduct == nil {
			continue
		}
		byID[p.ID] = p
		found[p.ID] = struct{}{}
	}
	if missing := pkgcheckout.MissingProducts(lines, found); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeProductsUnavailable, "one or more products are unavailable").
			WithDetails(map[string]any{"product_ids": missing})
	}

	order := &models.Order{
		ID:       uuid.New(),
		UserID:   input.UserID,
		Status:   enums.OrderStatusPending,
		Currency: s.currency,
		Items:    make([]models.OrderItem, 0, len(lines)),
	}
	if input.ShippingAddress != nil {
		order.ShippingAddress = *input.ShippingAddress
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		product := byID[line.ProductID]
		productID := product.ID
		item := models.OrderItem{
			OrderID:        order.ID,
			ProductID:      &productID,
			SupplierID:     product.SupplierProduct.SupplierID,
			Name:           product.Name,
			Quantity:       line.Quantity,
			UnitPrice:      product.SellingPrice,
			WholesalePrice: product.SupplierProduct.WholesalePrice,
		}
		subtotal = subtotal.Add(item.LineTotal())
		order.Items = append(order.Items, item)
	}
	order.Subtotal = subtotal
	order.Total = subtotal
	if !order.Total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}
	return order, nil
}

// abandon cancels an intent whose order never committed. Failure only leaves
// an orphan intent at the processor, which expires on its own.
func (s *service) abandon(ctx context.Context, ref string) {
	if err := s.payments.CancelAuthorization(ctx, ref); err != nil && !errors.Is(err, context.Canceled) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"payment_intent_id": ref,
			"error":             err.Error(),
		}), "cancel orphan payment intent failed")
	}
}
