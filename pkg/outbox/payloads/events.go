package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dropmart/dropmart-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once checkout persisted a pending order.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID       `json:"order_id"`
	UserID          uuid.UUID       `json:"user_id"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	ItemCount       int             `json:"item_count"`
	PaymentIntentID string          `json:"payment_intent_id"`
}

// OrderPaidEvent is emitted when payment is confirmed and payouts exist.
type OrderPaidEvent struct {
	OrderID         uuid.UUID       `json:"order_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	Total           decimal.Decimal `json:"total"`
	PayoutIDs       []uuid.UUID     `json:"payout_ids"`
}

// OrderProcessingEvent is emitted after every payout has been dispatched.
type OrderProcessingEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	PayoutsCompleted int       `json:"payouts_completed"`
	PayoutsPending   int       `json:"payouts_pending"`
	PayoutsFailed    int       `json:"payouts_failed"`
}

// OrderStatusChangedEvent covers administrative and housekeeping transitions.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
	Reason  string            `json:"reason,omitempty"`
}

// PayoutOutcomeEvent reports a transfer result for one payout.
type PayoutOutcomeEvent struct {
	OrderID       uuid.UUID          `json:"order_id"`
	PayoutID      uuid.UUID          `json:"payout_id"`
	OrderItemID   uuid.UUID          `json:"order_item_id"`
	SupplierID    uuid.UUID          `json:"supplier_id"`
	Amount        decimal.Decimal    `json:"amount"`
	Currency      string             `json:"currency"`
	Status        enums.PayoutStatus `json:"status"`
	TransferID    string             `json:"transfer_id,omitempty"`
	FailureReason string             `json:"failure_reason,omitempty"`
	Attempt       int                `json:"attempt"`
}
