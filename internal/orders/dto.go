package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	"github.com/dropmart/dropmart-backend/pkg/pagination"
	"github.com/dropmart/dropmart-backend/pkg/types"
)

// OrderDTO is an order with its lines. Supplier and payout fields are only
// populated for back-office reads.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	Status          enums.OrderStatus `json:"status"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	Total           decimal.Decimal   `json:"total"`
	Currency        string            `json:"currency"`
	ShippingAddress *types.Address    `json:"shipping_address,omitempty"`
	PaymentIntentID *string           `json:"payment_intent_id,omitempty"`
	Items           []OrderItemDTO    `json:"items"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type OrderItemDTO struct {
	ID             uuid.UUID        `json:"id"`
	ProductID      *uuid.UUID       `json:"product_id,omitempty"`
	Name           string           `json:"name"`
	Quantity       int              `json:"quantity"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	LineTotal      decimal.Decimal  `json:"line_total"`
	SupplierID     *uuid.UUID       `json:"supplier_id,omitempty"`
	WholesalePrice *decimal.Decimal `json:"wholesale_price,omitempty"`
	Payout         *PayoutDTO       `json:"payout,omitempty"`
}

type PayoutDTO struct {
	ID            uuid.UUID          `json:"id"`
	Amount        decimal.Decimal    `json:"amount"`
	Status        enums.PayoutStatus `json:"status"`
	TransferID    *string            `json:"transfer_id,omitempty"`
	FailureReason *string            `json:"failure_reason,omitempty"`
	Attempts      int                `json:"attempts"`
}

type OrderList = pagination.Page[OrderDTO]

// FromModel maps an order loaded with items. admin exposes the supplier side.
func FromModel(o *models.Order, admin bool) OrderDTO {
	dto := OrderDTO{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    o.Status,
		Subtotal:  o.Subtotal,
		Total:     o.Total,
		Currency:  o.Currency,
		Items:     make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if !o.ShippingAddress.IsEmpty() {
		addr := o.ShippingAddress
		dto.ShippingAddress = &addr
	}
	if admin {
		dto.PaymentIntentID = o.PaymentIntentID
	}
	for _, item := range o.Items {
		line := OrderItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
		}
		if admin {
			supplierID := item.SupplierID
			wholesale := item.WholesalePrice
			line.SupplierID = &supplierID
			line.WholesalePrice = &wholesale
			if p := item.Payout; p != nil {
				line.Payout = &PayoutDTO{
					ID:            p.ID,
					Amount:        p.Amount,
					Status:        p.Status,
					TransferID:    p.TransferID,
					FailureReason: p.FailureReason,
					Attempts:      p.Attempts,
				}
			}
		}
		dto.Items = append(dto.Items, line)
	}
	return dto
}
