package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/pagination"
)

// Service exposes the operator view of supplier payouts.
type Service interface {
	List(ctx context.Context, input ListInput) (*PayoutList, error)
	Get(ctx context.Context, id uuid.UUID) (*PayoutDTO, error)
}

// ListInput filters the payout list.
type ListInput struct {
	Status     *enums.PayoutStatus
	Pagination pagination.Params
}

// PayoutDTO is the admin representation of a payout.
type PayoutDTO struct {
	ID            uuid.UUID          `json:"id"`
	OrderID       *uuid.UUID         `json:"order_id,omitempty"`
	OrderItemID   uuid.UUID          `json:"order_item_id"`
	SupplierID    uuid.UUID          `json:"supplier_id"`
	SupplierName  string             `json:"supplier_name,omitempty"`
	Amount        decimal.Decimal    `json:"amount"`
	Currency      string             `json:"currency"`
	Status        enums.PayoutStatus `json:"status"`
	TransferID    *string            `json:"transfer_id,omitempty"`
	FailureReason *string            `json:"failure_reason,omitempty"`
	Attempts      int                `json:"attempts"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type PayoutList = pagination.Page[PayoutDTO]

// FromModel maps a payout, using preloaded relations when present.
func FromModel(p models.Payout) PayoutDTO {
	dto := PayoutDTO{
		ID:            p.ID,
		OrderItemID:   p.OrderItemID,
		SupplierID:    p.SupplierID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        p.Status,
		TransferID:    p.TransferID,
		FailureReason: p.FailureReason,
		Attempts:      p.Attempts,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Supplier != nil {
		dto.SupplierName = p.Supplier.Name
	}
	if p.OrderItem != nil {
		orderID := p.OrderItem.OrderID
		dto.OrderID = &orderID
	}
	return dto
}

type service struct {
	repo Repository
}

// NewService wires a payout service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*PayoutList, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, input.Status, cursor, input.Pagination.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payouts")
	}
	dtos := make([]PayoutDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	page := pagination.BuildPage(dtos, input.Pagination.Limit, func(p PayoutDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PayoutDTO, error) {
	payout, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payout")
	}
	dto := FromModel(*payout)
	return &dto, nil
}
