package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	"github.com/dropmart/dropmart-backend/pkg/pagination"
)

// Repository manages persistence for supplier payouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, payouts []models.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Payout, error)
	List(ctx context.Context, status *enums.PayoutStatus, cursor *pagination.Cursor, limit int) ([]models.Payout, error)
	RecordOutcome(ctx context.Context, id uuid.UUID, outcome Outcome) error
}

// Outcome is the result of one dispatch attempt.
type Outcome struct {
	Status        enums.PayoutStatus
	TransferID    *string
	FailureReason *string
	Attempts      int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, payouts []models.Payout) error {
	if len(payouts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Supplier", "OrderItem").Create(&payouts).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("OrderItem").
		First(&payout, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Payout, error) {
	var payouts []models.Payout
	if err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("OrderItem").
		Joins("JOIN order_items ON order_items.id = payouts.order_item_id").
		Where("order_items.order_id = ?", orderID).
		Order("payouts.created_at ASC").
		Order("payouts.id ASC").
		Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) List(ctx context.Context, status *enums.PayoutStatus, cursor *pagination.Cursor, limit int) ([]models.Payout, error) {
	qb := r.db.WithContext(ctx).Model(&models.Payout{}).Preload("Supplier").Preload("OrderItem")
	if status != nil {
		qb = qb.Where("payouts.status = ?", *status)
	}
	var payouts []models.Payout
	err := pagination.Apply(qb, cursor, limit, "payouts").Find(&payouts).Error
	return payouts, err
}

// RecordOutcome overwrites the mutable columns of a payout. Transfer id and
// failure reason are cleared when nil.
func (r *repository) RecordOutcome(ctx context.Context, id uuid.UUID, outcome Outcome) error {
	res := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         outcome.Status,
			"transfer_id":    outcome.TransferID,
			"failure_reason": outcome.FailureReason,
			"attempts":       outcome.Attempts,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
