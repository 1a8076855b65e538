package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/pkg/db/models"
)

// Repository loads the catalog rows checkout prices against.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPurchasable(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindPurchasable returns the visible products among ids together with their
// supplier product. Hidden or unknown ids are silently absent.
func (r *repository) FindPurchasable(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("SupplierProduct").
		Where("id IN ? AND is_visible = ?", ids, true).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
