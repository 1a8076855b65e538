package product

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/internal/repo"
	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/pagination"
)

// Repository reads visible storefront listings.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) visible(ctx context.Context) *gorm.DB {
	return r.DB(ctx).
		Model(&models.Product{}).
		Preload("Category").
		Preload("SupplierProduct").
		Where("products.is_visible = ?", true)
}

// ListVisible returns up to limit+1 products newest first so the caller can
// tell whether another page exists.
func (r *Repository) ListVisible(ctx context.Context, filters ProductListFilters, cursor *pagination.Cursor, limit int) ([]models.Product, error) {
	qb := r.visible(ctx)
	if filters.CategorySlug != nil {
		qb = qb.Where("products.category_id IN (?)",
			r.DB(ctx).Model(&models.Category{}).Select("id").Where("slug = ?", *filters.CategorySlug))
	}
	if filters.Featured != nil {
		qb = qb.Where("products.is_featured = ?", *filters.Featured)
	}
	if filters.PriceMin != nil {
		qb = qb.Where("products.selling_price >= ?", *filters.PriceMin)
	}
	if filters.PriceMax != nil {
		qb = qb.Where("products.selling_price <= ?", *filters.PriceMax)
	}
	if search := strings.TrimSpace(filters.Query); search != "" {
		qb = qb.Where("LOWER(products.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var products []models.Product
	err := pagination.Apply(qb, cursor, limit, "products").Find(&products).Error
	return products, err
}

func (r *Repository) FindVisibleBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.visible(ctx).Where("products.slug = ?", slug).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
