package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dropmart/dropmart-backend/pkg/db/models"
)

// Repository persists supplier products and their published listings.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// UpsertSupplierProduct inserts sp or, when (supplier_id, external_id)
// already exists, overwrites the supplier-owned columns in place. The
// existing row keeps its id and created_at.
func (r *Repository) UpsertSupplierProduct(ctx context.Context, sp *models.SupplierProduct) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "supplier_id"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title",
				"description",
				"wholesale_price",
				"image_urls",
				"inventory_count",
				"metadata",
				"updated_at",
			}),
		}).
		Create(sp).Error
}

func (r *Repository) FindSupplierProduct(ctx context.Context, id uuid.UUID) (*models.SupplierProduct, error) {
	var sp models.SupplierProduct
	if err := r.db.WithContext(ctx).Preload("Supplier").First(&sp, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sp, nil
}

func (r *Repository) FindSupplierProductByExternal(ctx context.Context, supplierID uuid.UUID, externalID string) (*models.SupplierProduct, error) {
	var sp models.SupplierProduct
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND external_id = ?", supplierID, externalID).
		First(&sp).Error
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (r *Repository) SupplierProductIDsByExternal(ctx context.Context, supplierID uuid.UUID, externalID string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.SupplierProduct{}).
		Where("supplier_id = ? AND external_id = ?", supplierID, externalID).
		Pluck("id", &ids).Error
	return ids, err
}

// ExistingExternalIDs returns the subset of externalIDs the supplier already has.
func (r *Repository) ExistingExternalIDs(ctx context.Context, supplierID uuid.UUID, externalIDs []string) ([]string, error) {
	if len(externalIDs) == 0 {
		return []string{}, nil
	}
	var found []string
	err := r.db.WithContext(ctx).
		Model(&models.SupplierProduct{}).
		Where("supplier_id = ? AND external_id IN ?", supplierID, externalIDs).
		Pluck("external_id", &found).Error
	return found, err
}

func (r *Repository) DeleteProductsBySupplierProducts(ctx context.Context, supplierProductIDs []uuid.UUID) (int64, error) {
	if len(supplierProductIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("supplier_product_id IN ?", supplierProductIDs).
		Delete(&models.Product{})
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteSupplierProducts(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.SupplierProduct{})
	return res.RowsAffected, res.Error
}

func (r *Repository) withPricing() *gorm.DB {
	return r.db.Preload("Category").Preload("SupplierProduct.Supplier")
}

// FindProduct loads a product with everything its price depends on.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.withPricing().WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductBySupplierProduct returns the listing published from spID.
func (r *Repository) FindProductBySupplierProduct(ctx context.Context, spID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.withPricing().WithContext(ctx).First(&product, "supplier_product_id = ?", spID).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// PricingScope narrows which products a reprice touches. Zero fields are
// ignored; an empty scope matches every product.
type PricingScope struct {
	ProductID  *uuid.UUID
	SupplierID *uuid.UUID
	CategoryID *uuid.UUID
}

func (r *Repository) ListProductsForPricing(ctx context.Context, scope PricingScope) ([]models.Product, error) {
	q := r.withPricing().WithContext(ctx).Model(&models.Product{})
	if scope.ProductID != nil {
		q = q.Where("id = ?", *scope.ProductID)
	}
	if scope.CategoryID != nil {
		q = q.Where("category_id = ?", *scope.CategoryID)
	}
	if scope.SupplierID != nil {
		q = q.Where("supplier_product_id IN (?)",
			r.db.Model(&models.SupplierProduct{}).Select("id").Where("supplier_id = ?", *scope.SupplierID))
	}
	var products []models.Product
	err := q.Order("created_at ASC").Find(&products).Error
	return products, err
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

// UpdateProduct applies column updates and reports gorm.ErrRecordNotFound
// when no row matched.
func (r *Repository) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SlugExists satisfies slug.Prober.
func (r *Repository) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{}).Where("slug = ?", slug)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := q.Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SupplierProductRow is one line of the admin supplier catalog view.
type SupplierProductRow struct {
	models.SupplierProduct
	SupplierName       string     `gorm:"column:supplier_name"`
	PublishedProductID *uuid.UUID `gorm:"column:published_product_id"`
}

// SupplierProductFilter narrows the admin supplier catalog listing.
type SupplierProductFilter struct {
	SupplierID  *uuid.UUID
	Unpublished bool
	Limit       int
	Offset      int
}

// ListSupplierProducts lists supplier products with unpublished rows first,
// newest first within each group.
func (r *Repository) ListSupplierProducts(ctx context.Context, f SupplierProductFilter) ([]SupplierProductRow, int64, error) {
	base := r.db.WithContext(ctx).
		Table("supplier_products").
		Joins("JOIN suppliers ON suppliers.id = supplier_products.supplier_id").
		Joins("LEFT JOIN products ON products.supplier_product_id = supplier_products.id")
	if f.SupplierID != nil {
		base = base.Where("supplier_products.supplier_id = ?", *f.SupplierID)
	}
	if f.Unpublished {
		base = base.Where("products.id IS NULL")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []SupplierProductRow
	err := base.Session(&gorm.Session{}).
		Select("supplier_products.*, suppliers.name AS supplier_name, products.id AS published_product_id").
		Order("CASE WHEN products.id IS NULL THEN 0 ELSE 1 END").
		Order("supplier_products.created_at DESC").
		Order("supplier_products.id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
