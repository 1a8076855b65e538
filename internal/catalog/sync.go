package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/types"
)

// SyncInput is one supplier catalog event.
type SyncInput struct {
	SupplierID uuid.UUID
	Event      string
	Product    ProductPayload
}

// SyncResult summarizes what a sync changed.
type SyncResult struct {
	Event             enums.SupplierEvent `json:"event"`
	SupplierProductID *uuid.UUID          `json:"supplier_product_id,omitempty"`
	RepricedProductID *uuid.UUID          `json:"repriced_product_id,omitempty"`
	Deleted           int64               `json:"deleted,omitempty"`
}

// Sync applies a supplier catalog event in one transaction. Created and
// updated events upsert the mirror row and refresh the listing published
// from it; deleted events remove both. Replaying an event is harmless.
func (s *service) Sync(ctx context.Context, input SyncInput) (*SyncResult, error) {
	event, err := enums.ParseSupplierEvent(input.Event)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnknownEvent, "unknown supplier event").
			WithDetails(map[string]any{"event": input.Event})
	}
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	if err := input.Product.validate(event.IsUpsert()); err != nil {
		return nil, err
	}

	result := &SyncResult{Event: event}
	ctx = s.logg.WithSupplierID(ctx, input.SupplierID.String())

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindSupplier(ctx, input.SupplierID); err != nil {
			if isNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
		}

		if !event.IsUpsert() {
			deleted, err := s.deleteMirrored(ctx, repo, input.SupplierID, input.Product.ExternalID)
			result.Deleted = deleted
			return err
		}
		return s.upsertMirrored(ctx, repo, input, result)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event":       string(event),
		"external_id": input.Product.ExternalID,
	}), "supplier catalog synced")
	return result, nil
}

func (s *service) deleteMirrored(ctx context.Context, repo *Repository, supplierID uuid.UUID, externalID string) (int64, error) {
	ids, err := repo.SupplierProductIDsByExternal(ctx, supplierID, externalID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find supplier products")
	}
	if _, err := repo.DeleteProductsBySupplierProducts(ctx, ids); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete published products")
	}
	deleted, err := repo.DeleteSupplierProducts(ctx, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete supplier products")
	}
	return deleted, nil
}

func (s *service) upsertMirrored(ctx context.Context, repo *Repository, input SyncInput, result *SyncResult) error {
	p := input.Product
	images := types.StringList(p.ImageURLs)
	if images == nil {
		images = types.StringList{}
	}
	var metadata datatypes.JSONMap
	if len(p.Extra) > 0 {
		metadata = datatypes.JSONMap(p.Extra)
	}

	row := &models.SupplierProduct{
		SupplierID:     input.SupplierID,
		ExternalID:     p.ExternalID,
		Title:          p.Title,
		Description:    p.Description,
		WholesalePrice: p.WholesalePrice.Round(2),
		ImageURLs:      images,
		InventoryCount: p.InventoryCount,
		Metadata:       metadata,
	}
	if err := repo.UpsertSupplierProduct(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert supplier product")
	}

	stored, err := repo.FindSupplierProductByExternal(ctx, input.SupplierID, p.ExternalID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload supplier product")
	}
	result.SupplierProductID = &stored.ID

	product, err := repo.FindProductBySupplierProduct(ctx, stored.ID)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load published product")
	}

	inputs, err := inputsFor(product)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price inputs")
	}
	updates := map[string]any{
		"name":          stored.Title,
		"description":   stored.Description,
		"image_urls":    stored.ImageURLs,
		"selling_price": inputs.sellingPrice(),
	}
	if err := repo.UpdateProduct(ctx, product.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh published product")
	}
	result.RepricedProductID = &product.ID
	return nil
}
