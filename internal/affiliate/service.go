// Package affiliate imports AliExpress affiliate search results into the
// catalog as products of the builtin AliExpress supplier.
package affiliate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dropmart/dropmart-backend/internal/catalog"
	"github.com/dropmart/dropmart-backend/internal/suppliers"
	"github.com/dropmart/dropmart-backend/pkg/aliexpress"
	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
)

// BuiltinSupplierID is the fixed id of the AliExpress supplier.
var BuiltinSupplierID = uuid.MustParse("6f1c4b0e-7a35-4d2e-9c1a-a1e0e0000001")

// BuiltinSupplier is the platform-owned supplier imports land in.
var BuiltinSupplier = suppliers.Builtin{
	ID:            BuiltinSupplierID,
	Name:          "AliExpress",
	DefaultMarkup: decimal.RequireFromString("0.35"),
}

// Searcher queries the affiliate product catalog.
type Searcher interface {
	Search(ctx context.Context, keywords string, page, pageSize int) (aliexpress.SearchResult, error)
}

type builtinEnsurer interface {
	EnsureBuiltin(ctx context.Context, builtin suppliers.Builtin) (*models.Supplier, error)
}

type catalogSync interface {
	Sync(ctx context.Context, input catalog.SyncInput) (*catalog.SyncResult, error)
	ExistingExternalIDs(ctx context.Context, supplierID uuid.UUID, externalIDs []string) ([]string, error)
}

// Service is the admin surface over the affiliate catalog.
type Service interface {
	Search(ctx context.Context, keywords string, page int) (*SearchResult, error)
	Import(ctx context.Context, product aliexpress.Product) (*catalog.SyncResult, error)
}

// SearchHit is a search result annotated with whether it was imported before.
type SearchHit struct {
	aliexpress.Product
	Imported bool `json:"imported"`
}

type SearchResult struct {
	Products []SearchHit `json:"products"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
}

type service struct {
	client    Searcher
	suppliers builtinEnsurer
	catalog   catalogSync
	pageSize  int
	logg      *logger.Logger
}

// NewService wires the import flow. client may be nil when the affiliate API
// is not configured; searches then fail with a dependency error.
func NewService(client Searcher, suppliers builtinEnsurer, catalog catalogSync, logg *logger.Logger) (Service, error) {
	if suppliers == nil {
		return nil, fmt.Errorf("supplier service required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{client: client, suppliers: suppliers, catalog: catalog, pageSize: 20, logg: logg}, nil
}

func (s *service) Search(ctx context.Context, keywords string, page int) (*SearchResult, error) {
	if s.client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "aliexpress integration not configured")
	}
	if page < 1 {
		page = 1
	}
	res, err := s.client.Search(ctx, keywords, page, s.pageSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aliexpress search failed")
	}

	ids := make([]string, 0, len(res.Products))
	for _, p := range res.Products {
		ids = append(ids, p.ID)
	}
	imported := map[string]struct{}{}
	if len(ids) > 0 {
		existing, err := s.catalog.ExistingExternalIDs(ctx, BuiltinSupplierID, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range existing {
			imported[id] = struct{}{}
		}
	}

	out := &SearchResult{Products: make([]SearchHit, 0, len(res.Products)), Total: res.Total, Page: page}
	for _, p := range res.Products {
		_, seen := imported[p.ID]
		out.Products = append(out.Products, SearchHit{Product: p, Imported: seen})
	}
	return out, nil
}

func (s *service) Import(ctx context.Context, product aliexpress.Product) (*catalog.SyncResult, error) {
	product.ID = strings.TrimSpace(product.ID)
	product.Title = strings.TrimSpace(product.Title)
	if product.ID == "" || product.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id and title are required")
	}
	if !product.SalePrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale price must be positive")
	}

	if _, err := s.suppliers.EnsureBuiltin(ctx, BuiltinSupplier); err != nil {
		return nil, err
	}

	price := product.SalePrice
	payload := catalog.ProductPayload{
		ExternalID:     product.ID,
		Title:          product.Title,
		WholesalePrice: &price,
		Extra: map[string]any{
			"originalPrice": product.OriginalPrice.String(),
			"currency":      product.Currency,
			"detailUrl":     product.DetailURL,
			"category":      product.Category,
			"rating":        product.Rating.String(),
		},
	}
	if img := normalizeImageURL(product.ImageURL); img != "" {
		payload.ImageURLs = []string{img}
	}

	res, err := s.catalog.Sync(ctx, catalog.SyncInput{
		SupplierID: BuiltinSupplierID,
		Event:      string(enums.SupplierEventProductUpdated),
		Product:    payload,
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "external_id", product.ID), "aliexpress product imported")
	return res, nil
}

// normalizeImageURL turns protocol-relative CDN links into https URLs.
func normalizeImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}
