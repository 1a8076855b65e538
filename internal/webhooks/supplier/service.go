// Package supplierwebhook authenticates inbound supplier catalog events and
// hands them to catalog sync.
package supplierwebhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/internal/catalog"
	"github.com/dropmart/dropmart-backend/pkg/db/models"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/metrics"
	"github.com/dropmart/dropmart-backend/pkg/signature"
)

type supplierLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
}

type syncer interface {
	Sync(ctx context.Context, input catalog.SyncInput) (*catalog.SyncResult, error)
}

// Service verifies and applies one supplier webhook delivery.
type Service struct {
	suppliers supplierLookup
	catalog   syncer
	metrics   *metrics.SettlementMetrics
	logg      *logger.Logger
}

func NewService(suppliers supplierLookup, catalog syncer, m *metrics.SettlementMetrics, logg *logger.Logger) (*Service, error) {
	if suppliers == nil {
		return nil, fmt.Errorf("supplier lookup required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog sync required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{suppliers: suppliers, catalog: catalog, metrics: m, logg: logg}, nil
}

// Handle authenticates body against the supplier's secret before parsing it.
// Unknown and inactive suppliers are indistinguishable to the caller.
func (s *Service) Handle(ctx context.Context, supplierID uuid.UUID, body []byte, presented string) (*catalog.SyncResult, error) {
	ctx = s.logg.WithSupplierID(ctx, supplierID.String())
	supplier, err := s.suppliers.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.IncWebhook("supplier", "unknown_supplier")
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load supplier")
	}
	if !supplier.IsActive {
		s.metrics.IncWebhook("supplier", "unknown_supplier")
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}

	if !signature.Verify(body, presented, supplier.WebhookSecret) {
		s.metrics.IncWebhook("supplier", "rejected_signature")
		s.logg.Warn(ctx, "supplier webhook signature mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature")
	}

	payload, err := catalog.ParseWebhookPayload(body)
	if err != nil {
		s.metrics.IncWebhook("supplier", "malformed")
		return nil, err
	}
	res, err := s.catalog.Sync(ctx, catalog.SyncInput{
		SupplierID: supplierID,
		Event:      payload.Event,
		Product:    payload.Product,
	})
	if err != nil {
		s.metrics.IncWebhook("supplier", string(pkgerrors.As(err).Code()))
		return nil, err
	}
	s.metrics.IncWebhook("supplier", "accepted")
	return res, nil
}
