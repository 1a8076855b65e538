package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/dropmart/dropmart-backend/api/responses"
	"github.com/dropmart/dropmart-backend/api/validators"
	"github.com/dropmart/dropmart-backend/internal/catalog"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/signature"
)

type SupplierWebhookService interface {
	Handle(ctx context.Context, supplierID uuid.UUID, body []byte, presented string) (*catalog.SyncResult, error)
}

// SupplierWebhook receives catalog events pushed by a supplier. The raw body
// is handed over untouched because the signature covers its exact bytes.
func SupplierWebhook(svc SupplierWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier webhook not configured"))
			return
		}

		supplierID, err := validators.ParseUUIDParam(r, "supplierId")
		if err != nil {
			// an unparseable id can never name a supplier
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found"))
			return
		}
		if logg != nil {
			ctx = logg.WithSupplierID(ctx, supplierID.String())
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		if _, err := svc.Handle(ctx, supplierID, body, r.Header.Get(signature.HeaderName)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteOK(w)
	}
}
