package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dropmart/dropmart-backend/api/middleware"
	"github.com/dropmart/dropmart-backend/api/responses"
	"github.com/dropmart/dropmart-backend/api/validators"
	checkoutsvc "github.com/dropmart/dropmart-backend/internal/checkout"
	pkgcheckout "github.com/dropmart/dropmart-backend/pkg/checkout"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/types"
)

type checkoutRequest struct {
	Items           []checkoutItemRequest `json:"items"`
	ShippingAddress *types.Address        `json:"shipping_address,omitempty"`
}

// checkoutItemRequest carries only what the caller chooses; any price the
// client sends alongside is ignored.
type checkoutItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func (r checkoutRequest) lines() []pkgcheckout.Line {
	lines := make([]pkgcheckout.Line, 0, len(r.Items))
	for _, item := range r.Items {
		lines = append(lines, pkgcheckout.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// Checkout prices the caller's cart from the catalog, creates a pending
// order and returns the client secret for the payment authorization.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var address *types.Address
		if payload.ShippingAddress != nil && !payload.ShippingAddress.IsEmpty() {
			address = payload.ShippingAddress
		}

		result, err := svc.Initiate(ctx, checkoutsvc.Input{
			UserID:          userID,
			Lines:           payload.lines(),
			ShippingAddress: address,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
