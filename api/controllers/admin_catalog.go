package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dropmart/dropmart-backend/api/responses"
	"github.com/dropmart/dropmart-backend/api/validators"
	"github.com/dropmart/dropmart-backend/internal/catalog"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
)

const maxAdminPage = 500

type publishRequest struct {
	SupplierProductID uuid.UUID        `json:"supplier_product_id" validate:"required"`
	CategoryID        *uuid.UUID       `json:"category_id,omitempty"`
	MarkupOverride    *decimal.Decimal `json:"markup_override,omitempty"`
	Name              *string          `json:"name,omitempty" validate:"omitempty,min=1,max=300"`
	Description       *string          `json:"description,omitempty"`
	IsVisible         *bool            `json:"is_visible,omitempty"`
	IsFeatured        bool             `json:"is_featured"`
}

type detailsRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=300"`
	Description *string `json:"description,omitempty"`
}

type flagRequest struct {
	Value *bool `json:"value" validate:"required"`
}

// markupRequest sets or, with a null markup, clears the product override.
type markupRequest struct {
	Markup *decimal.Decimal `json:"markup"`
}

type categoryAssignRequest struct {
	CategoryID *uuid.UUID `json:"category_id"`
}

// AdminSupplierProducts lists raw supplier inventory, unpublished first.
func AdminSupplierProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		supplierID, err := validators.ParseQueryUUID(r, "supplier_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unpublished, err := validators.ParseQueryBool(r, "unpublished")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseQueryInt(r, "page", 1, 1, maxAdminPage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := catalog.SupplierProductQuery{SupplierID: supplierID, Page: page, Limit: limit}
		if unpublished != nil {
			query.Unpublished = *unpublished
		}
		list, err := svc.ListSupplierProducts(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminProductPublish lists a supplier product on the storefront.
func AdminProductPublish(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		var payload publishRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Publish(r.Context(), catalog.PublishInput{
			SupplierProductID: payload.SupplierProductID,
			CategoryID:        payload.CategoryID,
			MarkupOverride:    payload.MarkupOverride,
			Name:              payload.Name,
			Description:       payload.Description,
			IsVisible:         payload.IsVisible,
			IsFeatured:        payload.IsFeatured,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func AdminProductGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return productAction(svc, logg, func(r *http.Request, id uuid.UUID) (any, error) {
		return svc.GetProduct(r.Context(), id)
	})
}

func AdminProductUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return productAction(svc, logg, func(r *http.Request, id uuid.UUID) (any, error) {
		var payload detailsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.UpdateDetails(r.Context(), id, catalog.DetailsInput{Name: payload.Name, Description: payload.Description})
	})
}

func AdminProductVisibility(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return productAction(svc, logg, func(r *http.Request, id uuid.UUID) (any, error) {
		var payload flagRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.SetVisibility(r.Context(), id, *payload.Value)
	})
}

func AdminProductFeatured(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return productAction(svc, logg, func(r *http.Request, id uuid.UUID) (any, error) {
		var payload flagRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.SetFeatured(r.Context(), id, *payload.Value)
	})
}

func AdminProductMarkup(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return productAction(svc, logg, func(r *http.Request, id uuid.UUID) (any, error) {
		var payload markupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.SetMarkupOverride(r.Context(), id, payload.Markup)
	})
}

func AdminProductCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return productAction(svc, logg, func(r *http.Request, id uuid.UUID) (any, error) {
		var payload categoryAssignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.SetCategory(r.Context(), id, payload.CategoryID)
	})
}

// AdminProductUnpublish removes the listing; the supplier product stays.
func AdminProductUnpublish(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Unpublish(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func productAction(svc catalog.Service, logg *logger.Logger, fn func(*http.Request, uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := fn(r, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}
