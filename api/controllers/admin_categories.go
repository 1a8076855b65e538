package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dropmart/dropmart-backend/api/responses"
	"github.com/dropmart/dropmart-backend/api/validators"
	"github.com/dropmart/dropmart-backend/internal/categories"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
)

type upsertCategoryRequest struct {
	Name          string          `json:"name" validate:"required,max=120"`
	Slug          string          `json:"slug,omitempty" validate:"omitempty,max=120"`
	DefaultMarkup decimal.Decimal `json:"default_markup"`
	ImageURL      *string         `json:"image_url,omitempty" validate:"omitempty,url"`
}

// AdminCategoryUpsert creates or updates the category keyed by slug.
func AdminCategoryUpsert(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}
		var payload upsertCategoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.Upsert(r.Context(), categories.UpsertInput{
			Name:          payload.Name,
			Slug:          payload.Slug,
			DefaultMarkup: payload.DefaultMarkup,
			ImageURL:      payload.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

func AdminCategoryDelete(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
