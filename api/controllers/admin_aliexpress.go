package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dropmart/dropmart-backend/api/responses"
	"github.com/dropmart/dropmart-backend/api/validators"
	"github.com/dropmart/dropmart-backend/internal/affiliate"
	"github.com/dropmart/dropmart-backend/pkg/aliexpress"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
)

const maxAffiliatePage = 50

type importRequest struct {
	ID            string          `json:"id" validate:"required"`
	Title         string          `json:"title" validate:"required"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Currency      string          `json:"currency,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	DetailURL     string          `json:"detail_url,omitempty"`
	Category      string          `json:"category,omitempty"`
	Rating        decimal.Decimal `json:"rating"`
}

// AdminAliExpressSearch queries the affiliate catalog and flags hits that
// were already imported.
func AdminAliExpressSearch(svc affiliate.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "affiliate service unavailable"))
			return
		}
		keywords := validators.SanitizeString(r.URL.Query().Get("q"), maxSearchLength)
		if strings.TrimSpace(keywords) == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "q is required").WithDetails(map[string]any{"field": "q"}))
			return
		}
		page, err := validators.ParseQueryInt(r, "page", 1, 1, maxAffiliatePage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Search(r.Context(), keywords, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminAliExpressImport upserts a search hit into the built-in supplier.
func AdminAliExpressImport(svc affiliate.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "affiliate service unavailable"))
			return
		}
		var payload importRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Import(r.Context(), aliexpress.Product{
			ID:            payload.ID,
			Title:         payload.Title,
			SalePrice:     payload.SalePrice,
			OriginalPrice: payload.OriginalPrice,
			Currency:      payload.Currency,
			ImageURL:      payload.ImageURL,
			DetailURL:     payload.DetailURL,
			Category:      payload.Category,
			Rating:        payload.Rating,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
