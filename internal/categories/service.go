package categories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/internal/catalog"
	"github.com/dropmart/dropmart-backend/pkg/db/models"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/slug"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type repricer interface {
	RepriceTx(ctx context.Context, tx *gorm.DB, scope catalog.PricingScope) (int, error)
}

type Service interface {
	List(ctx context.Context) ([]CategoryDTO, error)
	Upsert(ctx context.Context, input UpsertInput) (*CategoryDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UpsertInput is keyed by Slug; an empty slug is derived from Name.
type UpsertInput struct {
	Name          string
	Slug          string
	DefaultMarkup decimal.Decimal
	ImageURL      *string
}

type CategoryDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	DefaultMarkup decimal.Decimal `json:"default_markup"`
	ImageURL      *string         `json:"image_url,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func FromModel(c *models.Category) *CategoryDTO {
	return &CategoryDTO{
		ID:            c.ID,
		Name:          c.Name,
		Slug:          c.Slug,
		DefaultMarkup: c.DefaultMarkup,
		ImageURL:      c.ImageURL,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

type service struct {
	repo     *Repository
	tx       txRunner
	repricer repricer
	logg     *logger.Logger
}

func NewService(repo *Repository, tx txRunner, repricer repricer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("category repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if repricer == nil {
		return nil, errors.New("repricer required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, repricer: repricer, logg: logg}, nil
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// Upsert creates the category or updates the one holding the slug. A changed
// default markup reprices the category's products in the same transaction.
func (s *service) Upsert(ctx context.Context, input UpsertInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.DefaultMarkup.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "default markup must be >= 0")
	}
	key := strings.TrimSpace(input.Slug)
	if key == "" {
		key = name
	}
	key = slug.Normalize(key)

	var out *models.Category
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindBySlug(ctx, key)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			out = &models.Category{Name: name, Slug: key, DefaultMarkup: input.DefaultMarkup, ImageURL: input.ImageURL}
			if err := repo.Create(ctx, out); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
			}
			return nil
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}

		err = repo.Update(ctx, existing.ID, map[string]any{
			"name":           name,
			"default_markup": input.DefaultMarkup,
			"image_url":      input.ImageURL,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
		}
		if !existing.DefaultMarkup.Equal(input.DefaultMarkup) {
			if _, err := s.repricer.RepriceTx(ctx, tx, catalog.PricingScope{CategoryID: &existing.ID}); err != nil {
				return err
			}
		}
		out, err = repo.FindByID(ctx, existing.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload category")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(out), nil
}

// Delete detaches the category from its products, reprices them without it
// and removes the category.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		detached, err := repo.DetachProducts(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach products")
		}
		deleted, err := repo.Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
		}
		if deleted == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		for i := range detached {
			if _, err := s.repricer.RepriceTx(ctx, tx, catalog.PricingScope{ProductID: &detached[i]}); err != nil {
				return err
			}
		}
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"category_id": id.String(),
			"detached":    len(detached),
		}), "category deleted")
		return nil
	})
}
