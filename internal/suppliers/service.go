package suppliers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/internal/catalog"
	"github.com/dropmart/dropmart-backend/pkg/db/models"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type repricer interface {
	RepriceTx(ctx context.Context, tx *gorm.DB, scope catalog.PricingScope) (int, error)
}

// Service manages supplier onboarding.
type Service interface {
	List(ctx context.Context) ([]SupplierDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*SupplierDTO, error)
	Create(ctx context.Context, input CreateInput) (*SupplierDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*SupplierDTO, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*SupplierDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	EnsureBuiltin(ctx context.Context, builtin Builtin) (*models.Supplier, error)
}

type CreateInput struct {
	Name            string
	PayoutAccountID *string
	DefaultMarkup   decimal.Decimal
}

// UpdateInput carries optional changes; nil fields are left alone. An empty
// PayoutAccountID clears the destination.
type UpdateInput struct {
	Name            *string
	PayoutAccountID *string
	DefaultMarkup   *decimal.Decimal
}

// Builtin describes a supplier the platform owns itself, such as the
// affiliate catalog import source.
type Builtin struct {
	ID            uuid.UUID
	Name          string
	DefaultMarkup decimal.Decimal
}

type service struct {
	repo     *Repository
	tx       txRunner
	repricer repricer
	logg     *logger.Logger
}

func NewService(repo *Repository, tx txRunner, repricer repricer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("supplier repository required")
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

func (s *service) List(ctx context.Context) ([]SupplierDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	out := make([]SupplierDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SupplierDTO, error) {
	supplier, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return FromModel(supplier), nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*SupplierDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.DefaultMarkup.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "default markup must be >= 0")
	}

	secret, err := security.GenerateWebhookSecret()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate webhook secret")
	}
	supplier := &models.Supplier{
		Name:            name,
		WebhookSecret:   secret,
		PayoutAccountID: normalizeAccount(input.PayoutAccountID),
		DefaultMarkup:   input.DefaultMarkup,
		IsActive:        true,
	}
	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier")
	}

	s.logg.Info(s.logg.WithSupplierID(ctx, supplier.ID.String()), "supplier created")
	dto := FromModel(supplier)
	dto.WebhookSecret = secret
	return dto, nil
}

// Update applies the changes and, when the default markup moved, reprices
// every product of the supplier in the same transaction.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*SupplierDTO, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		updates["name"] = name
	}
	if input.PayoutAccountID != nil {
		updates["payout_account_id"] = normalizeAccount(input.PayoutAccountID)
	}
	if input.DefaultMarkup != nil {
		if input.DefaultMarkup.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "default markup must be >= 0")
		}
		updates["default_markup"] = *input.DefaultMarkup
	}

	var out *models.Supplier
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := repo.Update(ctx, id, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier")
			}
		}
		if input.DefaultMarkup != nil && !input.DefaultMarkup.Equal(current.DefaultMarkup) {
			changed, err := s.repricer.RepriceTx(ctx, tx, catalog.PricingScope{SupplierID: &id})
			if err != nil {
				return err
			}
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"supplier_id": id.String(),
				"repriced":    changed,
			}), "supplier markup changed")
		}
		out, err = s.load(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return FromModel(out), nil
}

// SetActive toggles whether the supplier's webhooks are accepted and its
// payouts dispatched.
func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*SupplierDTO, error) {
	if err := s.repo.Update(ctx, id, map[string]any{"is_active": active}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier")
	}
	return s.Get(ctx, id)
}

// Delete removes a supplier that no order references. Suppliers with order
// history must be deactivated instead.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.load(ctx, repo, id); err != nil {
			return err
		}
		referenced, err := repo.CountOrderItems(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count order items")
		}
		if referenced > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "supplier has orders; deactivate it instead").
				WithDetails(map[string]any{"order_items": referenced})
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete supplier")
		}
		return nil
	})
}

// EnsureBuiltin creates the builtin supplier on first use and returns it.
func (s *service) EnsureBuiltin(ctx context.Context, builtin Builtin) (*models.Supplier, error) {
	if builtin.ID == uuid.Nil || strings.TrimSpace(builtin.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "builtin supplier needs an id and a name")
	}
	existing, err := s.repo.FindByID(ctx, builtin.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load builtin supplier")
	}

	secret, err := security.GenerateWebhookSecret()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate webhook secret")
	}
	supplier := &models.Supplier{
		ID:            builtin.ID,
		Name:          builtin.Name,
		WebhookSecret: secret,
		DefaultMarkup: builtin.DefaultMarkup,
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create builtin supplier")
	}
	s.logg.Info(s.logg.WithSupplierID(ctx, supplier.ID.String()), "builtin supplier created")
	return supplier, nil
}

func (s *service) load(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	return supplier, nil
}

func normalizeAccount(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
