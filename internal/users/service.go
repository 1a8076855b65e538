package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service covers the user operations this backend owns. Identities are
// issued elsewhere; here we only promote admins and resolve users.
type Service interface {
	EnsureAdmin(ctx context.Context, email string) (*UserDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
}

type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
}

func NewService(repo *Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("users repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

// EnsureAdmin creates the user with the admin role, or promotes an existing
// user. Calling it repeatedly is a no-op.
func (s *service) EnsureAdmin(ctx context.Context, email string) (*UserDTO, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(normalized); err != nil || normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid admin email required")
	}

	var out *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindByEmail(ctx, normalized)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = &models.User{Email: normalized, Role: enums.UserRoleAdmin}
			if err := repo.Create(ctx, user); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create admin user")
			}
			out = user
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup admin user")
		}
		if user.Role != enums.UserRoleAdmin {
			if err := repo.UpdateRole(ctx, user.ID, enums.UserRoleAdmin); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote admin user")
			}
			user.Role = enums.UserRoleAdmin
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, out.ID.String()), "admin user ensured")
	}
	return FromModel(out), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}
