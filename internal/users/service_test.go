package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropmart/dropmart-backend/pkg/db/dbtest"
	"github.com/dropmart/dropmart-backend/pkg/db/models"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
)

func TestEnsureAdminCreatesThenIsIdempotent(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()), client, logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.EnsureAdmin(ctx, "  Admin@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", first.Email)
	assert.Equal(t, enums.UserRoleAdmin, first.Role)

	second, err := svc.EnsureAdmin(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, client.DB().Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnsureAdminPromotesCustomer(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	existing := &models.User{Email: "shopper@example.com", Role: enums.UserRoleCustomer}
	require.NoError(t, repo.Create(context.Background(), existing))

	svc, err := NewService(repo, client, nil)
	require.NoError(t, err)
	promoted, err := svc.EnsureAdmin(context.Background(), "shopper@example.com")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, promoted.ID)

	stored, err := repo.FindByID(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, stored.Role)
}

func TestEnsureAdminRejectsBadEmail(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()), client, nil)
	require.NoError(t, err)

	_, err = svc.EnsureAdmin(context.Background(), "not-an-email")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Get(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
