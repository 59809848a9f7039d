package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cafe-backend/internal/users"
	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cafe-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
	"github.com/angelmondragon/cafe-backend/pkg/security"
)

func TestSeedAdminCreatesThenPromotes(t *testing.T) {
	client, conn := dbtest.Client(t)
	ctx := context.Background()
	repo := users.NewRepository(conn)

	created, err := SeedAdmin(ctx, client, config.PasswordConfig{}, config.AdminConfig{Email: " Boss@Cafe.test ", Password: "first-password"})
	require.NoError(t, err)
	assert.True(t, created)

	stored, err := repo.FindByEmail(ctx, "boss@cafe.test")
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, stored.Role)
	assert.Equal(t, "Admin", stored.Name)

	created, err = SeedAdmin(ctx, client, config.PasswordConfig{}, config.AdminConfig{Email: "boss@cafe.test", Password: "second-password"})
	require.NoError(t, err)
	assert.False(t, created)

	stored, err = repo.FindByEmail(ctx, "boss@cafe.test")
	require.NoError(t, err)
	ok, err := security.VerifyPassword("second-password", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSeedAdminPromotesExistingCustomer(t *testing.T) {
	client, conn := dbtest.Client(t)
	ctx := context.Background()
	repo := users.NewRepository(conn)
	customer, err := repo.Create(ctx, users.NewUser{Name: "Cam", Email: "cam@cafe.test", PasswordHash: "x"})
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleCustomer, customer.Role)

	_, err = SeedAdmin(ctx, client, config.PasswordConfig{}, config.AdminConfig{Email: "cam@cafe.test", Password: "promoted-pass"})
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, stored.Role)
	assert.Equal(t, "Cam", stored.Name)
}

func TestSeedAdminValidation(t *testing.T) {
	client, _ := dbtest.Client(t)
	_, err := SeedAdmin(context.Background(), client, config.PasswordConfig{}, config.AdminConfig{Password: "long-enough"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = SeedAdmin(context.Background(), client, config.PasswordConfig{}, config.AdminConfig{Email: "a@b.c", Password: "short"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
