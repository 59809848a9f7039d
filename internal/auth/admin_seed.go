package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/cafe-backend/internal/users"
	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/db"
	"github.com/angelmondragon/cafe-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
	"github.com/angelmondragon/cafe-backend/pkg/security"
)

// SeedAdmin creates the configured admin account, or promotes and resets the
// password of an existing account with the same email. It reports whether a
// new row was created.
func SeedAdmin(ctx context.Context, runner db.TxRunner, passwordCfg config.PasswordConfig, admin config.AdminConfig) (bool, error) {
	email := users.NormalizeEmail(admin.Email)
	if email == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "admin email is required")
	}
	if err := checkPassword(admin.Password); err != nil {
		return false, err
	}
	name := strings.TrimSpace(admin.Name)
	if name == "" {
		name = "Admin"
	}

	hash, err := security.HashPassword(admin.Password, passwordCfg)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	created := false
	err = runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)
		existing, err := repo.FindByEmail(ctx, email)
		switch {
		case err == nil:
			return repo.PromoteToAdmin(ctx, existing.ID, hash)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find admin")
		}
		if _, err := repo.Create(ctx, users.NewUser{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         enums.UserRoleAdmin,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create admin")
		}
		created = true
		return nil
	})
	return created, err
}
