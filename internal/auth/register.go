package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/cafe-backend/internal/users"
	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
	"github.com/angelmondragon/cafe-backend/pkg/security"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// RegisterService opens customer accounts. Admins only come from SeedAdmin.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.Profile, error)
}

type RegisterServiceParams struct {
	DB             db.TxRunner
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          db.TxRunner
	passwordCfg config.PasswordConfig
}

func NewRegisterService(p RegisterServiceParams) (RegisterService, error) {
	if p.DB == nil {
		return nil, errors.New("database client is required")
	}
	return &registerService{db: p.DB, passwordCfg: p.PasswordConfig}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.Profile, error) {
	name := strings.TrimSpace(req.Name)
	email := users.NormalizeEmail(req.Email)
	switch {
	case name == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case email == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if err := checkPassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var profile *users.Profile
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)
		_, err := repo.FindByEmail(ctx, email)
		switch {
		case err == nil:
			return errEmailTaken(nil)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check email")
		}

		user, err := repo.Create(ctx, users.NewUser{Name: name, Email: email, PasswordHash: hash})
		if db.IsUniqueViolation(err, "email") {
			return errEmailTaken(err)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create account")
		}
		profile = users.NewProfile(user)
		return nil
	})
	return profile, err
}

func errEmailTaken(cause error) error {
	if cause == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, cause, "email already registered")
}
