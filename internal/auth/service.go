// Package auth signs accounts in and up. Access tokens are short-lived JWTs
// whose jti keys the refresh session held in redis.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/cafe-backend/internal/users"
	pkgAuth "github.com/angelmondragon/cafe-backend/pkg/auth"
	"github.com/angelmondragon/cafe-backend/pkg/auth/session"
	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
	"github.com/angelmondragon/cafe-backend/pkg/security"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.Profile `json:"user"`
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type accountStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionIssuer interface {
	Generate(ctx context.Context, accessID string) (string, error)
}

// ServiceParams wires a login service. A zero PasswordConfig means the
// minimum argon2 cost.
type ServiceParams struct {
	UserRepo       accountStore
	SessionManager sessionIssuer
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
	Now            func() time.Time
}

type service struct {
	ServiceParams
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.UserRepo == nil:
		return nil, errors.New("user repository is required")
	case p.SessionManager == nil:
		return nil, errors.New("session manager is required")
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &service{ServiceParams: p}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.verify(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	s.upgradeHash(ctx, user, req.Password)

	now := s.Now().UTC()
	if err := s.UserRepo.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record login")
	}
	user.LastLoginAt = &now

	jti := session.NewAccessID()
	access, err := pkgAuth.MintAccessToken(s.JWTConfig, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    jti,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refresh, err := s.SessionManager.Generate(ctx, jti)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open refresh session")
	}

	return &LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         users.NewProfile(user),
	}, nil
}

// verify resolves the account behind the credentials. Every rejection looks
// the same to the caller.
func (s *service) verify(ctx context.Context, email, password string) (*models.User, error) {
	email = users.NormalizeEmail(email)
	if email == "" {
		return nil, errInvalidCredentials()
	}
	user, err := s.UserRepo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidCredentials()
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find account")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok || !user.IsActive || !user.Role.IsValid() {
		return nil, errInvalidCredentials()
	}
	return user, nil
}

// upgradeHash re-derives hashes made under older argon2 settings. A failure
// keeps the old hash and the login proceeds.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	if !security.NeedsRehash(user.PasswordHash, s.PasswordConfig) {
		return
	}
	hash, err := security.HashPassword(password, s.PasswordConfig)
	if err == nil {
		err = s.UserRepo.SetPasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn(s.Logger.WithField(ctx, "error", err.Error()), "auth.rehash_failed")
		}
		return
	}
	user.PasswordHash = hash
}
