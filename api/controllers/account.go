package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/angelmondragon/cafe-backend/api/middleware"
	"github.com/angelmondragon/cafe-backend/api/responses"
	"github.com/angelmondragon/cafe-backend/api/validators"
	"github.com/angelmondragon/cafe-backend/internal/auth"
	pkgAuth "github.com/angelmondragon/cafe-backend/pkg/auth"
	"github.com/angelmondragon/cafe-backend/pkg/auth/session"
	"github.com/angelmondragon/cafe-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
)

type sessionTokenRotator interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func unavailable(what string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, what+" unavailable")
}

// AuthLogin exchanges credentials for an access and refresh token pair.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.LoginRequest
		err := validators.DecodeJSONBody(r, &body)
		if err == nil && svc == nil {
			err = unavailable("auth service")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tokens, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tokens)
	}
}

// AuthRegister opens a customer account and signs it straight in.
func AuthRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.RegisterRequest
		err := validators.DecodeJSONBody(r, &body)
		if err == nil && (reg == nil || svc == nil) {
			err = unavailable("auth service")
		}
		if err == nil {
			_, err = reg.Register(r.Context(), body)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tokens, err := svc.Login(r.Context(), auth.LoginRequest{Email: body.Email, Password: body.Password})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tokens)
	}
}

// lapsedClaims reads the bearer token without enforcing expiry, so logout
// and refresh still work once the access token has run out.
func lapsedClaims(r *http.Request, cfg config.JWTConfig) (*pkgAuth.AccessTokenClaims, error) {
	token := middleware.BearerToken(r)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

// AuthLogout drops the refresh session behind the presented access token.
func AuthLogout(sessions sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("session store"))
			return
		}
		claims, err := lapsedClaims(r, cfg)
		if err == nil {
			if revokeErr := sessions.Revoke(r.Context(), claims.ID); revokeErr != nil {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, revokeErr, "revoke session")
			}
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh trades a refresh token for a new pair. The old refresh token
// stops working.
func AuthRefresh(sessions sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("session store"))
			return
		}
		pair, err := refresh(r, sessions, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pair)
	}
}

func refresh(r *http.Request, sessions sessionTokenRotator, cfg config.JWTConfig) (*refreshResponse, error) {
	var body refreshRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return nil, err
	}
	claims, err := lapsedClaims(r, cfg)
	if err != nil {
		return nil, err
	}

	jti, refreshToken, err := sessions.Rotate(r.Context(), claims.ID, body.RefreshToken)
	switch {
	case errors.Is(err, session.ErrInvalidRefreshToken):
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	access, err := pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: claims.UserID,
		Role:   claims.Role,
		JTI:    jti,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &refreshResponse{AccessToken: access, RefreshToken: refreshToken}, nil
}
