package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/cafe-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
)

// Identity is the authenticated caller as read from the access token.
type Identity struct {
	UserID uuid.UUID
	Role   enums.UserRole
	// SessionID is the token's jti.
	SessionID string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.UserID == uuid.Nil {
		return Identity{}, false
	}
	return id, true
}

// Caller is IdentityFrom for handlers mounted behind Auth; a missing
// identity is reported as UNAUTHORIZED.
func Caller(ctx context.Context) (Identity, error) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}
	return id, nil
}
