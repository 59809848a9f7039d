package auth

import (
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// errInvalidCredentials covers unknown email, wrong password and disabled
// accounts alike.
func errInvalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func checkPassword(password string) error {
	switch n := utf8.RuneCountInString(password); {
	case n < minPasswordLength:
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters").
			WithDetails(map[string]string{"password": "too short"})
	case n > maxPasswordLength:
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at most 128 characters").
			WithDetails(map[string]string{"password": "too long"})
	}
	return nil
}
