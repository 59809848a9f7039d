package checkout

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const orderNumberPrefix = "ORD-"

// NumberGenerator produces candidate order numbers. Uniqueness is enforced
// by the database; PlaceOrder retries on collision.
type NumberGenerator func() (string, error)

// GenerateOrderNumber returns "ORD-" followed by 13 upper-case hex characters.
func GenerateOrderNumber() (string, error) {
	buf := make([]byte, 7)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	token := strings.ToUpper(hex.EncodeToString(buf))[:13]
	return orderNumberPrefix + token, nil
}
