package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeLength is the length of confirmation and password-reset codes.
const CodeLength = 6

var codeSpace = big.NewInt(1000000)

// GenerateCode produces a random 6-digit numeric code, zero-padded so
// leading zeros are preserved. The same code format is used for account
// confirmation and password reset. Uniqueness across users is not enforced;
// with a one-in-a-million space a collision would let one user's code match
// another's pending slot.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
