// Package invite generates and normalizes the short human-shareable codes
// that resolve to exactly one household.
package invite

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// CodeLength is the number of characters in a generated invite code.
const CodeLength = 6

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generate returns a random uppercase alphanumeric code. Codes are short by
// design so collisions are possible; callers must confirm uniqueness against
// the household directory and retry with a fresh candidate on conflict.
func Generate() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Normalize trims surrounding whitespace and uppercases a user-supplied
// code so that " a1b2c3 ", "A1B2C3" and "a1b2c3" all resolve identically.
// Returns the empty string for blank input.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
