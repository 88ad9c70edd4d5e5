package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateClaimToken produces a zero-padded 6-digit numeric token from
// crypto/rand. Uniqueness among a venue's active claims is the token
// generator's concern, not this function's.
func GenerateClaimToken() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(TokenSpaceSize))
	return fmt.Sprintf("%0*d", TokenLength, n.Int64())
}

// GenerateRandomNumericString returns length random decimal digits.
func GenerateRandomNumericString(length int) string {
	const digits = "0123456789"

	result := make([]byte, length)
	max := big.NewInt(int64(len(digits)))
	for i := range result {
		n, _ := rand.Int(rand.Reader, max)
		result[i] = digits[n.Int64()]
	}
	return string(result)
}
