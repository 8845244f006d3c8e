package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeDigits is the length of a one-time code.
const CodeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// GenerateCode returns a 6-digit numeric code drawn uniformly from 000000-999999.
// Leading zeros are kept; codes are never restricted to 100000-999999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeDigits, n.Int64()), nil
}
