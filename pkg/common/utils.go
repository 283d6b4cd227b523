package common

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	PrefixViewingPayment = "VIEW"
	PrefixWithdrawal     = "WD"
	PrefixDisbursement   = "DSB"
	PrefixWalletFunding  = "WF"
)

const otpCharacters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReference returns a globally unique gateway reference such as
// VIEW-8F14E45FCEEA4B3F9C2A6D1C5B7E9A01.
func GenerateReference(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + "-" + id
}

// HasPrefix reports whether a reference was generated with the given prefix.
func HasPrefix(reference, prefix string) bool {
	return strings.HasPrefix(strings.ToUpper(reference), prefix+"-")
}

// GenerateOTP returns n characters drawn from A-Z0-9 using crypto/rand.
func GenerateOTP(n int) (string, error) {
	return randomFrom(otpCharacters, n)
}

// GenerateNumericCode returns n random digits.
func GenerateNumericCode(n int) (string, error) {
	return randomFrom("0123456789", n)
}

func randomFrom(characters string, n int) (string, error) {
	max := big.NewInt(int64(len(characters)))
	result := make([]byte, n)
	for i := range result {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = characters[idx.Int64()]
	}
	return string(result), nil
}

// Slugify lower-cases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
