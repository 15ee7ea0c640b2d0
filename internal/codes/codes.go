// Package codes generates human-typeable invitation codes.
package codes

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	suffixLength   = 6
)

// NewInvitationCode returns "<base36 unix millis>-<6 random uppercase
// alphanumerics>", e.g. "LZ3K9Q1X-7FQ2ZA".
func NewInvitationCode(now time.Time) (string, error) {
	suffix, err := randomString(suffixAlphabet, suffixLength)
	if err != nil {
		return "", err
	}
	prefix := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return prefix + "-" + suffix, nil
}

// Normalize upper-cases and trims a code typed by a user
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// randomString draws n characters uniformly from alphabet
func randomString(alphabet string, n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[num.Int64()]
	}
	return string(out), nil
}
