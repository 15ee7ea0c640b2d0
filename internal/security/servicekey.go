package security

import (
	"golang.org/x/crypto/bcrypt"
)

// ServiceKeyHeader carries the shared key used by cron jobs and batch callers
const ServiceKeyHeader = "X-Service-Key"

// ServiceKeyVerifier checks presented keys against a stored bcrypt hash
type ServiceKeyVerifier struct {
	hash []byte
}

func NewServiceKeyVerifier(hash string) *ServiceKeyVerifier {
	return &ServiceKeyVerifier{hash: []byte(hash)}
}

// Enabled reports whether a hash is configured
func (v *ServiceKeyVerifier) Enabled() bool {
	return len(v.hash) > 0
}

// Verify reports whether key matches. An unconfigured verifier accepts nothing.
func (v *ServiceKeyVerifier) Verify(key string) bool {
	if !v.Enabled() || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(key)) == nil
}

// HashServiceKey produces the value to put in SERVICE_KEY_HASH
func HashServiceKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
