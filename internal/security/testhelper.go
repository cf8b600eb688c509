package security

import (
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"time"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testKeyErr  error
)

// NewTestTokenProvider returns a TokenProvider over a freshly generated RSA
// key pair shared across a test binary. Unit tests only; the 2s leeway keeps
// boundary assertions stable on slow CI machines.
func NewTestTokenProvider() (*TokenProvider, error) {
	testKeyOnce.Do(func() {
		testKey, testKeyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	if testKeyErr != nil {
		return nil, testKeyErr
	}
	return NewTokenProvider(testKey, testKey.Public(), "test-kid", "test-issuer", 2*time.Second), nil
}
