package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the required size of both the app and tenant keys.
const KeySize = 32 // AES-256

// hkdfInfo provides domain separation for key derivation.
const hkdfInfo = "tenantkit-credentials-v1"

// ValidateKeys checks both key lengths. Both checks always run so the
// timing does not reveal which key was wrong.
func ValidateKeys(appKey, tenantKey []byte) error {
	validApp := len(appKey) == KeySize
	validTenant := len(tenantKey) == KeySize

	if !validApp {
		return ErrInvalidAppKey
	}
	if !validTenant {
		return ErrInvalidTenantKey
	}
	return nil
}

// deriveKey combines the app and tenant keys into one AES key via HKDF.
func deriveKey(appKey, tenantKey []byte) ([]byte, error) {
	if err := ValidateKeys(appKey, tenantKey); err != nil {
		return nil, err
	}

	reader := hkdf.New(sha256.New, appKey, tenantKey, []byte(hkdfInfo))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return key, nil
}

// GenerateKey creates a random 32-byte key for provisioning.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
