// Package secrets encrypts per-tenant database credentials at rest.
// Ciphertexts are AES-256-GCM sealed under a compound key derived from
// the application key and a per-tenant key, so a leaked tenant record
// alone is not enough to recover credentials.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

var (
	ErrInvalidAppKey     = errors.New("secrets: app key must be 32 bytes")
	ErrInvalidTenantKey  = errors.New("secrets: tenant key must be 32 bytes")
	ErrEncryptionFailed  = errors.New("secrets: encryption failed")
	ErrDecryptionFailed  = errors.New("secrets: decryption failed")
	ErrInvalidCiphertext = errors.New("secrets: invalid ciphertext format")
)

// EncryptString seals plaintext under the compound (app, tenant) key and
// returns a base64-encoded ciphertext suitable for storage in the tenant
// registry.
func EncryptString(appKey, tenantKey []byte, plaintext string) (string, error) {
	ciphertext, err := encrypt(appKey, tenantKey, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptString reverses EncryptString.
func DecryptString(appKey, tenantKey []byte, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}

	plaintext, err := decrypt(appKey, tenantKey, raw)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// encrypt returns nonce || sealed data.
func encrypt(appKey, tenantKey, data []byte) ([]byte, error) {
	aead, err := newAEAD(appKey, tenantKey, ErrEncryptionFailed)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	return aead.Seal(nonce, nonce, data, nil), nil
}

func decrypt(appKey, tenantKey, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(appKey, tenantKey, ErrDecryptionFailed)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, ErrInvalidCiphertext
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func newAEAD(appKey, tenantKey []byte, wrapErr error) (cipher.AEAD, error) {
	key, err := deriveKey(appKey, tenantKey)
	if err != nil {
		return nil, err
	}
	defer clearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(wrapErr, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(wrapErr, err)
	}
	return aead, nil
}
