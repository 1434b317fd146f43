// Package jwt implements a minimal HMAC-SHA256 JWT service used to sign
// and verify access tokens. The algorithm is pinned: tokens claiming any
// other algorithm are rejected outright.
package jwt

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	headerType      = "JWT"
	headerAlgorithm = "HS256"
)

type header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

// StandardClaims holds the registered claims from RFC 7519 used by this
// subsystem. Zero temporal claims are treated as unset.
type StandardClaims struct {
	ID        string `json:"jti,omitempty"`
	Subject   string `json:"sub,omitempty"`
	Issuer    string `json:"iss,omitempty"`
	Audience  string `json:"aud,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	NotBefore int64  `json:"nbf,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

// Valid checks the temporal claims against the current time.
func (c StandardClaims) Valid() error {
	now := time.Now().Unix()

	if c.ExpiresAt > 0 && now > c.ExpiresAt {
		return ErrExpiredToken
	}
	if c.NotBefore > 0 && now < c.NotBefore {
		return ErrInvalidToken
	}
	return nil
}

// Service signs and verifies tokens with a single HMAC key.
type Service struct {
	signingKey []byte
}

// New creates a Service. The key should be at least 32 bytes.
func New(signingKey []byte) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	return &Service{signingKey: signingKey}, nil
}

// Generate signs the given claims and returns the compact token string.
func (s *Service) Generate(claims any) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}

	headerJSON, err := json.Marshal(header{Type: headerType, Algorithm: headerAlgorithm})
	if err != nil {
		return "", fmt.Errorf("jwt: marshal header: %w", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("jwt: marshal claims: %w", err)
	}

	payload := encodeSegment(headerJSON) + "." + encodeSegment(claimsJSON)
	return payload + "." + s.sign(payload), nil
}

// Parse verifies the signature and algorithm of token and unmarshals its
// claims into dst. If dst implements `Valid() error` the temporal claims
// are validated as well.
func (s *Service) Parse(token string, dst any) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ErrInvalidToken
	}

	payload := parts[0] + "." + parts[1]
	expected := s.sign(payload)
	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(expected)) != 1 {
		return ErrInvalidSignature
	}

	headerJSON, err := decodeSegment(parts[0])
	if err != nil {
		return fmt.Errorf("jwt: decode header: %w", err)
	}
	var hdr header
	if err := json.Unmarshal(headerJSON, &hdr); err != nil {
		return fmt.Errorf("jwt: unmarshal header: %w", err)
	}
	if hdr.Algorithm != headerAlgorithm {
		return ErrUnexpectedSigningMethod
	}

	claimsJSON, err := decodeSegment(parts[1])
	if err != nil {
		return fmt.Errorf("jwt: decode claims: %w", err)
	}
	if err := json.Unmarshal(claimsJSON, dst); err != nil {
		return fmt.Errorf("jwt: unmarshal claims: %w", err)
	}

	if v, ok := dst.(interface{ Valid() error }); ok {
		if err := v.Valid(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) sign(payload string) string {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(payload))
	return encodeSegment(mac.Sum(nil))
}

// JWT segments use unpadded base64url per RFC 7515.
func encodeSegment(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
