// Package security issues and verifies the bearer tokens producers present to IngestService.
package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired or signed by another key.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSigningDisabled is returned by Issue on a verify-only provider.
	ErrSigningDisabled = errors.New("token signing requires a private key")
)

// ProducerClaims identifies a producer. DeviceID, when set, pins the token to one device.
type ProducerClaims struct {
	jwt.RegisteredClaims
	DeviceID string `json:"device_id,omitempty"`
}

// Producer is the identity carried by a valid token.
type Producer struct {
	ID       string
	DeviceID string
	TokenID  string
}

// TokenProvider signs and verifies producer JWTs with RS256 or ES256.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
}

// NewTokenProvider returns a provider that can issue and verify tokens.
func NewTokenProvider(privateKey crypto.Signer, issuer, audience string) *TokenProvider {
	return &TokenProvider{privateKey: privateKey, publicKey: privateKey.Public(), issuer: issuer, audience: audience}
}

// NewVerifier returns a verify-only provider.
func NewVerifier(publicKey crypto.PublicKey, issuer, audience string) *TokenProvider {
	return &TokenProvider{publicKey: publicKey, issuer: issuer, audience: audience}
}

// Issue signs a token for producerID valid for ttl. deviceID may be empty.
func (p *TokenProvider) Issue(producerID, deviceID string, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	if p.privateKey == nil {
		return "", time.Time{}, ErrSigningDisabled
	}
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(ttl)
	claims := ProducerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   producerID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		DeviceID: deviceID,
	}
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", time.Time{}, ErrInvalidKey
	}
	token, err = jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
	return token, expiresAt, err
}

// Validate checks signature, expiry, issuer and audience and returns the producer identity.
func (p *TokenProvider) Validate(tokenString string) (*Producer, error) {
	var claims ProducerClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithIssuer(p.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !slices.Contains(claims.Audience, p.audience) || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Producer{ID: claims.Subject, DeviceID: claims.DeviceID, TokenID: claims.ID}, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
