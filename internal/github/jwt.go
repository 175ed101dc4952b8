package github

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// MaxJWTDuration is the longest lifetime GitHub accepts for an App JWT.
const MaxJWTDuration = 10 * time.Minute

// jwtClockSkew backdates the issued-at claim to tolerate clock drift.
const jwtClockSkew = 60 * time.Second

// JWTGenerator signs GitHub App JWTs used to request installation tokens.
type JWTGenerator struct {
	appID      string
	privateKey *rsa.PrivateKey
	nowFunc    func() time.Time
}

// NewJWTGenerator parses privateKeyPEM (PKCS#1 or PKCS#8) for appID.
func NewJWTGenerator(appID string, privateKeyPEM []byte) (*JWTGenerator, error) {
	if appID == "" {
		return nil, fmt.Errorf("app ID cannot be empty")
	}

	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &JWTGenerator{appID: appID, privateKey: key, nowFunc: time.Now}, nil
}

// NewJWTGeneratorFromFile reads the private key from path.
func NewJWTGeneratorFromFile(appID, path string) (*JWTGenerator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	return NewJWTGenerator(appID, data)
}

// Generate returns a JWT valid for duration (at most MaxJWTDuration).
func (g *JWTGenerator) Generate(duration time.Duration) (string, error) {
	if duration <= 0 {
		return "", fmt.Errorf("duration must be positive")
	}
	if duration > MaxJWTDuration {
		return "", fmt.Errorf("duration %v exceeds maximum allowed %v", duration, MaxJWTDuration)
	}

	now := g.nowFunc()
	claims := jwt.RegisteredClaims{
		Issuer:    g.appID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-jwtClockSkew)),
		ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(g.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, nil
}
