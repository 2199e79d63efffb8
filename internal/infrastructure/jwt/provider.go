package jwtinfra

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ugram-notify/internal/config"
)

var errNoSigningKey = errors.New("jwt provider has no signing key")

// Claims holds the JWT payload issued by the Ugram API on sign-in. The account
// id is carried in the standard "sub" claim.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Provider verifies session JWTs and, when it holds a signing key, issues them.
// HS256 with a shared secret is what the Ugram API signs with; RS256 with a key
// pair is supported for deployments that split signing from verification.
type Provider struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	expiry    time.Duration
	parser    *jwt.Parser
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	p := &Provider{expiry: cfg.JWTExpiry}

	switch cfg.JWTAlgorithm {
	case config.JWTAlgorithmRS256:
		pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		p.method = jwt.SigningMethodRS256
		p.verifyKey = pubKey

		if cfg.JWTPrivateKeyPath != "" {
			privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
			if err != nil {
				return nil, fmt.Errorf("read private key: %w", err)
			}
			privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
			if err != nil {
				return nil, fmt.Errorf("parse private key: %w", err)
			}
			p.signKey = privKey
		}

	case config.JWTAlgorithmHS256, "":
		if cfg.JWTSecret == "" {
			return nil, errors.New("jwt secret is empty")
		}
		secret := []byte(cfg.JWTSecret)
		p.method = jwt.SigningMethodHS256
		p.verifyKey = secret
		p.signKey = secret

	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", cfg.JWTAlgorithm)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{p.method.Alg()})}
	if cfg.JWTIgnoreExpiration {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	p.parser = jwt.NewParser(opts...)
	return p, nil
}

func (p *Provider) Sign(userID, name, email string) (string, error) {
	if p.signKey == nil {
		return "", errNoSigningKey
	}
	now := time.Now()
	claims := Claims{
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(p.method, claims)
	return token.SignedString(p.signKey)
}

func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := p.parser.ParseWithClaims(tokenStr, &Claims{}, p.keyFor)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// keyFor returns the verification key for the token's signing method family.
func (p *Provider) keyFor(t *jwt.Token) (interface{}, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if p.method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
	case *jwt.SigningMethodRSA:
		if p.method != jwt.SigningMethodRS256 {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
	default:
		return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
	}
	return p.verifyKey, nil
}
