package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ugram-notify/internal/config"
)

// writeKeys generates a fresh RSA key pair under t.TempDir() and returns the
// private key plus the paths of both PEM files.
func writeKeys(t *testing.T) (*rsa.PrivateKey, string, string) {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	return privKey, privPath, pubPath
}

func newProvider(t *testing.T, ignoreExpiration bool) (*Provider, *rsa.PrivateKey) {
	t.Helper()
	privKey, privPath, pubPath := writeKeys(t)
	p, err := NewProvider(&config.Config{
		JWTAlgorithm:        config.JWTAlgorithmRS256,
		JWTPrivateKeyPath:   privPath,
		JWTPublicKeyPath:    pubPath,
		JWTExpiry:           time.Hour,
		JWTIgnoreExpiration: ignoreExpiration,
	})
	require.NoError(t, err)
	return p, privKey
}

func expiredToken(t *testing.T, key *rsa.PrivateKey, alg jwt.SigningMethod) string {
	t.Helper()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}
	signed, err := jwt.NewWithClaims(alg, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestSignVerify_RoundTrip(t *testing.T) {
	p, _ := newProvider(t, false)

	signed, err := p.Sign("u1", "Alice Smith", "alice@example.com")
	require.NoError(t, err)

	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestVerify_ExpiredRejected(t *testing.T) {
	p, key := newProvider(t, false)
	_, err := p.Verify(expiredToken(t, key, jwt.SigningMethodRS256))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_ExpiredAcceptedWhenIgnored(t *testing.T) {
	p, key := newProvider(t, true)
	claims, err := p.Verify(expiredToken(t, key, jwt.SigningMethodRS256))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
}

func TestVerify_ForeignKeyRejected(t *testing.T) {
	p, _ := newProvider(t, true)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	_, err = p.Verify(expiredToken(t, other, jwt.SigningMethodRS256))
	assert.Error(t, err)
}

func TestVerifyRS256_HMACTokenRejected(t *testing.T) {
	p, _ := newProvider(t, true)
	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = p.Verify(hs)
	assert.Error(t, err)
}

func TestVerify_MissingSubjectRejected(t *testing.T) {
	p, key := newProvider(t, true)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, &Claims{Name: "nobody"}).SignedString(key)
	require.NoError(t, err)

	_, err = p.Verify(signed)
	assert.ErrorContains(t, err, "no subject")
}

func TestSign_WithoutPrivateKey(t *testing.T) {
	_, _, pubPath := writeKeys(t)
	p, err := NewProvider(&config.Config{JWTAlgorithm: config.JWTAlgorithmRS256, JWTPublicKeyPath: pubPath})
	require.NoError(t, err)

	_, err = p.Sign("u1", "", "")
	assert.ErrorIs(t, err, errNoSigningKey)
}

func TestNewProvider_MissingKey(t *testing.T) {
	_, err := NewProvider(&config.Config{
		JWTAlgorithm:     config.JWTAlgorithmRS256,
		JWTPublicKeyPath: filepath.Join(t.TempDir(), "nope.pem"),
	})
	assert.ErrorContains(t, err, "read public key")
}

// --- HS256, the Ugram API's signing mode ---

const testSecret = "ugram-secret"

func newHMACProvider(t *testing.T, ignoreExpiration bool) *Provider {
	t.Helper()
	p, err := NewProvider(&config.Config{
		JWTAlgorithm:        config.JWTAlgorithmHS256,
		JWTSecret:           testSecret,
		JWTExpiry:           time.Hour,
		JWTIgnoreExpiration: ignoreExpiration,
	})
	require.NoError(t, err)
	return p
}

func hmacToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: claims}).
		SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyHS256_TokenFromUgramAPI(t *testing.T) {
	p := newHMACProvider(t, false)

	claims, err := p.Verify(hmacToken(t, testSecret, jwt.RegisteredClaims{Subject: "u1"}))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
}

func TestVerifyHS256_SignRoundTrip(t *testing.T) {
	p := newHMACProvider(t, false)

	signed, err := p.Sign("u1", "Alice Smith", "alice@example.com")
	require.NoError(t, err)
	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "Alice Smith", claims.Name)
}

func TestVerifyHS256_WrongSecretRejected(t *testing.T) {
	p := newHMACProvider(t, false)

	_, err := p.Verify(hmacToken(t, "another-secret", jwt.RegisteredClaims{Subject: "u1"}))
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestVerifyHS256_ExpiredRejectedByDefault(t *testing.T) {
	p := newHMACProvider(t, false)

	_, err := p.Verify(hmacToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifyHS256_ExpiredAcceptedWhenIgnored(t *testing.T) {
	p := newHMACProvider(t, true)

	claims, err := p.Verify(hmacToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
}

func TestVerifyHS256_RSATokenRejected(t *testing.T) {
	p := newHMACProvider(t, false)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}).
		SignedString(key)
	require.NoError(t, err)

	_, err = p.Verify(signed)
	assert.Error(t, err)
}

func TestNewProvider_HS256RequiresSecret(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTAlgorithm: config.JWTAlgorithmHS256})
	assert.ErrorContains(t, err, "secret is empty")
}

func TestNewProvider_DefaultsToHS256(t *testing.T) {
	p, err := NewProvider(&config.Config{JWTSecret: testSecret})
	require.NoError(t, err)

	_, err = p.Verify(hmacToken(t, testSecret, jwt.RegisteredClaims{Subject: "u1"}))
	assert.NoError(t, err)
}

func TestNewProvider_UnknownAlgorithm(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTAlgorithm: "ES256", JWTSecret: testSecret})
	assert.ErrorContains(t, err, "unsupported jwt algorithm")
}
