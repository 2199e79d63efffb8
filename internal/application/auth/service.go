package auth

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/ugram-notify/internal/domain"
	jwtinfra "github.com/ugram-notify/internal/infrastructure/jwt"
)

// TokenVerifier checks a session token's signature and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// AccountFinder looks up an account by user id. It returns an error wrapping
// domain.ErrNotFound when no such account exists.
type AccountFinder interface {
	FindByID(ctx context.Context, userID string) (*domain.Account, error)
}

// Service maps session tokens to the user ids they were issued for.
type Service interface {
	// ResolveUserIDFromToken returns the user id for token, or false when the
	// token is empty, invalid, or names an account that no longer exists.
	ResolveUserIDFromToken(ctx context.Context, token string) (string, bool)
}

type service struct {
	verifier TokenVerifier
	accounts AccountFinder
	log      logrus.FieldLogger
}

func NewService(verifier TokenVerifier, accounts AccountFinder, log logrus.FieldLogger) Service {
	return &service{verifier: verifier, accounts: accounts, log: log.WithField("component", "auth")}
}

func (s *service) ResolveUserIDFromToken(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	claims, err := s.verifier.Verify(token)
	if err != nil {
		s.log.WithError(err).Debug("Rejected session token")
		return "", false
	}
	account, err := s.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.WithField("user_id", claims.Subject).Debug("Token subject has no account")
		} else {
			s.log.WithError(err).WithField("user_id", claims.Subject).Warn("Account lookup failed")
		}
		return "", false
	}
	return account.UserID, true
}
