package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"go-gin-auth-service/internal/domain"
)

var loginTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "auth_login_total", Help: "Login attempts by outcome"},
	[]string{"result"},
)

func init() { prometheus.MustRegister(loginTotal) }

type TokenIssuer interface {
	Issue(subjectID, email, role string) (string, error)
}

type Credentials struct {
	Email    string
	Password string
}

type LoginResult struct {
	AccessToken string            `json:"accessToken"`
	User        domain.PublicUser `json:"user"`
}

type AuthService struct {
	users  *UserService
	hasher PasswordHasher
	tokens TokenIssuer
	log    *zap.Logger
}

func NewAuthService(users *UserService, hasher PasswordHasher, tokens TokenIssuer, l *zap.Logger) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, log: l}
}

// Login checks credentials and issues an access token. Every credential
// failure is domain.ErrUnauthorized: unknown email, wrong password,
// deactivated account and lookup errors look the same to the caller. An
// unknown email is still checked against a dummy digest so both paths cost
// one bcrypt compare.
func (s *AuthService) Login(ctx context.Context, cred Credentials) (*LoginResult, error) {
	u, err := s.users.LookupByEmail(ctx, cred.Email)
	digest := s.hasher.DummyHash()
	switch {
	case err == nil:
		digest = u.PasswordHash
	case !errors.Is(err, domain.ErrNotFound):
		s.log.Warn("login lookup failed", zap.Error(err))
	}

	ok := s.hasher.Verify(ctx, cred.Password, digest)
	if err != nil || !ok {
		loginTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrUnauthorized
	}
	if !u.IsActive {
		loginTotal.WithLabelValues("inactive").Inc()
		s.log.Info("login by inactive user", zap.String("uid", u.ID))
		return nil, domain.ErrUnauthorized
	}

	tok, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		loginTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("issue token: %w", err)
	}
	loginTotal.WithLabelValues("success").Inc()
	s.log.Info("user logged in", zap.String("uid", u.ID), zap.String("email", u.Email))
	return &LoginResult{AccessToken: tok, User: u.Public()}, nil
}
