// internal/infra/auth/token_provider.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrMissingSecret = errors.New("service token secret is not configured")
var ErrInvalidToken = errors.New("service token is invalid")

const (
	issuer = "loan-interest-accrual"
	// Tokens are reissued this long before they expire.
	refreshMargin = time.Minute
)

// JWTTokenProvider issues the HS256 bearer token the scheduler presents before each batch.
type JWTTokenProvider struct {
	secret  []byte
	subject string
	ttl     time.Duration
	clock   func() time.Time

	mu        sync.Mutex
	cached    string
	expiresAt time.Time
}

func NewJWTTokenProvider(secret, subject string, ttl time.Duration) *JWTTokenProvider {
	return &JWTTokenProvider{
		secret:  []byte(secret),
		subject: subject,
		ttl:     ttl,
		clock:   time.Now,
	}
}

// Token returns a valid bearer token, reusing the cached one until it is close to expiry.
func (p *JWTTokenProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(p.secret) == 0 {
		return "", ErrMissingSecret
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock()
	if p.cached != "" && now.Add(refreshMargin).Before(p.expiresAt) {
		return p.cached, nil
	}

	expiresAt := now.Add(p.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Subject:   p.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}

	p.cached = signed
	p.expiresAt = expiresAt
	return signed, nil
}

// Validate parses a token issued by this provider and returns its claims.
func (p *JWTTokenProvider) Validate(tokenString string) (*jwt.RegisteredClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(p.clock),
	)
	claims := &jwt.RegisteredClaims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

type tokenKey struct{}

// WithToken attaches the bearer token to ctx for downstream calls made during a batch.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token attached by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}
