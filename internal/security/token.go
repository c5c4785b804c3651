package security

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer is the iss claim of every session token
const TokenIssuer = "intan"

// ErrInvalidToken is returned for tokens that fail signature, issuer or expiry checks
var ErrInvalidToken = errors.New("invalid session token")

// Claims are the session token claims. Subject holds the user id and ID a
// per-login token id.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 session tokens. Revoked token ids
// are held in memory until the token would have expired.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewTokenManager creates a token manager signing with secret; tokens live for ttl
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// TTL returns how long issued tokens stay valid
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new token for userID
func (m *TokenManager) Issue(userID string) (string, *Claims, error) {
	if userID == "" {
		return "", nil, fmt.Errorf("user id is required")
	}

	now := m.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies token and returns its claims
func (m *TokenManager) Parse(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if m.isRevoked(claims.ID) {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}
	return claims, nil
}

// Revoke rejects the token with id until expiresAt
func (m *TokenManager) Revoke(id string, expiresAt time.Time) {
	if id == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for tid, exp := range m.revoked {
		if !exp.After(now) {
			delete(m.revoked, tid)
		}
	}
	if expiresAt.After(now) {
		m.revoked[id] = expiresAt
	}
}

func (m *TokenManager) isRevoked(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[id]
	return ok
}
