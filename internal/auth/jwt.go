package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeSession = "session"
	Issuer           = "storefront"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidTokenType = errors.New("invalid token type")
)

// Claims carries the user id in the registered "sub" claim.
type Claims struct {
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string {
	return c.Subject
}

// Manager signs and checks HS256 session tokens.
type Manager struct {
	secret     []byte
	sessionTTL time.Duration
	now        func() time.Time
}

func NewManager(secret string, sessionTTL time.Duration) *Manager {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}

	return &Manager{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func (m *Manager) GenerateSessionToken(userID, email string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("session token: empty user id")
	}

	issuedAt := m.now().UTC().Truncate(time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:     email,
		TokenType: TokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(m.sessionTTL)),
		},
	})

	return token.SignedString(m.secret)
}

func (m *Manager) parser() *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
}

// VerifySessionToken returns the claims of a valid, unexpired session token
// signed with this manager's secret.
func (m *Manager) VerifySessionToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	token, err := m.parser().ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	switch {
	case claims.TokenType != TokenTypeSession:
		return nil, ErrInvalidTokenType
	case claims.Subject == "":
		return nil, ErrInvalidToken
	}

	return claims, nil
}
