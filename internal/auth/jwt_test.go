package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", 7*24*time.Hour)

	tok, err := m.GenerateSessionToken("user-1", "a@b.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.VerifySessionToken(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if claims.UserID() != "user-1" {
		t.Fatalf("got sub %q, want user-1", claims.UserID())
	}
	if claims.Email != "a@b.com" {
		t.Fatalf("got email %q", claims.Email)
	}

	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != 7*24*time.Hour {
		t.Fatalf("got ttl %s, want 168h", ttl)
	}
}

func TestVerifySessionTokenRejectsExpired(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := m.GenerateSessionToken("user-1", "a@b.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	m.now = time.Now
	if _, err := m.VerifySessionToken(tok); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("got err %v, want ErrTokenExpired", err)
	}
}

func TestVerifySessionTokenRejectsOtherSecret(t *testing.T) {
	tok, err := NewManager("one", time.Hour).GenerateSessionToken("user-1", "a@b.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := NewManager("two", time.Hour).VerifySessionToken(tok); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestVerifySessionTokenRejectsWrongType(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	claims := Claims{
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.VerifySessionToken(tok); !errors.Is(err, ErrInvalidTokenType) {
		t.Fatalf("got err %v, want ErrInvalidTokenType", err)
	}
}

func TestVerifySessionTokenRejectsForeignIssuer(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	claims := Claims{
		TokenType: TokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.VerifySessionToken(tok); !errors.Is(err, jwt.ErrTokenInvalidIssuer) {
		t.Fatalf("got err %v, want ErrTokenInvalidIssuer", err)
	}
}

func TestGenerateSessionTokenRequiresUser(t *testing.T) {
	if _, err := NewManager("s", time.Hour).GenerateSessionToken("", "a@b.com"); err == nil {
		t.Fatalf("expected error for empty user id")
	}
}
