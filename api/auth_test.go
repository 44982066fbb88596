package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func signedToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "user-123",
		"aud": "api://crewboard",
		"iss": "https://issuer/",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"nbf": time.Now().Add(-time.Minute).Unix(),
		"iat": time.Now().Add(-time.Minute).Unix(),
	}
}

func TestBearerTokenParsing(t *testing.T) {
	if _, err := bearerToken(""); err != errMissingAuthorization {
		t.Fatalf("empty header: %v", err)
	}
	if _, err := bearerToken("Basic abc"); err != errBadAuthorization {
		t.Fatalf("non-bearer: %v", err)
	}
	if _, err := bearerToken("Bearer nodots"); err != errBadAuthorization {
		t.Fatalf("malformed token: %v", err)
	}
	token, err := bearerToken("  Bearer a.b.c  ")
	if err != nil || token != "a.b.c" {
		t.Fatalf("token = %q, err = %v", token, err)
	}
}

func TestUserIDFromAuthHeaderHS256(t *testing.T) {
	secret := []byte("test-secret")
	auth := NewTestAuth(secret)
	auth.Audience = "api://crewboard"
	auth.Issuer = "https://issuer/"

	signed := signedToken(t, secret, validClaims())
	userID, err := auth.UserIDFromAuthHeader("Bearer " + signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("user id = %q", userID)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	secret := []byte("test-secret")
	auth := NewTestAuth(secret)
	claims := validClaims()
	claims["exp"] = time.Now().Add(-time.Minute).Unix()

	signed := signedToken(t, secret, claims)
	if _, err := auth.UserIDFromAuthHeader("Bearer " + signed); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestWrongAudienceRejected(t *testing.T) {
	secret := []byte("test-secret")
	auth := NewTestAuth(secret)
	auth.Audience = "api://other"

	signed := signedToken(t, secret, validClaims())
	if _, err := auth.UserIDFromAuthHeader("Bearer " + signed); err == nil {
		t.Fatal("expected audience mismatch to be rejected")
	}
}

func TestMissingSubRejected(t *testing.T) {
	secret := []byte("test-secret")
	auth := NewTestAuth(secret)
	claims := validClaims()
	delete(claims, "sub")

	signed := signedToken(t, secret, claims)
	if _, err := auth.UserIDFromAuthHeader("Bearer " + signed); err == nil {
		t.Fatal("expected missing sub to be rejected")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	auth := NewTestAuth([]byte("right"))
	signed := signedToken(t, []byte("wrong"), validClaims())
	if _, err := auth.UserIDFromAuthHeader("Bearer " + signed); err == nil {
		t.Fatal("expected bad signature to be rejected")
	}
}
