// Inventra | 2026
// jwt_test.go

package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/inventra/auth-service/internal/config"
	"github.com/inventra/auth-service/internal/core"
)

func newTestManager(t *testing.T, expire time.Duration) *JWTManager {
	t.Helper()

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	if err := GenerateKeyPair(privPath, pubPath); err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	manager, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     privPath,
		PublicKeyPath:      pubPath,
		SessionTokenExpire: expire,
		Issuer:             "test-issuer",
		Audience:           "test-audience",
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	return manager
}

func TestNewJWTManagerMissingKey(t *testing.T) {
	_, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     filepath.Join(t.TempDir(), "does-not-exist.pem"),
		SessionTokenExpire: time.Hour,
	})
	if err == nil {
		t.Fatal("expected error for missing signing key")
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	manager := newTestManager(t, time.Hour)

	token, expiresAt, err := manager.CreateSessionToken(SessionTokenClaims{
		UserID: "user-1",
		Role:   "admin",
	})
	if err != nil {
		t.Fatalf("CreateSessionToken: %v", err)
	}

	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 59*time.Minute {
		t.Errorf("expiry %v not about an hour out", expiresAt)
	}

	claims, err := manager.VerifySessionToken(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifySessionToken: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("user id = %q, want user-1", claims.UserID)
	}
	if claims.Role != "admin" {
		t.Errorf("role = %q, want admin", claims.Role)
	}
}

// A third party holding only the published key material must be able to
// check a session token on its own.
func TestPublishedKeyVerifiesToken(t *testing.T) {
	manager := newTestManager(t, time.Hour)

	token, _, err := manager.CreateSessionToken(SessionTokenClaims{
		UserID: "user-1",
		Role:   "seller",
	})
	if err != nil {
		t.Fatalf("CreateSessionToken: %v", err)
	}

	parsed, err := jwt.Parse(
		[]byte(token),
		jwt.WithKey(jwa.ES256(), manager.GetPublicKey()),
		jwt.WithIssuer("test-issuer"),
		jwt.WithAudience("test-audience"),
	)
	if err != nil {
		t.Fatalf("parse with published key: %v", err)
	}

	subject, ok := parsed.Subject()
	if !ok || subject != "user-1" {
		t.Errorf("subject = %q, want user-1", subject)
	}

	var kid string
	if err := manager.GetPublicKey().Get(jwk.KeyIDKey, &kid); err != nil {
		t.Fatalf("published key has no key id: %v", err)
	}
	if kid != manager.GetKeyID() {
		t.Errorf("published key id = %q, want %q", kid, manager.GetKeyID())
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	manager := newTestManager(t, -time.Minute)

	token, _, err := manager.CreateSessionToken(SessionTokenClaims{
		UserID: "user-1",
		Role:   "seller",
	})
	if err != nil {
		t.Fatalf("CreateSessionToken: %v", err)
	}

	_, err = manager.VerifySessionToken(context.Background(), token)
	if !errors.Is(err, core.ErrTokenExpired) {
		t.Errorf("error = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyGarbageToken(t *testing.T) {
	manager := newTestManager(t, time.Hour)

	_, err := manager.VerifySessionToken(
		context.Background(),
		"not.a.token",
	)
	if !errors.Is(err, core.ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyTokenFromDifferentKey(t *testing.T) {
	minter := newTestManager(t, time.Hour)
	verifier := newTestManager(t, time.Hour)

	token, _, err := minter.CreateSessionToken(SessionTokenClaims{
		UserID: "user-1",
		Role:   "seller",
	})
	if err != nil {
		t.Fatalf("CreateSessionToken: %v", err)
	}

	_, err = verifier.VerifySessionToken(context.Background(), token)
	if !errors.Is(err, core.ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}
