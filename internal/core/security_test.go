// Inventra | 2026
// security_test.go

package core

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash %q does not use argon2id encoding", hash)
	}
	if strings.Contains(hash, "correct-horse-battery") {
		t.Error("hash contains the plaintext password")
	}

	if !VerifyPassword("correct-horse-battery", hash) {
		t.Error("correct password failed to verify")
	}
	if VerifyPassword("wrong-password", hash) {
		t.Error("wrong password verified")
	}
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	first, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if first == second {
		t.Error("two hashes of the same password are identical")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"garbage", "not-a-hash"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=1,p=4$abc$def"},
		{"truncated", "$argon2id$v=19$m=65536"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifyPassword("any-password", tt.hash) {
				t.Error("malformed hash verified")
			}
		})
	}
}

func TestVerifyPasswordTimingSafeAbsentHash(t *testing.T) {
	ok, rehash := VerifyPasswordTimingSafe("any-password", nil)
	if ok {
		t.Error("nil hash verified")
	}
	if rehash != "" {
		t.Error("nil hash produced a rehash")
	}
}

func TestGenerateResetToken(t *testing.T) {
	first, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken: %v", err)
	}
	second, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken: %v", err)
	}

	if first == second {
		t.Error("two reset tokens are identical")
	}
	if len(first) < 32 {
		t.Errorf("token %q too short", first)
	}
}

func TestHashToken(t *testing.T) {
	token, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken: %v", err)
	}

	digest := HashToken(token)
	if digest == token {
		t.Error("digest equals the raw token")
	}
	if len(digest) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(digest))
	}
	if digest != HashToken(token) {
		t.Error("digest is not deterministic")
	}

	if !CompareTokenHash(token, digest) {
		t.Error("token does not compare against its own digest")
	}
	if CompareTokenHash("other-token", digest) {
		t.Error("wrong token compared equal")
	}
}

func TestConfigureHashingRejectsWeakParams(t *testing.T) {
	t.Cleanup(func() {
		if err := ConfigureHashing(DefaultHashParams()); err != nil {
			t.Fatalf("restore params: %v", err)
		}
	})

	tests := []struct {
		name   string
		params HashParams
	}{
		{"zero time", HashParams{Time: 0, Memory: 64 * 1024, Threads: 4}},
		{"tiny memory", HashParams{Time: 1, Memory: 1024, Threads: 4}},
		{"zero threads", HashParams{Time: 1, Memory: 64 * 1024, Threads: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ConfigureHashing(tt.params); err == nil {
				t.Error("weak params accepted")
			}
		})
	}
}
