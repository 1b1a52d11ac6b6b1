// Inventra | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/crypto/argon2"
)

const (
	argonKeyLen = 32
	saltLength  = 16

	resetTokenBytes = 32
)

// HashParams are the argon2id cost parameters. They are process-wide and
// set once at startup from config; hashes produced under older parameters
// still verify and are transparently rehashed on the next successful login.
type HashParams struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

func DefaultHashParams() HashParams {
	return HashParams{Time: 1, Memory: 64 * 1024, Threads: 4}
}

var hashParams atomic.Pointer[HashParams]

func init() {
	p := DefaultHashParams()
	hashParams.Store(&p)

	hash, err := HashPassword("dummy_password_for_timing_attack_prevention")
	if err != nil {
		panic(fmt.Sprintf("security: failed to generate dummy hash: %v", err))
	}
	dummyHash = hash
}

// ConfigureHashing installs the cost parameters from config. Must be
// called before the first real hash; startup wiring does this.
func ConfigureHashing(p HashParams) error {
	if p.Time < 1 || p.Memory < 8*1024 || p.Threads < 1 {
		return fmt.Errorf("security: hash params below minimum cost")
	}
	hashParams.Store(&p)
	return nil
}

func currentParams() HashParams {
	return *hashParams.Load()
}

func HashPassword(password string) (string, error) {
	p := currentParams()

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		p.Time,
		p.Memory,
		p.Threads,
		argonKeyLen,
	)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		b64Salt,
		b64Hash,
	)

	return encoded, nil
}

// VerifyPassword reports whether the password matches the stored hash.
// A malformed stored hash verifies false rather than erroring, so the
// caller cannot distinguish a corrupt record from a wrong password.
func VerifyPassword(password, encodedHash string) bool {
	params, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false
	}

	otherHash := argon2.IDKey(
		[]byte(password),
		salt,
		params.time,
		params.memory,
		params.threads,
		params.keyLen,
	)

	return subtle.ConstantTimeCompare(hash, otherHash) == 1
}

// VerifyPasswordWithRehash verifies and, when the stored hash was produced
// under stale cost parameters, returns a fresh hash for best-effort upgrade.
func VerifyPasswordWithRehash(password, encodedHash string) (bool, string) {
	if !VerifyPassword(password, encodedHash) {
		return false, ""
	}

	if needsRehash(encodedHash) {
		newHash, err := HashPassword(password)
		if err != nil {
			return true, ""
		}
		return true, newHash
	}

	return true, ""
}

var dummyHash string

// VerifyPasswordTimingSafe behaves like VerifyPasswordWithRehash but burns
// a full argon2 computation against a dummy hash when no stored hash
// exists, so an absent account costs the same as a wrong password.
func VerifyPasswordTimingSafe(password string, encodedHash *string) (bool, string) {
	hashToVerify := dummyHash
	if encodedHash != nil && *encodedHash != "" {
		hashToVerify = *encodedHash
	}

	valid, newHash := VerifyPasswordWithRehash(password, hashToVerify)

	if encodedHash == nil || *encodedHash == "" {
		return false, ""
	}

	return valid, newHash
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

func decodeHash(encodedHash string) (*argonParams, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, nil, fmt.Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return nil, nil, nil, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	_, err := fmt.Sscanf(parts[2], "v=%d", &version)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid version: %w", err)
	}

	if version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("incompatible version: %d", version)
	}

	params := &argonParams{}
	_, err = fmt.Sscanf(
		parts[3],
		"m=%d,t=%d,p=%d",
		&params.memory,
		&params.time,
		&params.threads,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode salt: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode hash: %w", err)
	}

	//nolint:gosec // G115: hash length is always small (32 bytes for Argon2id)
	params.keyLen = uint32(len(hash))

	return params, salt, hash, nil
}

func needsRehash(encodedHash string) bool {
	params, _, _, err := decodeHash(encodedHash)
	if err != nil {
		return true
	}

	p := currentParams()
	return params.memory != p.Memory ||
		params.time != p.Time ||
		params.threads != p.Threads ||
		params.keyLen != argonKeyLen
}

func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// GenerateResetToken returns the opaque single-use token mailed to the
// user. Only its digest is ever persisted.
func GenerateResetToken() (string, error) {
	return GenerateSecureToken(resetTokenBytes)
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func CompareTokenHash(token, hash string) bool {
	tokenHash := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(tokenHash), []byte(hash)) == 1
}
