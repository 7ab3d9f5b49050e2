package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	apperrors "github.com/famvault/auth-service/internal/errors"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Changing any of these makes NeedsRehash report
// true for hashes minted under the old values, so stored credentials are
// upgraded transparently on the next successful login.
const (
	argonMemory      = 64 * 1024
	argonIterations  = 3
	argonParallelism = 4
	argonSaltLength  = 16
	argonKeyLength   = 32
)

type argonParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

var defaultArgonParams = argonParams{
	memory:      argonMemory,
	iterations:  argonIterations,
	parallelism: argonParallelism,
	saltLength:  argonSaltLength,
	keyLength:   argonKeyLength,
}

// PasswordService hashes and verifies credentials with Argon2id, encoded
// in the PHC string format so each hash carries its own parameters and
// salt.
type PasswordService struct {
	params argonParams

	// dummyHash is verified against on lookups that found no user, so
	// the login path burns the same hashing cost either way.
	dummyHash string
}

func NewPasswordService() (*PasswordService, error) {
	s := &PasswordService{params: defaultArgonParams}

	dummy, err := s.Hash("decoy-credential-for-constant-time-login")
	if err != nil {
		return nil, fmt.Errorf("failed to precompute dummy hash: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

// Hash derives an Argon2id hash of the password under a fresh random
// salt and returns it PHC-encoded.
func (s *PasswordService) Hash(password string) (string, error) {
	salt := make([]byte, s.params.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt,
		s.params.iterations, s.params.memory, s.params.parallelism, s.params.keyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		s.params.memory, s.params.iterations, s.params.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))

	return encoded, nil
}

// Verify checks the password against a PHC-encoded hash in constant
// time. Malformed hashes fail closed: the answer is false, never an
// error a caller might accidentally treat as success.
func (s *PasswordService) Verify(password, encodedHash string) bool {
	params, salt, key, err := decodeArgonHash(encodedHash)
	if err != nil {
		return false
	}

	candidate := argon2.IDKey([]byte(password), salt,
		params.iterations, params.memory, params.parallelism, params.keyLength)

	return subtle.ConstantTimeCompare(key, candidate) == 1
}

// DummyVerify performs a full verification against a throwaway hash.
// Called on the user-not-found login path so its duration matches a real
// verification.
func (s *PasswordService) DummyVerify(password string) {
	s.Verify(password, s.dummyHash)
}

// NeedsRehash reports whether the hash was minted under parameters other
// than the current ones.
func (s *PasswordService) NeedsRehash(encodedHash string) bool {
	params, _, _, err := decodeArgonHash(encodedHash)
	if err != nil {
		return true
	}
	return params.memory != s.params.memory ||
		params.iterations != s.params.iterations ||
		params.parallelism != s.params.parallelism ||
		params.keyLength != s.params.keyLength
}

func decodeArgonHash(encodedHash string) (argonParams, []byte, []byte, error) {
	var params argonParams

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, apperrors.ErrInternal
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, fmt.Errorf("failed to parse hash version: %w", err)
	}
	if version != argon2.Version {
		return params, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&params.memory, &params.iterations, &params.parallelism); err != nil {
		return params, nil, nil, fmt.Errorf("failed to parse hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	params.saltLength = uint32(len(salt))

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, fmt.Errorf("failed to decode hash: %w", err)
	}
	params.keyLength = uint32(len(key))

	return params, salt, key, nil
}
