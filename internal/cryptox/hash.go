package cryptox

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash is returned when an encoded Argon2 hash cannot be parsed or
// carries parameters outside the accepted bounds.
var ErrInvalidHash = errors.New("invalid argon2 hash encoding")

// Upper bounds for parameters read back from stored hashes.
const (
	MaxArgon2Memory     = 1024 * 1024 // KiB, 1GB
	MaxArgon2Iterations = 64
	maxArgon2SaltLength = 64
	maxArgon2KeyLength  = 128
)

// Argon2Params defines the parameters for Argon2id.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns recommended parameters for Argon2id.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024, // 64MB
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// HashSecret derives a salted Argon2id hash of secret and returns it in the
// PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
//
// The parameters are embedded so hashes stay verifiable after the
// configured parameters change.
func HashSecret(secret string, p Argon2Params) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(secret), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifySecret reports whether secret matches the PHC-encoded Argon2id hash.
// The comparison is constant-time.
func VerifySecret(secret, encoded string) (bool, error) {
	p, salt, hash, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(secret), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return subtle.ConstantTimeCompare(hash, candidate) == 1, nil
}

func decodeHash(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidHash, version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}

	switch {
	case p.Parallelism < 1:
		return p, nil, nil, fmt.Errorf("%w: parallelism %d", ErrInvalidHash, p.Parallelism)
	case p.Iterations < 1 || p.Iterations > MaxArgon2Iterations:
		return p, nil, nil, fmt.Errorf("%w: iterations %d", ErrInvalidHash, p.Iterations)
	case p.Memory < 8*uint32(p.Parallelism) || p.Memory > MaxArgon2Memory:
		return p, nil, nil, fmt.Errorf("%w: memory %d", ErrInvalidHash, p.Memory)
	case len(salt) == 0 || len(salt) > maxArgon2SaltLength:
		return p, nil, nil, fmt.Errorf("%w: salt length %d", ErrInvalidHash, len(salt))
	case len(hash) == 0 || len(hash) > maxArgon2KeyLength:
		return p, nil, nil, fmt.Errorf("%w: hash length %d", ErrInvalidHash, len(hash))
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(hash))

	return p, salt, hash, nil
}

// IdentityDigest returns hex(HMAC-SHA256(pepper, value)).
//
// Unlike HashSecret the result is deterministic, so it can serve as a lookup
// and uniqueness key; the pepper keeps it from being brute-forced offline.
func IdentityDigest(pepper []byte, value string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
