// Package cryptox holds the cryptographic primitives used by MedKeeper:
// Argon2id credential hashing, keyed identity digests, PIN generation and
// the authenticated ciphers that protect record contents.
package cryptox

import (
	"fmt"
	"sort"
)

// Cipher is an authenticated encryption scheme with its own key format.
//
// Open must fail with an error wrapping common.ErrIntegrityOrKey whenever the
// key does not match or the sealed data was modified.
type Cipher interface {
	// Name is the identifier stored next to each record.
	Name() string
	// GenerateKey returns fresh, independent key material.
	GenerateKey() ([]byte, error)
	// Seal encrypts and authenticates plaintext under key.
	Seal(key, plaintext []byte) ([]byte, error)
	// Open verifies and decrypts data produced by Seal.
	Open(key, sealed []byte) ([]byte, error)
}

const (
	CipherAESGCM    = "aes-256-gcm"
	CipherSecretBox = "xsalsa20-poly1305"
	CipherAge       = "age-x25519"
)

var ciphers = map[string]Cipher{
	CipherAESGCM:    aesGCM{},
	CipherSecretBox: secretBox{},
	CipherAge:       ageX25519{},
}

// NewCipher returns the cipher registered under name.
func NewCipher(name string) (Cipher, error) {
	c, ok := ciphers[name]
	if !ok {
		return nil, fmt.Errorf("unknown cipher %q", name)
	}
	return c, nil
}

// CipherNames lists the registered cipher identifiers in sorted order.
func CipherNames() []string {
	names := make([]string, 0, len(ciphers))
	for n := range ciphers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
