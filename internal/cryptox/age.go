package cryptox

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
	"github.com/dmitrijs2005/medkeeper/internal/common"
)

// ageX25519 seals each record to its own freshly generated X25519 identity.
// The key is the identity in its "AGE-SECRET-KEY-1..." text form and the
// sealed data is a binary age file.
type ageX25519 struct{}

func (ageX25519) Name() string { return CipherAge }

func (ageX25519) GenerateKey() ([]byte, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating identity: %w", err)
	}
	return []byte(identity.String()), nil
}

func (ageX25519) Seal(key, plaintext []byte) ([]byte, error) {
	identity, err := age.ParseX25519Identity(string(key))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, identity.Recipient())
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing ciphertext: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing ciphertext: %w", err)
	}
	return buf.Bytes(), nil
}

func (ageX25519) Open(key, sealed []byte) ([]byte, error) {
	identity, err := age.ParseX25519Identity(string(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrityOrKey, err)
	}

	r, err := age.Decrypt(bytes.NewReader(sealed), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrityOrKey, err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrityOrKey, err)
	}
	return plaintext, nil
}
