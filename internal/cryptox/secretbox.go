package cryptox

import (
	"fmt"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"golang.org/x/crypto/nacl/secretbox"
)

const secretBoxNonceSize = 24

// secretBox seals with NaCl secretbox (XSalsa20-Poly1305):
// nonce(24) || box.
type secretBox struct{}

func (secretBox) Name() string { return CipherSecretBox }

func (secretBox) GenerateKey() ([]byte, error) {
	return common.GenerateRandByteArray(common.KeySize), nil
}

func (secretBox) Seal(key, plaintext []byte) ([]byte, error) {
	k, err := secretBoxKey(key)
	if err != nil {
		return nil, err
	}

	var nonce [secretBoxNonceSize]byte
	copy(nonce[:], common.GenerateRandByteArray(secretBoxNonceSize))

	return secretbox.Seal(nonce[:], plaintext, &nonce, k), nil
}

func (secretBox) Open(key, sealed []byte) ([]byte, error) {
	k, err := secretBoxKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrityOrKey, err)
	}

	if len(sealed) < secretBoxNonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrIntegrityOrKey)
	}

	var nonce [secretBoxNonceSize]byte
	copy(nonce[:], sealed[:secretBoxNonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[secretBoxNonceSize:], &nonce, k)
	if !ok {
		return nil, fmt.Errorf("%w: authentication failed", common.ErrIntegrityOrKey)
	}
	return plaintext, nil
}

func secretBoxKey(key []byte) (*[common.KeySize]byte, error) {
	if len(key) != common.KeySize {
		return nil, fmt.Errorf("invalid key size %d", len(key))
	}
	var k [common.KeySize]byte
	copy(k[:], key)
	return &k, nil
}
