package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/dmitrijs2005/medkeeper/internal/common"
)

// aesGCM seals with AES-256-GCM. The random nonce is prepended to the
// ciphertext: nonce(12) || ciphertext || tag(16).
type aesGCM struct{}

func (aesGCM) Name() string { return CipherAESGCM }

func (aesGCM) GenerateKey() ([]byte, error) {
	return common.GenerateRandByteArray(common.KeySize), nil
}

func (aesGCM) Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aead.NonceSize())

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (aesGCM) Open(key, sealed []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrityOrKey, err)
	}

	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrIntegrityOrKey)
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrityOrKey, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
