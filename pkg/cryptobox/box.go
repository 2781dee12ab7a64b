// Package cryptobox encrypts clipboard payloads with AES-256-GCM using a
// key loaded from a local key file. The key is generated on first run, so
// ciphertexts stay decryptable across restarts as long as the file survives.
package cryptobox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
)

// ErrDecrypt is returned for any ciphertext that can't be opened, whether
// it was tampered with, truncated, or encrypted under a different key.
var ErrDecrypt = errors.New("decryption failed")

const keySize = 32

type Box struct {
	gcm cipher.AEAD
}

// Open loads the key stored at path, creating a fresh random one when the
// file doesn't exist yet.
func Open(path string) (*Box, error) {
	key, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		key = make([]byte, keySize)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}

		if err := os.WriteFile(path, key, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write key file, %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	if len(key) != keySize {
		return nil, fmt.Errorf("key file %s must hold exactly %d bytes", path, keySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Box{gcm: gcm}, nil
}

// EncryptBytes seals plain under a fresh nonce and returns nonce||ciphertext
func (b *Box) EncryptBytes(plain []byte) ([]byte, error) {
	nonce := make([]byte, b.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return b.gcm.Seal(nonce, nonce, plain, nil), nil
}

func (b *Box) DecryptBytes(data []byte) ([]byte, error) {
	ns := b.gcm.NonceSize()
	if len(data) < ns {
		return nil, ErrDecrypt
	}

	plain, err := b.gcm.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}

	return plain, nil
}

// Encrypt seals a text payload and base64 encodes it for storage in a
// string column
func (b *Box) Encrypt(plain string) (string, error) {
	data, err := b.EncryptBytes([]byte(plain))
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

func (b *Box) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecrypt
	}

	plain, err := b.DecryptBytes(data)
	if err != nil {
		return "", err
	}

	return string(plain), nil
}
