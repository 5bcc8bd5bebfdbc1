package credential

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// DefaultKey is the development key used when none is configured. It offers
// no protection beyond obscuring values at rest.
const DefaultKey = "INSECURE_KEY"

var errShortCiphertext = errors.New("ciphertext shorter than nonce")

// FieldCipher seals personal fields with XChaCha20-Poly1305. Output is the
// URL-safe base64 encoding of nonce || ciphertext.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher derives a 32-byte key from key by space padding or
// truncation, the same shape the imported data was encrypted with.
func NewFieldCipher(key string) (*FieldCipher, error) {
	if key == "" {
		key = DefaultKey
	}
	aead, err := chacha20poly1305.NewX(normalizeKey(key))
	if err != nil {
		return nil, fmt.Errorf("init field cipher: %w", err)
	}
	return &FieldCipher{aead: aead}, nil
}

func normalizeKey(key string) []byte {
	k := make([]byte, chacha20poly1305.KeySize)
	for i := range k {
		k[i] = ' '
	}
	copy(k, key)
	return k
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *FieldCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	n := c.aead.NonceSize()
	if len(raw) < n {
		return "", errShortCiphertext
	}
	plain, err := c.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("open ciphertext: %w", err)
	}
	return string(plain), nil
}
