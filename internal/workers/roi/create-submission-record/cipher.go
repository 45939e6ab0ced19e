// internal/workers/roi/create-submission-record/cipher.go
package createsubmissionrecord

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
)

var ErrEncryptionFailed = errors.New("ENCRYPTION_FAILED")

// FieldCipher seals contact details at rest and derives a keyed, deterministic
// index of the email so records can be found without decrypting every row.
type FieldCipher struct {
	aead     cipher.AEAD
	indexKey []byte
}

// DecodeKey accepts standard or URL-safe base64, padded or not.
func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if key, err := enc.DecodeString(s); err == nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: key is not valid base64", ErrEncryptionFailed)
}

// NewFieldCipher builds a cipher from a 32 byte key. An empty indexKey derives
// one from the encryption key.
func NewFieldCipher(encryptionKey, indexKey []byte) (*FieldCipher, error) {
	if len(encryptionKey) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: encryption key must be %d bytes, got %d",
			ErrEncryptionFailed, chacha20poly1305.KeySize, len(encryptionKey))
	}
	aead, err := chacha20poly1305.NewX(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	switch {
	case len(indexKey) == 0:
		sum := blake2b.Sum256(append([]byte("blind-index:"), encryptionKey...))
		indexKey = sum[:]
	case len(indexKey) > blake2b.Size:
		sum := blake2b.Sum256(indexKey)
		indexKey = sum[:]
	}

	return &FieldCipher{aead: aead, indexKey: indexKey}, nil
}

// Seal returns nonce || ciphertext.
func (c *FieldCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrEncryptionFailed, err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *FieldCipher) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < c.aead.NonceSize()+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: sealed value too short", ErrEncryptionFailed)
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return plaintext, nil
}

// BlindIndex is case and whitespace insensitive.
func (c *FieldCipher) BlindIndex(email string) string {
	h, _ := blake2b.New256(c.indexKey)
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(h.Sum(nil))
}
