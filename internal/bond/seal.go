package bond

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// deriveKey stretches the configured device secret into a 32-byte AES key.
// HKDF(secret, salt=nil, info="padbridge bond store", length=32).
func deriveKey(secret string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("padbridge bond store"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("bond: HKDF: %w", err)
	}
	return key, nil
}

// seal encrypts plaintext with AES-256-GCM. The blob layout is
// nonce (12 bytes) || ciphertext+tag.
func seal(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("bond: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("bond: new GCM: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("bond: random nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// unseal reverses seal. It fails if the blob was tampered with or sealed
// under a different secret.
func unseal(key, blob []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("bond: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("bond: new GCM: %w", err)
	}

	if len(blob) < aead.NonceSize() {
		return nil, fmt.Errorf("bond: sealed blob too short (%d bytes)", len(blob))
	}
	nonce, sealed := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("bond: decrypt: %w", err)
	}
	return plaintext, nil
}
