package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters used to stretch a passphrase into an AES-256 key.
const (
	sealIterations  = 1
	sealMemory      = 64 * 1024
	sealParallelism = 4
	sealKeyLength   = 32
	sealSaltLength  = 16
)

// sealVersion prefixes every sealed blob so the format can change later.
const sealVersion byte = 1

var (
	// ErrEmptyPassphrase is returned when sealing or opening without a passphrase.
	ErrEmptyPassphrase = errors.New("cryptox: empty passphrase")

	// ErrSealedTooShort is returned when the input cannot hold a header.
	ErrSealedTooShort = errors.New("cryptox: sealed data too short")
)

// Seal encrypts plaintext with AES-256-GCM under a key derived from
// passphrase with Argon2id.
// Output format: [1-byte version][16-byte salt][12-byte nonce][ciphertext+tag]
func Seal(passphrase string, plaintext []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}

	salt := make([]byte, sealSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, 1+len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, sealVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, []byte{sealVersion}), nil
}

// Open reverses Seal. A wrong passphrase or tampered input fails authentication.
func Open(passphrase string, sealed []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	if len(sealed) < 1+sealSaltLength {
		return nil, ErrSealedTooShort
	}
	if sealed[0] != sealVersion {
		return nil, fmt.Errorf("cryptox: unsupported sealed version %d", sealed[0])
	}

	salt := sealed[1 : 1+sealSaltLength]
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}

	rest := sealed[1+sealSaltLength:]
	if len(rest) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrSealedTooShort
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte{sealVersion})
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(passphrase), salt, sealIterations, sealMemory, sealParallelism, sealKeyLength)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
