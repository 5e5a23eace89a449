package session

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32
)

// deriveKey stretches the device secret into a sealing key.
func deriveKey(secret, salt []byte) (*[keySize]byte, error) {
	raw, err := scrypt.Key(secret, salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

// seal encrypts the plaintext under a key derived from the device secret.
// Layout: salt | nonce | box.
func seal(secret, plaintext []byte) ([]byte, error) {
	var salt [saltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	key, err := deriveKey(secret, salt[:])
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plaintext)+secretbox.Overhead)
	out = append(out, salt[:]...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plaintext, &nonce, key), nil
}

// open decrypts a sealed blob. A blob that fails to open for any reason is
// reported as absent rather than an error: a corrupt or foreign credential
// file is indistinguishable from a fresh install.
func open(secret, blob []byte) ([]byte, bool) {
	if len(blob) < saltSize+nonceSize+secretbox.Overhead {
		return nil, false
	}
	var nonce [nonceSize]byte
	copy(nonce[:], blob[saltSize:saltSize+nonceSize])

	key, err := deriveKey(secret, blob[:saltSize])
	if err != nil {
		return nil, false
	}
	return secretbox.Open(nil, blob[saltSize+nonceSize:], &nonce, key)
}
