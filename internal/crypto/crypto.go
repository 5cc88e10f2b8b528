// Package crypto seals clipboard content before it reaches the relay, so a
// relay shared between machines only ever stores ciphertext.
//
// A 32-byte secretbox key is derived from the shared token with HKDF-SHA256.
// Sealed content is base64(nonce || secretbox(content)):
//
//	[ 24-byte nonce ][ ciphertext ]
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var hkdfInfo = []byte("wmglue-relay-v1")

// ErrOpen is returned when content cannot be decrypted with the key.
var ErrOpen = errors.New("decryption failed (wrong token?)")

// Key is a derived secretbox key.
type Key [keySize]byte

// DeriveKey derives a Key from token. Both relay clients must share the token.
func DeriveKey(token string) (*Key, error) {
	h := hkdf.New(sha256.New, []byte(token), nil, hkdfInfo)
	var key Key
	if _, err := io.ReadFull(h, key[:]); err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return &key, nil
}

// Seal encrypts plaintext, prepending a random nonce.
func (k *Key) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, (*[keySize]byte)(k)), nil
}

// Open decrypts nonce+ciphertext.
func (k *Key) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("ciphertext too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, (*[keySize]byte)(k))
	if !ok {
		return nil, ErrOpen
	}
	return plain, nil
}

// SealString seals text and base64-encodes the result for a JSON field.
func (k *Key) SealString(text string) (string, error) {
	ct, err := k.Seal([]byte(text))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// OpenString reverses SealString.
func (k *Key) OpenString(sealed string) (string, error) {
	ct, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	plain, err := k.Open(ct)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
