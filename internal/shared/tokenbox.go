package shared

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrTokenSeal indicates a sealed token could not be opened.
var ErrTokenSeal = errors.New("token seal invalid")

// TokenBox seals upstream bearer tokens before they are written to Redis.
type TokenBox struct {
	key [32]byte
}

// NewTokenBox derives the sealing key from the session secret.
func NewTokenBox(secret string) *TokenBox {
	return &TokenBox{key: sha256.Sum256([]byte(secret))}
}

// Seal encrypts and authenticates plain, returning a URL-safe string.
func (b *TokenBox) Seal(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	out := secretbox.Seal(nonce[:], []byte(plain), &nonce, &b.key)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (b *TokenBox) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize {
		return "", ErrTokenSeal
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrTokenSeal
	}
	return string(plain), nil
}
