package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrWeakEncryptionKey is returned when the application key is too short to
// derive a sealing key from.
var ErrWeakEncryptionKey = errors.New("token: encryption key must be at least 16 bytes")

const sealInfo = "sessionkit/refresh-token/v1"

// cipherBox is the encryption boundary for values persisted at rest.
// seal produces an opaque blob; open returns ("", false) on any failure so
// callers treat undecodable data uniformly as absent.
type cipherBox struct {
	key [chacha20poly1305.KeySize]byte
}

func newCipherBox(appKey []byte) (*cipherBox, error) {
	if len(appKey) < 16 {
		return nil, ErrWeakEncryptionKey
	}
	box := &cipherBox{}
	h := hkdf.New(sha256.New, appKey, nil, []byte(sealInfo))
	if _, err := io.ReadFull(h, box.key[:]); err != nil {
		return nil, err
	}
	return box, nil
}

func (b *cipherBox) seal(value string) (string, error) {
	aead, err := chacha20poly1305.NewX(b.key[:])
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (b *cipherBox) open(blob string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", false
	}
	aead, err := chacha20poly1305.NewX(b.key[:])
	if err != nil {
		return "", false
	}
	if len(raw) < aead.NonceSize() {
		return "", false
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", false
	}
	return string(plain), true
}
