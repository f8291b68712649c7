// Package seal provides authenticated encryption of message bodies.
//
// A sealed message is text of the form
//
//	keyID "." base64url(nonce || AEAD.Seal(plaintext, aad))
//
// so it survives line-oriented and text-only links. Keys are looked up by id,
// which allows rotation: Keys holds every accepted key and KeyID selects the
// one used for sealing. The nonce is random per message.
package seal

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrFormat  = errors.New("seal: invalid sealed message format")
	ErrInvalid = errors.New("seal: message authentication failed")
	ErrConfig  = errors.New("seal: invalid configuration")
)

// MaxSealedLen bounds the amount of peer-controlled data Open will decode.
const MaxSealedLen = 64 << 10

// KeySize is the key size, in bytes, of the default AEAD.
const KeySize = chacha20poly1305.KeySize

// Codec seals and opens messages.
type Codec struct {
	KeyID string
	Keys  map[string][]byte

	// NewAEAD constructs the AEAD for a key.
	// Defaults to chacha20poly1305.NewX.
	NewAEAD func(key []byte) (cipher.AEAD, error)
}

// NewCodec validates the keys and returns a Codec sealing with keyID. A nil
// newAEAD selects XChaCha20-Poly1305.
func NewCodec(keyID string, keys map[string][]byte, newAEAD func(key []byte) (cipher.AEAD, error)) (*Codec, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys", ErrConfig)
	}
	if _, ok := keys[keyID]; !ok {
		return nil, fmt.Errorf("%w: key %q not found", ErrConfig, keyID)
	}
	if newAEAD == nil {
		newAEAD = chacha20poly1305.NewX
	}
	for id, k := range keys {
		if id == "" || strings.Contains(id, ".") {
			return nil, fmt.Errorf("%w: invalid key id %q", ErrConfig, id)
		}
		if _, err := newAEAD(k); err != nil {
			return nil, fmt.Errorf("%w: key %s: %w", ErrConfig, id, err)
		}
	}
	return &Codec{
		KeyID:   keyID,
		Keys:    keys,
		NewAEAD: newAEAD,
	}, nil
}

// Seal encrypts plain. aad binds the message to its context (for example
// the endpoint path) and must be presented again to Open.
func (c *Codec) Seal(plain, aad []byte) ([]byte, error) {
	if c == nil || c.NewAEAD == nil {
		return nil, ErrConfig
	}
	key, ok := c.Keys[c.KeyID]
	if !ok {
		return nil, ErrConfig
	}
	aead, err := c.NewAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	sealed := aead.Seal(nonce, nonce, plain, aad)

	enc := base64.RawURLEncoding
	out := make([]byte, len(c.KeyID)+1+enc.EncodedLen(len(sealed)))
	n := copy(out, c.KeyID)
	out[n] = '.'
	enc.Encode(out[n+1:], sealed)
	return out, nil
}

// Open authenticates and decrypts a message produced by Seal.
func (c *Codec) Open(msg, aad []byte) ([]byte, error) {
	if c == nil || c.NewAEAD == nil {
		return nil, ErrConfig
	}
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 || len(msg) > MaxSealedLen {
		return nil, ErrFormat
	}
	keyID, encoded, ok := bytes.Cut(msg, []byte("."))
	if !ok || len(keyID) == 0 || len(encoded) == 0 {
		return nil, ErrFormat
	}
	key, ok := c.Keys[string(keyID)]
	if !ok {
		return nil, ErrInvalid
	}

	sealed := make([]byte, base64.RawURLEncoding.DecodedLen(len(encoded)))
	n, err := base64.RawURLEncoding.Decode(sealed, encoded)
	if err != nil {
		return nil, ErrFormat
	}
	sealed = sealed[:n]

	aead, err := c.NewAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrFormat
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrInvalid
	}
	return plain, nil
}
