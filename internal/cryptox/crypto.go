// Package cryptox implements the symmetric field cipher used for diary
// content and for wrapping the account private key.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophdiary/internal/common"
	"golang.org/x/crypto/hkdf"
)

// ErrUndecryptable is returned by Decrypt when the ciphertext cannot be
// opened with the supplied key: wrong key, tampered envelope or garbage.
// It is never returned for a genuinely empty plaintext.
var ErrUndecryptable = errors.New("ciphertext cannot be decrypted with this key")

// Cipher encrypts opaque strings under a string passphrase.
//
// Implementations must be non-deterministic (equal inputs give different
// ciphertexts) and Decrypt must report failures through ErrUndecryptable
// instead of panicking.
type Cipher interface {
	NewSecret() (string, error)
	Encrypt(plaintext, key string) (string, error)
	Decrypt(ciphertext, key string) (string, error)
}

const (
	envelopeVersion byte = 1

	saltSize  = 16
	nonceSize = 12
	keySize   = 32

	hkdfInfo = "gophdiary/v1"
)

// AESCipher is the default Cipher. It has no state and is safe for
// concurrent use.
type AESCipher struct{}

// NewAESCipher returns the default Cipher.
func NewAESCipher() *AESCipher {
	return &AESCipher{}
}

// NewSecret returns 512 bits of randomness as a 128 character hex string.
// Public and private keys are both produced here and are independent.
func (c *AESCipher) NewSecret() (string, error) {
	s, err := common.MakeRandHexString(common.SecretSize)
	if err != nil {
		return "", fmt.Errorf("random secret: %w", err)
	}
	return s, nil
}

// Encrypt seals plaintext with AES-256-GCM under a key derived from
// passphrase and returns a base64 envelope.
//
// Envelope layout (before base64):
//
//	version(1) | salt(16) | nonce(12) | ciphertext+tag
//
// The AES key is HKDF-SHA256(passphrase, salt). A fresh salt and nonce are
// drawn on every call, so encrypting the same input twice yields different
// envelopes.
//
// Example:
//
//	c := cryptox.NewAESCipher()
//	env, err := c.Encrypt("Dear diary", privateKey)
//	if err != nil {
//	    return err
//	}
//	text, err := c.Decrypt(env, privateKey) // "Dear diary"
func (c *AESCipher) Encrypt(plaintext, passphrase string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	out := make([]byte, 0, 1+saltSize+nonceSize+len(plaintext)+aead.Overhead())
	out = append(out, envelopeVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, []byte(plaintext), []byte{envelopeVersion})

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens an envelope produced by Encrypt. Envelopes written by the
// legacy web client (OpenSSL "Salted__" format) are also accepted.
//
// Any failure, including a wrong key, yields ("", ErrUndecryptable).
func (c *AESCipher) Decrypt(ciphertext, passphrase string) (string, error) {
	if isLegacyEnvelope(ciphertext) {
		return decryptLegacy(ciphertext, passphrase)
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrUndecryptable
	}
	if len(raw) < 1+saltSize+nonceSize || raw[0] != envelopeVersion {
		return "", ErrUndecryptable
	}

	salt := raw[1 : 1+saltSize]
	nonce := raw[1+saltSize : 1+saltSize+nonceSize]
	sealed := raw[1+saltSize+nonceSize:]

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return "", ErrUndecryptable
	}
	if len(sealed) < aead.Overhead() {
		return "", ErrUndecryptable
	}

	plaintext, err := aead.Open(nil, nonce, sealed, []byte{envelopeVersion})
	if err != nil {
		return "", ErrUndecryptable
	}
	return string(plaintext), nil
}

func newAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := make([]byte, keySize)
	defer common.WipeByteArray(key)

	kdf := hkdf.New(sha256.New, []byte(passphrase), salt, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
