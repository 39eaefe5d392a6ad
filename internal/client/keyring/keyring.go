// Package keyring manages the account key pair on this device.
//
// The private key never leaves the device in plaintext. It is wrapped
// (encrypted) with the account public key as passphrase, and only that
// wrapped form is written to the injected KeyValueStore. A device holds at
// most one wrapped key, stored under a single configurable key name.
//
// The slot moves between three observable states:
//
//   - absent:   nothing stored (ErrKeyAbsent, KeyStatusAbsent)
//   - mismatch: stored key cannot be unwrapped with the account public key
//     (ErrKeyMismatch, KeyStatusMismatch)
//   - ready:    stored key unwraps (KeyStatusReady)
//
// Manager caches nothing; the private key is unwrapped per call and the
// caller drops it once the operation is done.
package keyring

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/cryptox"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
)

// DefaultKeyName is the store key of the wrapped private key.
const DefaultKeyName = "key"

// KeyValueStore is the storage capability the manager needs. Get returns
// (nil, nil) when the key is missing.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// KeyPair holds a freshly generated public/private key pair.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

type KeyStatus int

const (
	KeyStatusAbsent KeyStatus = iota
	KeyStatusMismatch
	KeyStatusReady
)

func (s KeyStatus) String() string {
	switch s {
	case KeyStatusAbsent:
		return "absent"
	case KeyStatusMismatch:
		return "mismatch"
	case KeyStatusReady:
		return "ready"
	default:
		return "unknown"
	}
}

type Manager struct {
	cipher  cryptox.Cipher
	store   KeyValueStore
	keyName string
	log     logging.Logger
}

// NewManager builds a Manager. An empty keyName falls back to DefaultKeyName.
func NewManager(cipher cryptox.Cipher, store KeyValueStore, keyName string, log logging.Logger) *Manager {
	if keyName == "" {
		keyName = DefaultKeyName
	}
	return &Manager{cipher: cipher, store: store, keyName: keyName, log: log}
}

// GenerateKeyPair returns two independent random secrets.
func (m *Manager) GenerateKeyPair() (KeyPair, error) {
	pub, err := m.cipher.NewSecret()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate public key: %w", err)
	}
	priv, err := m.cipher.NewSecret()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate private key: %w", err)
	}
	return KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// Wrap encrypts privateKey with publicKey as passphrase.
func (m *Manager) Wrap(privateKey, publicKey string) (models.WrappedKey, error) {
	ct, err := m.cipher.Encrypt(privateKey, publicKey)
	if err != nil {
		return models.WrappedKey{}, fmt.Errorf("wrap private key: %w", err)
	}
	return models.WrappedKey{PublicKey: publicKey, Ciphertext: ct}, nil
}

// Unwrap recovers the private key. It returns common.ErrKeyMismatch when
// the wrapped key was not produced with publicKey.
func (m *Manager) Unwrap(wrapped models.WrappedKey, publicKey string) (string, error) {
	priv, err := m.cipher.Decrypt(wrapped.Ciphertext, publicKey)
	if err != nil {
		if errors.Is(err, cryptox.ErrUndecryptable) {
			return "", common.ErrKeyMismatch
		}
		return "", err
	}
	if priv == "" {
		// an empty private key is never generated
		return "", common.ErrKeyMismatch
	}
	return priv, nil
}

// Persist replaces the stored wrapped key.
func (m *Manager) Persist(ctx context.Context, wrapped models.WrappedKey) error {
	if wrapped.Ciphertext == "" {
		return fmt.Errorf("persist wrapped key: %w", common.ErrValidation)
	}
	if err := m.store.Set(ctx, m.keyName, []byte(wrapped.Ciphertext)); err != nil {
		return fmt.Errorf("persist wrapped key: %w", err)
	}
	m.log.Info(ctx, "wrapped key stored", "key_name", m.keyName)
	return nil
}

// Load returns the stored wrapped key or common.ErrKeyAbsent.
func (m *Manager) Load(ctx context.Context) (*models.WrappedKey, error) {
	v, err := m.store.Get(ctx, m.keyName)
	if err != nil {
		return nil, fmt.Errorf("load wrapped key: %w", err)
	}
	if len(v) == 0 {
		return nil, common.ErrKeyAbsent
	}
	return &models.WrappedKey{Ciphertext: string(v)}, nil
}

// PrivateKey loads and unwraps the device key for the account identified
// by publicKey. The two failure outcomes are common.ErrKeyAbsent and
// common.ErrKeyMismatch.
func (m *Manager) PrivateKey(ctx context.Context, publicKey string) (string, error) {
	wrapped, err := m.Load(ctx)
	if err != nil {
		return "", err
	}
	return m.Unwrap(*wrapped, publicKey)
}

// Status reports the slot state for the account identified by publicKey.
// Only storage failures are returned as errors.
func (m *Manager) Status(ctx context.Context, publicKey string) (KeyStatus, error) {
	_, err := m.PrivateKey(ctx, publicKey)
	switch {
	case err == nil:
		return KeyStatusReady, nil
	case errors.Is(err, common.ErrKeyAbsent):
		return KeyStatusAbsent, nil
	case errors.Is(err, common.ErrKeyMismatch):
		return KeyStatusMismatch, nil
	default:
		return KeyStatusAbsent, err
	}
}
