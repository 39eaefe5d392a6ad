package cryptox

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// HashPassword one-way hashes a password before it leaves the device.
// The digest is Keccak-512 in hex, which is what the server has stored for
// accounts created by the web client.
func HashPassword(password string) string {
	h := sha3.NewLegacyKeccak512()
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}
