package models

// WrappedKey is the account private key encrypted with the public key as
// passphrase. Ciphertext is the only form of the private key that is ever
// persisted or shown to the user (as the exportable "secret key").
type WrappedKey struct {
	PublicKey  string
	Ciphertext string
}
