package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecret_LengthAndEntropy(t *testing.T) {
	c := NewAESCipher()

	a, err := c.NewSecret()
	require.NoError(t, err)
	b, err := c.NewSecret()
	require.NoError(t, err)

	require.Len(t, a, 128)
	_, err = hex.DecodeString(a)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := NewAESCipher()

	tests := []struct {
		name      string
		plaintext string
		key       string
	}{
		{name: "ascii", plaintext: "Hello", key: "k1"},
		{name: "multiline", plaintext: "line one\nline two\n\n# heading", key: "another key"},
		{name: "unicode", plaintext: "오늘은 맑음 ☀️", key: "ключ"},
		{name: "empty plaintext", plaintext: "", key: "k1"},
		{name: "empty key", plaintext: "still works", key: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := c.Encrypt(tt.plaintext, tt.key)
			require.NoError(t, err)

			got, err := c.Decrypt(env, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, got)
		})
	}
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	c := NewAESCipher()

	a, err := c.Encrypt("same", "key")
	require.NoError(t, err)
	b, err := c.Encrypt("same", "key")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecrypt_WrongKey(t *testing.T) {
	c := NewAESCipher()

	env, err := c.Encrypt("secret", "k1")
	require.NoError(t, err)

	require.NotPanics(t, func() {
		got, err := c.Decrypt(env, "k2")
		require.ErrorIs(t, err, ErrUndecryptable)
		assert.Empty(t, got)
	})
}

func TestDecrypt_EmptyPlaintextIsNotFailure(t *testing.T) {
	c := NewAESCipher()

	env, err := c.Encrypt("", "k1")
	require.NoError(t, err)

	got, err := c.Decrypt(env, "k1")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = c.Decrypt(env, "k2")
	require.ErrorIs(t, err, ErrUndecryptable)
}

func TestDecrypt_Malformed(t *testing.T) {
	c := NewAESCipher()

	env, err := c.Encrypt("payload", "k")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(env)
	require.NoError(t, err)

	tampered := append([]byte(nil), raw...)
	tampered[len(tampered)-1] ^= 0xff

	wrongVersion := append([]byte(nil), raw...)
	wrongVersion[0] = 9

	cases := map[string]string{
		"empty":         "",
		"not base64":    "%%%not-base64%%%",
		"too short":     base64.StdEncoding.EncodeToString([]byte{envelopeVersion, 1, 2, 3}),
		"tampered":      base64.StdEncoding.EncodeToString(tampered),
		"wrong version": base64.StdEncoding.EncodeToString(wrongVersion),
		"truncated":     base64.StdEncoding.EncodeToString(raw[:1+saltSize+nonceSize+4]),
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := c.Decrypt(in, "k")
			require.ErrorIs(t, err, ErrUndecryptable)
			assert.Empty(t, got)
		})
	}
}

// encryptLegacy produces the OpenSSL passphrase format written by the web client.
func encryptLegacy(t *testing.T, plaintext, passphrase string, salt []byte) string {
	t.Helper()
	require.Len(t, salt, legacySaltSize)

	key, iv := evpBytesToKey([]byte(passphrase), salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	data := append([]byte(plaintext), bytes.Repeat([]byte{byte(pad)}, pad)...)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)

	var buf bytes.Buffer
	buf.WriteString(legacyMagic)
	buf.Write(salt)
	buf.Write(out)
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecrypt_LegacyEnvelope(t *testing.T) {
	c := NewAESCipher()
	salt := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	env := encryptLegacy(t, "written in the browser", "pub-x", salt)
	require.True(t, isLegacyEnvelope(env))

	got, err := c.Decrypt(env, "pub-x")
	require.NoError(t, err)
	assert.Equal(t, "written in the browser", got)
}

func TestDecrypt_LegacyMalformed(t *testing.T) {
	c := NewAESCipher()

	env := encryptLegacy(t, "x", "k", []byte("saltsalt"))
	raw, err := base64.StdEncoding.DecodeString(env)
	require.NoError(t, err)

	// body no longer a multiple of the block size
	short := base64.StdEncoding.EncodeToString(raw[:len(raw)-3])
	_, err = c.Decrypt(short, "k")
	require.ErrorIs(t, err, ErrUndecryptable)

	_, err = c.Decrypt(legacyBase64Magic+"!!!", "k")
	require.ErrorIs(t, err, ErrUndecryptable)
}

func TestPKCS7Unpad(t *testing.T) {
	good := append([]byte("abcdefghijkl"), 4, 4, 4, 4)
	out, ok := pkcs7Unpad(good, 16)
	require.True(t, ok)
	assert.Equal(t, []byte("abcdefghijkl"), out)

	bad := append([]byte("abcdefghijkl"), 1, 2, 3, 4)
	_, ok = pkcs7Unpad(bad, 16)
	assert.False(t, ok)

	zero := make([]byte, 16)
	_, ok = pkcs7Unpad(zero, 16)
	assert.False(t, ok)
}

func TestHashPassword(t *testing.T) {
	// Keccak-512 of the empty string.
	const emptyDigest = "0eab42de4c3ceb9235fc91acffe746b29c29a8c366b7c60e4e67c466f36a4304" +
		"c00fa9caf9d87976ba469bcbe06713b435f091ef2769fb160cdab33d3670680e"
	assert.Equal(t, emptyDigest, HashPassword(""))

	h1 := HashPassword("Ir5c7y8dS3")
	h2 := HashPassword("Ir5c7y8dS3")
	assert.Len(t, h1, 128)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, HashPassword("Ir5c7y8dS4"))
}
