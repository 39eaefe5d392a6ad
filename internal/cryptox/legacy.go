package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// Envelopes written by the original web client use the OpenSSL passphrase
// format: base64("Salted__" | salt(8) | AES-256-CBC(PKCS#7)), key and IV
// from EVP_BytesToKey with MD5. They can be read but are never produced.
const (
	legacyMagic       = "Salted__"
	legacyBase64Magic = "U2FsdGVkX1"
	legacySaltSize    = 8
)

func isLegacyEnvelope(s string) bool {
	return strings.HasPrefix(s, legacyBase64Magic)
}

func decryptLegacy(ciphertext, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrUndecryptable
	}
	if len(raw) < len(legacyMagic)+legacySaltSize+aes.BlockSize || string(raw[:len(legacyMagic)]) != legacyMagic {
		return "", ErrUndecryptable
	}

	salt := raw[len(legacyMagic) : len(legacyMagic)+legacySaltSize]
	body := raw[len(legacyMagic)+legacySaltSize:]
	if len(body)%aes.BlockSize != 0 {
		return "", ErrUndecryptable
	}

	key, iv := evpBytesToKey([]byte(passphrase), salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", ErrUndecryptable
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	plain, ok := pkcs7Unpad(plain, aes.BlockSize)
	if !ok || !utf8.Valid(plain) {
		return "", ErrUndecryptable
	}
	return string(plain), nil
}

// evpBytesToKey is OpenSSL's EVP_BytesToKey with MD5 and a single round.
func evpBytesToKey(password, salt []byte, keyLen, ivLen int) ([]byte, []byte) {
	var derived, prev []byte
	for len(derived) < keyLen+ivLen {
		h := md5.New()
		h.Write(prev)
		h.Write(password)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+ivLen]
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, bool) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, false
	}
	if !bytes.Equal(b[len(b)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, false
	}
	return b[:len(b)-n], true
}
