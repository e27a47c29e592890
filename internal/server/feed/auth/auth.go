// Package auth implements the optional feed password layer: a shared-key
// handshake followed by ChaCha20-Poly1305 packet framing on the connection.
package auth

import (
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"errors"
)

const (
	keyAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	keyLength   = 16

	kdfIterations = 100000
	kdfSalt       = "CONDUIT-Key-v1"
	sessionLabel  = "CONDUIT-Session-v1"
)

// GenerateKey produces a random base62 key for first-run server setup.
func GenerateKey() (string, error) {
	raw := make([]byte, keyLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	out := make([]byte, keyLength)
	for i, b := range raw {
		out[i] = keyAlphabet[int(b)%len(keyAlphabet)]
	}
	return string(out), nil
}

// DeriveKey stretches a password into the 32-byte handshake key. Client and
// server must use identical parameters or the MAC check fails.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("password cannot be empty")
	}
	return pbkdf2.Key(sha256.New, password, []byte(kdfSalt), kdfIterations, 32)
}

// DeriveSessionKey mixes the stretched key with both handshake nonces into
// the per-connection cipher key. Plain SHA-256 keeps foreign-language client
// implementations simple.
func DeriveSessionKey(key, serverNonce, clientNonce []byte) []byte {
	h := sha256.New()
	h.Write(key)
	h.Write(serverNonce)
	h.Write(clientNonce)
	h.Write([]byte(sessionLabel))
	return h.Sum(nil)
}
