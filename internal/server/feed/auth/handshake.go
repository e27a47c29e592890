package auth

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Alia5/CONDUIT/apitypes"
	apierror "github.com/Alia5/CONDUIT/internal/server/feed/error"
)

// Handshake wire format, client first:
//
//	client: magic || client_nonce[32] || hmac(key, context || client_nonce)
//	server: "OK\0" || server_nonce[32]
//
// A server that rejects the MAC closes the connection or answers with a
// problem+json line instead of "OK\0".
const (
	HandshakeMagic = "eCD1\x00"
	NonceSize      = 32
	authContext    = "CONDUIT-Auth-v1"

	okReply = "OK\x00"
)

// IsAuthHandshake peeks whether the connection opens with the handshake
// magic. The reader is not advanced.
func IsAuthHandshake(r *bufio.Reader) (bool, error) {
	b, err := r.Peek(len(HandshakeMagic))
	if err != nil {
		return false, err
	}
	return string(b) == HandshakeMagic, nil
}

// HandleAuthHandshake runs one side of the handshake and returns both nonces
// for session key derivation. isClient selects which half to perform.
func HandleAuthHandshake(r *bufio.Reader, w io.Writer, key []byte, isClient bool) (clientNonce, serverNonce []byte, err error) {
	if r == nil {
		return nil, nil, fmt.Errorf("handshake: nil reader")
	}
	if len(key) == 0 {
		return nil, nil, fmt.Errorf("handshake: missing key")
	}
	if isClient {
		return clientHandshake(r, w, key)
	}
	return serverHandshake(r, w, key)
}

// authTag computes the proof-of-key MAC over the client nonce.
func authTag(key, nonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(authContext))
	_, _ = mac.Write(nonce)
	return mac.Sum(nil)
}

func clientHandshake(r *bufio.Reader, w io.Writer, key []byte) (clientNonce, serverNonce []byte, err error) {
	if w == nil {
		return nil, nil, fmt.Errorf("handshake: nil writer")
	}
	clientNonce = make([]byte, NonceSize)
	if _, err := rand.Read(clientNonce); err != nil {
		return nil, nil, fmt.Errorf("generate client nonce: %w", err)
	}

	msg := append([]byte(HandshakeMagic), clientNonce...)
	msg = append(msg, authTag(key, clientNonce)...)
	if _, err := w.Write(msg); err != nil {
		return nil, nil, fmt.Errorf("write handshake: %w", err)
	}

	prefix := make([]byte, len(okReply))
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, nil, fmt.Errorf("read handshake response: %w", err)
	}
	if string(prefix) != okReply {
		return nil, nil, rejectionError(r, prefix)
	}

	serverNonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(r, serverNonce); err != nil {
		return nil, nil, fmt.Errorf("read server nonce: %w", err)
	}
	return clientNonce, serverNonce, nil
}

func serverHandshake(r *bufio.Reader, w io.Writer, key []byte) (clientNonce, serverNonce []byte, err error) {
	if _, err := r.Discard(len(HandshakeMagic)); err != nil {
		return nil, nil, fmt.Errorf("discard handshake magic: %w", err)
	}

	clientNonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(r, clientNonce); err != nil {
		return nil, nil, fmt.Errorf("read client nonce: %w", err)
	}
	clientAuth := make([]byte, sha256.Size)
	if _, err := io.ReadFull(r, clientAuth); err != nil {
		return nil, nil, fmt.Errorf("read client auth: %w", err)
	}
	if !hmac.Equal(clientAuth, authTag(key, clientNonce)) {
		return nil, nil, apierror.ErrUnauthorized("invalid password")
	}

	if w == nil {
		return nil, nil, fmt.Errorf("write response: write on nil pointer")
	}
	serverNonce = make([]byte, NonceSize)
	if _, err := rand.Read(serverNonce); err != nil {
		return nil, nil, fmt.Errorf("generate server nonce: %w", err)
	}
	if _, err := w.Write(append([]byte(okReply), serverNonce...)); err != nil {
		return nil, nil, fmt.Errorf("write response: %w", err)
	}
	return clientNonce, serverNonce, nil
}

// rejectionError decodes the server's refusal. Servers answer a bad MAC with
// a problem+json line; anything else is reported raw.
func rejectionError(r *bufio.Reader, prefix []byte) error {
	rest, _ := io.ReadAll(r)
	line := strings.TrimSuffix(string(append(prefix, rest...)), "\n")

	var apiErr apitypes.ApiError
	if err := json.Unmarshal([]byte(line), &apiErr); err == nil && (apiErr.Status != 0 || apiErr.Title != "") {
		return &apiErr
	}
	return fmt.Errorf("invalid handshake response from server: %s", line)
}
