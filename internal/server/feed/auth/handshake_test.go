package auth_test

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"net"
	"testing"

	"github.com/Alia5/CONDUIT/internal/server/feed/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runServerHalf performs the server side of the handshake against a client
// half running in a goroutine and returns both results.
func runServerHalf(t *testing.T, serverKey, clientKey []byte) (serverErr, clientErr error, serverNonces [2][]byte) {
	t.Helper()
	cliConn, srvConn := net.Pipe()
	defer cliConn.Close()
	defer srvConn.Close()

	clientDone := make(chan error, 1)
	go func() {
		_, _, err := auth.HandleAuthHandshake(bufio.NewReader(cliConn), cliConn, clientKey, true)
		clientDone <- err
		cliConn.Close()
	}()

	cn, sn, err := auth.HandleAuthHandshake(bufio.NewReader(srvConn), srvConn, serverKey, false)
	srvConn.Close()
	return err, <-clientDone, [2][]byte{cn, sn}
}

func TestHandshakeRoundTrip(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)

	srvErr, cliErr, nonces := runServerHalf(t, key, key)
	require.NoError(t, srvErr)
	require.NoError(t, cliErr)
	assert.Len(t, nonces[0], auth.NonceSize)
	assert.Len(t, nonces[1], auth.NonceSize)
	assert.NotEqual(t, nonces[0], nonces[1], "nonces must be independent")
}

func TestHandshakeRejectsWrongPassword(t *testing.T) {
	serverKey, err := auth.DeriveKey("test123")
	require.NoError(t, err)
	clientKey, err := auth.DeriveKey("wrongpass")
	require.NoError(t, err)

	srvErr, _, _ := runServerHalf(t, serverKey, clientKey)
	require.Error(t, srvErr)
	assert.ErrorContains(t, srvErr, "invalid password")
}

func TestHandshakeServerInputErrors(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)

	// A well-formed client opening for the valid-MAC case.
	clientNonce := bytes.Repeat([]byte{7}, auth.NonceSize)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("CONDUIT-Auth-v1"))
	mac.Write(clientNonce)
	valid := append([]byte(auth.HandshakeMagic), clientNonce...)
	valid = append(valid, mac.Sum(nil)...)

	cases := []struct {
		name    string
		input   []byte
		wantErr string
	}{
		{name: "truncated magic", input: []byte("eC"), wantErr: "discard handshake magic"},
		{name: "truncated nonce", input: append([]byte(auth.HandshakeMagic), 1, 2, 3), wantErr: "read client nonce"},
		{name: "missing mac", input: append([]byte(auth.HandshakeMagic), clientNonce...), wantErr: "read client auth"},
		{name: "not a handshake at all", input: []byte("NOT_A_HANDSHAKE"), wantErr: "read client nonce"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := bufio.NewReader(bytes.NewReader(tc.input))
			_, _, err := auth.HandleAuthHandshake(r, bytes.NewBuffer(nil), key, false)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}

	t.Run("nil writer after valid proof", func(t *testing.T) {
		r := bufio.NewReader(bytes.NewReader(valid))
		_, _, err := auth.HandleAuthHandshake(r, nil, key, false)
		require.Error(t, err)
		assert.ErrorContains(t, err, "write response")
	})

	t.Run("missing key", func(t *testing.T) {
		r := bufio.NewReader(bytes.NewReader(valid))
		_, _, err := auth.HandleAuthHandshake(r, bytes.NewBuffer(nil), nil, false)
		require.Error(t, err)
		assert.ErrorContains(t, err, "missing key")
	})
}

func TestHandshakeClientRejectionDecoding(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)

	t.Run("problem json refusal", func(t *testing.T) {
		cliConn, srvConn := net.Pipe()
		defer cliConn.Close()
		go func() {
			defer srvConn.Close()
			buf := make([]byte, 1024)
			_, _ = srvConn.Read(buf)
			_, _ = srvConn.Write([]byte(`{"status":401,"title":"Unauthorized","detail":"invalid password"}` + "\n"))
		}()

		_, _, err := auth.HandleAuthHandshake(bufio.NewReader(cliConn), cliConn, key, true)
		require.Error(t, err)
		assert.ErrorContains(t, err, "401 Unauthorized: invalid password")
	})

	t.Run("garbage refusal", func(t *testing.T) {
		cliConn, srvConn := net.Pipe()
		defer cliConn.Close()
		go func() {
			defer srvConn.Close()
			buf := make([]byte, 1024)
			_, _ = srvConn.Read(buf)
			_, _ = srvConn.Write([]byte("go away"))
		}()

		_, _, err := auth.HandleAuthHandshake(bufio.NewReader(cliConn), cliConn, key, true)
		require.Error(t, err)
		assert.ErrorContains(t, err, "invalid handshake response from server")
	})
}

func TestIsAuthHandshake(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    bool
		wantErr bool
	}{
		{name: "magic present", input: auth.HandshakeMagic + "trailing", want: true},
		{name: "plain request", input: "ping\x00", want: false},
		{name: "too short to tell", input: "eC", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := bufio.NewReader(bytes.NewBufferString(tc.input))
			got, err := auth.IsAuthHandshake(r)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			// Peek must not consume; the request parser reads next.
			peeked, err := r.Peek(1)
			require.NoError(t, err)
			assert.Equal(t, tc.input[0], peeked[0])
		})
	}
}
