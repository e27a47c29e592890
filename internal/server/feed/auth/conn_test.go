package auth_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/Alia5/CONDUIT/internal/server/feed/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// securePair wraps both ends of a loopback TCP connection, each with its own
// key so key mismatch cases can be expressed.
func securePair(t *testing.T, clientKey, serverKey []byte) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	rawClient, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	rawServer, err := ln.Accept()
	require.NoError(t, err)
	t.Cleanup(func() { _ = rawClient.Close(); _ = rawServer.Close() })

	client, err = auth.WrapConn(rawClient, clientKey)
	require.NoError(t, err)
	server, err = auth.WrapConn(rawServer, serverKey)
	require.NoError(t, err)
	return client, server
}

func testKey(t *testing.T, password string) []byte {
	t.Helper()
	key, err := auth.DeriveKey(password)
	require.NoError(t, err)
	return key
}

func TestSecureConnRoundTrip(t *testing.T) {
	key := testKey(t, "test123")
	client, server := securePair(t, key, key)

	_, err := client.Write([]byte("Hello, World!"))
	require.NoError(t, err)

	buf := make([]byte, 13)
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(buf))
}

func TestSecureConnDrainsAcrossReads(t *testing.T) {
	key := testKey(t, "test123")
	client, server := securePair(t, key, key)

	payload := bytes.Repeat([]byte("abcd"), 256)
	_, err := client.Write(payload)
	require.NoError(t, err)

	// Small reads must hand out the packet's plaintext piecewise.
	var got []byte
	chunk := make([]byte, 100)
	for len(got) < len(payload) {
		n, err := server.Read(chunk)
		require.NoError(t, err)
		got = append(got, chunk[:n]...)
	}
	assert.Equal(t, payload, got)
}

func TestSecureConnKeyMismatch(t *testing.T) {
	client, server := securePair(t, testKey(t, "test123"), testKey(t, "123test"))

	_, err := client.Write([]byte("x"))
	require.NoError(t, err)

	_, err = server.Read(make([]byte, 1))
	require.Error(t, err)
	assert.ErrorContains(t, err, "message authentication failed")
}

func TestSecureConnBadKeyLength(t *testing.T) {
	rawClient, rawServer := net.Pipe()
	defer rawClient.Close()
	defer rawServer.Close()

	_, err := auth.WrapConn(rawClient, []byte{1, 2, 3})
	require.Error(t, err)
	assert.ErrorContains(t, err, "bad key length")
}

func TestSecureConnRejectsMalformedPackets(t *testing.T) {
	key := testKey(t, "test123")

	send := func(t *testing.T, raw []byte) error {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		rawClient, err := net.Dial("tcp", ln.Addr().String())
		require.NoError(t, err)
		defer rawClient.Close()
		rawServer, err := ln.Accept()
		require.NoError(t, err)
		defer rawServer.Close()

		server, err := auth.WrapConn(rawServer, key)
		require.NoError(t, err)

		_, err = rawClient.Write(raw)
		require.NoError(t, err)
		_, err = server.Read(make([]byte, 1))
		return err
	}

	t.Run("length below nonce and tag", func(t *testing.T) {
		var pkt [9]byte
		binary.BigEndian.PutUint32(pkt[:4], 5)
		err := send(t, pkt[:])
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("length above packet limit", func(t *testing.T) {
		var hdr [4]byte
		binary.BigEndian.PutUint32(hdr[:], 3*1024*1024)
		err := send(t, hdr[:])
		require.Error(t, err)
		assert.ErrorContains(t, err, "exceeds limit")
	})

	t.Run("closed before write", func(t *testing.T) {
		key := testKey(t, "test123")
		client, _ := securePair(t, key, key)
		require.NoError(t, client.Close())
		_, err := client.Write([]byte("x"))
		assert.Error(t, err)
	})
}
