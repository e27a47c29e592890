package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// Packet framing over the raw connection, both directions:
//
//	length  uint32 BE   len(nonce) + len(ciphertext)
//	nonce   [12]byte    send counter, BE64 in the trailing 8 bytes
//	ct      []byte      ChaCha20-Poly1305 sealed payload
const (
	packetNonceSize = chacha20poly1305.NonceSize
	maxPacketSize   = 2 * 1024 * 1024 // 2 MB
)

// secureConn encrypts a feed connection after a successful handshake. Each
// Write seals one packet; Read unseals one packet at a time and hands out
// plaintext from a buffer, so callers see ordinary stream semantics.
type secureConn struct {
	net.Conn
	aead cipher.AEAD

	writeMu sync.Mutex
	counter uint64

	plain bytes.Buffer
}

// WrapConn layers encrypted packet framing over conn using the session key
// from the handshake. Both peers must wrap with the same key.
func WrapConn(conn net.Conn, sessionKey []byte) (net.Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	return &secureConn{Conn: conn, aead: aead}, nil
}

func (s *secureConn) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var nonce [packetNonceSize]byte
	binary.BigEndian.PutUint64(nonce[packetNonceSize-8:], s.counter)
	s.counter++

	// One buffer, one Write: header, nonce and ciphertext always travel
	// together even when the underlying conn interleaves writers.
	pkt := make([]byte, 4+packetNonceSize, 4+packetNonceSize+len(p)+s.aead.Overhead())
	copy(pkt[4:], nonce[:])
	pkt = s.aead.Seal(pkt, nonce[:], p, nil)
	binary.BigEndian.PutUint32(pkt[:4], uint32(len(pkt)-4))

	if _, err := s.Conn.Write(pkt); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *secureConn) Read(p []byte) (int, error) {
	if s.plain.Len() == 0 {
		if err := s.fill(); err != nil {
			return 0, err
		}
	}
	return s.plain.Read(p)
}

// fill reads and unseals the next packet into the plaintext buffer.
func (s *secureConn) fill() error {
	var hdr [4]byte
	if _, err := io.ReadFull(s.Conn, hdr[:]); err != nil {
		return err
	}
	length := binary.BigEndian.Uint32(hdr[:])
	if length > maxPacketSize {
		return fmt.Errorf("packet length %d exceeds limit", length)
	}
	if length < uint32(packetNonceSize+s.aead.Overhead()) {
		return io.ErrUnexpectedEOF
	}

	pkt := make([]byte, length)
	if _, err := io.ReadFull(s.Conn, pkt); err != nil {
		return err
	}

	pt, err := s.aead.Open(nil, pkt[:packetNonceSize], pkt[packetNonceSize:], nil)
	if err != nil {
		return err
	}
	s.plain.Write(pt)
	return nil
}
