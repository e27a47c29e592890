package apiclient

import (
	"bufio"
	"context"
	"encoding"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	apitypes "github.com/Alia5/CONDUIT/apitypes"
)

// SourceStream represents the sample stream connection for one source.
// Clients push raw sample frames; the server folds each frame into its next
// update tick.
type SourceStream struct {
	conn     net.Conn
	SourceID uint32
	closed   bool
}

// OpenStream connects to an existing source's sample stream channel.
// The source must already be registered (use SourceAdd first).
func (c *Client) OpenStream(ctx context.Context, sourceID uint32) (*SourceStream, error) {
	if c.transport.mock != nil {
		return nil, fmt.Errorf("stream connections not supported with mock transport")
	}

	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}

	streamPath := fmt.Sprintf("source/%d/stream\x00", sourceID)
	if _, err := conn.Write([]byte(streamPath)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}

	// Stream connections outlive the transport's one-shot write deadline.
	_ = conn.SetDeadline(time.Time{})

	return &SourceStream{conn: conn, SourceID: sourceID}, nil
}

// AddSourceAndConnect registers a source and immediately connects its sample
// stream. This is a convenience wrapper combining SourceAdd + OpenStream.
func (c *Client) AddSourceAndConnect(ctx context.Context, family, hand string) (*SourceStream, *apitypes.SourceAddResponse, error) {
	resp, err := c.SourceAddCtx(ctx, family, hand)
	if err != nil {
		return nil, nil, err
	}

	stream, err := c.OpenStream(ctx, resp.SourceID)
	if err != nil {
		return nil, resp, err
	}

	return stream, resp, nil
}

// Write sends raw bytes to the sample stream. Frames are fixed-size per
// family; partial frames desynchronize the stream.
func (s *SourceStream) Write(data []byte) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("stream closed")
	}
	return s.conn.Write(data)
}

// WriteBinary marshals and sends a BinaryMarshaler to the sample stream.
// This is the preferred way to push samples (e.g. source.MouseSample,
// source.TouchSample).
func (s *SourceStream) WriteBinary(v encoding.BinaryMarshaler) error {
	if s.closed {
		return fmt.Errorf("stream closed")
	}
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = s.conn.Write(data)
	return err
}

// SetWriteDeadline sets the write deadline for the underlying connection.
func (s *SourceStream) SetWriteDeadline(t time.Time) error {
	return s.conn.SetWriteDeadline(t)
}

// Close closes the sample stream. The server keeps the source alive for its
// reconnect window before dropping it.
func (s *SourceStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

// EventStream represents a subscription to the server's input events.
type EventStream struct {
	conn   net.Conn
	closed bool

	readCancel context.CancelFunc
	readMu     sync.Mutex
}

// OpenEvents subscribes to the server's event stream. Events arrive as one
// JSON line each; use Start to decode them on a channel.
func (c *Client) OpenEvents(ctx context.Context) (*EventStream, error) {
	if c.transport.mock != nil {
		return nil, fmt.Errorf("stream connections not supported with mock transport")
	}

	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Write([]byte("events/stream\x00")); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}

	// Stream connections outlive the transport's one-shot write deadline.
	_ = conn.SetDeadline(time.Time{})

	return &EventStream{conn: conn}, nil
}

// Start begins asynchronously decoding event messages in a background
// goroutine. The message channel is closed when the stream ends; the error
// channel then carries the terminal error (io.EOF on clean shutdown).
func (s *EventStream) Start(ctx context.Context, chSize int) (<-chan apitypes.EventMessage, <-chan error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	if s.readCancel != nil {
		panic("Start called twice on the same stream")
	}

	msgCh := make(chan apitypes.EventMessage, chSize)
	errCh := make(chan error, 1)

	readCtx, cancel := context.WithCancel(ctx)
	s.readCancel = cancel

	go func() {
		defer close(msgCh)
		defer close(errCh)
		defer cancel()

		dec := json.NewDecoder(bufio.NewReader(s.conn))
		for {
			select {
			case <-readCtx.Done():
				errCh <- readCtx.Err()
				return
			default:
			}

			var msg apitypes.EventMessage
			if err := dec.Decode(&msg); err != nil {
				errCh <- err
				return
			}

			select {
			case msgCh <- msg:
			case <-readCtx.Done():
				errCh <- readCtx.Err()
				return
			}
		}
	}()

	return msgCh, errCh
}

// SetReadDeadline sets the read deadline for the underlying connection.
func (s *EventStream) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

// Close closes the event stream and stops any background reading.
func (s *EventStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.readMu.Lock()
	if s.readCancel != nil {
		s.readCancel()
	}
	s.readMu.Unlock()

	return s.conn.Close()
}
