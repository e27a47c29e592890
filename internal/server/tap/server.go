// Package tap relays feed connections to an upstream server while logging
// every frame it can decode: request lines, JSON responses, event streams
// and, when the source registration passed through the same tap, the binary
// sample frames of that source. Encrypted sessions are relayed untouched.
package tap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Alia5/CONDUIT/internal/log"
)

type Server struct {
	listenAddr        string
	upstreamAddr      string
	connectionTimeout time.Duration
	logger            *slog.Logger
	rawLogger         log.RawLogger
	tracker           *Tracker
	ln                net.Listener
}

func New(listenAddr, upstreamAddr string, connectionTimeout time.Duration, logger *slog.Logger, rawLogger log.RawLogger) *Server {
	return &Server{
		listenAddr:        listenAddr,
		upstreamAddr:      upstreamAddr,
		connectionTimeout: connectionTimeout,
		logger:            logger,
		rawLogger:         rawLogger,
		tracker:           NewTracker(),
	}
}

func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listenAddr, err)
	}
	s.ln = ln
	s.logger.Info("Feed tap listening", "addr", s.listenAddr, "upstream", s.upstreamAddr)

	for {
		clientConn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.logger.Info("Feed tap stopped")
				return nil
			}
			s.logger.Error("Accept error", "error", err)
			continue
		}
		s.logger.Info("Client connected", "remote", clientConn.RemoteAddr())
		go s.relay(clientConn)
	}
}

func (s *Server) Close() error {
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

// relay connects upstream and pumps both directions until either side
// closes. The initial deadline bounds the connect phase only; it is lifted
// once bytes flow so idle event streams stay open.
func (s *Server) relay(clientConn net.Conn) {
	defer clientConn.Close()

	upstreamConn, err := net.DialTimeout("tcp", s.upstreamAddr, s.connectionTimeout)
	if err != nil {
		s.logger.Error("Failed to connect to upstream", "upstream", s.upstreamAddr, "error", err)
		return
	}
	defer upstreamConn.Close()

	s.logger.Info("Relaying connection", "client", clientConn.RemoteAddr(), "upstream", upstreamConn.RemoteAddr())

	deadline := time.Now().Add(s.connectionTimeout)
	if err := clientConn.SetDeadline(deadline); err != nil {
		s.logger.Error("Failed to set client deadline", "error", err)
		return
	}
	if err := upstreamConn.SetDeadline(deadline); err != nil {
		s.logger.Error("Failed to set upstream deadline", "error", err)
		return
	}

	// Both direction parsers share the connection state so the request side
	// can teach the response side what to expect.
	state := &ConnState{}

	directions := []struct {
		name           string
		src, dst       net.Conn
		clientToServer bool
	}{
		{name: "Client->Server", src: clientConn, dst: upstreamConn, clientToServer: true},
		{name: "Server->Client", src: upstreamConn, dst: clientConn, clientToServer: false},
	}

	var wg sync.WaitGroup
	for _, d := range directions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parser := NewParser(s.logger, s.tracker, state, d.clientToServer)
			n, err := s.pump(d.dst, d.src, parser)
			if err != nil && !expectedDisconnect(err) {
				s.logger.Debug(d.name+" copy error", "error", err)
			}
			s.logger.Debug(d.name+" stream ended", "bytes", n)
			shutdown(d.dst, true)
			shutdown(d.src, false)
		}()
	}
	wg.Wait()

	s.logger.Info("Connection closed", "client", clientConn.RemoteAddr())
}

// pump copies src to dst, feeding each chunk to the raw logger and the
// protocol parser. Read timeouts from the armed connect deadline are
// retried; the deadline is cleared after the first bytes arrive.
func (s *Server) pump(dst, src net.Conn, parser *Parser) (int64, error) {
	buf := make([]byte, 32*1024)
	var total int64
	armed := true

	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if s.rawLogger != nil {
				s.rawLogger.Log(parser.clientToServer, buf[:n])
			}
			parser.Parse(buf[:n])

			if armed {
				if err := src.SetDeadline(time.Time{}); err != nil {
					return total, err
				}
				if err := dst.SetDeadline(time.Time{}); err != nil {
					return total, err
				}
				armed = false
			}

			wn, werr := dst.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
			if wn != n {
				return total, fmt.Errorf("short write: wrote %d of %d", wn, n)
			}
		}

		switch {
		case rerr == nil:
		case isTimeout(rerr):
			continue
		case errors.Is(rerr, io.EOF):
			return total, nil
		default:
			return total, rerr
		}
	}
}

// shutdown half-closes one direction of a TCP conn so the peer sees EOF
// while the opposite direction can still drain.
func shutdown(conn net.Conn, write bool) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	if write {
		_ = tc.CloseWrite()
		return
	}
	_ = tc.CloseRead()
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func expectedDisconnect(err error) bool {
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"connection reset", "broken pipe", "forcibly closed", "closed network connection"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
