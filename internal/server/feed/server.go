// Package feed implements the CONDUIT feed server: a small TCP API over
// which clients register input sources, stream raw samples and subscribe to
// the resulting input events. Request framing is `<path>[ SP <payload>]\x00`
// with a single JSON line response; stream routes hand the connection over
// to a stream handler after the request line.
package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Alia5/CONDUIT/hub"
	"github.com/Alia5/CONDUIT/internal/log"
	"github.com/Alia5/CONDUIT/internal/server/feed/auth"
)

// Server owns the listener, the session table and the frame clock that
// drives the hub. The hub is only ever touched from the clock goroutine.
type Server struct {
	hub       *hub.Hub
	sessions  *Sessions
	logger    *slog.Logger
	rawLogger log.RawLogger
	router    *Router
	config    ServerConfig
	ln        net.Listener
	ready     chan struct{}
	readyOnce sync.Once
	clockStop context.CancelFunc
	clockDone chan struct{}
}

// New creates a feed server bound to a hub instance.
func New(h *hub.Hub, config ServerConfig, logger *slog.Logger, rawLogger log.RawLogger) *Server {
	a := &Server{
		hub:       h,
		sessions:  NewSessions(config.SourceTimeout, logger),
		logger:    logger,
		rawLogger: rawLogger,
		config:    config,
		ready:     make(chan struct{}),
		clockDone: make(chan struct{}),
	}
	a.router = NewRouter()
	return a
}

// Router returns the router used by the feed server so callers can register handlers.
func (a *Server) Router() *Router { return a.router }

// Hub returns the hub driven by this server's frame clock.
func (a *Server) Hub() *hub.Hub { return a.hub }

// Sessions returns the session table.
func (a *Server) Sessions() *Sessions { return a.sessions }

// Config returns the server configuration.
func (a *Server) Config() ServerConfig { return a.config }

// Ready returns a channel that is closed once the server has successfully
// bound to its listen address and is ready to accept connections.
func (a *Server) Ready() <-chan struct{} { return a.ready }

// FrameInterval returns the configured frame clock period.
func (a *Server) FrameInterval() time.Duration {
	rate := a.config.FrameRate
	if rate <= 0 {
		rate = 60
	}
	return time.Second / time.Duration(rate)
}

// Start listens on the configured address, starts the frame clock and
// serves incoming feed commands.
func (a *Server) Start() error {
	ln, err := net.Listen("tcp", a.config.Addr)
	if err != nil {
		return err
	}
	a.ln = ln
	a.readyOnce.Do(func() { close(a.ready) })
	a.logger.Info("Feed listening", "addr", a.config.Addr, "frameRate", a.config.FrameRate)

	clockCtx, stop := context.WithCancel(context.Background())
	a.clockStop = stop
	go a.clockLoop(clockCtx)
	go a.serve()
	return nil
}

// Close stops the feed server and waits for the frame clock to drain the
// remaining adapters.
func (a *Server) Close() {
	if a.ln != nil {
		_ = a.ln.Close()
	}
	if a.clockStop != nil {
		a.clockStop()
		<-a.clockDone
	}
	a.sessions.Close()
}

// clockLoop assembles one snapshot per frame from the session table and
// steps the hub. Sources that reached a terminal phase are reaped after the
// frame that carried their terminal state has been processed.
func (a *Server) clockLoop(ctx context.Context) {
	defer close(a.clockDone)

	a.hub.Enable(nil)
	tick := time.NewTicker(a.FrameInterval())
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			a.hub.Disable(time.Now())
			return
		case now := <-tick.C:
			snap, done := a.sessions.Snapshot(now)
			a.hub.Step(snap)
			a.sessions.Reap(done)
		}
	}
}

func (a *Server) serve() {
	for {
		c, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || strings.Contains(strings.ToLower(err.Error()), "use of closed network connection") {
				a.logger.Info("Feed server stopped")
				return
			}
			a.logger.Info("Feed accept error", "error", err)
			return
		}
		go a.handleConn(c)
	}
}

func (a *Server) writeError(w io.Writer, err error) {
	apiErr := WrapError(err)
	problemJSON, _ := json.Marshal(apiErr)
	fmt.Fprintf(w, "%s\n", string(problemJSON))
}

func (a *Server) writeOK(w io.Writer, rest string) {
	if rest == "" {
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "%s\n", rest)
	}
}

func (a *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	connLogger := a.logger.With("remote", conn.RemoteAddr().String())

	var c net.Conn = &logConn{Conn: conn, s: a}
	if a.config.ConnectionTimeout > 0 {
		if err := c.SetDeadline(time.Now().Add(a.config.ConnectionTimeout)); err != nil {
			connLogger.Warn("Failed to set deadline", "error", err)
		}
	}

	r := bufio.NewReader(c)
	var w io.Writer = c

	if a.config.Password != "" {
		key, err := auth.DeriveKey(a.config.Password)
		if err != nil {
			connLogger.Error("derive feed key", "error", err)
			return
		}
		isAuth, err := auth.IsAuthHandshake(r)
		if err != nil {
			if err != io.EOF {
				connLogger.Error("read handshake", "error", err)
			}
			return
		}
		if !isAuth {
			connLogger.Error("feed connection without auth handshake")
			a.writeError(w, ErrUnauthorized("authentication required"))
			return
		}
		clientNonce, serverNonce, err := auth.HandleAuthHandshake(r, c, key, false)
		if err != nil {
			connLogger.Error("feed auth handshake failed", "error", err)
			a.writeError(w, err)
			return
		}
		sec, err := auth.WrapConn(c, auth.DeriveSessionKey(key, serverNonce, clientNonce))
		if err != nil {
			connLogger.Error("wrap feed connection", "error", err)
			a.writeError(w, err)
			return
		}
		c = sec
		r = bufio.NewReader(sec)
		w = sec
	}

	// Read until null terminator
	reqData, err := r.ReadString('\x00')
	if err != nil {
		if err == io.EOF {
			connLogger.Error("feed incomplete request (no null terminator)")
		} else {
			connLogger.Error("read feed data", "error", err)
		}
		return
	}
	// Remove null terminator
	reqData = strings.TrimSuffix(reqData, "\x00")

	if reqData == "" {
		connLogger.Error("feed empty command")
		a.writeError(w, ErrBadRequest("empty request"))
		return
	}

	// Split on first whitespace character using regex \s
	wsRegex := regexp.MustCompile(`\s`)
	loc := wsRegex.FindStringIndex(reqData)

	var path, payload string
	if loc != nil {
		path = reqData[:loc[0]]
		payload = reqData[loc[1]:]
	} else {
		path = reqData
		payload = ""
	}

	if path == "" {
		connLogger.Error("feed empty path")
		a.writeError(w, ErrBadRequest("empty path"))
		return
	}

	path = strings.ToLower(path)
	connLogger.Info("feed cmd", "path", path)

	if h, params := a.router.Match(path); h != nil {
		req := &Request{Ctx: connCtx, Params: params, Payload: payload}
		res := &Response{}
		if err := h(req, res, connLogger); err != nil {
			connLogger.Error("feed handler error", "path", path, "error", err)
			a.writeError(w, err)
			return
		}
		connLogger.Debug("feed handler success", "path", path)
		a.writeOK(w, res.JSON)
		return
	} else if sh, params := a.router.MatchStream(path); sh != nil {
		connLogger.Info("feed stream begin", "path", path)
		_ = c.SetDeadline(time.Time{})

		sc := c
		if r.Buffered() > 0 {
			buffered, _ := r.Peek(r.Buffered())
			sc = &readBufferConn{Conn: c, buf: buffered}
		}

		req := &Request{Ctx: connCtx, Params: params, Payload: payload}
		if err := sh(sc, req, connLogger); err != nil {
			connLogger.Error("feed stream handler error", "path", path, "error", err)
			a.writeError(w, err)
			return
		}
		connLogger.Info("feed stream end", "path", path)
		return
	}
	connLogger.Error("feed unknown path", "path", path)
	a.writeError(w, ErrNotFound(fmt.Sprintf("unknown path: %s", path)))
}

// readBufferConn replays bytes the request parser already buffered before
// handing the connection to a stream handler.
type readBufferConn struct {
	net.Conn
	buf []byte
}

func (r *readBufferConn) Read(p []byte) (int, error) {
	if len(r.buf) > 0 {
		n := copy(p, r.buf)
		r.buf = r.buf[n:]
		return n, nil
	}
	return r.Conn.Read(p)
}

type logConn struct {
	net.Conn
	s *Server
}

func (lc *logConn) Read(p []byte) (int, error) {
	n, err := lc.Conn.Read(p)
	if n > 0 && lc.s.rawLogger != nil {
		lc.s.rawLogger.Log(true, p[:n])
	}
	return n, err
}

func (lc *logConn) Write(p []byte) (int, error) {
	n, err := lc.Conn.Write(p)
	if n > 0 && lc.s.rawLogger != nil {
		lc.s.rawLogger.Log(false, p[:n])
	}
	return n, err
}
