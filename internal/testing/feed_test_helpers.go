package testing

import (
	"net"
	"testing"
	"time"

	"log/slog"

	"github.com/Alia5/CONDUIT/hub"
	"github.com/Alia5/CONDUIT/internal/log"
	"github.com/Alia5/CONDUIT/internal/server/feed"
)

// StartFeedServer boots a feed server on a loopback port for tests. The
// register callback installs whatever routes the test needs before the
// listener starts accepting. Callers must invoke done to tear the server
// down.
func StartFeedServer(tb testing.TB, register func(r *feed.Router, srv *feed.Server)) (addr string, srv *feed.Server, done func()) {
	tb.Helper()

	addr = freeLoopbackAddr(tb)
	h := hub.New(hub.Config{}, nil, nil, slog.Default())
	srv = feed.New(h, feed.ServerConfig{
		Addr:          addr,
		FrameRate:     120,
		SourceTimeout: 5 * time.Second,
	}, slog.Default(), log.NewRaw(nil))

	if register != nil {
		register(srv.Router(), srv)
	}
	if err := srv.Start(); err != nil {
		tb.Fatalf("start feed server: %v", err)
	}

	done = func() {
		srv.Close()
		// Give in-flight handler goroutines a moment to observe the close.
		time.Sleep(10 * time.Millisecond)
	}
	return addr, srv, done
}

// freeLoopbackAddr reserves a port by binding and immediately releasing it.
// The tiny race with other processes is acceptable for tests.
func freeLoopbackAddr(tb testing.TB) string {
	tb.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("reserve port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().String()
}
