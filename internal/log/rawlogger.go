package log

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger dumps raw wire frames for protocol debugging. The tap and feed
// servers feed it every frame in both directions.
type RawLogger interface {
	Log(in bool, data []byte)
}

// NewRaw creates a RawLogger writing to w. A nil writer yields a no-op
// logger so call sites never need to branch.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// Log writes one line per frame: timestamp, direction and a spaced hex dump.
// in=true means client to server.
func (r *rawLogger) Log(in bool, data []byte) {
	if r.w == nil || len(data) == 0 {
		return
	}

	dir := "S->C"
	if in {
		dir = "C->S"
	}
	line := fmt.Sprintf("%s %s frame: %d bytes, hex: % x\n",
		time.Now().Format("2006/01/02 15:04:05"), dir, len(data), data)

	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = r.w.Write([]byte(line))
}
