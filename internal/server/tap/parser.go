package tap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/Alia5/CONDUIT/geom"
	"github.com/Alia5/CONDUIT/internal/server/feed/auth"
	"github.com/Alia5/CONDUIT/source"
)

// Tracker remembers which family each registered source id carries, so the
// sample stream of a later connection can be decoded. Registrations that
// did not pass through the tap stay unknown and are relayed undecoded.
type Tracker struct {
	mu     sync.Mutex
	family map[source.ID]source.Family
}

func NewTracker() *Tracker {
	return &Tracker{family: make(map[source.ID]source.Family)}
}

func (t *Tracker) learn(id source.ID, f source.Family) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.family[id] = f
}

func (t *Tracker) forget(id source.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.family, id)
}

func (t *Tracker) lookup(id source.ID) (source.Family, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.family[id]
	return f, ok
}

// ConnState is shared by the two direction parsers of one relayed
// connection. The request side learns the registered family; the response
// side pairs it with the id the server assigns.
type ConnState struct {
	mu            sync.Mutex
	encrypted     bool
	pendingFamily source.Family
}

type parserMode int

const (
	modeRequest parserMode = iota // client request line expected
	modeLines                     // JSON line responses and event streams
	modeSamples                   // fixed-size binary sample frames
	modeOpaque                    // undecodable, byte counts only
)

const maxParseBuffer = 64 * 1024

var wsRegex = regexp.MustCompile(`\s`)

// Parser decodes one direction of a relayed feed connection for structured
// logging. Parsing is best effort: whatever it cannot follow is still
// relayed, just logged as raw bytes.
type Parser struct {
	logger         *slog.Logger
	tracker        *Tracker
	state          *ConnState
	clientToServer bool

	mode      parserMode
	frameSize int
	family    source.Family
	buf       bytes.Buffer
}

func NewParser(logger *slog.Logger, tracker *Tracker, state *ConnState, clientToServer bool) *Parser {
	p := &Parser{
		logger:         logger,
		tracker:        tracker,
		state:          state,
		clientToServer: clientToServer,
		mode:           modeLines,
	}
	if clientToServer {
		p.mode = modeRequest
	}
	return p
}

// Parse consumes as many complete frames as the buffered data holds.
func (p *Parser) Parse(data []byte) {
	p.buf.Write(data)

	for {
		p.state.mu.Lock()
		encrypted := p.state.encrypted
		p.state.mu.Unlock()
		if encrypted {
			p.logOpaque()
			return
		}

		switch p.mode {
		case modeRequest:
			if !p.parseRequest() {
				return
			}
		case modeLines:
			if !p.parseLine() {
				return
			}
		case modeSamples:
			if !p.parseSample() {
				return
			}
		case modeOpaque:
			p.logOpaque()
			return
		}
	}
}

func (p *Parser) parseRequest() bool {
	head := p.buf.Bytes()
	if len(head) < len(auth.HandshakeMagic) {
		if len(head) > 0 && bytes.HasPrefix([]byte(auth.HandshakeMagic), head) {
			return false // could still turn out to be the auth handshake
		}
	} else if string(head[:len(auth.HandshakeMagic)]) == auth.HandshakeMagic {
		p.buf.Next(len(auth.HandshakeMagic))
		p.state.mu.Lock()
		p.state.encrypted = true
		p.state.mu.Unlock()
		p.logger.Info("Encrypted feed session, relaying without decoding")
		return true
	}

	idx := bytes.IndexByte(p.buf.Bytes(), 0)
	if idx == -1 {
		p.overflowGuard()
		return false
	}
	req := strings.TrimSuffix(string(p.buf.Next(idx+1)), "\x00")
	p.handleRequest(req)
	return true
}

func (p *Parser) handleRequest(req string) {
	var path, payload string
	if loc := wsRegex.FindStringIndex(req); loc != nil {
		path = req[:loc[0]]
		payload = req[loc[1]:]
	} else {
		path = req
	}
	path = strings.ToLower(path)

	args := []any{"dir", p.dirString(), "path", path}
	if payload != "" {
		args = append(args, "payload", preview(payload))
	}
	p.logger.Info("Feed frame", args...)

	switch {
	case path == "source/add":
		var body struct {
			Family string `json:"family"`
		}
		if err := json.Unmarshal([]byte(payload), &body); err == nil && body.Family != "" {
			p.state.mu.Lock()
			p.state.pendingFamily = source.Family(body.Family).Norm()
			p.state.mu.Unlock()
		}

	case strings.HasPrefix(path, "source/") && strings.HasSuffix(path, "/stream"):
		id, ok := pathSourceID(path)
		if ok {
			if family, known := p.tracker.lookup(id); known {
				if size := source.SampleSize(family); size > 0 {
					p.mode = modeSamples
					p.frameSize = size
					p.family = family
					return
				}
			}
		}
		p.logger.Debug("Sample stream for unknown source, relaying without decoding", "path", path)
		p.mode = modeOpaque

	case strings.HasPrefix(path, "source/") && strings.HasSuffix(path, "/remove"):
		if id, ok := pathSourceID(path); ok {
			p.tracker.forget(id)
		}
	}
}

func (p *Parser) parseLine() bool {
	idx := bytes.IndexByte(p.buf.Bytes(), '\n')
	if idx == -1 {
		p.overflowGuard()
		return false
	}
	line := strings.TrimRight(string(p.buf.Next(idx+1)), "\r\n")

	p.state.mu.Lock()
	pending := p.state.pendingFamily
	p.state.pendingFamily = ""
	p.state.mu.Unlock()

	if line == "" {
		p.logger.Info("Feed frame", "dir", p.dirString(), "response", "ok")
		return true
	}
	p.describeLine(line, pending)
	return true
}

func (p *Parser) describeLine(line string, pending source.Family) {
	var body map[string]any
	if err := json.Unmarshal([]byte(line), &body); err != nil {
		p.logger.Info("Feed frame", "dir", p.dirString(), "response", preview(line))
		return
	}

	if pending != "" {
		if idv, ok := body["id"].(float64); ok {
			p.tracker.learn(source.ID(idv), pending)
		}
	}

	args := []any{"dir", p.dirString()}
	for _, key := range []string{"kind", "id", "sourceId", "family", "channel", "gesture", "status", "title"} {
		if v, ok := body[key]; ok {
			args = append(args, key, v)
		}
	}
	if len(args) == 2 {
		args = append(args, "response", preview(line))
	}
	p.logger.Info("Feed frame", args...)
}

func (p *Parser) parseSample() bool {
	if p.buf.Len() < p.frameSize {
		return false
	}
	frame := p.buf.Next(p.frameSize)
	args := []any{"dir", p.dirString(), "family", string(p.family)}
	p.logger.Info("Feed sample", append(args, sampleArgs(p.family, frame)...)...)
	return true
}

// sampleArgs decodes one binary frame into log fields.
func sampleArgs(f source.Family, frame []byte) []any {
	switch f.Norm() {
	case source.FamilyMouse:
		var s source.MouseSample
		if s.UnmarshalBinary(frame) == nil {
			return []any{
				"buttons", fmt.Sprintf("%02x", s.Buttons),
				"x", s.X, "y", s.Y,
				"dx", s.DX, "dy", s.DY,
				"wheel", s.Wheel,
			}
		}
	case source.FamilyTouch:
		var s source.TouchSample
		if s.UnmarshalBinary(frame) == nil {
			return []any{
				"phase", s.Phase.String(),
				"x", s.X, "y", s.Y,
				"taps", s.TapCount,
			}
		}
	case source.FamilyGamepad:
		var s source.GamepadSample
		if s.UnmarshalBinary(frame) == nil {
			return []any{
				"buttons", fmt.Sprintf("%04x", s.Buttons),
				"lt", s.LT, "rt", s.RT,
				"lx", s.LX, "ly", s.LY,
				"rx", s.RX, "ry", s.RY,
			}
		}
	case source.FamilyMotion:
		var s source.MotionSample
		if s.UnmarshalBinary(frame) == nil {
			return []any{
				"grip", posString(s.Grip),
				"pointer", posString(s.Pointer),
				"select", s.Select,
				"buttons", fmt.Sprintf("%02x", s.Buttons),
				"tx", s.TX, "ty", s.TY,
			}
		}
	}
	return []any{"raw", fmt.Sprintf("% x", frame)}
}

func (p *Parser) logOpaque() {
	n := p.buf.Len()
	if n == 0 {
		return
	}
	head := p.buf.Bytes()
	if len(head) > 16 {
		head = head[:16]
	}
	p.logger.Debug("Feed bytes", "dir", p.dirString(), "len", n, "head", fmt.Sprintf("% x", head))
	p.buf.Reset()
}

// overflowGuard drops the buffer when no frame boundary shows up within a
// sane window. Framing is lost at that point, so decoding stops too.
func (p *Parser) overflowGuard() {
	if p.buf.Len() > maxParseBuffer {
		p.logger.Warn("Parse buffer overflow, relaying without decoding")
		p.buf.Reset()
		p.mode = modeOpaque
	}
}

func (p *Parser) dirString() string {
	if p.clientToServer {
		return "C→S"
	}
	return "S→C"
}

func pathSourceID(path string) (source.ID, bool) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 {
		return 0, false
	}
	id, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, false
	}
	return source.ID(id), true
}

func posString(p geom.Pose) string {
	return fmt.Sprintf("%.2f,%.2f,%.2f", p.Position.X, p.Position.Y, p.Position.Z)
}

func preview(s string) string {
	if len(s) <= 256 {
		return s
	}
	return s[:256] + "..."
}
