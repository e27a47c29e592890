// Session bookkeeping for the feed server: every source registered over the
// API gets a session that tracks its latest sample, its stream state and a
// removal timer that cleans up sources whose stream never connects or never
// comes back.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Alia5/CONDUIT/source"
)

// Sessions manages registered sources and auto-assigns source ids.
type Sessions struct {
	mu        sync.Mutex
	nextID    uint32
	allocated map[source.ID]bool
	entries   map[source.ID]*Session
	timeout   time.Duration
	logger    *slog.Logger
}

// NewSessions creates an empty session table. The timeout is the grace
// period before a source without an active sample stream is dropped.
func NewSessions(timeout time.Duration, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sessions{
		allocated: make(map[source.ID]bool),
		entries:   make(map[source.ID]*Session),
		timeout:   timeout,
		logger:    logger,
	}
}

// Session is one registered source. The sample stream goroutine writes the
// latest decoded sample; the frame clock reads it when building snapshots.
type Session struct {
	id     source.ID
	family source.Family
	hand   source.Handedness

	mu        sync.Mutex
	state     source.State
	has       bool
	phase     source.Phase
	streaming bool

	timer  *time.Timer
	ctx    context.Context
	cancel context.CancelFunc
}

// ID returns the auto-assigned source id.
func (s *Session) ID() source.ID { return s.id }

// Family returns the device family this session was registered with.
func (s *Session) Family() source.Family { return s.family }

// Hand returns the handedness this session was registered with.
func (s *Session) Hand() source.Handedness { return s.hand }

// Streaming reports whether a sample stream is currently attached.
func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Done is closed once the session has been reaped.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// StoreSample decodes one wire frame for this session's family and makes it
// the session's current sample. The previous sample pointer is replaced, not
// mutated, so snapshot readers never observe a partial write.
func (s *Session) StoreSample(buf []byte) error {
	st := source.State{ID: s.id, Family: s.family, Hand: s.hand, Phase: source.PhaseActive}
	switch s.family.Norm() {
	case source.FamilyMouse:
		var ms source.MouseSample
		if err := ms.UnmarshalBinary(buf); err != nil {
			return err
		}
		st.Mouse = &ms
	case source.FamilyTouch:
		var ts source.TouchSample
		if err := ts.UnmarshalBinary(buf); err != nil {
			return err
		}
		st.Touch = &ts
	case source.FamilyGamepad:
		var gs source.GamepadSample
		if err := gs.UnmarshalBinary(buf); err != nil {
			return err
		}
		st.Gamepad = &gs
	case source.FamilyMotion:
		var mo source.MotionSample
		if err := mo.UnmarshalBinary(buf); err != nil {
			return err
		}
		st.Motion = &mo
	default:
		return fmt.Errorf("no sample codec for family %q", s.family)
	}

	s.mu.Lock()
	s.state = st
	s.has = true
	s.mu.Unlock()
	return nil
}

// snapshot returns the session's state stamped with the lifecycle phase.
// ok is false while no sample has arrived yet.
func (s *Session) snapshot() (st source.State, ok, terminal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st = s.state
	st.ID = s.id
	st.Family = s.family
	st.Hand = s.hand
	st.Phase = s.phase
	return st, s.has, s.phase.Terminal()
}

// Add registers a new source and returns its session. The removal timer is
// armed; if no sample stream connects before it fires, the source is dropped.
func (t *Sessions) Add(family source.Family, hand source.Handedness) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	var id source.ID
	for i := source.ID(1); ; i++ {
		if !t.allocated[i] {
			id = i
			t.allocated[i] = true
			break
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		family: family.Norm(),
		hand:   hand,
		phase:  source.PhaseActive,
		timer:  time.NewTimer(t.timeout),
		ctx:    ctx,
		cancel: cancel,
	}
	t.entries[id] = s
	t.watchTimeout(s)
	return s
}

// Get returns the session for a source id, nil if not present.
func (t *Sessions) Get(id source.ID) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[id]
}

// List returns all sessions sorted by source id.
func (t *Sessions) List() []*Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Session, 0, len(t.entries))
	for _, s := range t.entries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// End marks a source terminal. The next frame snapshot carries the terminal
// phase once so the update loop can tear the adapter down, after which the
// session is reaped. Returns an error if the id is unknown.
func (t *Sessions) End(id source.ID, phase source.Phase) error {
	if !phase.Terminal() {
		return fmt.Errorf("phase %v is not terminal", phase)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.entries[id]
	if !ok {
		return fmt.Errorf("source %d not found", id)
	}
	s.mu.Lock()
	s.phase = phase
	s.mu.Unlock()
	s.timer.Stop()
	return nil
}

// StreamBegin claims the sample stream for a source and stops its removal
// timer. Only one stream may be attached at a time.
func (t *Sessions) StreamBegin(id source.ID) (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.entries[id]
	if !ok {
		return nil, fmt.Errorf("source %d not found", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return nil, fmt.Errorf("source %d is shutting down", id)
	}
	if s.streaming {
		return nil, fmt.Errorf("source %d already has an active stream", id)
	}
	s.streaming = true
	s.timer.Stop()
	return s, nil
}

// StreamEnd releases the sample stream and re-arms the removal timer so the
// source survives a reconnect window before being dropped.
func (t *Sessions) StreamEnd(id source.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.entries[id]
	if !ok {
		return
	}
	s.mu.Lock()
	terminal := s.phase.Terminal()
	s.streaming = false
	s.mu.Unlock()
	if terminal {
		return
	}
	s.timer.Reset(t.timeout)
	t.watchTimeout(s)
}

// watchTimeout drops the session when its removal timer fires. The watcher
// exits when the session is reaped. Callers must hold t.mu.
func (t *Sessions) watchTimeout(s *Session) {
	go func() {
		select {
		case <-s.ctx.Done():
			s.timer.Stop()
			return
		case <-s.timer.C:
			if err := t.End(s.id, source.PhaseCancelled); err == nil {
				t.logger.Info("timeout: removed source (no sample stream)", "source", s.id, "family", s.family)
			}
		}
	}()
}

// Snapshot builds the frame snapshot from all sessions that have produced
// at least one sample, sorted by source id. The second return lists sources
// that reached a terminal phase; they must be reaped once the frame that
// carries their terminal state has been processed.
func (t *Sessions) Snapshot(now time.Time) (*source.Snapshot, []source.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := &source.Snapshot{Time: now}
	var done []source.ID
	for id, s := range t.entries {
		st, ok, terminal := s.snapshot()
		if terminal {
			done = append(done, id)
		}
		if !ok {
			continue
		}
		snap.Sources = append(snap.Sources, st)
	}
	sort.Slice(snap.Sources, func(i, j int) bool { return snap.Sources[i].ID < snap.Sources[j].ID })
	return snap, done
}

// Reap removes ended sessions and frees their source ids for reuse.
func (t *Sessions) Reap(ids []source.ID) {
	if len(ids) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		s, ok := t.entries[id]
		if !ok {
			continue
		}
		s.cancel()
		delete(t.allocated, id)
		delete(t.entries, id)
	}
}

// Close cancels every session without the terminal-phase round trip. Used
// on server shutdown after the update loop has stopped.
func (t *Sessions) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, s := range t.entries {
		s.cancel()
		delete(t.allocated, id)
		delete(t.entries, id)
	}
}
