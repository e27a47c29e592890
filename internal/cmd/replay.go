package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Alia5/CONDUIT/hub"
	"github.com/Alia5/CONDUIT/profile"
	"github.com/Alia5/CONDUIT/source"
)

type Replay struct {
	File     string  `arg:"" help:"JSON-lines snapshot recording" type:"existingfile"`
	Profiles string  `help:"Channel mapping profile file (json/yaml/toml)" env:"CONDUIT_PROFILES"`
	Speed    float64 `help:"Playback speed multiplier (0 plays without waiting)" default:"1"`
}

// replayFrame is one recorded line: a frame offset and the sources alive
// in that frame. Samples carry the same binary encodings the feed streams
// use, base64-wrapped by the JSON layer.
type replayFrame struct {
	AtMs    int64          `json:"atMs"`
	Sources []replaySource `json:"sources"`
}

type replaySource struct {
	ID     uint32 `json:"id"`
	Family string `json:"family"`
	Hand   string `json:"hand,omitempty"`
	Phase  string `json:"phase,omitempty"`
	Sample []byte `json:"sample,omitempty"`
}

// Run plays a recording through an offline pipeline and prints the
// resulting events as JSON lines.
func (r *Replay) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frames, err := readRecording(r.File)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return errors.New("recording holds no frames")
	}

	profiles, err := loadProfiles(r.Profiles, logger)
	if err != nil {
		return err
	}

	logger.Info("Replaying recording", "file", r.File, "frames", len(frames), "speed", r.Speed)
	return playFrames(ctx, frames, profiles, r.Speed, os.Stdout, logger)
}

// playFrames steps the hub through the recorded frames. Snapshot times
// come from the recording clock, so gesture timing classifies the same at
// any playback speed.
func playFrames(ctx context.Context, frames []replayFrame, profiles *profile.Set, speed float64, out io.Writer, logger *slog.Logger) error {
	h := newPipelineHub(hub.Config{}, profiles, logger)
	reg := h.AttachSink(newPrintSink(out))
	defer reg.Close()

	start := time.Now()
	h.Enable(nil)
	defer h.Disable(start.Add(time.Duration(frames[len(frames)-1].AtMs) * time.Millisecond))

	for i := range frames {
		f := &frames[i]
		if speed > 0 {
			wait := time.Until(start.Add(time.Duration(float64(f.AtMs) / speed * float64(time.Millisecond))))
			if wait > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(wait):
				}
			}
		}

		snap, err := f.snapshot(start)
		if err != nil {
			return fmt.Errorf("frame at %dms: %w", f.AtMs, err)
		}
		h.Step(snap)
	}
	return nil
}

func readRecording(path string) ([]replayFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer func() { _ = f.Close() }()

	var frames []replayFrame
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var fr replayFrame
		if err := json.Unmarshal([]byte(line), &fr); err != nil {
			return nil, fmt.Errorf("recording line %d: %w", lineNo, err)
		}
		frames = append(frames, fr)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return frames, nil
}

func (f *replayFrame) snapshot(start time.Time) (*source.Snapshot, error) {
	snap := &source.Snapshot{Time: start.Add(time.Duration(f.AtMs) * time.Millisecond)}
	for i := range f.Sources {
		st, err := f.Sources[i].state()
		if err != nil {
			return nil, err
		}
		snap.Sources = append(snap.Sources, st)
	}
	return snap, nil
}

func (rs *replaySource) state() (source.State, error) {
	hand, err := source.ParseHandedness(rs.Hand)
	if err != nil {
		return source.State{}, fmt.Errorf("source %d: %w", rs.ID, err)
	}
	phase, err := source.ParsePhase(rs.Phase)
	if err != nil {
		return source.State{}, fmt.Errorf("source %d: %w", rs.ID, err)
	}

	st := source.State{
		ID:     source.ID(rs.ID),
		Family: source.Family(rs.Family).Norm(),
		Hand:   hand,
		Phase:  phase,
	}
	if len(rs.Sample) == 0 {
		return st, nil
	}

	switch st.Family {
	case source.FamilyMouse:
		var s source.MouseSample
		if err := s.UnmarshalBinary(rs.Sample); err != nil {
			return source.State{}, fmt.Errorf("source %d sample: %w", rs.ID, err)
		}
		st.Mouse = &s
	case source.FamilyTouch:
		var s source.TouchSample
		if err := s.UnmarshalBinary(rs.Sample); err != nil {
			return source.State{}, fmt.Errorf("source %d sample: %w", rs.ID, err)
		}
		st.Touch = &s
	case source.FamilyGamepad:
		var s source.GamepadSample
		if err := s.UnmarshalBinary(rs.Sample); err != nil {
			return source.State{}, fmt.Errorf("source %d sample: %w", rs.ID, err)
		}
		st.Gamepad = &s
	case source.FamilyMotion:
		var s source.MotionSample
		if err := s.UnmarshalBinary(rs.Sample); err != nil {
			return source.State{}, fmt.Errorf("source %d sample: %w", rs.ID, err)
		}
		st.Motion = &s
	}
	// Unknown families pass through without a sample; the hub logs them.
	return st, nil
}
