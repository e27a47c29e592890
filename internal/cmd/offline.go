package cmd

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/Alia5/CONDUIT/apitypes"
	"github.com/Alia5/CONDUIT/event"
	"github.com/Alia5/CONDUIT/gesture"
	"github.com/Alia5/CONDUIT/hub"
	"github.com/Alia5/CONDUIT/profile"
)

// loadProfiles resolves the profile flag: empty path means adapter
// defaults only.
func loadProfiles(path string, logger *slog.Logger) (*profile.Set, error) {
	if path == "" {
		return profile.Default(), nil
	}
	set, err := profile.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded input profiles", "path", path, "profiles", len(set.Profiles))
	return set, nil
}

// newPipelineHub assembles the hub with a fresh gesture recognizer, the
// same construction for the server and the offline commands.
func newPipelineHub(cfg hub.Config, profiles *profile.Set, logger *slog.Logger) *hub.Hub {
	return hub.New(cfg, profiles, gesture.NewRecognizer(logger), logger)
}

// printSink writes events as JSON lines, for the offline commands that
// dump the pipeline output to stdout.
type printSink struct {
	enc *json.Encoder
}

func newPrintSink(w io.Writer) *printSink {
	return &printSink{enc: json.NewEncoder(w)}
}

// Dispatch implements event.Sink.
func (p *printSink) Dispatch(ev event.Event) {
	_ = p.enc.Encode(apitypes.NewEventMessage(ev))
}
