package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/CONDUIT/apitypes"
	_ "github.com/Alia5/CONDUIT/internal/registry" // Register all adapter families
	"github.com/Alia5/CONDUIT/profile"
	"github.com/Alia5/CONDUIT/source"
)

func writeRecordingFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func touchLine(t *testing.T, atMs int64, id uint32, s source.TouchSample) string {
	t.Helper()
	raw, err := s.MarshalBinary()
	require.NoError(t, err)
	return fmt.Sprintf(`{"atMs":%d,"sources":[{"id":%d,"family":"touch","phase":"active","sample":%q}]}`,
		atMs, id, base64.StdEncoding.EncodeToString(raw))
}

func TestReplayTapProducesClick(t *testing.T) {
	path := writeRecordingFile(t,
		"# tap on source 7",
		touchLine(t, 0, 7, source.TouchSample{Phase: source.TouchBegan, X: 100, Y: 200}),
		touchLine(t, 100, 7, source.TouchSample{Phase: source.TouchEnded, X: 100, Y: 200, TapCount: 1}),
	)

	frames, err := readRecording(path)
	require.NoError(t, err)
	require.Len(t, frames, 2, "comment lines are skipped")

	var out bytes.Buffer
	err = playFrames(context.Background(), frames, profile.Default(), 0, &out, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	var kinds []string
	clicks := 0
	dec := json.NewDecoder(&out)
	for dec.More() {
		var m apitypes.EventMessage
		require.NoError(t, dec.Decode(&m))
		kinds = append(kinds, m.Kind)
		if m.Kind == "pointer-click" {
			clicks++
			assert.Equal(t, uint32(7), m.SourceID)
			assert.Equal(t, 1, m.TapCount)
		}
	}

	assert.Contains(t, kinds, "source-detected")
	assert.Contains(t, kinds, "pointer-down")
	assert.Contains(t, kinds, "pointer-up")
	assert.Equal(t, 1, clicks, "a short clean contact clicks exactly once")
	require.NotEmpty(t, kinds)
	assert.Equal(t, "source-lost", kinds[len(kinds)-1], "playback teardown drains the source")
}

func TestReadRecordingRejectsBadLine(t *testing.T) {
	path := writeRecordingFile(t,
		`{"atMs":0,"sources":[]}`,
		`not json`,
	)

	_, err := readRecording(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReplaySourceStateConversion(t *testing.T) {
	rs := replaySource{ID: 3, Family: "Gamepad", Hand: "left", Phase: "ended"}
	st, err := rs.state()
	require.NoError(t, err)
	assert.Equal(t, source.ID(3), st.ID)
	assert.Equal(t, source.FamilyGamepad, st.Family)
	assert.Equal(t, source.HandLeft, st.Hand)
	assert.Equal(t, source.PhaseEnded, st.Phase)
	assert.Nil(t, st.Gamepad)

	_, err = (&replaySource{ID: 4, Family: "touch", Phase: "banana"}).state()
	require.Error(t, err)

	_, err = (&replaySource{ID: 5, Family: "touch", Sample: []byte{1, 2}}).state()
	require.Error(t, err, "short samples are rejected")
}
