package handler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/CONDUIT/apiclient"
	"github.com/Alia5/CONDUIT/apitypes"
	feed "github.com/Alia5/CONDUIT/internal/server/feed"
	"github.com/Alia5/CONDUIT/internal/server/feed/handler"
	th "github.com/Alia5/CONDUIT/internal/testing"
	"github.com/Alia5/CONDUIT/source"

	_ "github.com/Alia5/CONDUIT/adapter/touch"
)

// registerAll wires every route a full server carries so the event stream
// test can exercise the same path a real client does.
func registerAll(r *feed.Router, srv *feed.Server) {
	r.Register("ping", handler.Ping())
	r.Register("source/add", handler.SourceAdd(srv))
	r.Register("source/{id}/remove", handler.SourceRemove(srv))
	r.Register("sources/list", handler.SourcesList(srv))
	r.RegisterStream("source/{id}/stream", handler.SourceStream(srv))
	r.RegisterStream("events/stream", handler.EventsStream(srv))
}

func TestEventsStream_TouchTap(t *testing.T) {
	addr, _, done := th.StartFeedServer(t, registerAll)
	defer done()

	ctx := context.Background()
	c := apiclient.New(addr)

	es, err := c.OpenEvents(ctx)
	require.NoError(t, err)
	defer es.Close()
	msgs, _ := es.Start(ctx, 256)

	// Give the server a moment to attach the subscriber before the first
	// sample arrives.
	time.Sleep(100 * time.Millisecond)

	stream, resp, err := c.AddSourceAndConnect(ctx, "touch", "")
	require.NoError(t, err)
	defer stream.Close()

	err = stream.WriteBinary(&source.TouchSample{Phase: source.TouchBegan, X: 10, Y: 20})
	require.NoError(t, err)

	// Long enough to clear the graze debounce, short enough to stay a tap.
	time.Sleep(150 * time.Millisecond)

	err = stream.WriteBinary(&source.TouchSample{Phase: source.TouchEnded, X: 10, Y: 20, TapCount: 1})
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	_, err = c.SourceRemove(resp.SourceID)
	require.NoError(t, err)

	var got []apitypes.EventMessage
	deadline := time.After(3 * time.Second)
collect:
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				break collect
			}
			got = append(got, msg)
			if msg.Kind == "source-lost" {
				break collect
			}
		case <-deadline:
			t.Fatalf("timed out waiting for source-lost after %d events", len(got))
		}
	}

	require.NotEmpty(t, got)
	assert.Equal(t, "source-detected", got[0].Kind)

	first := map[string]int{}
	counts := map[string]int{}
	var clicks []apitypes.EventMessage
	for i, msg := range got {
		assert.Equal(t, resp.SourceID, msg.SourceID)
		assert.Equal(t, "touch", msg.Family)
		if _, seen := first[msg.Kind]; !seen {
			first[msg.Kind] = i
		}
		counts[msg.Kind]++
		if msg.Kind == "pointer-click" {
			clicks = append(clicks, msg)
		}
	}

	for _, kind := range []string{
		"source-detected",
		"position-changed",
		"pointer-down",
		"gesture-started",
		"down",
		"held",
		"gesture-cancelled",
		"pointer-click",
		"pointer-up",
		"up",
		"source-lost",
	} {
		assert.Contains(t, first, kind, "expected at least one %q event", kind)
	}

	assert.Less(t, first["down"], first["up"])
	assert.Less(t, first["pointer-down"], first["pointer-up"])
	assert.Less(t, first["gesture-started"], first["gesture-cancelled"])

	// Release resolves the contact exactly once even though the ended
	// sample is reprocessed on the frames after it.
	assert.Equal(t, 1, counts["up"])
	assert.Equal(t, 1, counts["pointer-up"])
	assert.Equal(t, 1, counts["gesture-cancelled"])

	require.Len(t, clicks, 1)
	assert.Equal(t, 1, clicks[0].TapCount)

	// The contact channel's select binding rides on the button events.
	sel := got[first["down"]]
	assert.Equal(t, "Touch Contact", sel.Channel)
	assert.Equal(t, "pointer.select", sel.Action)
	assert.Equal(t, "touch-contact", sel.Input)
}

func TestEventsStream_ManipulationDrag(t *testing.T) {
	addr, _, done := th.StartFeedServer(t, registerAll)
	defer done()

	ctx := context.Background()
	c := apiclient.New(addr)

	es, err := c.OpenEvents(ctx)
	require.NoError(t, err)
	defer es.Close()
	msgs, _ := es.Start(ctx, 256)
	time.Sleep(100 * time.Millisecond)

	stream, resp, err := c.AddSourceAndConnect(ctx, "touch", "")
	require.NoError(t, err)
	defer stream.Close()

	require.NoError(t, stream.WriteBinary(&source.TouchSample{Phase: source.TouchBegan, X: 0, Y: 0}))
	time.Sleep(150 * time.Millisecond)
	// Past the manipulation threshold in one move.
	require.NoError(t, stream.WriteBinary(&source.TouchSample{Phase: source.TouchMoved, X: 40, Y: 0}))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, stream.WriteBinary(&source.TouchSample{Phase: source.TouchMoved, X: 80, Y: 10}))
	// Keep the contact down past the tap window so the release completes
	// the manipulation instead of clicking.
	time.Sleep(350 * time.Millisecond)
	require.NoError(t, stream.WriteBinary(&source.TouchSample{Phase: source.TouchEnded, X: 80, Y: 10}))
	time.Sleep(100 * time.Millisecond)

	_, err = c.SourceRemove(resp.SourceID)
	require.NoError(t, err)

	byGesture := map[string][]string{}
	var clicks int
	deadline := time.After(3 * time.Second)
collect:
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				break collect
			}
			if msg.Gesture != "" {
				byGesture[msg.Gesture] = append(byGesture[msg.Gesture], msg.Kind)
			}
			if msg.Kind == "pointer-click" {
				clicks++
			}
			if msg.Kind == "source-lost" {
				break collect
			}
		case <-deadline:
			t.Fatal("timed out waiting for source-lost")
		}
	}

	// The hold capture is cancelled when the drag crosses the threshold,
	// then the manipulation runs to completion.
	assert.Equal(t, []string{"gesture-started", "gesture-cancelled"}, byGesture["hold"])
	assert.Equal(t, []string{"gesture-started", "gesture-updated", "gesture-completed"}, byGesture["manipulation"])

	// A drag is not a tap.
	assert.Zero(t, clicks)
}
