package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"

	"github.com/Alia5/CONDUIT/apitypes"
	"github.com/Alia5/CONDUIT/event"
	"github.com/Alia5/CONDUIT/internal/server/feed"
)

// eventStreamBuffer bounds how far an event subscriber may fall behind
// before events are dropped for that subscriber.
const eventStreamBuffer = 256

// EventsStream returns a stream handler that subscribes the connection to
// every input event the hub raises, one JSON line per event. The hub side
// never blocks on a slow subscriber; a subscriber that falls too far behind
// loses events.
func EventsStream(s *feed.Server) feed.StreamHandlerFunc {
	return func(conn net.Conn, req *feed.Request, logger *slog.Logger) error {
		ch := make(chan event.Event, eventStreamBuffer)
		reg := s.Hub().AttachSink(event.SinkFunc(func(ev event.Event) {
			select {
			case ch <- ev:
			default:
			}
		}))
		defer reg.Close()

		// The subscriber only reads; any inbound activity or close ends
		// the stream.
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = io.Copy(io.Discard, conn)
		}()

		logger.Info("event stream attached")
		enc := json.NewEncoder(conn)
		for {
			select {
			case <-done:
				logger.Info("client disconnected")
				return nil
			case ev := <-ch:
				if err := enc.Encode(apitypes.NewEventMessage(ev)); err != nil {
					logger.Info("client disconnected", "error", err)
					return nil
				}
			}
		}
	}
}
