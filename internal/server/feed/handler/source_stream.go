package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"

	"github.com/Alia5/CONDUIT/internal/server/feed"
	"github.com/Alia5/CONDUIT/source"
)

// SourceStream returns a stream handler that ingests raw sample frames for
// one source. Frames are fixed-size per family; the latest frame becomes the
// source's reading on the next update tick. When the stream ends the
// session's removal timer is re-armed so a client may reconnect.
func SourceStream(s *feed.Server) feed.StreamHandlerFunc {
	return func(conn net.Conn, req *feed.Request, logger *slog.Logger) error {
		idStr, ok := req.Params["id"]
		if !ok {
			return feed.ErrBadRequest("missing id parameter")
		}
		id64, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return feed.ErrBadRequest(fmt.Sprintf("invalid source id: %v", err))
		}
		id := source.ID(id64)

		sess, err := s.Sessions().StreamBegin(id)
		if err != nil {
			return feed.ErrConflict(err.Error())
		}
		defer s.Sessions().StreamEnd(id)

		size := source.SampleSize(sess.Family())
		if size <= 0 {
			return feed.ErrInternal(fmt.Sprintf("no sample codec for family %s", sess.Family()))
		}

		logger.Info("sample stream attached", "source", id, "family", sess.Family(), "frameSize", size)

		buf := make([]byte, size)
		for {
			select {
			case <-sess.Done():
				logger.Info("source removed, closing sample stream", "source", id)
				return nil
			default:
			}

			if _, err := io.ReadFull(conn, buf); err != nil {
				if err == io.EOF {
					logger.Info("client disconnected", "source", id)
					return nil
				}
				return fmt.Errorf("read sample frame: %w", err)
			}
			if err := sess.StoreSample(buf); err != nil {
				return fmt.Errorf("unmarshal sample frame: %w", err)
			}
		}
	}
}
