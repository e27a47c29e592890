package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/Alia5/CONDUIT/apitypes"
	"github.com/Alia5/CONDUIT/internal/server/feed"
	"github.com/Alia5/CONDUIT/source"
)

// SourcesList returns a handler that lists registered sources.
// Error logging is centralized in the feed server.
func SourcesList(s *feed.Server) feed.HandlerFunc {
	return func(req *feed.Request, res *feed.Response, logger *slog.Logger) error {
		sessions := s.Sessions().List()
		payload := apitypes.SourcesListResponse{Sources: make([]apitypes.Source, 0, len(sessions))}
		for _, sess := range sessions {
			src := apitypes.Source{
				SourceID:  uint32(sess.ID()),
				Family:    string(sess.Family()),
				Streaming: sess.Streaming(),
			}
			if sess.Hand() != source.HandNone {
				src.Hand = sess.Hand().String()
			}
			payload.Sources = append(payload.Sources, src)
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
