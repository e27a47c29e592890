package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Alia5/CONDUIT/apitypes"
	"github.com/Alia5/CONDUIT/internal/server/feed"
	"github.com/Alia5/CONDUIT/source"
)

// SourceRemove returns a handler that unregisters a source. Teardown is
// asynchronous: the update loop delivers the terminal phase on its next
// frame and raises the source-lost event before the session is dropped.
func SourceRemove(s *feed.Server) feed.HandlerFunc {
	return func(req *feed.Request, res *feed.Response, logger *slog.Logger) error {
		idStr, ok := req.Params["id"]
		if !ok {
			return feed.ErrBadRequest("missing id parameter")
		}
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return feed.ErrBadRequest(fmt.Sprintf("invalid source id: %v", err))
		}

		if err := s.Sessions().End(source.ID(id), source.PhaseEnded); err != nil {
			return feed.ErrNotFound(fmt.Sprintf("source %d not found", id))
		}
		logger.Info("source removal requested", "source", id)

		payload, err := json.Marshal(apitypes.SourceRemoveResponse{SourceID: uint32(id)})
		if err != nil {
			return feed.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(payload)
		return nil
	}
}
