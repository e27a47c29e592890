package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Alia5/CONDUIT/adapter"
	"github.com/Alia5/CONDUIT/apitypes"
	"github.com/Alia5/CONDUIT/internal/server/feed"
	"github.com/Alia5/CONDUIT/source"
)

// SourceAdd returns a handler to register new input sources. The source is
// dropped again if no sample stream connects within the configured timeout.
func SourceAdd(s *feed.Server) feed.HandlerFunc {
	return func(req *feed.Request, res *feed.Response, logger *slog.Logger) error {
		if req.Payload == "" {
			return feed.ErrBadRequest("missing payload")
		}
		var addReq apitypes.SourceAddRequest
		if err := json.Unmarshal([]byte(req.Payload), &addReq); err != nil {
			return feed.ErrBadRequest(fmt.Sprintf("invalid JSON payload: %v", err))
		}
		if addReq.Family == nil {
			return feed.ErrBadRequest("missing source family")
		}

		family := source.Family(strings.ToLower(*addReq.Family))
		if adapter.Lookup(family) == nil {
			return feed.ErrBadRequest(fmt.Sprintf("unknown device family: %s", family))
		}

		hand := source.HandNone
		if addReq.Hand != nil {
			parsed, err := source.ParseHandedness(*addReq.Hand)
			if err != nil {
				return feed.ErrBadRequest(err.Error())
			}
			hand = parsed
		}

		sess := s.Sessions().Add(family, hand)
		logger.Info("source registered", "source", sess.ID(), "family", family, "hand", hand)

		resp := apitypes.SourceAddResponse{
			SourceID: uint32(sess.ID()),
			Family:   string(family),
		}
		if hand != source.HandNone {
			resp.Hand = hand.String()
		}
		payload, err := json.Marshal(resp)
		if err != nil {
			return feed.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(payload)
		return nil
	}
}
