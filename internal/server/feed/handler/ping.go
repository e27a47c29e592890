package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/Alia5/CONDUIT/apitypes"
	"github.com/Alia5/CONDUIT/internal/server/feed"
	"github.com/Alia5/CONDUIT/internal/version"
)

// Ping returns a handler answering with the server identity and version.
func Ping() feed.HandlerFunc {
	return func(req *feed.Request, res *feed.Response, logger *slog.Logger) error {
		v, err := version.Get()
		if err != nil {
			return err
		}
		b, err := json.Marshal(apitypes.PingResponse{Server: "CONDUIT", Version: v})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
