package handler

import (
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/Alia5/CONDUIT/adapter"
	"github.com/Alia5/CONDUIT/apitypes"
	"github.com/Alia5/CONDUIT/internal/server/feed"
)

// FamiliesList returns a handler that lists the device families with a
// registered adapter.
func FamiliesList() feed.HandlerFunc {
	return func(req *feed.Request, res *feed.Response, logger *slog.Logger) error {
		families := adapter.Families()
		sort.Strings(families)
		b, err := json.Marshal(apitypes.FamiliesListResponse{Families: families})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
