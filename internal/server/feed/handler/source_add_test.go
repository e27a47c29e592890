package handler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/CONDUIT/apiclient"
	feed "github.com/Alia5/CONDUIT/internal/server/feed"
	"github.com/Alia5/CONDUIT/internal/server/feed/handler"
	th "github.com/Alia5/CONDUIT/internal/testing"

	_ "github.com/Alia5/CONDUIT/adapter/motion"
	_ "github.com/Alia5/CONDUIT/adapter/touch"
)

func TestSourceAdd(t *testing.T) {
	tests := []struct {
		name             string
		payload          any
		expectedResponse string
	}{
		{
			name:             "add touch source",
			payload:          `{"family": "touch"}`,
			expectedResponse: `{"sourceId":1,"family":"touch"}`,
		},
		{
			name:             "add motion source with hand",
			payload:          `{"family": "motion", "hand": "left"}`,
			expectedResponse: `{"sourceId":1,"family":"motion","hand":"left"}`,
		},
		{
			name:             "family tag case-insensitive",
			payload:          `{"family": "Touch"}`,
			expectedResponse: `{"sourceId":1,"family":"touch"}`,
		},
		{
			name:             "unknown family",
			payload:          `{"family": "warp"}`,
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"unknown device family: warp"}`,
		},
		{
			name:             "invalid json",
			payload:          `warp`,
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"invalid JSON payload: invalid character 'w' looking for beginning of value"}`,
		},
		{
			name:             "missing family",
			payload:          `{"fam": "touch"}`,
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"missing source family"}`,
		},
		{
			name:             "invalid hand",
			payload:          `{"family": "motion", "hand": "middle"}`,
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"unknown handedness \"middle\""}`,
		},
		{
			name:             "missing payload",
			payload:          nil,
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"missing payload"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, _, done := th.StartFeedServer(t, func(r *feed.Router, srv *feed.Server) {
				r.Register("source/add", handler.SourceAdd(srv))
			})
			defer done()

			c := apiclient.NewTransport(addr)
			line, err := c.Do("source/add", tt.payload, nil)
			assert.NoError(t, err)
			assert.JSONEq(t, tt.expectedResponse, line)
		})
	}
}

// Ids are assigned first-free, so removing a source frees its id for the
// next registration.
func TestSourceAdd_IdReuseAfterRemove(t *testing.T) {
	addr, _, done := th.StartFeedServer(t, func(r *feed.Router, srv *feed.Server) {
		r.Register("source/add", handler.SourceAdd(srv))
		r.Register("source/{id}/remove", handler.SourceRemove(srv))
	})
	defer done()

	c := apiclient.New(addr)
	first, err := c.SourceAdd("touch", "")
	require.NoError(t, err)
	require.Equal(t, uint32(1), first.SourceID)

	second, err := c.SourceAdd("touch", "")
	require.NoError(t, err)
	require.Equal(t, uint32(2), second.SourceID)

	_, err = c.SourceRemove(first.SourceID)
	require.NoError(t, err)

	// Teardown happens on the next frame tick.
	time.Sleep(100 * time.Millisecond)

	third, err := c.SourceAdd("touch", "")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), third.SourceID)
}
