package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apitypes "github.com/Alia5/CONDUIT/apitypes"
)

// Client provides a high-level interface to the CONDUIT feed API. It frames
// requests and decodes responses, turning problem documents into errors.
type Client struct{ transport *Transport }

// New constructs a high-level API client using the internal low-level Transport.
// The addr parameter specifies the TCP address (host:port) of the CONDUIT feed server.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithPassword constructs a client that authenticates with the given password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport implementation.
// This is primarily useful for testing or when advanced transport configuration is needed.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the version and identity of the CONDUIT server.
func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

// PingCtx is the context-aware version of Ping.
func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	const path = "ping"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PingResponse](raw)
}

// FamiliesList retrieves the device families the server can adapt.
func (c *Client) FamiliesList() (*apitypes.FamiliesListResponse, error) {
	return c.FamiliesListCtx(context.Background())
}

func (c *Client) FamiliesListCtx(ctx context.Context) (*apitypes.FamiliesListResponse, error) {
	const path = "families/list"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.FamiliesListResponse](raw)
}

// SourcesList retrieves all sources currently registered with the server,
// including whether each one has an active sample stream.
func (c *Client) SourcesList() (*apitypes.SourcesListResponse, error) {
	return c.SourcesListCtx(context.Background())
}

func (c *Client) SourcesListCtx(ctx context.Context) (*apitypes.SourcesListResponse, error) {
	const path = "sources/list"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SourcesListResponse](raw)
}

// SourceAdd registers a new input source of the given family (e.g. "touch",
// "gamepad"). The hand parameter may be empty for devices without
// handedness. Returns the assigned source id. The server drops the source
// again if no sample stream connects within its timeout.
func (c *Client) SourceAdd(family, hand string) (*apitypes.SourceAddResponse, error) {
	return c.SourceAddCtx(context.Background(), family, hand)
}

func (c *Client) SourceAddCtx(ctx context.Context, family, hand string) (*apitypes.SourceAddResponse, error) {
	const path = "source/add"
	req := apitypes.SourceAddRequest{Family: &family}
	if hand != "" {
		req.Hand = &hand
	}
	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal source add request: %w", err)
	}
	raw, err := c.transport.DoCtx(ctx, path, string(payloadBytes), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SourceAddResponse](raw)
}

// SourceRemove unregisters a source. The server delivers one final
// source-lost event before the id becomes invalid.
func (c *Client) SourceRemove(id uint32) (*apitypes.SourceRemoveResponse, error) {
	return c.SourceRemoveCtx(context.Background(), id)
}

func (c *Client) SourceRemoveCtx(ctx context.Context, id uint32) (*apitypes.SourceRemoveResponse, error) {
	pathParams := map[string]string{"id": fmt.Sprintf("%d", id)}
	const path = "source/{id}/remove"
	raw, err := c.transport.DoCtx(ctx, path, nil, pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SourceRemoveResponse](raw)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
