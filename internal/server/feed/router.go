package feed

import (
	"context"
	"log/slog"
	"net"
	"strings"
)

// Request contains route parameters and additional args from the command.
type Request struct {
	Ctx     context.Context
	Params  map[string]string
	Payload string
}

// Response holds the JSON string to return to the client.
type Response struct {
	JSON string
}

// HandlerFunc processes a request and populates the response.
// Returns an error on failure. The logger provided is a connection-scoped logger
// enriched with remote address metadata by the feed server.
type HandlerFunc func(req *Request, res *Response, logger *slog.Logger) error

// StreamHandlerFunc handles long-lived TCP connections for streaming.
// The handler takes ownership of the connection and should close it when done.
// The logger provided is connection-scoped. Returning a non-nil error indicates
// the handler encountered a terminal failure; the server will log it.
type StreamHandlerFunc func(conn net.Conn, req *Request, logger *slog.Logger) error

// pattern is a compiled route path. Segments written as {name} capture the
// request segment at that position; everything else matches literally and
// case-insensitively.
type pattern struct {
	segments []string // lowercased literals, "" at capture positions
	captures []string // placeholder name per segment, "" for literals
}

func compilePattern(raw string) pattern {
	segs := strings.Split(raw, "/")
	p := pattern{
		segments: make([]string, len(segs)),
		captures: make([]string, len(segs)),
	}
	for i, s := range segs {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			p.captures[i] = s[1 : len(s)-1]
			continue
		}
		p.segments[i] = strings.ToLower(s)
	}
	return p
}

// match binds a lowercased request path against the pattern. The bool is
// false when lengths or literal segments disagree.
func (p pattern) match(parts []string) (map[string]string, bool) {
	if len(parts) != len(p.segments) {
		return nil, false
	}
	params := map[string]string{}
	for i, part := range parts {
		if name := p.captures[i]; name != "" {
			params[name] = part
			continue
		}
		if p.segments[i] != part {
			return nil, false
		}
	}
	return params, true
}

// Router dispatches request paths to handlers. Plain routes answer with one
// response line; stream routes take over the connection.
type Router struct {
	routes  []route
	streams []streamRoute
}

type route struct {
	pattern
	handler HandlerFunc
}

type streamRoute struct {
	pattern
	handler StreamHandlerFunc
}

// NewRouter returns a new Router instance.
func NewRouter() *Router { return &Router{} }

// Register registers a handler for a path pattern like "source/{id}/remove".
func (r *Router) Register(pat string, handler HandlerFunc) {
	r.routes = append(r.routes, route{pattern: compilePattern(pat), handler: handler})
}

// RegisterStream registers a StreamHandler for long-lived TCP connections.
func (r *Router) RegisterStream(pat string, handler StreamHandlerFunc) {
	r.streams = append(r.streams, streamRoute{pattern: compilePattern(pat), handler: handler})
}

// Match returns the HandlerFunc and params if the given path matches any
// registered pattern. Returns nil if none match.
func (r *Router) Match(path string) (HandlerFunc, map[string]string) {
	parts := strings.Split(strings.ToLower(path), "/")
	for _, rt := range r.routes {
		if params, ok := rt.match(parts); ok {
			return rt.handler, params
		}
	}
	return nil, nil
}

// MatchStream returns the StreamHandler and params if the given path matches
// any registered stream pattern. Returns nil if none match.
func (r *Router) MatchStream(path string) (StreamHandlerFunc, map[string]string) {
	parts := strings.Split(strings.ToLower(path), "/")
	for _, rt := range r.streams {
		if params, ok := rt.match(parts); ok {
			return rt.handler, params
		}
	}
	return nil, nil
}
