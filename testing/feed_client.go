// Package testing provides a scripted wire-level client for exercising a
// CONDUIT feed server in tests, below the apiclient conveniences.
package testing

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Alia5/CONDUIT/apitypes"
)

// FeedClient speaks the raw feed protocol: `<path>[ SP <payload>]\x00`
// requests answered by a single JSON line. Unencrypted connections only.
type FeedClient struct {
	address string
	timeout time.Duration
}

func NewFeedClient(addr string) *FeedClient {
	return &FeedClient{address: addr, timeout: 5 * time.Second}
}

// Request dials, sends one request and returns the response line without
// its trailing newline. An empty return is a bare-OK response. Problem
// documents come back as an *apitypes.ApiError alongside the raw line.
func (c *FeedClient) Request(path, payload string) (string, error) {
	conn, err := net.DialTimeout("tcp", c.address, c.timeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	req := path
	if payload != "" {
		req += " " + payload
	}
	if _, err := conn.Write(append([]byte(req), 0)); err != nil {
		return "", err
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if apiErr := decodeApiError(line); apiErr != nil {
		return line, apiErr
	}
	return line, nil
}

// RequestJSON sends a request and decodes the JSON response into v. A nil
// v skips decoding.
func (c *FeedClient) RequestJSON(path, payload string, v any) error {
	line, err := c.Request(path, payload)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if line == "" {
		return fmt.Errorf("empty response for %s", path)
	}
	return json.Unmarshal([]byte(line), v)
}

// OpenSampleStream dials and hands the connection over to the source's
// sample stream. The caller writes fixed-size frames and closes the conn.
func (c *FeedClient) OpenSampleStream(sourceID uint32) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", c.address, c.timeout)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(conn, "source/%d/stream\x00", sourceID); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// OpenEventLines subscribes to the event stream and returns the connection
// plus a scanner yielding one raw event JSON line per Scan.
func (c *FeedClient) OpenEventLines() (net.Conn, *bufio.Scanner, error) {
	conn, err := net.DialTimeout("tcp", c.address, c.timeout)
	if err != nil {
		return nil, nil, err
	}
	if _, err := conn.Write([]byte("events/stream\x00")); err != nil {
		conn.Close()
		return nil, nil, err
	}
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return conn, sc, nil
}

// decodeApiError returns the response as an *apitypes.ApiError when it
// parses as a problem document, nil otherwise.
func decodeApiError(line string) error {
	if !strings.HasPrefix(line, "{") || !strings.Contains(line, `"status"`) {
		return nil
	}
	var apiErr apitypes.ApiError
	if err := json.Unmarshal([]byte(line), &apiErr); err != nil {
		return nil
	}
	if apiErr.Status == 0 || apiErr.Title == "" {
		return nil
	}
	return &apiErr
}
