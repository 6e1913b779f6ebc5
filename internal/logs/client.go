package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"lectern/internal/api"
)

// ErrAPIUnavailable marks failures reaching the daemon's log endpoint.
var ErrAPIUnavailable = errors.New("log API unavailable")

// Client fetches log windows from the daemon's HTTP API so the CLI shows the
// same view a direct file tail would, without needing read access to the
// daemon's log directory.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// Query mirrors the /api/logs request parameters.
type Query struct {
	Offset int64
	Limit  int
	Follow bool
}

// NewClient builds a log client for the given API bind address. An empty bind
// yields a nil client whose Fetch reports ErrAPIUnavailable.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		// No timeout - follow mode blocks waiting for lines until caller cancels.
		http: &http.Client{},
	}, nil
}

// Fetch requests one log window. Offset is always sent; -1 asks the daemon
// for the last Limit lines.
func (c *Client) Fetch(ctx context.Context, q Query) (api.LogTailResponse, error) {
	if c == nil {
		return api.LogTailResponse{}, ErrAPIUnavailable
	}

	values := url.Values{}
	values.Set("offset", strconv.FormatInt(q.Offset, 10))
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: "/api/logs", RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return api.LogTailResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return api.LogTailResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return api.LogTailResponse{}, fmt.Errorf("api logs returned status %d", resp.StatusCode)
	}

	var payload api.LogTailResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return api.LogTailResponse{}, err
	}
	return payload, nil
}

// IsAPIUnavailable reports whether err indicates the daemon API cannot be
// reached, as opposed to the API answering with a failure.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
