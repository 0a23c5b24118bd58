// Package biostar implements the HTTP client for the Guntamatic Biostar
// appliance. The device exposes two API generations: a modern consolidated
// JSON status endpoint and a legacy pair of line-oriented text endpoints.
// The client negotiates between them and normalizes both into one sensor
// snapshot.
package biostar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"guntamatic_bridge/internal/logger"
)

// Device endpoint paths. All calls are plain GET with a "key" query
// parameter carrying the pre-shared secret.
const (
	statusPath    = "/status.cgi"
	daqDescPath   = "/daqdesc.cgi"
	daqDataPath   = "/daqdata.cgi"
	extParsetPath = "/ext/parset.cgi"
	parsetPath    = "/parset.cgi"
)

const (
	defaultTimeout     = 10 * time.Second
	probeStatusTimeout = 5 * time.Second
	probeLegacyTimeout = 10 * time.Second
)

// FetchError is a hard fetch failure against a specific endpoint: transport
// error or unexpected HTTP status. Soft negotiation paths (the status probe)
// do not produce it.
type FetchError struct {
	Path   string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.Path, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client talks to a single Biostar device. Instances are independent; the
// client keeps no mutable state beyond the shared http.Client.
type Client struct {
	host     string
	apiKey   string
	writeKey string
	http     *http.Client
	log      *logger.Logger
}

// New builds a client for the device at host (host or host:port, no scheme).
// writeKey may be empty, which disables all write operations.
func New(host, apiKey, writeKey string, log *logger.Logger) *Client {
	return &Client{
		host:     host,
		apiKey:   apiKey,
		writeKey: writeKey,
		http:     &http.Client{},
		log:      log,
	}
}

// get performs one GET against the device with a per-call timeout and
// returns status code and body. Network-level failures come back as errors;
// non-200 statuses are returned to the caller to classify.
func (c *Client) get(ctx context.Context, path string, params url.Values, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := url.URL{Scheme: "http", Host: c.host, Path: path, RawQuery: params.Encode()}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request for %s: %w", path, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return resp.StatusCode, body, nil
}

// readParams returns the query parameters for read endpoints.
func (c *Client) readParams() url.Values {
	return url.Values{"key": []string{c.apiKey}}
}

// HasWriteAccess reports whether a write key is configured. It is the sole
// gate for all write operations.
func (c *Client) HasWriteAccess() bool {
	return c.writeKey != ""
}

// TestConnection probes the device: the modern status endpoint first (must
// answer 200 with valid JSON), then the legacy description endpoint (200
// suffices). Used at setup time to validate host and key.
func (c *Client) TestConnection(ctx context.Context) bool {
	status, body, err := c.get(ctx, statusPath, c.readParams(), probeStatusTimeout)
	if err == nil && status == http.StatusOK {
		if jsonDecodable(body) {
			c.log.Debugw("connection_test_ok", "endpoint", statusPath)
			return true
		}
		c.log.Debugw("connection_test_not_json", "endpoint", statusPath)
	}

	status, _, err = c.get(ctx, daqDescPath, c.readParams(), probeLegacyTimeout)
	if err != nil {
		c.log.Warnw("connection_test_failed", "endpoint", daqDescPath, "err", err)
		return false
	}
	if status != http.StatusOK {
		c.log.Warnw("connection_test_failed", "endpoint", daqDescPath, "status", status)
		return false
	}
	c.log.Debugw("connection_test_ok", "endpoint", daqDescPath)
	return true
}
