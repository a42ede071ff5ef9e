package lcu

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrStatus is returned when the client API answers with a non-2xx status.
// Callers treat it as "nothing happened this tick", never as fatal.
var ErrStatus = errors.New("lcu: unexpected status")

// Connection is the port+token pair discovered by an external helper. It is
// ephemeral: the client regenerates the token on every restart.
type Connection struct {
	Port  int
	Token string
}

// Client talks to the loopback HTTPS API of the running game client. The
// client presents a self-signed certificate, so TLS verification is disabled
// for this peer only; authentication is HTTP Basic with the fixed "riot"
// username and the per-session token.
type Client struct {
	logger  *zap.Logger
	conn    Connection
	httpCli *http.Client
	baseURL string
}

// NewClient creates a client for the given connection. Every request is
// bounded by timeout so a hung client process can never stall a poll loop.
func NewClient(logger *zap.Logger, conn Connection, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		logger: logger.Named("lcu.client"),
		conn:   conn,
		httpCli: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		baseURL: fmt.Sprintf("https://127.0.0.1:%d", conn.Port),
	}
}

// Get performs a GET against the client API and returns the response body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST with a JSON body against the client API.
func (c *Client) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth("riot", c.conn.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d on %s %s", ErrStatus, resp.StatusCode, method, path)
	}
	return data, nil
}
