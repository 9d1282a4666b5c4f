package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/nikolayk812/cart-service/internal/correlation"
	"github.com/nikolayk812/cart-service/internal/domain"
)

var errNotFound = errors.New("not found")

// Client is a JSON-over-HTTP client for one upstream service.
type Client struct {
	name    string
	baseURL *url.URL
	http    *http.Client
}

func NewClient(name, baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid %s base url %q: %w", name, baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid %s base url %q: scheme and host required", name, baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{name: name, baseURL: u, http: httpClient}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	u := c.baseURL.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if cid := correlation.FromContext(ctx); cid != "" {
		req.Header.Set(correlation.Header, cid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.unavailable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return errNotFound
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return c.unavailable(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.unavailable(fmt.Errorf("decode response: %w", err))
	}

	return nil
}

func (c *Client) unavailable(err error) error {
	return fmt.Errorf("%s: %w", c.name, errors.Join(domain.ErrOracleUnavailable, err))
}
