package imagery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"routesight/internal/gis"
)

// maxTileBytes bounds a single tile download.
const maxTileBytes = 8 << 20

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ClientOptions struct {
	Timeout time.Duration
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout: 15 * time.Second,
	}
}

func NewClient(baseURL, apiKey string, options ...ClientOptions) *Client {
	opts := DefaultClientOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// FetchTile downloads the static satellite image centered on the given point
// at the given zoom and returns the raw bytes.
func (c *Client) FetchTile(ctx context.Context, center gis.Point, zoom uint8) ([]byte, error) {
	reqURL, err := url.Parse(c.baseURL + "/staticmap")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("center", fmt.Sprintf("%f,%f", center.Lat, center.Lng))
	query.Set("zoom", strconv.Itoa(int(zoom)))
	query.Set("maptype", "satellite")
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}
	return data, nil
}
