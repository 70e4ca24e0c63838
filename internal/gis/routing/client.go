package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrNoRoute is returned when the provider answers with zero routes.
var ErrNoRoute = fmt.Errorf("no route found")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOptions struct {
	Timeout time.Duration
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout: 10 * time.Second,
	}
}

func NewClient(baseURL string, options ...ClientOptions) *Client {
	opts := DefaultClientOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// ComputeRoutes asks the provider for drivable routes between the request's
// origin and destination. The first returned candidate is labelled "primary",
// the rest "alternative-N".
func (c *Client) ComputeRoutes(ctx context.Context, routeRequest RouteRequest) ([]RouteCandidate, error) {
	reqURL, err := url.Parse(c.baseURL + "/directions/v2:computeRoutes")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	body, err := json.Marshal(routeRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var routeResp routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&routeResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(routeResp.Routes) == 0 {
		return nil, ErrNoRoute
	}

	candidates := make([]RouteCandidate, 0, len(routeResp.Routes))
	for i, r := range routeResp.Routes {
		label := "primary"
		if i > 0 {
			label = fmt.Sprintf("alternative-%d", i)
		}
		candidates = append(candidates, r.toCandidate(label))
	}
	return candidates, nil
}
