package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client forwards fetched tiles to the AI inference service, which inspects
// them for vehicles and obstructions. Inference is slow, hence the long
// default timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOptions struct {
	Timeout time.Duration
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout: 120 * time.Second,
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

type Request struct {
	SessionID string   `json:"session_id"`
	TileIDs   []string `json:"tile_ids"`
}

type TileResult struct {
	TileID       string `json:"tile_id"`
	Vehicles     int    `json:"vehicles"`
	Obstructions int    `json:"obstructions"`
}

type Response struct {
	SessionID string       `json:"session_id"`
	Results   []TileResult `json:"results"`
}

func (c *Client) Analyze(ctx context.Context, request Request) (*Response, error) {
	reqURL, err := url.Parse(c.baseURL + "/analyze")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	body, err := json.Marshal(request)
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

	var analysisResp Response
	if err := json.NewDecoder(resp.Body).Decode(&analysisResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &analysisResp, nil
}
