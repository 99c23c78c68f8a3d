package hue

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
)

// Client provides raw access to the Hue v1 API of one bridge
type Client struct {
	address    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new Hue client. An empty token only allows unauthenticated calls.
func NewClient(address, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	// Create HTTP client that ignores TLS verification (Hue bridge uses self-signed cert)
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	return &Client{
		address: address,
		token:   token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Close closes the client
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) v1URL(path string) string {
	parts := []string{"api"}
	if c.token != "" {
		parts = append(parts, c.token)
	}
	if path != "" {
		parts = append(parts, path)
	}
	base := c.address
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), strings.Join(parts, "/"))
}

func (c *Client) v1Get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.v1URL(path), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// The v1 API reports failures as a JSON array of error objects with status 200
	if err := apiErrorFrom(body); err != nil {
		return nil, err
	}

	return body, nil
}

// PublicConfig returns the unauthenticated subset of the bridge configuration
// (name, bridgeid, modelid, swversion, ...).
func (c *Client) PublicConfig(ctx context.Context) (map[string]any, error) {
	body, err := c.v1Get(ctx, "config")
	if err != nil {
		return nil, err
	}

	var cfg map[string]any
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode bridge config: %w", err)
	}

	return cfg, nil
}

// FullConfig returns the complete bridge state document as sent by the bridge.
// Requires a registered token.
func (c *Client) FullConfig(ctx context.Context) (json.RawMessage, error) {
	if c.token == "" {
		return nil, fmt.Errorf("full configuration requires a registered user")
	}

	body, err := c.v1Get(ctx, "")
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("bridge returned a malformed configuration document")
	}

	log.Debug().
		Str("address", c.address).
		Int("bytes", len(body)).
		Msg("Fetched full bridge configuration")

	return json.RawMessage(body), nil
}

type apiErrorEntry struct {
	Error *struct {
		Type        int    `json:"type"`
		Address     string `json:"address"`
		Description string `json:"description"`
	} `json:"error"`
}

// apiErrorFrom returns the first error reported in a v1 response array, if any.
func apiErrorFrom(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}

	var entries []apiErrorEntry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil
	}
	for _, e := range entries {
		if e.Error != nil {
			return &huego.APIError{
				Type:        e.Error.Type,
				Address:     e.Error.Address,
				Description: e.Error.Description,
			}
		}
	}
	return nil
}
