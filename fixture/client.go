package fixture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Default endpoints. The {z}/{x}/{y} placeholders in the tile template
// are substituted per coordinate.
const (
	DefaultStyleURL = "https://api.mapward.com/styles/v1/streets-v10"
	DefaultTileURL  = "https://api.mapward.com/tiles/v4/streets-v7/{z}/{x}/{y}.vector.pbf"
)

// Config holds the fixture endpoints and the access token used to
// reach them. The token is threaded explicitly; nothing in this
// package reads ambient process state.
type Config struct {
	Token       string
	StyleURL    string
	TileURL     string
	HTTPTimeout time.Duration
}

// Client fetches style documents and raw tile buffers over HTTP.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a Client from cfg, filling in default endpoints
// and timeout for zero fields.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.StyleURL == "" {
		cfg.StyleURL = DefaultStyleURL
	}

	if cfg.TileURL == "" {
		cfg.TileURL = DefaultTileURL
	}

	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger.With(slog.String("component", "fixture")),
	}
}

// FetchStyle retrieves the style document as raw JSON bytes.
func (c *Client) FetchStyle(ctx context.Context) ([]byte, error) {
	body, err := c.Fetch(ctx, c.cfg.StyleURL)
	if err != nil {
		return nil, fmt.Errorf("fetch style: %w", err)
	}

	return body, nil
}

// FetchTile retrieves the raw vector-tile buffer for coord.
func (c *Client) FetchTile(
	ctx context.Context, coord Coordinate,
) ([]byte, error) {
	body, err := c.Fetch(ctx, c.TileURL(coord))
	if err != nil {
		return nil, fmt.Errorf("fetch tile %s: %w", coord, err)
	}

	return body, nil
}

// TileURL resolves the tile template for coord.
func (c *Client) TileURL(coord Coordinate) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(coord.Zoom),
		"{x}", strconv.Itoa(coord.Column),
		"{y}", strconv.Itoa(coord.Row),
	)

	return r.Replace(c.cfg.TileURL)
}

// Fetch performs an authenticated GET of rawURL and returns the
// response body. Any non-2xx status is an error.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %s: %w", rawURL, err)
	}

	if c.cfg.Token != "" {
		q := u.Query()
		q.Set("access_token", c.cfg.Token)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	c.logger.DebugContext(ctx, "fetching fixture",
		slog.String("url", rawURL),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}

	return body, nil
}
