// Package dnd5e is a pass-through client for the public D&D 5e reference API.
// Responses are decoded into generic JSON and returned untouched. The client
// does not cache or retry; callers see upstream failures as errors.
package dnd5e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dndboard/dndboard/internal/core/domain"
)

const DefaultBaseURL = "https://www.dnd5eapi.co/api"

// maxBodySize bounds the upstream payload read into memory.
const maxBodySize = 8 << 20

// ErrUpstream wraps non-200 answers from the reference API.
var ErrUpstream = errors.New("catalogue upstream error")

// Config holds client settings. A zero Timeout means no client-side timeout;
// the request context still applies.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Observer receives the outcome of every upstream call.
type Observer func(kind domain.CatalogueKind, outcome string, elapsed time.Duration)

type Client struct {
	baseURL  string
	http     *http.Client
	log      zerolog.Logger
	observer Observer
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// WithObserver sets the hook called after each upstream request.
func (c *Client) WithObserver(o Observer) *Client {
	c.observer = o
	return c
}

// List fetches the index of a resource family, e.g. /spells.
func (c *Client) List(ctx context.Context, kind domain.CatalogueKind) (domain.CataloguePayload, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCatalogue, kind)
	}
	return c.fetch(ctx, kind, c.baseURL+"/"+string(kind))
}

// Get fetches a single entry, e.g. /monsters/aboleth.
func (c *Client) Get(ctx context.Context, kind domain.CatalogueKind, index string) (domain.CataloguePayload, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCatalogue, kind)
	}
	return c.fetch(ctx, kind, c.baseURL+"/"+string(kind)+"/"+url.PathEscape(index))
}

func (c *Client) fetch(ctx context.Context, kind domain.CatalogueKind, endpoint string) (payload domain.CataloguePayload, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		if c.observer != nil {
			c.observer(kind, outcome, time.Since(start))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("catalogue request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalogue request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, fmt.Errorf("%w: GET %s returned %d", ErrUpstream, endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("catalogue decode %s: %w", endpoint, err)
	}

	c.log.Debug().Str("url", endpoint).Dur("elapsed", time.Since(start)).Msg("catalogue fetched")
	return payload, nil
}
