// Package source fetches trial data from the experiment data service.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosight/gazetrace/internal/config"
	"github.com/gosight/gazetrace/internal/events"
	"github.com/gosight/gazetrace/internal/gaze"
	"github.com/gosight/gazetrace/internal/transformer"
	"github.com/gosight/gazetrace/internal/trial"
)

var ErrEmptyTrialID = errors.New("trial id is empty")

// Client talks to the data service. Per-trial responses are cached for the
// lifetime of the client since recorded trials never change.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	cache map[string]map[string][]byte
}

func NewClient(cfg config.SourceConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      make(map[string]map[string][]byte),
	}
}

// Trials lists the recorded trials.
func (c *Client) Trials(ctx context.Context) ([]trial.Meta, error) {
	body, err := c.get(ctx, "trials")
	if err != nil {
		return nil, err
	}

	var list []trial.Meta
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode trials: %w", err)
	}
	return trial.NormalizeList(list), nil
}

// Tests lists the experiment tests known to the data service.
func (c *Client) Tests(ctx context.Context) (json.RawMessage, error) {
	body, err := c.get(ctx, "tests")
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Stats returns the precomputed statistics of a whole trial.
func (c *Client) Stats(ctx context.Context, id string) (json.RawMessage, error) {
	return c.rawTrial(ctx, id, "stats")
}

// ChunkStats returns the statistics of the trial interval [startMs, endMs],
// in milliseconds from the trial start.
func (c *Client) ChunkStats(ctx context.Context, id string, startMs, endMs int64) (json.RawMessage, error) {
	return c.rawTrial(ctx, id, fmt.Sprintf("stats/%d-%d", startMs, endMs))
}

func (c *Client) rawTrial(ctx context.Context, id, path string) (json.RawMessage, error) {
	if id == "" {
		return nil, ErrEmptyTrialID
	}
	body, err := c.cachedTrial(ctx, id, path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("decode trial/%s/%s: invalid JSON", id, path)
	}
	return json.RawMessage(body), nil
}

// Meta returns the extended metadata of a trial.
func (c *Client) Meta(ctx context.Context, id string) (trial.MetaExt, error) {
	var meta trial.MetaExt
	if err := c.trialJSON(ctx, id, "meta", &meta); err != nil {
		return trial.MetaExt{}, err
	}
	return meta.Normalize(), nil
}

// Events returns the event log of a trial.
func (c *Client) Events(ctx context.Context, id string) ([]events.Record, error) {
	var records []events.Record
	if err := c.trialJSON(ctx, id, "events", &records); err != nil {
		return nil, err
	}
	return events.NormalizeAll(records), nil
}

// Fixations returns the fixations of a trial.
func (c *Client) Fixations(ctx context.Context, id string) ([]gaze.RawFixation, error) {
	return c.fixations(ctx, id, "gaze/fixations")
}

// SaccadeFixations returns the fixations the tracker exported as saccade data.
func (c *Client) SaccadeFixations(ctx context.Context, id string) ([]gaze.RawFixation, error) {
	return c.fixations(ctx, id, "gaze/saccades")
}

func (c *Client) fixations(ctx context.Context, id, path string) ([]gaze.RawFixation, error) {
	var raw []map[string]interface{}
	if err := c.trialJSON(ctx, id, path, &raw); err != nil {
		return nil, err
	}

	out := make([]gaze.RawFixation, len(raw))
	for i, r := range raw {
		out[i] = transformer.ParseFixation(r)
	}
	return out, nil
}

func (c *Client) trialJSON(ctx context.Context, id, path string, v interface{}) error {
	if id == "" {
		return ErrEmptyTrialID
	}
	body, err := c.cachedTrial(ctx, id, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode trial/%s/%s: %w", id, path, err)
	}
	return nil
}

func (c *Client) cachedTrial(ctx context.Context, id, path string) ([]byte, error) {
	c.mu.RLock()
	body, ok := c.cache[id][path]
	c.mu.RUnlock()
	if ok {
		return body, nil
	}

	body, err := c.get(ctx, "trial/"+url.PathEscape(id)+"/"+path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.cache[id] == nil {
		c.cache[id] = make(map[string][]byte)
	}
	c.cache[id][path] = body
	c.mu.Unlock()

	return body, nil
}

// Forget drops the cached responses of a trial.
func (c *Client) Forget(id string) {
	c.mu.Lock()
	delete(c.cache, id)
	c.mu.Unlock()
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%q: read body: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		statusText := http.StatusText(resp.StatusCode)
		reason := statusText
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			reason = payload.Error
		}
		log.Debug().Str("path", path).Int("status", resp.StatusCode).Msg("Data service request failed")
		return nil, &StatusError{Path: path, Status: resp.StatusCode, Reason: reason, StatusText: statusText}
	}

	return body, nil
}

// StatusError is returned for non-200 responses of the data service.
type StatusError struct {
	Path       string
	Status     int
	Reason     string
	StatusText string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%q returned %q [%s]", e.Path, e.Reason, e.StatusText)
}
