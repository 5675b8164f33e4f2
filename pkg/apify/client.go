// Package apify provides a client for running Apify actors and reading their
// datasets.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.apify.com/v2"

// Run statuses reported by Apify.
const (
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusAborted   = "ABORTED"
	StatusTimedOut  = "TIMED-OUT"
)

// Client defines the Apify API operations used by the research stages.
type Client interface {
	StartRun(ctx context.Context, actorID string, input any) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	DatasetItems(ctx context.Context, datasetID string, limit int) (json.RawMessage, error)
}

// Run is an actor run as returned by the runs endpoints.
type Run struct {
	ID               string `json:"id"`
	ActID            string `json:"actId"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// Finished reports whether the run reached a terminal status.
func (r *Run) Finished() bool {
	switch r.Status {
	case StatusSucceeded, StatusFailed, StatusAborted, StatusTimedOut:
		return true
	}
	return false
}

type runEnvelope struct {
	Data Run `json:"data"`
}

// APIError is returned when Apify responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apify: HTTP %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Apify client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) StartRun(ctx context.Context, actorID string, input any) (*Run, error) {
	buf, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "apify: marshal input")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/acts/%s/runs", c.baseURL, url.PathEscape(actorID)), bytes.NewReader(buf))
	if err != nil {
		return nil, eris.Wrap(err, "apify: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	var env runEnvelope
	if err := c.do(req, &env); err != nil {
		return nil, eris.Wrapf(err, "apify: start actor %s", actorID)
	}
	return &env.Data, nil
}

func (c *httpClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/actor-runs/%s", c.baseURL, url.PathEscape(runID)), nil)
	if err != nil {
		return nil, eris.Wrap(err, "apify: create request")
	}

	var env runEnvelope
	if err := c.do(req, &env); err != nil {
		return nil, eris.Wrapf(err, "apify: get run %s", runID)
	}
	return &env.Data, nil
}

func (c *httpClient) DatasetItems(ctx context.Context, datasetID string, limit int) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/datasets/%s/items?clean=true", c.baseURL, url.PathEscape(datasetID))
	if limit > 0 {
		u += fmt.Sprintf("&limit=%d", limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "apify: create request")
	}

	var items json.RawMessage
	if err := c.do(req, &items); err != nil {
		return nil, eris.Wrapf(err, "apify: dataset items %s", datasetID)
	}
	return items, nil
}

func (c *httpClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}
