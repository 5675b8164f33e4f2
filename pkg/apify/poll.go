package apify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInitial = 3 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 10 * time.Minute
	defaultItemLimit   = 200
)

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
	limit   int
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		initial: defaultPollInitial,
		cap:     defaultPollCap,
		timeout: defaultPollTimeout,
		limit:   defaultItemLimit,
	}
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.initial = d
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.cap = d
	}
}

// WithPollTimeout overrides the run ceiling. Applied only when the parent
// context has no earlier deadline.
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithItemLimit caps the number of dataset items fetched.
func WithItemLimit(n int) PollOption {
	return func(c *pollConfig) {
		c.limit = n
	}
}

// WaitForRun polls GetRun until the run finishes or the ceiling expires.
// Backoff doubles from the initial interval up to the cap. Any terminal
// status other than SUCCEEDED is an error.
func WaitForRun(ctx context.Context, client Client, runID string, opts ...PollOption) (*Run, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	interval := cfg.initial
	for {
		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "apify: run %s timed out", runID)
		case <-time.After(interval):
		}

		run, err := client.GetRun(ctx, runID)
		if err != nil {
			// Status reads are retried on the next tick.
			if ctx.Err() != nil {
				return nil, eris.Wrapf(err, "apify: poll run %s", runID)
			}
		} else if run.Finished() {
			if run.Status != StatusSucceeded {
				return nil, eris.Errorf("apify: run %s ended with status %s", runID, run.Status)
			}
			return run, nil
		}

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}
}

// RunActor starts an actor, waits for it to succeed and decodes its default
// dataset into items of type T.
func RunActor[T any](ctx context.Context, client Client, actorID string, input any, opts ...PollOption) ([]T, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	run, err := client.StartRun(ctx, actorID, input)
	if err != nil {
		return nil, err
	}

	done, err := WaitForRun(ctx, client, run.ID, opts...)
	if err != nil {
		return nil, err
	}

	raw, err := client.DatasetItems(ctx, done.DefaultDatasetID, cfg.limit)
	if err != nil {
		return nil, err
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, eris.Wrapf(err, "apify: decode dataset %s", done.DefaultDatasetID)
	}
	return items, nil
}
