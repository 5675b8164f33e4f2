// Package llm is the single entry point to the completion model. It shares
// one per-minute input-token budget across every caller in the process.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aaryan23/cold-email-os/pkg/anthropic"
)

// Gateway is the completion capability consumed by the research stages and
// the campaign generator. It never retries.
type Gateway interface {
	Complete(ctx context.Context, req Request) (string, error)
	CompleteJSON(ctx context.Context, req Request) (json.RawMessage, error)
}

// Request is one completion call. Phase names the caller in cost logs.
type Request struct {
	Phase     string
	System    string
	User      string
	MaxTokens int64
}

// InvalidJSONError is returned by CompleteJSON when the model's reply is not
// valid JSON after fence stripping.
type InvalidJSONError struct {
	Preview string
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("llm: invalid JSON response: %s", e.Preview)
}

const (
	previewLen    = 200
	charsPerToken = 4
)

// Client implements Gateway on top of the Anthropic messages API.
type Client struct {
	api     anthropic.Client
	model   string
	limiter *rate.Limiter
}

// New creates a gateway. tokensPerMinute bounds the estimated input tokens
// sent per minute; zero disables the budget.
func New(api anthropic.Client, model string, tokensPerMinute int) *Client {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if tokensPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(tokensPerMinute)/time.Minute.Seconds()), tokensPerMinute)
	}
	return &Client{api: api, model: model, limiter: limiter}
}

// Complete sends one system+user exchange and returns the reply text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.reserve(ctx, req); err != nil {
		return "", err
	}

	msgReq := anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: req.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(req.System),
		Messages:  []anthropic.Message{{Role: "user", Content: req.User}},
	}

	start := time.Now()
	resp, err := c.api.CreateMessage(ctx, msgReq)
	if err != nil {
		return "", eris.Wrapf(err, "llm: complete %s", req.Phase)
	}
	resp.Usage.LogCost(c.model, req.Phase)
	zap.L().Debug("llm: completion finished",
		zap.String("phase", req.Phase),
		zap.String("stop_reason", resp.StopReason),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp.Text(), nil
}

// CompleteJSON is Complete for callers expecting a JSON document. Markdown
// code fences around the reply are removed before validation.
func (c *Client) CompleteJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	text, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return ParseJSON(text)
}

// ParseJSON strips code fences from text and checks that the rest is JSON.
func ParseJSON(text string) (json.RawMessage, error) {
	cleaned := StripFences(text)
	if !json.Valid([]byte(cleaned)) {
		return nil, &InvalidJSONError{Preview: truncate(cleaned, previewLen)}
	}
	return json.RawMessage(cleaned), nil
}

// StripFences removes a leading ``` or ```json line and a trailing ```.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// reserve blocks until the estimated input tokens fit in the budget.
func (c *Client) reserve(ctx context.Context, req Request) error {
	n := (len(req.System) + len(req.User)) / charsPerToken
	if burst := c.limiter.Burst(); c.limiter.Limit() != rate.Inf && n > burst {
		n = burst
	}
	if n <= 0 {
		return nil
	}
	if err := c.limiter.WaitN(ctx, n); err != nil {
		return eris.Wrapf(err, "llm: wait for token budget (%s)", req.Phase)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
