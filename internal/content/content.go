// Package content fetches page content from an OpenAI-compatible
// generation endpoint, with a deterministic local fallback when no
// endpoint is configured or reachable.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/danielpatrickdp/pageforge/internal/breaker"
	"github.com/danielpatrickdp/pageforge/internal/cache"
	"github.com/danielpatrickdp/pageforge/internal/page"
)

// ErrUpstream reports a content service that could not produce a usable
// response. Callers fall back to local content rather than failing the build.
var ErrUpstream = errors.New("content service unavailable")

const systemPrompt = `You write content for a single static landing page.
Respond with one JSON object only, no prose, matching this schema:
{"hero":{"title":"","subtitle":"","tagline":""},
 "cards":[{"title":"","description":""}],
 "menu":[{"label":"","href":""}],
 "cta":{"label":"","href":""}}
Card descriptions may use inline markdown. Produce 3 to 4 cards and 3 menu entries.`

// #region config

// ClientConfig configures the upstream connection.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// #endregion

// #region client

// Client fetches content per topic. Responses are cached by topic and the
// upstream call runs under a circuit breaker.
type Client struct {
	api   *openai.Client
	model string
	cache cache.Cache
	brk   *breaker.Breaker
	log   *slog.Logger
}

// NewClient builds a content client. Cache and breaker are optional.
func NewClient(cfg ClientConfig, c cache.Cache, brk *breaker.Breaker, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{
		api:   openai.NewClientWithConfig(apiCfg),
		model: model,
		cache: c,
		brk:   brk,
		log:   log,
	}
}

// Fetch returns content for the topic, preferring the cache. An upstream
// failure is reported as ErrUpstream; the caller decides whether to fall
// back.
func (c *Client) Fetch(ctx context.Context, topic string) (page.Content, error) {
	if c.cache != nil {
		if raw, ok := c.cache.Get(cacheKey(topic)); ok {
			var cached page.Content
			if err := json.Unmarshal(raw, &cached); err == nil {
				c.log.Debug("content cache hit", "topic", topic)
				return cached, nil
			}
		}
	}

	var resp openai.ChatCompletionResponse
	call := func() error {
		var err error
		resp, err = c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: "Topic: " + topic},
			},
		})
		return err
	}

	var err error
	if c.brk != nil {
		err = c.brk.Do(call)
	} else {
		err = call()
	}
	if err != nil {
		return page.Content{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return page.Content{}, fmt.Errorf("%w: empty response", ErrUpstream)
	}

	var out page.Content
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return page.Content{}, fmt.Errorf("%w: malformed content payload: %v", ErrUpstream, err)
	}
	if out.Hero.Title == "" {
		return page.Content{}, fmt.Errorf("%w: content missing hero title", ErrUpstream)
	}

	if c.cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			if err := c.cache.Set(cacheKey(topic), raw); err != nil {
				c.log.Warn("content cache write failed", "topic", topic, "error", err)
			}
		}
	}
	return out, nil
}

func cacheKey(topic string) string {
	return "content/v1/" + topic
}

// #endregion
