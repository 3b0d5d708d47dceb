package veo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrTimeout means the operation was still running when polling gave up.
	ErrTimeout = errors.New("veo: video generation timed out")

	errPending = errors.New("veo: operation pending")
)

var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
	"HARM_CATEGORY_CIVIC_INTEGRITY",
}

// ProviderError is an error reported by a finished operation.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("veo: operation failed (%d): %s", e.Code, e.Message)
}

type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	PollInterval time.Duration
	MaxAttempts  uint
	Deadline     time.Duration
}

type Options struct {
	AspectRatio      string
	PersonGeneration string
	NumberOfVideos   int
	NegativePrompt   string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Minute}
	}
	return &Client{cfg: cfg, http: httpClient}
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type parameters struct {
	AspectRatio      string          `json:"aspectRatio"`
	PersonGeneration string          `json:"personGeneration"`
	SampleCount      int             `json:"sampleCount"`
	NegativePrompt   string          `json:"negativePrompt,omitempty"`
	SafetySettings   []safetySetting `json:"safetySettings"`
}

type generateRequest struct {
	Instances  []instance `json:"instances"`
	Parameters parameters `json:"parameters"`
}

type instance struct {
	Prompt string `json:"prompt"`
}

type operation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

func withDefaults(opts Options) Options {
	if opts.AspectRatio == "" {
		opts.AspectRatio = "16:9"
	}
	if opts.PersonGeneration == "" {
		opts.PersonGeneration = "dont_allow"
	}
	if opts.NumberOfVideos < 1 {
		opts.NumberOfVideos = 1
	}
	return opts
}

// Generate starts a long-running generation and polls it at a fixed interval
// until it finishes, the attempt limit is hit, or the deadline passes. The
// returned URLs carry the API key so they can be fetched directly.
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) ([]string, error) {
	opts = withDefaults(opts)
	settings := make([]safetySetting, 0, len(harmCategories))
	for _, cat := range harmCategories {
		settings = append(settings, safetySetting{Category: cat, Threshold: "BLOCK_NONE"})
	}

	op, err := c.start(ctx, generateRequest{
		Instances: []instance{{Prompt: prompt}},
		Parameters: parameters{
			AspectRatio:      opts.AspectRatio,
			PersonGeneration: opts.PersonGeneration,
			SampleCount:      opts.NumberOfVideos,
			NegativePrompt:   opts.NegativePrompt,
			SafetySettings:   settings,
		},
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("operation", op.Name).Msg("video generation started")

	if !op.Done {
		op, err = c.poll(ctx, op.Name)
		if err != nil {
			return nil, err
		}
	}
	if op.Error != nil {
		return nil, &ProviderError{Code: op.Error.Code, Message: op.Error.Message}
	}
	return c.videoURLs(op), nil
}

func (c *Client) poll(ctx context.Context, name string) (*operation, error) {
	attempts := 0
	check := func() (*operation, error) {
		attempts++
		op, err := c.get(ctx, name)
		if err != nil {
			var gerr *googleapi.Error
			if errors.As(err, &gerr) && gerr.Code != http.StatusTooManyRequests && gerr.Code < 500 {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if !op.Done {
			zerolog.Ctx(ctx).Debug().Str("operation", name).Int("attempt", attempts).Msg("video still generating")
			return nil, errPending
		}
		return op, nil
	}

	op, err := backoff.Retry(ctx, check,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.cfg.PollInterval)),
		backoff.WithMaxTries(c.cfg.MaxAttempts),
		backoff.WithMaxElapsedTime(c.cfg.Deadline),
	)
	switch {
	case err == nil:
		return op, nil
	case errors.Is(err, errPending):
		return nil, fmt.Errorf("%w after %d polls", ErrTimeout, attempts)
	default:
		return nil, err
	}
}

func (c *Client) start(ctx context.Context, body generateRequest) (*operation, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/models/%s:predictLongRunning", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, name string) (*operation, error) {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.cfg.BaseURL, "/"), strings.TrimLeft(name, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*operation, error) {
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer googleapi.CloseBody(resp)

	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, err
	}
	var op operation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("veo: decode operation: %w", err)
	}
	return &op, nil
}

func (c *Client) videoURLs(op *operation) []string {
	if op.Response == nil {
		return nil
	}
	var urls []string
	for _, s := range op.Response.GenerateVideoResponse.GeneratedSamples {
		if s.Video.URI == "" {
			continue
		}
		sep := "?"
		if strings.Contains(s.Video.URI, "?") {
			sep = "&"
		}
		urls = append(urls, s.Video.URI+sep+"key="+c.cfg.APIKey)
	}
	return urls
}
