// Package inference is a thin client for the Hugging Face Inference API.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/crewhub/workspace/internal/gerrors"
	"github.com/crewhub/workspace/internal/log"
)

const DefaultAPIURL = "https://api-inference.huggingface.co/models"

const TokenEnvVar = "HUGGINGFACE_API_TOKEN"

// KnownModels is the curated list offered by the dashboard. Any model name
// is accepted by Generate; these are just the defaults surfaced to clients.
var KnownModels = []string{
	"microsoft/DialoGPT-medium",
	"gpt2",
	"distilgpt2",
	"facebook/blenderbot-400M-distill",
}

const DefaultModel = "microsoft/DialoGPT-medium"

var ErrNoToken = errors.New("inference API token is not configured")

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient builds a client with the given bearer token. An empty token
// falls back to the HUGGINGFACE_API_TOKEN environment variable; requests
// fail with ErrNoToken if neither is set.
func NewClient(token string, opts ...Option) *Client {
	if token == "" {
		token = os.Getenv(TokenEnvVar)
	}
	c := &Client{
		baseURL:    DefaultAPIURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) HasToken() bool {
	return c.token != ""
}

func (c *Client) SetToken(token string) {
	c.token = token
}

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

type generateParameters struct {
	MaxLength   int     `json:"max_length"`
	Temperature float64 `json:"temperature"`
	DoSample    bool    `json:"do_sample"`
}

type generateResult struct {
	GeneratedText string `json:"generated_text"`
}

// Generate sends a text-generation request and returns the raw completion,
// prompt echo included.
func (c *Client) Generate(ctx context.Context, model string, prompt string, maxLength int) (string, error) {
	if c.token == "" {
		return "", ErrNoToken
	}
	if model == "" {
		model = DefaultModel
	}
	body, err := json.Marshal(generateRequest{
		Inputs: prompt,
		Parameters: generateParameters{
			MaxLength:   maxLength,
			Temperature: 0.7,
			DoSample:    true,
		},
	})
	if err != nil {
		return "", gerrors.Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/"+model, bytes.NewReader(body))
	if err != nil {
		return "", gerrors.Wrap(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", gerrors.Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", gerrors.Wrap(err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Warning(ctx, "Inference API returned non-200", "model", model, "status", resp.Status)
		return "", gerrors.Newf("inference API error: %s: %s", resp.Status, string(respBody))
	}

	var results []generateResult
	if err := json.Unmarshal(respBody, &results); err != nil {
		// some models answer with a single object instead of a list
		var single generateResult
		if err := json.Unmarshal(respBody, &single); err != nil {
			return "", gerrors.Newf("unexpected inference response: %s", string(respBody))
		}
		results = append(results, single)
	}
	if len(results) == 0 || results[0].GeneratedText == "" {
		return "", gerrors.New("no response generated")
	}
	return results[0].GeneratedText, nil
}
