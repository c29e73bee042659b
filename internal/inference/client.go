// Package inference talks to an Ollama-compatible text generation endpoint.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	generatePath = "/api/generate"
	tagsPath     = "/api/tags"
	pullPath     = "/api/pull"
)

// Client issues single, non-streaming generate requests. There is no retry;
// callers record failures per case.
type Client struct {
	endpoint string
	model    string
	http     *http.Client
}

// NewClient returns a client for endpoint that asks for model. Each request
// is bounded by timeout.
func NewClient(endpoint, model string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Model() string    { return c.model }
func (c *Client) Endpoint() string { return c.endpoint }

// APIError is a non-200 reply from the endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d - %s", e.StatusCode, e.Body)
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Response is the generated text plus the token counts the endpoint reports.
type Response struct {
	Text         string
	PromptTokens int
	OutputTokens int
}

// Generate sends prompt and returns the model's response. A missing
// "response" field yields empty text.
func (c *Client) Generate(ctx context.Context, prompt string) (*Response, error) {
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var gen generateResponse
	if err := json.Unmarshal(data, &gen); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &Response{
		Text:         gen.Response,
		PromptTokens: gen.PromptEvalCount,
		OutputTokens: gen.EvalCount,
	}, nil
}

// WaitReady polls the endpoint until it answers or timeout elapses.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	probe := &http.Client{Timeout: time.Second}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+tagsPath, nil)
		if err != nil {
			return err
		}
		resp, err := probe.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("endpoint %s not ready after %s", c.endpoint, timeout)
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// Pull asks the endpoint to download the client's model.
func (c *Client) Pull(ctx context.Context) error {
	body, err := json.Marshal(map[string]any{"model": c.model, "stream": false})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+pullPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pulling %s: %w", c.model, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pulling %s: %w", c.model, &APIError{StatusCode: resp.StatusCode, Body: string(data)})
	}
	return nil
}
