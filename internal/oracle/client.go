// Package oracle talks to the language model that invents incidents, hands-on
// tasks and end-of-game reports. Every failure is reported to the caller as an
// error and never reaches the engine.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrMalformed marks a response that could not be turned into a usable result.
var ErrMalformed = errors.New("malformed model response")

// Generator produces raw model output for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Client is an Ollama-compatible generate client.
type Client struct {
	URL   string
	Model string
	HTTP  *http.Client
}

// NewClient returns a client for the Ollama server at url.
func NewClient(url, model string, timeout time.Duration) *Client {
	return &Client{
		URL:   strings.TrimRight(url, "/"),
		Model: model,
		HTTP:  &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate posts the prompt to /api/generate in JSON mode and returns the
// model's response text.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	body, err := json.Marshal(generateRequest{Model: c.Model, Prompt: prompt, Format: "json", Stream: false})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama error %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if strings.TrimSpace(result.Response) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformed)
	}
	return []byte(result.Response), nil
}
