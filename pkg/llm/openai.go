package llm

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/promptform/promptform/pkg/form"
	"github.com/promptform/promptform/pkg/metrics"
	"github.com/promptform/promptform/pkg/response"
	"github.com/promptform/promptform/pkg/schema"
)

// Client talks to an OpenAI-compatible chat completions endpoint with
// retry and exponential backoff. Safe for concurrent use.
type Client struct {
	settings Settings
	http     *http.Client
	metrics  metrics.Collector
}

// NewClient applies defaults to the settings, validates them and
// returns a ready client.
func NewClient(settings Settings) (*Client, error) {
	settings.applyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	httpClient := settings.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: settings.Timeout}
	}
	collector := settings.Metrics
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}
	return &Client{settings: settings, http: httpClient, metrics: collector}, nil
}

// Settings returns a copy of the effective (defaulted) settings
func (c *Client) Settings() Settings { return c.settings }

type chatRequest struct {
	Model            string                 `json:"model"`
	Messages         []form.Message         `json:"messages"`
	Temperature      float64                `json:"temperature"`
	MaxTokens        int                    `json:"max_tokens"`
	TopP             float64                `json:"top_p"`
	FrequencyPenalty float64                `json:"frequency_penalty"`
	PresencePenalty  float64                `json:"presence_penalty"`
	Stream           bool                   `json:"stream,omitempty"`
	ResponseFormat   *schema.ResponseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiErrBody  `json:"error,omitempty"`
}

type chatChoice struct {
	Message form.Message `json:"message"`
	Delta   struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type apiErrBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends the request and returns the full completion text,
// retrying transport failures, 429 and 5xx responses with exponential
// backoff and optional jitter. Context cancellation aborts the retry
// loop immediately.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.settings.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.waitBackoff(ctx, attempt); err != nil {
				return "", err
			}
			c.metrics.RecordRetry(ctx, "complete")
		}

		result, err := c.complete(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Printf("promptform: completion attempt %d/%d failed: %v",
			attempt+1, c.settings.MaxRetries+1, err)
	}
	return "", &MaxRetriesError{Attempts: c.settings.MaxRetries + 1, Last: unwrapRetryable(lastErr)}
}

// Stream sends the request with stream enabled and returns a fragment
// reader over the SSE response. Establishing the connection is retried
// like Complete; once the first fragment has been read the stream is
// never re-entered. The caller must drain or Close the reader.
func (c *Client) Stream(ctx context.Context, req Request) (response.FragmentReader, error) {
	var lastErr error
	for attempt := 0; attempt <= c.settings.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.waitBackoff(ctx, attempt); err != nil {
				return nil, err
			}
			c.metrics.RecordRetry(ctx, "stream")
		}

		reader, err := c.openStream(ctx, req)
		if err == nil {
			return reader, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("promptform: stream attempt %d/%d failed: %v",
			attempt+1, c.settings.MaxRetries+1, err)
	}
	return nil, &MaxRetriesError{Attempts: c.settings.MaxRetries + 1, Last: unwrapRetryable(lastErr)}
}

func (c *Client) complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("failed to read response body: %w", err)}
	}

	var apiResp chatResponse
	if err := sonic.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("API error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return apiResp.Choices[0].Message.Content, nil
}

func (c *Client) openStream(ctx context.Context, req Request) (*StreamReader, error) {
	resp, err := c.send(ctx, req, true)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &StreamReader{body: resp.Body, scanner: scanner}, nil
}

// send performs one HTTP round trip and classifies failures as
// retryable or terminal. A non-nil response is always 200 with an
// unread body.
func (c *Client) send(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	payload := chatRequest{
		Model:            c.settings.Model,
		Messages:         req.Messages,
		Temperature:      *c.settings.Temperature,
		MaxTokens:        c.settings.MaxTokens,
		TopP:             c.settings.TopP,
		FrequencyPenalty: c.settings.FrequencyPenalty,
		PresencePenalty:  c.settings.PresencePenalty,
		Stream:           stream,
		ResponseFormat:   req.ResponseFormat,
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(c.settings.BaseURL, "/")+c.settings.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.settings.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.settings.APIKey)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("request failed: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(errBody)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &retryableError{err: apiErr}
		}
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) waitBackoff(ctx context.Context, attempt int) error {
	delay := time.Duration(math.Pow(c.settings.BackoffBase, float64(attempt-1)) * float64(time.Second))
	if c.settings.BackoffJitter {
		delay += time.Duration(rand.Int63n(int64(time.Second)))
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func unwrapRetryable(err error) error {
	if re, ok := err.(*retryableError); ok {
		return re.err
	}
	return err
}

// StreamReader delivers SSE content deltas as fragments. Next returns
// io.EOF after the server's [DONE] marker; a body that ends without the
// marker is an abnormal termination and surfaces as an error.
type StreamReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

// Next returns the next non-empty content fragment
func (r *StreamReader) Next() (string, error) {
	if r.done {
		return "", io.EOF
	}
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			r.finish()
			return "", io.EOF
		}

		var chunk chatResponse
		if err := sonic.UnmarshalString(data, &chunk); err != nil {
			r.finish()
			return "", fmt.Errorf("failed to decode stream chunk: %w", err)
		}
		if chunk.Error != nil {
			r.finish()
			return "", fmt.Errorf("API error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}

	err := r.scanner.Err()
	r.finish()
	if err != nil {
		return "", fmt.Errorf("failed to read stream: %w", err)
	}
	return "", io.ErrUnexpectedEOF
}

// Close releases the underlying connection; safe to call more than once
func (r *StreamReader) Close() error {
	if r.done {
		return nil
	}
	return r.finish()
}

func (r *StreamReader) finish() error {
	r.done = true
	return r.body.Close()
}
