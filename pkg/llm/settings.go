package llm

import (
	"fmt"
	"net/http"
	"time"

	"github.com/promptform/promptform/pkg/metrics"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultEndpoint    = "/chat/completions"
	defaultMaxRetries  = 3
	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
	defaultTopP        = 1.0
	defaultTimeout     = 60 * time.Second
	defaultBackoffBase = 2.0
)

// ConfigError reports invalid client settings
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid setting %s: %s", e.Field, e.Reason)
}

// Settings configures the completion client. All configuration is
// explicit; the client never reads environment variables. Zero values
// for BaseURL, Endpoint, MaxRetries, MaxTokens, TopP, Timeout and
// BackoffBase and a nil Temperature are replaced with defaults by
// NewClient.
type Settings struct {
	// Model is the model name sent with every request. Required.
	Model string

	// APIKey is sent as a Bearer token when non-empty. Local servers
	// commonly need none.
	APIKey string

	// BaseURL is the API root, e.g. "https://api.openai.com/v1" or a
	// local endpoint.
	BaseURL string

	// Endpoint is the chat completions path under BaseURL.
	Endpoint string

	// MaxRetries is the number of retries after the first attempt.
	// Zero means the default; any negative value disables retries.
	MaxRetries int

	// Temperature of nil means the default; a pointer to zero is an
	// explicit zero.
	Temperature *float64

	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64

	// Timeout bounds each HTTP request. Ignored when HTTPClient is set.
	Timeout time.Duration

	// BackoffBase is the exponential backoff base between retries.
	BackoffBase float64

	// BackoffJitter adds up to one second of random jitter to each
	// backoff delay.
	BackoffJitter bool

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client

	// Metrics receives one count per retried request attempt. Nil
	// disables recording.
	Metrics metrics.Collector
}

func (s *Settings) applyDefaults() {
	if s.BaseURL == "" {
		s.BaseURL = defaultBaseURL
	}
	if s.Endpoint == "" {
		s.Endpoint = defaultEndpoint
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = defaultMaxRetries
	} else if s.MaxRetries < 0 {
		s.MaxRetries = 0
	}
	if s.Temperature == nil {
		temperature := float64(defaultTemperature)
		s.Temperature = &temperature
	}
	if s.MaxTokens == 0 {
		s.MaxTokens = defaultMaxTokens
	}
	if s.TopP == 0 {
		s.TopP = defaultTopP
	}
	if s.Timeout == 0 {
		s.Timeout = defaultTimeout
	}
	if s.BackoffBase == 0 {
		s.BackoffBase = defaultBackoffBase
	}
}

// Validate checks settings ranges. Called by NewClient after defaults
// are applied.
func (s *Settings) Validate() error {
	if s.Model == "" {
		return &ConfigError{Field: "Model", Reason: "must be a non-empty string"}
	}
	if s.Temperature != nil && (*s.Temperature < 0 || *s.Temperature > 2) {
		return &ConfigError{Field: "Temperature", Reason: "must be between 0.0 and 2.0"}
	}
	if s.MaxTokens <= 0 {
		return &ConfigError{Field: "MaxTokens", Reason: "must be positive"}
	}
	if s.TopP < 0 || s.TopP > 1 {
		return &ConfigError{Field: "TopP", Reason: "must be between 0.0 and 1.0"}
	}
	if s.FrequencyPenalty < -2 || s.FrequencyPenalty > 2 {
		return &ConfigError{Field: "FrequencyPenalty", Reason: "must be between -2.0 and 2.0"}
	}
	if s.PresencePenalty < -2 || s.PresencePenalty > 2 {
		return &ConfigError{Field: "PresencePenalty", Reason: "must be between -2.0 and 2.0"}
	}
	if s.Timeout < 0 {
		return &ConfigError{Field: "Timeout", Reason: "must be non-negative"}
	}
	if s.BackoffBase < 1 {
		return &ConfigError{Field: "BackoffBase", Reason: "must be at least 1"}
	}
	return nil
}
