package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultClaudeBaseURL = "https://api.anthropic.com"
	defaultClaudeModel   = "claude-3-opus-20240229"
	defaultClaudeTimeout = 30 * time.Second
	claudeAPIVersion     = "2023-06-01"

	// APIKeyEnv names the environment variable consulted when no key is
	// configured explicitly.
	APIKeyEnv = "ANTHROPIC_API_KEY"
)

// ClaudeConfig configures the Claude messages-API provider. Zero values fall
// back to the defaults above; APIKey falls back to the environment.
type ClaudeConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// ClaudeProvider asks the Anthropic messages API for a Trust/Cheat decision
// each round. A transport or parse failure is retried once, then surfaced as
// an error for the caller to degrade.
type ClaudeProvider struct {
	apiKey  string
	model   string
	baseURL string
	retries int
	client  *http.Client
}

func NewClaudeProvider(cfg ClaudeConfig) (*ClaudeProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("claude API key is required: set %s or configure it explicitly", APIKeyEnv)
	}
	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultClaudeBaseURL
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	if cfg.MaxRetries == 0 {
		retries = 1
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultClaudeTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &ClaudeProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		retries: retries,
		client:  client,
	}, nil
}

func (p *ClaudeProvider) Name() string { return "claude" }

func (p *ClaudeProvider) Decide(ctx context.Context, req DecisionRequest) (Decision, error) {
	prompt := BuildPrompt(req)

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		decision, err := p.decideOnce(ctx, prompt)
		if err == nil {
			return decision, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return Decision{}, fmt.Errorf("claude decision failed after %d attempts: %w", p.retries+1, lastErr)
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (p *ClaudeProvider) decideOnce(ctx context.Context, prompt string) (Decision, error) {
	body, err := json.Marshal(claudeRequest{
		Model:       p.model,
		MaxTokens:   100,
		Temperature: 0.2,
		Messages:    []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return Decision{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Decision{}, err
	}
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", claudeAPIVersion)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Decision{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Decision{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Decision{}, fmt.Errorf("claude API status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed claudeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Decision{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return Decision{}, fmt.Errorf("claude response has no content blocks")
	}
	return parseDecisionText(parsed.Content[0].Text)
}

// parseDecisionText interprets the model's reply, which must be a bare JSON
// object with an action label and a short reason.
func parseDecisionText(text string) (Decision, error) {
	var reply struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &reply); err != nil {
		return Decision{}, fmt.Errorf("reply is not the required JSON shape: %w", err)
	}
	action, err := actionFromWire(reply.Action)
	if err != nil {
		return Decision{}, err
	}
	reason := reply.Reason
	if reason == "" {
		reason = "no reasoning provided"
	}
	return Decision{Action: action, Reason: TruncateReason(reason)}, nil
}
