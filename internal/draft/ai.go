package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ignite/bottler-outreach/internal/config"
	"github.com/ignite/bottler-outreach/internal/report"
)

// Generator produces one draft communication for a group of report rows.
type Generator interface {
	Generate(ctx context.Context, groupName string, rows []*report.Row) (subject, htmlBody string, err error)
}

// AIClient generates drafts through the Anthropic Messages API, falling
// back to OpenAI chat completions when no Anthropic key is configured or
// the Anthropic call fails for a retryable reason.
type AIClient struct {
	anthropicKey string
	openaiKey    string
	model        string
	prompts      *PromptBuilder
	httpClient   *http.Client
}

// NewAIClient creates the HTTP-backed generator.
func NewAIClient(cfg config.GenerationConfig) (*AIClient, error) {
	prompts, err := NewPromptBuilder()
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &AIClient{
		anthropicKey: cfg.AnthropicAPIKey,
		openaiKey:    cfg.OpenAIAPIKey,
		model:        cfg.Model,
		prompts:      prompts,
		httpClient:   &http.Client{Timeout: timeout},
	}, nil
}

// Generate builds the prompt for one group and asks the provider for a
// subject/HTML-body pair.
func (c *AIClient) Generate(ctx context.Context, groupName string, rows []*report.Row) (string, string, error) {
	prompt, err := c.prompts.Build(groupName, rows)
	if err != nil {
		return "", "", &GenerationError{Kind: GenUnspecified, Err: err}
	}

	if c.anthropicKey != "" {
		subject, body, err := c.callAnthropic(ctx, prompt)
		if err == nil {
			return subject, body, nil
		}
		if c.openaiKey == "" {
			return "", "", err
		}
		log.Printf("[draft] Anthropic failed for group %q, falling back to OpenAI: %v", groupName, err)
	}

	if c.openaiKey != "" {
		return c.callOpenAI(ctx, prompt)
	}

	return "", "", &GenerationError{Kind: GenCredential, Err: fmt.Errorf("no AI provider API key configured")}
}

func (c *AIClient) callAnthropic(ctx context.Context, prompt string) (string, string, error) {
	reqBody := map[string]interface{}{
		"model":      c.model,
		"max_tokens": 2000,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.anthropic.com/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", "", &GenerationError{Kind: GenUnspecified, Err: err}
	}

	req.Header.Set("x-api-key", c.anthropicKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != 200 {
		return "", "", &GenerationError{
			Kind: classifyStatus(resp.StatusCode),
			Err:  fmt.Errorf("Anthropic error (status %d): %s", resp.StatusCode, truncate(respBody, 500)),
		}
	}

	var anthropicResp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &anthropicResp); err != nil {
		return "", "", &GenerationError{Kind: GenUnspecified, Err: fmt.Errorf("parse Anthropic response: %w", err)}
	}
	if len(anthropicResp.Content) == 0 {
		return "", "", &GenerationError{Kind: GenUnspecified, Err: fmt.Errorf("no content in Anthropic response")}
	}

	subject, htmlBody, err := parseDraftJSON(anthropicResp.Content[0].Text)
	if err != nil {
		return "", "", &GenerationError{Kind: GenUnspecified, Err: err}
	}
	return subject, htmlBody, nil
}

func (c *AIClient) callOpenAI(ctx context.Context, prompt string) (string, string, error) {
	reqBody := map[string]interface{}{
		"model": "gpt-4o",
		"messages": []map[string]string{
			{"role": "system", "content": "You are an expert B2B service-communication copywriter. Always respond with valid JSON."},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.7,
		"max_tokens":  2000,
	}

	body, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", "", &GenerationError{Kind: GenUnspecified, Err: err}
	}

	req.Header.Set("Authorization", "Bearer "+c.openaiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != 200 {
		return "", "", &GenerationError{
			Kind: classifyStatus(resp.StatusCode),
			Err:  fmt.Errorf("OpenAI error (status %d): %s", resp.StatusCode, truncate(respBody, 500)),
		}
	}

	var openAIResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", "", &GenerationError{Kind: GenUnspecified, Err: fmt.Errorf("parse OpenAI response: %w", err)}
	}
	if len(openAIResp.Choices) == 0 {
		return "", "", &GenerationError{Kind: GenUnspecified, Err: fmt.Errorf("no choices in OpenAI response")}
	}

	subject, htmlBody, err := parseDraftJSON(openAIResp.Choices[0].Message.Content)
	if err != nil {
		return "", "", &GenerationError{Kind: GenUnspecified, Err: err}
	}
	return subject, htmlBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
