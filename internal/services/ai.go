package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hfeng/codegrader/pkg/logger"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hfeng/codegrader/internal/config"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// RemoteStrategy analyzes a submission through an external LLM service.
// Every call is bounded by the configured timeout and retried on transient
// failure with exponential backoff; any failure surfaces as an AnalysisError
// which the engine absorbs by falling back to the rule-based strategy.
type RemoteStrategy struct {
	cfg *config.AIConfig
}

func NewRemoteStrategy(cfg *config.AIConfig) *RemoteStrategy {
	return &RemoteStrategy{cfg: cfg}
}

func (s *RemoteStrategy) Name() string { return "remote" }

// Enabled reports whether a remote analysis credential is configured.
// Ollama runs locally and needs no key.
func (s *RemoteStrategy) Enabled() bool {
	return s.cfg != nil && (s.cfg.APIKey != "" || s.cfg.Provider == "ollama")
}

func (s *RemoteStrategy) Analyze(ctx context.Context, src *NormalizedSource) ([]FeedbackCandidate, error) {
	prompt := buildAnalysisPrompt(src)
	timeout := time.Duration(s.cfg.TimeoutSeconds) * time.Second

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// 1s, 2s, 4s...
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			logger.Infof("[AI] Retrying in %v (attempt %d/%d)", backoff, attempt, s.cfg.MaxRetries)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, newAnalysisError(AnalysisFailTimeout, ctx.Err())
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		content, err := s.call(callCtx, prompt)
		cancel()

		if err != nil {
			kind := AnalysisFailRemote
			if errors.Is(err, context.DeadlineExceeded) {
				kind = AnalysisFailTimeout
			}
			lastErr = newAnalysisError(kind, err)
			logger.Warnf("[AI] Remote call failed (attempt %d/%d): %v", attempt+1, s.cfg.MaxRetries+1, err)
			continue
		}

		candidates, err := parseCandidates(content)
		if err != nil {
			// A malformed response is not transient; fall back immediately.
			return nil, newAnalysisError(AnalysisFailSchema, err)
		}
		return candidates, nil
	}

	return nil, lastErr
}

// call dispatches to the configured provider.
func (s *RemoteStrategy) call(ctx context.Context, prompt string) (string, error) {
	switch s.cfg.Provider {
	case "anthropic":
		return s.callAnthropic(ctx, prompt)
	case "ollama":
		return s.callOllama(ctx, prompt)
	case "gemini":
		return s.callGemini(ctx, prompt)
	case "azure":
		return s.callAzure(ctx, prompt)
	default:
		// openai and other OpenAI-compatible services
		return s.callOpenAI(ctx, prompt)
	}
}

// callOpenAI handles OpenAI and OpenAI-compatible APIs (including custom endpoints)
func (s *RemoteStrategy) callOpenAI(ctx context.Context, prompt string) (string, error) {
	clientConfig := openai.DefaultConfig(s.cfg.APIKey)
	if s.cfg.BaseURL != "" {
		clientConfig.BaseURL = s.cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.0,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// callAnthropic handles the Anthropic API using the native SDK
func (s *RemoteStrategy) callAnthropic(ctx context.Context, prompt string) (string, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(s.cfg.APIKey),
	)

	model := s.cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return content.String(), nil
}

// callOllama handles Ollama using the native SDK
func (s *RemoteStrategy) callOllama(ctx context.Context, prompt string) (string, error) {
	baseURL := s.cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := s.cfg.Model
	if model == "" {
		model = "llama3"
	}

	var content strings.Builder
	stream := false
	err = client.Chat(ctx, &api.ChatRequest{
		Model:  model,
		Stream: &stream,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Options: map[string]interface{}{
			"temperature": 0.0,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}
	return content.String(), nil
}

// callGemini handles the Google Gemini API using the native SDK
func (s *RemoteStrategy) callGemini(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: s.cfg.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("Gemini client error: %w", err)
	}

	model := s.cfg.Model
	if model == "" {
		model = "gemini-3.0-flash"
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return resp.Text(), nil
}

// callAzure handles Azure OpenAI. BaseURL is the resource endpoint and the
// Model field is used as the deployment name.
func (s *RemoteStrategy) callAzure(ctx context.Context, prompt string) (string, error) {
	cfg := openai.DefaultAzureConfig(s.cfg.APIKey, s.cfg.BaseURL)
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.0,
	})
	if err != nil {
		return "", fmt.Errorf("Azure OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from Azure OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

var languageNames = map[string]string{
	"python": "Python",
	"java":   "Java",
	"cpp":    "C++",
}

// buildAnalysisPrompt embeds the numbered source and the response contract.
func buildAnalysisPrompt(src *NormalizedSource) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Review this %s code submitted by a student and provide line-level feedback.\n\n", languageNames[src.Language]))
	b.WriteString("Return ONLY a JSON array of feedback objects with these fields:\n")
	b.WriteString("- \"line\": line number (int, 1-based, matching the numbers below)\n")
	b.WriteString("- \"severity\": \"critical\", \"warning\", or \"suggestion\"\n")
	b.WriteString("- \"category\": short tag like \"style\", \"logic\", \"performance\", \"security\", \"best_practice\"\n")
	b.WriteString("- \"message\": the feedback text (string)\n\n")
	b.WriteString("Focus on correctness, style, performance, and common pitfalls. No prose outside the JSON array.\n\n")
	b.WriteString("Code:\n")

	for i, line := range src.Lines {
		b.WriteString(fmt.Sprintf("%4d | %s\n", i+1, line))
	}

	return b.String()
}

// parseCandidates decodes a provider response into candidates, tolerating a
// markdown code fence around the JSON. Any schema violation fails the whole
// response: a half-valid candidate list is worse than the deterministic
// fallback.
func parseCandidates(content string) ([]FeedbackCandidate, error) {
	payload := strings.TrimSpace(content)

	if strings.HasPrefix(payload, "```") {
		payload = strings.TrimPrefix(payload, "```json")
		payload = strings.TrimPrefix(payload, "```")
		if idx := strings.LastIndex(payload, "```"); idx >= 0 {
			payload = payload[:idx]
		}
		payload = strings.TrimSpace(payload)
	}

	start := strings.Index(payload, "[")
	end := strings.LastIndex(payload, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("response contains no JSON array")
	}
	payload = payload[start : end+1]

	var candidates []FeedbackCandidate
	if err := json.Unmarshal([]byte(payload), &candidates); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	for i, c := range candidates {
		if c.LineNumber < 1 {
			return nil, fmt.Errorf("candidate %d: line number %d out of range", i, c.LineNumber)
		}
		if !validSeverity(c.Severity) {
			return nil, fmt.Errorf("candidate %d: unknown severity %q", i, c.Severity)
		}
		if strings.TrimSpace(c.Message) == "" {
			return nil, fmt.Errorf("candidate %d: empty message", i)
		}
	}

	return candidates, nil
}

func validSeverity(s string) bool {
	return s == "critical" || s == "warning" || s == "suggestion"
}
