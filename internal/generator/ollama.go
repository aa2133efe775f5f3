package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/studygen/studygen/internal/models"
)

// Message represents one turn of a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatClient is the surface the generator needs from a model backend.
type ChatClient interface {
	// Chat sends a conversation and returns the assistant's reply text.
	Chat(ctx context.Context, model string, messages []Message, temperature float64, maxTokens int) (string, error)
	// ListModels returns the names of models available on the backend.
	ListModels(ctx context.Context) ([]string, error)
}

// ollamaClient talks to a local Ollama-compatible HTTP API.
type ollamaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOllamaClient creates a chat client for an Ollama server at baseURL.
func NewOllamaClient(baseURL string, timeout time.Duration) ChatClient {
	return &ollamaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (c *ollamaClient) Chat(ctx context.Context, model string, messages []Message, temperature float64, maxTokens int) (string, error) {
	body := chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, snippet)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return chatResp.Message.Content, nil
}

func (c *ollamaClient) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// caller wraps a ChatClient with the retry policy from GenerationConfig:
// up to MaxRetries attempts, each under its own timeout, with 2^attempt
// seconds of backoff between attempts. Exhaustion is a soft failure.
type caller struct {
	client  ChatClient
	cfg     models.GenerationConfig
	logger  *log.Logger
	backoff time.Duration // unit for the exponential delay, 1s in production
}

func newCaller(client ChatClient, cfg models.GenerationConfig, logger *log.Logger) *caller {
	return &caller{client: client, cfg: cfg, logger: logger, backoff: time.Second}
}

// systemPrompt anchors every exchange so the model answers in parseable JSON.
const systemPrompt = "You are an expert IGCSE educator. Respond with valid JSON only."

// call sends the prompt and returns the raw reply, or ok=false after all
// attempts fail. Context cancellation aborts immediately between attempts.
func (c *caller) call(ctx context.Context, prompt string) (string, bool) {
	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		reply, err := c.client.Chat(attemptCtx, c.cfg.Model, messages, c.cfg.Temperature, c.cfg.MaxTokens)
		cancel()
		if err == nil {
			return reply, true
		}

		c.logger.Printf("[GEN] model call attempt %d/%d failed: %v", attempt+1, c.cfg.MaxRetries, err)
		if attempt == c.cfg.MaxRetries-1 {
			break
		}

		delay := time.Duration(1<<uint(attempt)) * c.backoff
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(delay):
		}
	}
	return "", false
}
