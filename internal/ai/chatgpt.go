package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/reviewbot/pkg/models"
)

// Assistant actions
const (
	ActionTranslate = "translate"
	ActionExplain   = "explain"
	ActionExample   = "example"
	ActionConjugate = "conjugate"
)

// ErrUnknownAction is returned for an action without a prompt
var ErrUnknownAction = errors.New("ai: unknown action")

// Engine produces the output of an assistant action for a piece of text
type Engine interface {
	Complete(ctx context.Context, action, text string) (models.Translation, error)
}

type prompt struct {
	system      string
	user        string // format string taking the text
	format      string
	maxTokens   int
	temperature float64
}

var prompts = map[string]prompt{
	ActionTranslate: {
		system:      "You are a translator. Keep the meaning and style of the original.",
		user:        "Translate the following text into Russian. Return only the translation.\n\n%s",
		format:      "text",
		maxTokens:   200,
		temperature: 0.3,
	},
	ActionExplain: {
		system:      "You help people learn English vocabulary.",
		user:        "Explain the meaning and typical usage of %q in a few short markdown bullet points.",
		format:      "markdown",
		maxTokens:   300,
		temperature: 0.5,
	},
	ActionExample: {
		system:      "You help people learn English vocabulary with practical examples.",
		user:        "Write one short, practical example sentence that naturally uses %q.",
		format:      "text",
		maxTokens:   100,
		temperature: 0.7,
	},
	ActionConjugate: {
		system: "You give brief verb conjugation tables.",
		user: "If %q is an English verb, answer exactly in this format:\n" +
			"Present: ...\nPast: ...\nFuture: ...\n" +
			"Otherwise answer 'Not a verb'.",
		format:      "text",
		maxTokens:   150,
		temperature: 0.3,
	},
}

// Actions lists the supported assistant actions
func Actions() []string {
	return []string{ActionTranslate, ActionExplain, ActionExample, ActionConjugate}
}

// ChatGPT represents a client for an OpenAI compatible chat completions API
type ChatGPT struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client
}

// New creates a new ChatGPT client. baseURL is the API root, e.g.
// https://api.openai.com/v1
func New(apiKey, model, baseURL string) (*ChatGPT, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is not set")
	}

	return &ChatGPT{
		apiKey: apiKey,
		apiURL: strings.TrimRight(baseURL, "/") + "/chat/completions",
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Message represents a message in the ChatGPT conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the ChatGPT API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse represents a response from the ChatGPT API
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete runs an action against the API
func (c *ChatGPT) Complete(ctx context.Context, action, text string) (models.Translation, error) {
	p, ok := prompts[action]
	if !ok {
		return models.Translation{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	content, err := c.chat(ctx, ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: p.system},
			{Role: "user", Content: fmt.Sprintf(p.user, text)},
		},
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		return models.Translation{}, fmt.Errorf("%s %q: %w", action, text, err)
	}

	if action == ActionConjugate && strings.Contains(content, "Not a verb") {
		content = ""
	}
	return models.Translation{Text: content, Format: p.format}, nil
}

func (c *ChatGPT) chat(ctx context.Context, request ChatRequest) (string, error) {
	requestData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(requestData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if response.Error != nil {
		return "", fmt.Errorf("API error: %s", response.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
