// Package openai implements the ChatClient port against an OpenAI-compatible
// chat-completions API.
package openai

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
	"github.com/ericfisherdev/reviewbot/internal/domain/port/driven"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Compile-time interface satisfaction check.
var _ driven.ChatClient = (*Client)(nil)

// Client implements the driven.ChatClient port for one model tier. The
// chat-completions API is stateless, so conversation state is kept client-side:
// each response is stored under a generated message ID and replaying a
// ChatState replays its message history.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
	limits       model.TokenLimits
	httpClient   *http.Client
	retries      int

	encOnce sync.Once
	enc     *tiktoken.Tiktoken

	mu       sync.Mutex
	messages map[string][]chatMessage
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a non-default API endpoint (proxies, tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRetries sets the retry budget for transient API failures.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// NewClient creates a ChatClient for the given model. The API key comes from
// OPENAI_API_KEY. Token limits are looked up per model name; an unknown model
// gets conservative defaults.
func NewClient(modelName, systemPrompt string, opts ...Option) (*Client, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	limits, err := limitsForModel(modelName)
	if err != nil {
		return nil, err
	}

	c := &Client{
		apiKey:       key,
		baseURL:      defaultBaseURL,
		model:        modelName,
		systemPrompt: systemPrompt,
		limits:       limits,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		retries:      3,
		messages:     make(map[string][]chatMessage),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Chat sends prompt as a continuation of state's conversation. An empty prompt
// returns empty output without calling the network.
func (c *Client) Chat(ctx context.Context, prompt string, state driven.ChatState) (string, driven.ChatState, error) {
	if prompt == "" {
		return "", state, nil
	}

	history := c.history(state.ParentMessageID)
	msgs := make([]chatMessage, 0, len(history)+2)
	msgs = append(msgs, chatMessage{Role: "system", Content: c.systemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   c.limits.ResponseTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", state, fmt.Errorf("marshaling chat request: %w", err)
	}

	var text string
	err = retryWithBackoff(ctx, c.retries, func() error {
		var callErr error
		text, callErr = c.send(ctx, payload)
		return callErr
	})
	if err != nil {
		return "", state, err
	}

	next := driven.ChatState{
		ParentMessageID: c.store(append(msgs[1:], chatMessage{Role: "assistant", Content: text})),
		ConversationID:  state.ConversationID,
	}
	if next.ConversationID == "" {
		next.ConversationID = next.ParentMessageID
	}
	return text, next, nil
}

// CountTokens returns the prompt token count of text for this tier's model.
// The tokenizer loads its vocabulary on first use; if that fails (offline
// environments) a bytes/4 estimate keeps budget accounting conservative.
func (c *Client) CountTokens(text string) int {
	c.encOnce.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		if err != nil {
			slog.Warn("tokenizer unavailable, falling back to byte estimate", "error", err)
			return
		}
		c.enc = enc
	})

	if c.enc == nil {
		return len(text)/4 + 1
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Limits reports this tier's context budget.
func (c *Client) Limits() model.TokenLimits { return c.limits }

func (c *Client) send(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &transientError{fmt.Errorf("sending request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &transientError{fmt.Errorf("reading response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", &transientError{fmt.Errorf("API error (status %d): %s", resp.StatusCode, body)}
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, body)
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", nil
	}

	slog.Debug("chat completion",
		"model", c.model,
		"prompt_tokens", result.Usage.PromptTokens,
		"completion_tokens", result.Usage.CompletionTokens,
	)
	return result.Choices[0].Message.Content, nil
}

// history returns a copy of the message chain stored under id.
func (c *Client) history(id string) []chatMessage {
	if id == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.messages[id]
	out := make([]chatMessage, len(msgs))
	copy(out, msgs)
	return out
}

// store records a message chain and returns its generated ID.
func (c *Client) store(msgs []chatMessage) string {
	var id string
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// Timestamp fallback keeps IDs unique enough within one run.
		id = fmt.Sprintf("msg-%d", time.Now().UnixNano())
	} else {
		id = hex.EncodeToString(buf)
	}

	c.mu.Lock()
	c.messages[id] = msgs
	c.mu.Unlock()
	return id
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}
