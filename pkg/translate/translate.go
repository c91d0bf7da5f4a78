// Package translate renders Ukrainian record fields into English via a
// chat-completions HTTP API. Translation is opportunistic: any failure
// falls back to the original text and never disqualifies a record.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pemistahl/lingua-go"
)

// Translator is the translation boundary; satisfied by *Client.
type Translator interface {
	Translate(ctx context.Context, text, fieldContext string) (string, error)
	NeedsTranslation(text string) bool
}

// Client detects the source language with lingua and translates through
// an OpenAI-compatible chat endpoint.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
	detector lingua.LanguageDetector
}

// NewClient builds a translator. Detection is restricted to the two
// locales the pipeline supports so short titles classify reliably.
func NewClient(endpoint, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Ukrainian).
		Build()
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: timeout},
		detector: detector,
	}
}

// NeedsTranslation reports whether the text is in the secondary locale.
func (c *Client) NeedsTranslation(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	lang, ok := c.detector.DetectLanguageOf(text)
	return ok && lang == lingua.Ukrainian
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Translate returns the English rendering of the text, or the original
// text with a non-nil error when anything goes wrong.
func (c *Client) Translate(ctx context.Context, text, fieldContext string) (string, error) {
	if !c.NeedsTranslation(text) {
		return text, nil
	}
	if c.apiKey == "" {
		return text, fmt.Errorf("translation API key not configured")
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(
				"Translate this %s from Ukrainian to English. Return only the translation.", fieldContext)},
			{Role: "user", Content: text},
		},
		MaxTokens: 300,
	})
	if err != nil {
		return text, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return text, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return text, fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return text, fmt.Errorf("translation API returned HTTP %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return text, fmt.Errorf("failed to decode translation response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return text, fmt.Errorf("translation response had no choices")
	}
	out := strings.Trim(strings.TrimSpace(parsed.Choices[0].Message.Content), `"'`)
	if out == "" {
		return text, fmt.Errorf("translation response was empty")
	}
	return out, nil
}
