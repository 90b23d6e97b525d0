// Optional alert classification through an OpenAI-compatible chat endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ubicell-ingest/internal/core/ingest"

	"github.com/rs/zerolog"
)

const systemPrompt = `You are a smart-city streetlight monitoring assistant. ` +
	`Given the status fields of one Ubicell controller, decide whether they imply an alert. ` +
	`Respond with a JSON object {"alertType": string|null, "severity": "low"|"medium"|"high"|"critical"}. ` +
	`Use null for alertType when the device looks healthy.`

// Client calls an OpenAI-style chat-completions endpoint to classify device
// status. Callers treat every error as "no classification"; the error return
// exists so the swallow happens at the inferencer boundary, not here.
type Client struct {
	apiURL string
	apiKey string
	model  string
	http   *http.Client
	lg     zerolog.Logger
}

// New returns nil when no API key is configured, which disables the AI path.
func New(apiURL, apiKey, model string, lg zerolog.Logger) *Client {
	if apiKey == "" {
		return nil
	}
	if apiURL == "" {
		apiURL = "https://api.openai.com/v1/chat/completions"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		http:   &http.Client{Timeout: 30 * time.Second},
		lg:     lg.With().Str("component", "llm").Logger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends the status summary and parses the flag-type classification
// out of the reply.
func (c *Client) Classify(ctx context.Context, summary ingest.StatusSummary) (ingest.Classification, error) {
	var cls ingest.Classification

	userContent, err := json.Marshal(summary)
	if err != nil {
		return cls, fmt.Errorf("marshal summary: %w", err)
	}
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(userContent)},
		},
	})
	if err != nil {
		return cls, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return cls, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return cls, fmt.Errorf("classification call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cls, fmt.Errorf("unexpected response status: %s", resp.Status)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return cls, fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return cls, fmt.Errorf("empty response")
	}

	content := extractJSON(chat.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &cls); err != nil {
		return cls, fmt.Errorf("parse classification %q: %w", content, err)
	}
	c.lg.Debug().
		Str("alert_type", cls.AlertType).
		Str("severity", cls.Severity).
		Msg("classified")
	return cls, nil
}

// extractJSON strips markdown code fences some models wrap around JSON.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			return s[i : j+1]
		}
	}
	return s
}
