package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"TrendRadar/internal/config"
	"TrendRadar/internal/domain"
	"TrendRadar/internal/ports"
)

// ChatGPTClient implements ports.AnalysisProvider backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
	now          func() time.Time
}

var _ ports.AnalysisProvider = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.LLMConfig) *ChatGPTClient {
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		now: time.Now,
	}
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// AnalyzeBatch asks the model to group the items into topics. Provider refusals
// on content grounds come back wrapping domain.ErrContentPolicy.
func (c *ChatGPTClient) AnalyzeBatch(ctx context.Context, items []domain.IndexedItem) (domain.TopicSummary, error) {
	if c == nil {
		return domain.TopicSummary{}, fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.TopicSummary{}, fmt.Errorf("chatgpt client misconfigured")
	}

	content, err := c.complete(ctx, batchPrompt(items))
	if err != nil {
		return domain.TopicSummary{}, err
	}

	raw, err := decodePayload(content)
	if err != nil {
		return domain.TopicSummary{}, fmt.Errorf("decode analysis: %w", err)
	}

	return raw.toSummary(items, c.now()), nil
}

func (c *ChatGPTClient) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(c.systemPrompt)},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		apiErr := fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
		if domain.IsContentPolicy(apiErr) {
			return "", fmt.Errorf("%w: %v", domain.ErrContentPolicy, apiErr)
		}
		return "", apiErr
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chatgpt returned no choices")
	}

	choice := decoded.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("%w: completion filtered", domain.ErrContentPolicy)
	}
	return choice.Message.Content, nil
}

func batchPrompt(items []domain.IndexedItem) string {
	var b strings.Builder
	b.WriteString("Group the following ranked headlines into trending topics.\n")
	b.WriteString("heatScore (1-100) weighs rank and how many sources carry the story; ")
	b.WriteString("stories carried by several sources rank above single-source ones.\n")
	b.WriteString("List the ids of the headlines belonging to each topic in newsIds.\n")
	b.WriteString(`Reply with JSON only: {"summary": string, "keyInfo": [{"topic": string, "entities": [string], "heatScore": number, "category": string, "newsIds": [string]}]}`)
	b.WriteString("\n\nHeadlines:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "ID: %s | [%s] Rank: %d | %s\n", item.ID, strings.Join(item.Sources, ", "), item.MaxRank, item.Title)
	}
	return b.String()
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You extract trending topics from ranked news headlines."
	}
	return prompt
}
