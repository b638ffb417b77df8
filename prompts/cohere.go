package prompts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUpstreamGeneration marks a failed or unusable generation response.
// It never escapes Generate; callers always get a full prompt set.
var ErrUpstreamGeneration = errors.New("upstream prompt generation failed")

const defaultChatURL = "https://api.cohere.com/v2/chat"

// Client generates prompt sets through a Cohere-style chat completion API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	model      string
	url        string
}

func NewClient(apiKey, model, url string, timeout time.Duration) *Client {
	if url == "" {
		url = defaultChatURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		model:      model,
		url:        url,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

type promptList struct {
	Prompts []Prompt `json:"prompts"`
}

// Generate returns exactly count well-formed prompts for the theme and
// difficulty. Upstream failures and malformed output are recovered locally
// by padding from the fallback pool, so the result is always usable.
func (c *Client) Generate(ctx context.Context, theme, difficulty string, count int) []Prompt {
	parsed, err := c.fetch(ctx, theme, difficulty, count)
	if err != nil {
		log.Warn().Err(err).
			Str("theme", theme).
			Str("difficulty", difficulty).
			Int("count", count).
			Msg("prompt generation failed, using fallback pool")
		parsed = nil
	}
	return Normalize(parsed, count)
}

func (c *Client) fetch(ctx context.Context, theme, difficulty string, count int) ([]Prompt, error) {
	instruction := fmt.Sprintf(
		"Generate %d short game prompts for theme '%s' and difficulty '%s'.\n"+
			"IMPORTANT: Return ONLY valid JSON in this exact shape:\n\n"+
			`{ "prompts": [{ "text": "prompt text here", "answers": ["answer1","answer2"] }, ...] }`+"\n\n"+
			"- PROMPT TEXT MUST NOT include multiple-choice options or 'which of these' wording.\n"+
			"- Each prompt should be either open-ended (many acceptable answers in the answers array) "+
			"or factual (canonical answer in the array) but should have only one word answers.\n"+
			"- No backticks or extra commentary.\n",
		count, theme, difficulty)

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: instruction}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamGeneration, resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamGeneration, err)
	}

	var text string
	for _, part := range chat.Message.Content {
		if part.Type == "text" {
			text += part.Text
		}
	}

	raw, ok := ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON in model output", ErrUpstreamGeneration)
	}
	var list promptList
	if err := json.Unmarshal(raw, &list); err != nil || len(list.Prompts) == 0 {
		return nil, fmt.Errorf("%w: unexpected shape", ErrUpstreamGeneration)
	}
	return list.Prompts, nil
}
