package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"readquest/internal/models"
)

// AIClient generates quiz questions through an OpenAI-compatible
// chat-completions endpoint.
type AIClient struct {
	endpoint string
	model    string
	req      *requester
}

// NewAIClient builds a client that authenticates with a static bearer token
func NewAIClient(endpoint, apiKey, model string, timeout time.Duration) *AIClient {
	base := context.WithValue(context.Background(), oauth2.HTTPClient, NewHTTPClient(timeout))
	client := oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"}))
	client.Timeout = timeout

	return &AIClient{
		endpoint: endpoint,
		model:    model,
		req:      newRequester("ai", client),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = `You write reading-comprehension quizzes for children. ` +
	`Respond with JSON only, shaped as {"questions":[{"question":"...","options":["...","...","..."],"correct_index":0}]}.`

// GenerateQuestions asks the model for count questions about book. The
// result is parsed strictly but not validated for count or option shape.
func (c *AIClient) GenerateQuestions(ctx context.Context, book models.Book, difficulty models.Difficulty, count int) ([]models.Question, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(book, difficulty, count)},
		},
		Temperature:    0.7,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	var resp chatResponse
	if err := c.req.postJSON(ctx, c.endpoint, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: ai: no choices", ErrMalformedResponse)
	}
	return ParseQuestions(resp.Choices[0].Message.Content)
}

// ParseQuestions decodes model output, tolerating a surrounding markdown
// code fence but nothing else.
func ParseQuestions(raw string) ([]models.Question, error) {
	text := stripCodeFence(raw)

	var payload struct {
		Questions []models.Question `json:"questions"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: ai: %v", ErrMalformedResponse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: ai: trailing data after JSON object", ErrMalformedResponse)
	}
	if payload.Questions == nil {
		return nil, fmt.Errorf("%w: ai: missing questions", ErrMalformedResponse)
	}
	return payload.Questions, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var vocabulary = map[models.Difficulty]string{
	models.DifficultyEasy:   "Use very simple words and short sentences suitable for ages 5-6. Ask about main characters and obvious events.",
	models.DifficultyMedium: "Use clear, everyday vocabulary suitable for ages 7-8. Mix questions about events, characters and simple feelings.",
	models.DifficultyHard:   "Use richer vocabulary suitable for ages 9-10. Include questions about motives, cause and effect, and themes.",
}

// BuildPrompt renders the user prompt for a book at a difficulty tier
func BuildPrompt(book models.Book, difficulty models.Difficulty, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write exactly %d multiple-choice questions about the book %q", count, book.Title)
	if book.Author != "" {
		fmt.Fprintf(&b, " by %s", book.Author)
	}
	b.WriteString(".\n")
	if desc := strings.TrimSpace(book.Description); desc != "" {
		fmt.Fprintf(&b, "Book summary: %s\n", desc)
	}
	b.WriteString(vocabulary[difficulty])
	b.WriteString("\nEach question must have exactly 3 answer options and one correct answer; correct_index is the 0-based index of that answer.")
	return b.String()
}
