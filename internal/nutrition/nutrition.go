// Package nutrition asks an OpenAI-compatible chat model to estimate the
// nutritional content of meals.
package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/claude/wotracker/internal/config"
	"github.com/claude/wotracker/internal/metrics"
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("nutrition analysis not configured")
	// ErrUpstream wraps failures talking to the model.
	ErrUpstream = errors.New("nutrition service unavailable")
)

// Actions the assistant can return.
const (
	ActionConfirmAdd = "confirm_add"
	ActionAskWeight  = "ask_weight"
	ActionAskDetails = "ask_details"
)

// Food is one analysed item.
type Food struct {
	Name     string  `json:"name"`
	Quantity string  `json:"quantity"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
	Fiber    float64 `json:"fiber"`
}

// Totals sums a meal. Fields are nil when the model gave no numbers.
type Totals struct {
	Calories *float64 `json:"totalCalories"`
	Protein  *float64 `json:"totalProtein"`
	Carbs    *float64 `json:"totalCarbs"`
	Fats     *float64 `json:"totalFats"`
	Fiber    *float64 `json:"totalFiber"`
}

// Reply is one assistant turn in the nutrition chat.
type Reply struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Foods   []Food `json:"foods"`
	Totals
}

// Analysis is the result of a one-shot meal description.
type Analysis struct {
	Foods   []Food `json:"foods"`
	Summary string `json:"summary"`
	Totals
}

// Message is a prior chat turn.
type Message struct {
	Role    string `json:"role" validate:"oneof=user assistant"`
	Content string `json:"content"`
}

// Analyzer estimates nutrition from free text.
type Analyzer interface {
	Chat(ctx context.Context, history []Message, msg string) (*Reply, error)
	AnalyzeText(ctx context.Context, description string) (*Analysis, error)
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client is an Analyzer backed by the chat completions API.
type Client struct {
	api     chatCompleter
	model   string
	log     *slog.Logger
	metrics *metrics.Metrics
}

var _ Analyzer = (*Client)(nil)

// New builds a client from cfg. It returns ErrNotConfigured without an API key.
func New(cfg config.NutritionConfig, log *slog.Logger, m *metrics.Metrics) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return newClient(openai.NewClientWithConfig(oc), cfg.Model, log, m), nil
}

func newClient(api chatCompleter, model string, log *slog.Logger, m *metrics.Metrics) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{api: api, model: model, log: log, metrics: m}
}

// Chat continues a conversation. A reply that is not valid JSON comes back
// as a message-only reply asking for details.
func (c *Client) Chat(ctx context.Context, history []Message, msg string) (*Reply, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: chatPrompt})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: msg})

	content, err := c.complete(ctx, msgs, 600)
	if err != nil {
		return nil, err
	}
	return parseReply(content), nil
}

// AnalyzeText analyses a single meal description.
func (c *Client) AnalyzeText(ctx context.Context, description string) (*Analysis, error) {
	content, err := c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: analyzePrompt},
		{Role: openai.ChatMessageRoleUser, Content: description},
	}, 800)
	if err != nil {
		return nil, err
	}

	var a Analysis
	if err := json.Unmarshal([]byte(stripFences(content)), &a); err != nil {
		c.log.Warn("unparseable nutrition analysis", "error", err)
		return nil, fmt.Errorf("%w: parsing analysis: %v", ErrUpstream, err)
	}
	if a.Foods == nil {
		return nil, fmt.Errorf("%w: analysis has no foods", ErrUpstream)
	}
	return &a, nil
}

func (c *Client) complete(ctx context.Context, msgs []openai.ChatCompletionMessage, maxTokens int) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	})
	if err == nil && (len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "") {
		err = errors.New("empty response")
	}
	c.metrics.ObserveNutrition(err)
	if err != nil {
		c.log.Error("nutrition completion failed", "model", c.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	c.log.Debug("nutrition completion", "model", c.model, "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

func parseReply(content string) *Reply {
	body := stripFences(content)
	var r Reply
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return &Reply{Message: body, Action: ActionAskDetails}
	}
	return &r
}

// stripFences removes a surrounding markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```json"); ok {
		s = rest
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

const chatPrompt = `You are a diet assistant. Work out nutrition straight away from what the user says they ate.

Rules:
1. If the user gives a food and any quantity (grams, pieces, cups, servings or just a leading number), calculate the nutrition immediately.
2. Do not ask follow-up questions when a quantity is present. Use typical nutritional values.
3. If the user asks to change a value, update it and show the new summary with the updated foods.
4. Ask for a quantity only when none is given at all.

Reply with ONLY a JSON object and no markdown:
{
  "message": "Chicken curry (200g)\nCalories: 350\nProtein: 28g\nCarbs: 12g\nFats: 22g\nFiber: 1g\n\nAdd this?",
  "action": "confirm_add",
  "foods": [{"name": "Chicken curry", "quantity": "200g", "calories": 350, "protein": 28, "carbs": 12, "fats": 22, "fiber": 1}],
  "totalCalories": 350, "totalProtein": 28, "totalCarbs": 12, "totalFats": 22, "totalFiber": 1
}

When no quantity is given:
{"message": "How much? (e.g. 100g, 1 cup, 1 piece)", "action": "ask_weight", "foods": null,
 "totalCalories": null, "totalProtein": null, "totalCarbs": null, "totalFats": null, "totalFiber": null}`

const analyzePrompt = `You are a diet assistant. Analyse the meal the user describes and reply with ONLY a JSON object and no markdown:
{
  "foods": [{"name": "Food", "quantity": "amount with unit", "calories": 0, "protein": 0, "carbs": 0, "fats": 0, "fiber": 0}],
  "totalCalories": 0, "totalProtein": 0, "totalCarbs": 0, "totalFats": 0, "totalFiber": 0,
  "summary": "short friendly summary of the meal"
}
Protein, carbs, fats and fiber are in grams. Assume a normal serving when no quantity is given.`
