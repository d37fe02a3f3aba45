package nutrition

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/wotracker/internal/config"
	"github.com/claude/wotracker/internal/metrics"
)

type stubCompleter struct {
	content string
	err     error
	got     openai.ChatCompletionRequest
}

func (s *stubCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.got = req
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: s.content}},
	}}, nil
}

func newTestClient(stub *stubCompleter) (*Client, *metrics.Metrics) {
	m := metrics.NewTest()
	return newClient(stub, "", slog.New(slog.NewTextHandler(io.Discard, nil)), m), m
}

// TestChatParsesFencedJSON verifies markdown fences are stripped before parsing.
func TestChatParsesFencedJSON(t *testing.T) {
	stub := &stubCompleter{content: "```json\n" + `{"message":"Rice (200g)","action":"confirm_add",
		"foods":[{"name":"Rice","quantity":"200g","calories":260,"protein":5,"carbs":57,"fats":0.5,"fiber":1}],
		"totalCalories":260,"totalProtein":5,"totalCarbs":57,"totalFats":0.5,"totalFiber":1}` + "\n```"}
	c, m := newTestClient(stub)

	history := []Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}
	r, err := c.Chat(context.Background(), history, "rice 200g")
	require.NoError(t, err)

	assert.Equal(t, ActionConfirmAdd, r.Action)
	require.Len(t, r.Foods, 1)
	assert.Equal(t, "Rice", r.Foods[0].Name)
	require.NotNil(t, r.Calories)
	assert.Equal(t, 260.0, *r.Calories)

	require.Len(t, stub.got.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, stub.got.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, stub.got.Messages[2].Role)
	assert.Equal(t, "rice 200g", stub.got.Messages[3].Content)
	assert.Equal(t, openai.GPT4oMini, stub.got.Model)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NutritionTotal.WithLabelValues(metrics.OutcomeOK)))
}

// TestChatFallsBackToMessage verifies non-JSON content becomes a details request.
func TestChatFallsBackToMessage(t *testing.T) {
	c, _ := newTestClient(&stubCompleter{content: "Could you say how much rice?"})

	r, err := c.Chat(context.Background(), nil, "rice")
	require.NoError(t, err)
	assert.Equal(t, ActionAskDetails, r.Action)
	assert.Equal(t, "Could you say how much rice?", r.Message)
	assert.Nil(t, r.Foods)
	assert.Nil(t, r.Calories)
}

// TestChatUpstreamError verifies API failures wrap ErrUpstream and are counted.
func TestChatUpstreamError(t *testing.T) {
	c, m := newTestClient(&stubCompleter{err: errors.New("429 rate limited")})

	_, err := c.Chat(context.Background(), nil, "eggs")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NutritionTotal.WithLabelValues(metrics.OutcomeError)))

	c, _ = newTestClient(&stubCompleter{content: "   "})
	_, err = c.Chat(context.Background(), nil, "eggs")
	assert.ErrorIs(t, err, ErrUpstream)
}

// TestAnalyzeText verifies one-shot analysis requires a foods list.
func TestAnalyzeText(t *testing.T) {
	c, _ := newTestClient(&stubCompleter{content: `{"foods":[{"name":"Egg","quantity":"2","calories":140}],"totalCalories":140,"summary":"Two eggs"}`})
	a, err := c.AnalyzeText(context.Background(), "2 eggs")
	require.NoError(t, err)
	assert.Equal(t, "Two eggs", a.Summary)
	assert.Len(t, a.Foods, 1)

	c, _ = newTestClient(&stubCompleter{content: `{"summary":"nothing"}`})
	_, err = c.AnalyzeText(context.Background(), "air")
	assert.ErrorIs(t, err, ErrUpstream)

	c, _ = newTestClient(&stubCompleter{content: "not json"})
	_, err = c.AnalyzeText(context.Background(), "air")
	assert.ErrorIs(t, err, ErrUpstream)
}

// TestNewRequiresKey verifies an unconfigured client is refused.
func TestNewRequiresKey(t *testing.T) {
	_, err := New(config.NutritionConfig{}, slog.Default(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err := New(config.NutritionConfig{APIKey: "sk-test", Model: "gpt-4o"}, slog.Default(), nil)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", c.model)
}

// TestStripFences verifies fence variants.
func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"```json\n{}\n```", "{}"},
		{"```\n{}\n```", "{}"},
		{"  {}  ", "{}"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in), tt.in)
	}
}
