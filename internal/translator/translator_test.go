package translator

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeChatClient struct {
	content string
	err     error
	lastReq openai.ChatCompletionRequest
}

func (f *fakeChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestTranslateParsesPlan(t *testing.T) {
	client := &fakeChatClient{content: "```json\n{\"filters\":{\"SeverityText_exact\":\"WARN\"},\"aggregation\":{\"group_by\":\"ServiceName\",\"count\":true}}\n```"}
	tr := New(client, "gpt-4o", nil)

	plan, err := tr.Translate(context.Background(), "how many warnings per service?", "")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"SeverityText": "WARN"}, plan.Filters.Exact)
	require.NotNil(t, plan.Aggregation)
	assert.Equal(t, "ServiceName", plan.Aggregation.GroupBy)
	assert.True(t, plan.Aggregation.Count)

	// Deterministic translation request.
	assert.Equal(t, "gpt-4o", client.lastReq.Model)
	assert.EqualValues(t, 0, client.lastReq.Temperature)
	require.Len(t, client.lastReq.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, client.lastReq.Messages[0].Role)
}

func TestTranslateMalformedDegradesToEmptyPlan(t *testing.T) {
	client := &fakeChatClient{content: "Sorry, I can't express that as JSON."}
	tr := New(client, "", nil)

	plan, err := tr.Translate(context.Background(), "anything", "")
	require.NoError(t, err)
	assert.True(t, plan.Filters.Empty())
	assert.Nil(t, plan.Aggregation)
}

func TestTranslateIncludesDiscoveredContext(t *testing.T) {
	client := &fakeChatClient{content: "{}"}
	tr := New(client, "gpt-4o", nil)

	_, err := tr.Translate(context.Background(), "count them", "ServiceName values seen: Accounting, Ad")
	require.NoError(t, err)
	assert.Contains(t, client.lastReq.Messages[1].Content, "Context discovered so far")
	assert.Contains(t, client.lastReq.Messages[1].Content, "Accounting, Ad")
}

func TestTranslatePropagatesTransportError(t *testing.T) {
	client := &fakeChatClient{err: errors.New("connection refused")}
	tr := New(client, "gpt-4o", rate.NewLimiter(rate.Inf, 1))

	_, err := tr.Translate(context.Background(), "anything", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestTranslateRespectsCancelledContext(t *testing.T) {
	client := &fakeChatClient{content: "{}"}
	// Zero-burst limiter can never admit a request; Wait returns an error
	// immediately for a cancelled context.
	tr := New(client, "gpt-4o", rate.NewLimiter(1, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Translate(ctx, "anything", "")
	require.Error(t, err)
}
