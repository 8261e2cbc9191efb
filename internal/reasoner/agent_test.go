package reasoner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logscout-dev/logscout/internal/retriever"
	"github.com/logscout-dev/logscout/pkg/logstore"
	"github.com/logscout-dev/logscout/pkg/queryplan"
)

// scriptedClient replays canned responses and records every request.
type scriptedClient struct {
	responses []openai.ChatCompletionResponse
	requests  []openai.ChatCompletionRequest
}

func (s *scriptedClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("script exhausted")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func textResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func toolResponse(id, name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:       id,
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: name, Arguments: args},
				}},
			}},
		},
	}
}

type stubTranslator struct {
	plan queryplan.Plan
	err  error
}

func (s *stubTranslator) Translate(ctx context.Context, prompt, discovered string) (queryplan.Plan, error) {
	return s.plan, s.err
}

type stubSearcher struct {
	matches []retriever.Match
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, query string, topK int) ([]retriever.Match, error) {
	return s.matches, s.err
}

func warnStore() *logstore.Store {
	var records []logstore.Record
	for i := 0; i < 5; i++ {
		records = append(records, logstore.NewRecordFromMap(map[string]string{
			"SeverityText": "WARN",
			"ServiceName":  "Accounting",
			"message":      fmt.Sprintf("High cpu-load #%d", i),
		}))
	}
	return logstore.NewStore(records)
}

func newTestAgent(client ChatClient, searcher Searcher) *OpenAIAgent {
	tools := NewToolset(warnStore(), &stubTranslator{plan: queryplan.Plan{
		Aggregation: &queryplan.Aggregation{GroupBy: "SeverityText", Count: true},
	}}, searcher)
	return NewOpenAIAgent(client, "gpt-4o", ModelParams{}, tools)
}

func TestInvokeDirectAnswer(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		textResponse("There are 5 WARN logs."),
	}}
	agent := newTestAgent(client, nil)

	got, err := agent.Invoke(context.Background(), "how many warnings?")
	require.NoError(t, err)
	assert.Equal(t, "There are 5 WARN logs.", got)

	// System instruction + user turn went out.
	require.Len(t, client.requests, 1)
	msgs := client.requests[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, "how many warnings?", msgs[1].Content)
}

func TestInvokeQueryToolRound(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolResponse("call-1", toolQueryLogs, `{"prompt":"count by severity"}`),
		textResponse("All 5 logs are WARN."),
	}}
	agent := newTestAgent(client, nil)

	got, err := agent.Invoke(context.Background(), "count logs by severity")
	require.NoError(t, err)
	assert.Equal(t, "All 5 logs are WARN.", got)

	// The second request carries the tool result from the executor.
	require.Len(t, client.requests, 2)
	last := client.requests[1].Messages[len(client.requests[1].Messages)-1]
	assert.Equal(t, openai.ChatMessageRoleTool, last.Role)
	assert.Contains(t, last.Content, `"aggregation"`)
	assert.Contains(t, last.Content, `"WARN"`)
}

func TestInvokeSearchToolRound(t *testing.T) {
	searcher := &stubSearcher{matches: []retriever.Match{
		{Text: "WARN Accounting High cpu-load", Metadata: map[string]string{"ServiceName": "Accounting"}},
	}}
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolResponse("call-1", toolSearchLogs, `{"prompt":"cpu problems"}`),
		textResponse("The Accounting service reports high CPU load."),
	}}
	agent := newTestAgent(client, searcher)

	got, err := agent.Invoke(context.Background(), "any cpu problems?")
	require.NoError(t, err)
	assert.Contains(t, got, "Accounting")

	last := client.requests[1].Messages[len(client.requests[1].Messages)-1]
	assert.Contains(t, last.Content, `"total_found":1`)
}

func TestInvokeHumanInputSuspendsTurn(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolResponse("call-1", toolRequestHumanInput, `{"prompt":"Which service do you mean?"}`),
	}}
	agent := newTestAgent(client, nil)

	got, err := agent.Invoke(context.Background(), "show me the errors")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, HumanInputMarker))
	assert.Contains(t, got, "Which service do you mean?")

	// Follow-up turn resumes the same transcript.
	client.responses = []openai.ChatCompletionResponse{textResponse("Accounting has 5 warnings.")}
	got, err = agent.Invoke(context.Background(), "the accounting one")
	require.NoError(t, err)
	assert.Equal(t, "Accounting has 5 warnings.", got)

	msgs := client.requests[len(client.requests)-1].Messages
	// system, user, assistant tool call, tool ack, user answer
	require.Len(t, msgs, 5)
	assert.Equal(t, "the accounting one", msgs[4].Content)
}

func TestInvokeToolErrorIsFedBack(t *testing.T) {
	tools := NewToolset(warnStore(), &stubTranslator{err: errors.New("upstream timeout")}, nil)
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolResponse("call-1", toolQueryLogs, `{"prompt":"count"}`),
		textResponse("I could not query the logs."),
	}}
	agent := NewOpenAIAgent(client, "gpt-4o", ModelParams{}, tools)

	got, err := agent.Invoke(context.Background(), "count logs")
	require.NoError(t, err, "tool failure must not fail the turn")
	assert.Equal(t, "I could not query the logs.", got)

	last := client.requests[1].Messages[len(client.requests[1].Messages)-1]
	assert.Contains(t, last.Content, "upstream timeout")
}

func TestInvokeCompletionErrorPropagates(t *testing.T) {
	client := &scriptedClient{} // empty script errors immediately
	agent := newTestAgent(client, nil)

	_, err := agent.Invoke(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent completion")
}

func TestInvokeIterationLimit(t *testing.T) {
	var responses []openai.ChatCompletionResponse
	for i := 0; i < DefaultMaxIterations+1; i++ {
		responses = append(responses, toolResponse(fmt.Sprintf("call-%d", i), toolQueryLogs, `{"prompt":"again"}`))
	}
	agent := newTestAgent(&scriptedClient{responses: responses}, nil)

	_, err := agent.Invoke(context.Background(), "loop forever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool iterations")
}

func TestToolsetDefinitions(t *testing.T) {
	withSearch := NewToolset(warnStore(), &stubTranslator{}, &stubSearcher{})
	names := func(tools []openai.Tool) []string {
		var out []string
		for _, tl := range tools {
			out = append(out, tl.Function.Name)
		}
		return out
	}
	assert.ElementsMatch(t, []string{toolQueryLogs, toolSearchLogs, toolRequestHumanInput}, names(withSearch.Definitions()))

	withoutSearch := NewToolset(warnStore(), &stubTranslator{}, nil)
	assert.ElementsMatch(t, []string{toolQueryLogs, toolRequestHumanInput}, names(withoutSearch.Definitions()))

	_, err := withoutSearch.Call(context.Background(), toolSearchLogs, map[string]any{"prompt": "x"})
	require.Error(t, err)

	_, err = withoutSearch.Call(context.Background(), "bogus", nil)
	require.Error(t, err)
}

func TestInvokeAppliesModelParams(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		textResponse("ok"),
	}}
	tools := NewToolset(warnStore(), &stubTranslator{}, nil)
	agent := NewOpenAIAgent(client, "gpt-4o", ModelParams{MaxTokens: 8000, Temperature: 0.2}, tools)

	_, err := agent.Invoke(context.Background(), "hello")
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	assert.Equal(t, 8000, client.requests[0].MaxTokens)
	assert.InDelta(t, 0.2, client.requests[0].Temperature, 1e-6)
}
