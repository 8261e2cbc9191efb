// Package reasoner implements the reasoning agent: an LLM-driven loop that
// answers log questions by choosing between the structured query tool, the
// semantic search tool and an explicit ask-the-user escape hatch.
package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/logscout-dev/logscout/pkg/observability"
)

// HumanInputMarker prefixes agent responses that suspend the turn waiting for
// a user answer. The session classifier keys on it, so wrapping clarifications
// here keeps classification structural instead of text-sniffing.
const HumanInputMarker = "[HUMAN INPUT REQUESTED]"

// DefaultMaxIterations bounds tool rounds within one turn.
const DefaultMaxIterations = 8

// Agent is one stateful conversation handle. Invoke issues the next turn and
// returns the raw response text. Implementations are NOT safe for concurrent
// use; the session manager serializes access.
type Agent interface {
	Invoke(ctx context.Context, text string) (string, error)
}

// ChatClient is the completion surface the agent needs; satisfied by
// *openai.Client and by test fakes.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIAgent drives an OpenAI chat model with the log tools attached.
// Conversation history accumulates across Invoke calls until the handle is
// discarded.
type OpenAIAgent struct {
	client        ChatClient
	model         string
	params        ModelParams
	tools         *Toolset
	history       []openai.ChatCompletionMessage
	maxIterations int
}

// ModelParams tunes the completion requests. Zero values leave the API
// defaults in place.
type ModelParams struct {
	MaxTokens   int
	Temperature float32
}

// NewOpenAIAgent creates a fresh agent handle with empty history.
func NewOpenAIAgent(client ChatClient, model string, params ModelParams, tools *Toolset) *OpenAIAgent {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIAgent{
		client:        client,
		model:         model,
		params:        params,
		tools:         tools,
		maxIterations: DefaultMaxIterations,
		history: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: agentInstruction},
		},
	}
}

// Invoke runs one conversational turn: the user text goes into history, the
// model is called in a tool loop, and the final text (or a marker-wrapped
// clarification request) comes back.
func (a *OpenAIAgent) Invoke(ctx context.Context, text string) (string, error) {
	a.history = append(a.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})

	spanCtx, span := observability.StartSpan(ctx, "reasoner.invoke", map[string]any{"input_bytes": len(text)})
	defer span.End()

	for i := 0; i < a.maxIterations; i++ {
		resp, err := a.client.CreateChatCompletion(spanCtx, openai.ChatCompletionRequest{
			Model:       a.model,
			Messages:    a.history,
			Tools:       a.tools.Definitions(),
			MaxTokens:   a.params.MaxTokens,
			Temperature: a.params.Temperature,
		})
		if err != nil {
			return "", fmt.Errorf("agent completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("agent completion: no choices in response")
		}

		msg := resp.Choices[0].Message
		a.history = append(a.history, msg)

		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		for _, call := range msg.ToolCalls {
			result, humanPrompt, err := a.dispatch(spanCtx, call)
			if humanPrompt != "" {
				// Suspend the turn. The tool response goes into history so
				// the transcript stays coherent when the answer arrives.
				a.history = append(a.history, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					ToolCallID: call.ID,
					Content:    "Asked the user. Their reply arrives as the next message.",
				})
				return fmt.Sprintf("%s %s", HumanInputMarker, humanPrompt), nil
			}
			if err != nil {
				// Tool failures are reported back to the model so it can
				// recover or rephrase, not surfaced as turn failures.
				log.Printf("reasoner: tool %s failed: %v", call.Function.Name, err)
				result = fmt.Sprintf(`{"error": %q}`, err.Error())
			}
			a.history = append(a.history, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    result,
			})
		}
	}

	return "", fmt.Errorf("agent exceeded %d tool iterations", a.maxIterations)
}

// dispatch runs one tool call. A non-empty humanPrompt means the model asked
// for user input.
func (a *OpenAIAgent) dispatch(ctx context.Context, call openai.ToolCall) (result, humanPrompt string, err error) {
	var args map[string]any
	if raw := call.Function.Arguments; raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return "", "", fmt.Errorf("unmarshal %s arguments: %w", call.Function.Name, err)
		}
	}

	if call.Function.Name == toolRequestHumanInput {
		prompt, _ := args["prompt"].(string)
		if prompt == "" {
			prompt = "Please provide more detail about what you are looking for."
		}
		return "", prompt, nil
	}

	start := time.Now()
	result, err = a.tools.Call(ctx, call.Function.Name, args)
	log.Printf("reasoner: tool %s took %s", call.Function.Name, time.Since(start).Round(time.Millisecond))
	return result, "", err
}
