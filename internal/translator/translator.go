// Package translator turns free-text questions about the log dataset into
// declarative query plans using a chat completion model.
package translator

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/logscout-dev/logscout/pkg/queryplan"
)

// ChatClient is the completion surface the translator needs; satisfied by
// *openai.Client and by test fakes.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Translator produces query plans from natural language. Malformed model
// output degrades to the empty plan; only transport-level failures are
// returned as errors.
type Translator struct {
	client  ChatClient
	model   string
	limiter *rate.Limiter
}

// New creates a translator. A nil limiter disables rate limiting.
func New(client ChatClient, model string, limiter *rate.Limiter) *Translator {
	if model == "" {
		model = "gpt-4o"
	}
	return &Translator{client: client, model: model, limiter: limiter}
}

// Translate converts a user prompt plus optional discovered context (facts the
// reasoning agent learned from earlier semantic searches) into a plan.
func (t *Translator) Translate(ctx context.Context, prompt, discovered string) (queryplan.Plan, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return queryplan.Plan{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	user := prompt
	if discovered != "" {
		user = fmt.Sprintf("Query: %s\n\nContext discovered so far:\n%s", prompt, discovered)
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return queryplan.Plan{}, fmt.Errorf("query plan completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return queryplan.Plan{}, fmt.Errorf("query plan completion: no choices in response")
	}

	// Decode never fails; non-JSON output yields the empty plan.
	return queryplan.Decode([]byte(resp.Choices[0].Message.Content)), nil
}
