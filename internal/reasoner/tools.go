package reasoner

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/logscout-dev/logscout/internal/retriever"
	"github.com/logscout-dev/logscout/pkg/logstore"
	"github.com/logscout-dev/logscout/pkg/observability"
	"github.com/logscout-dev/logscout/pkg/queryplan"
)

const (
	toolQueryLogs         = "query_logs"
	toolSearchLogs        = "search_logs"
	toolRequestHumanInput = "request_human_input"
)

// PlanTranslator is the slice of the translator the toolset needs.
type PlanTranslator interface {
	Translate(ctx context.Context, prompt, discovered string) (queryplan.Plan, error)
}

// Searcher is the slice of the semantic index the toolset needs. A nil
// Searcher disables the search tool (semantic indexing may fail soft at
// startup).
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]retriever.Match, error)
}

// Toolset binds the agent's tools to the query pipeline and the semantic
// retriever.
type Toolset struct {
	store      *logstore.Store
	translator PlanTranslator
	searcher   Searcher
}

// NewToolset assembles the toolset. searcher may be nil.
func NewToolset(store *logstore.Store, tr PlanTranslator, searcher Searcher) *Toolset {
	return &Toolset{store: store, translator: tr, searcher: searcher}
}

// Definitions returns the OpenAI tool declarations.
func (t *Toolset) Definitions() []openai.Tool {
	tools := []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name: toolQueryLogs,
				Description: "Query logs using structured filters. Best for aggregation, " +
					"timestamp ranges and exact-value queries. Pass discovered context " +
					"about the logs (flags, keywords, column values) learned from search_logs.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"prompt": {"type": "string", "description": "The structured query request in natural language"},
						"context": {"type": "string", "description": "Context discovered from earlier searches"}
					},
					"required": ["prompt"]
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name: toolRequestHumanInput,
				Description: "Ask the user a clarifying question when the request is ambiguous. " +
					"The conversation pauses until they answer.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"prompt": {"type": "string", "description": "The question to ask the user"}
					},
					"required": ["prompt"]
				}`),
			},
		},
	}

	if t.searcher != nil {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name: toolSearchLogs,
				Description: "Semantic search over log text. Best for exploring what the " +
					"logs look like before issuing exact queries.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"prompt": {"type": "string", "description": "Free-text description of the logs to find"}
					},
					"required": ["prompt"]
				}`),
			},
		})
	}
	return tools
}

// Call dispatches a named tool with its decoded arguments and returns the
// JSON payload handed back to the model.
func (t *Toolset) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	prompt, _ := args["prompt"].(string)

	switch name {
	case toolQueryLogs:
		discovered, _ := args["context"].(string)
		return t.queryLogs(ctx, prompt, discovered)
	case toolSearchLogs:
		return t.searchLogs(ctx, prompt)
	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

func (t *Toolset) queryLogs(ctx context.Context, prompt, discovered string) (string, error) {
	spanCtx, span := observability.StartSpan(ctx, "tool.query_logs", map[string]any{"prompt": prompt})
	defer span.End()

	plan, err := t.translator.Translate(spanCtx, prompt, discovered)
	if err != nil {
		return "", err
	}

	result := queryplan.Execute(t.store, plan)
	observability.RecordQueryExecution(string(result.Type))
	return result.JSON(), nil
}

func (t *Toolset) searchLogs(ctx context.Context, prompt string) (string, error) {
	if t.searcher == nil {
		return "", fmt.Errorf("semantic search is not available")
	}

	spanCtx, span := observability.StartSpan(ctx, "tool.search_logs", map[string]any{"prompt": prompt})
	defer span.End()

	matches, err := t.searcher.Search(spanCtx, prompt, 0)
	if err != nil {
		observability.RecordSemanticSearch("error")
		return "", err
	}
	observability.RecordSemanticSearch("ok")
	return retriever.Summarize(matches).JSON(), nil
}
