// Package session owns the long-lived conversation with the reasoning agent:
// it routes each message into the agent, classifies the response, and manages
// the pending-request table that lets a suspended clarification be resumed
// from an independent call.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/logscout-dev/logscout/internal/reasoner"
	"github.com/logscout-dev/logscout/pkg/observability"
)

// ErrRequestNotFound is returned when a human-input identifier is unknown or
// already consumed. No distinction is made between the two.
var ErrRequestNotFound = errors.New("invalid or expired request")

// TurnType discriminates turn outcomes.
type TurnType string

const (
	// TurnResolved means a final answer was produced.
	TurnResolved TurnType = "resolved"
	// TurnAwaitingInput means the turn is suspended on a clarification.
	TurnAwaitingInput TurnType = "awaiting_input"
)

// TurnResult is the outcome of one Chat or SubmitHumanInput call.
type TurnResult struct {
	Type TurnType `json:"type"`
	// Response is the agent's raw response text, preserved verbatim so
	// callers can fall back to showing it.
	Response string `json:"response"`
	// RequestID and Prompt are set only for awaiting_input results.
	RequestID string `json:"request_id,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
}

// PendingInput is one suspended conversational turn awaiting a user answer.
// Entries live until consumed or cleared by Reset; there is no expiry.
type PendingInput struct {
	// Message is the user message that started the suspended turn.
	Message string `json:"message"`
	// RawResponse is the agent response that triggered the pause.
	RawResponse string `json:"raw_response"`
	// Prompt is the extracted clarification question.
	Prompt string `json:"prompt"`
	// CreatedAt is when the entry was created.
	CreatedAt time.Time `json:"created_at"`
}

// AgentFactory creates a fresh reasoning agent handle. It is called lazily on
// first use and again after every Reset.
type AgentFactory func() (reasoner.Agent, error)

// Manager is the process-wide conversation session. All agent invocation and
// pending-table mutation happens under one turn lock: the agent carries
// implicit history and is not re-entrant, so "invoke + classify + mutate" is
// a single critical section. The agent handle and pending table are guarded
// by a separate state lock so diagnostics read them without queueing behind
// an in-flight agent call. Manager is safe for concurrent use.
type Manager struct {
	factory    AgentFactory
	classifier Classifier

	// mu serializes conversational turns end to end.
	mu chanMutex

	// state guards agent and pending. Writers hold mu as well; readers
	// need only state.
	state   sync.RWMutex
	agent   reasoner.Agent
	pending map[string]PendingInput
}

// NewManager creates a session manager. A nil classifier defaults to the
// marker classifier.
func NewManager(factory AgentFactory, classifier Classifier) *Manager {
	if classifier == nil {
		classifier = MarkerClassifier{}
	}
	return &Manager{
		factory:    factory,
		classifier: classifier,
		mu:         newChanMutex(),
		pending:    make(map[string]PendingInput),
	}
}

// Chat issues one conversational turn and classifies the outcome.
func (m *Manager) Chat(ctx context.Context, message string) (TurnResult, error) {
	if err := m.mu.Lock(ctx); err != nil {
		return TurnResult{}, err
	}
	defer m.mu.Unlock()

	return m.turn(ctx, message)
}

// SubmitHumanInput resumes a suspended turn. The pending entry is consumed
// unconditionally once found, even if the follow-up response suspends again
// or the agent call fails.
func (m *Manager) SubmitHumanInput(ctx context.Context, requestID, answer string) (TurnResult, error) {
	if err := m.mu.Lock(ctx); err != nil {
		return TurnResult{}, err
	}
	defer m.mu.Unlock()

	m.state.Lock()
	_, ok := m.pending[requestID]
	if ok {
		delete(m.pending, requestID)
	}
	remaining := len(m.pending)
	m.state.Unlock()
	if !ok {
		return TurnResult{}, fmt.Errorf("request %s: %w", requestID, ErrRequestNotFound)
	}
	observability.SetPendingHumanInput(remaining)

	return m.turn(ctx, answer)
}

// turn runs one agent invocation plus classification. Callers hold the lock.
func (m *Manager) turn(ctx context.Context, message string) (TurnResult, error) {
	if err := m.ensureAgent(); err != nil {
		return TurnResult{}, err
	}

	start := time.Now()
	raw, err := m.agent.Invoke(ctx, message)
	if err != nil {
		observability.RecordAgentInvocation("error", time.Since(start))
		return TurnResult{}, fmt.Errorf("agent invocation: %w", err)
	}

	prompt, needsInput := m.classifier.Classify(raw)
	if !needsInput {
		observability.RecordAgentInvocation(string(TurnResolved), time.Since(start))
		return TurnResult{Type: TurnResolved, Response: raw}, nil
	}

	requestID := uuid.New().String()
	m.state.Lock()
	m.pending[requestID] = PendingInput{
		Message:     message,
		RawResponse: raw,
		Prompt:      prompt,
		CreatedAt:   time.Now().UTC(),
	}
	count := len(m.pending)
	m.state.Unlock()
	observability.SetPendingHumanInput(count)
	observability.RecordAgentInvocation(string(TurnAwaitingInput), time.Since(start))
	log.Printf("session: turn suspended awaiting human input (request %s)", requestID)

	return TurnResult{
		Type:      TurnAwaitingInput,
		Response:  raw,
		RequestID: requestID,
		Prompt:    prompt,
	}, nil
}

// ensureAgent lazily starts the agent handle. Starting twice is a no-op.
func (m *Manager) ensureAgent() error {
	if m.agent != nil {
		return nil
	}
	agent, err := m.factory()
	if err != nil {
		return fmt.Errorf("start agent: %w", err)
	}
	m.state.Lock()
	m.agent = agent
	m.state.Unlock()
	log.Printf("session: agent started")
	return nil
}

// Reset clears all pending entries and discards the agent handle together
// with the conversational history it holds. The next turn starts a fresh one.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.mu.Lock(ctx); err != nil {
		return err
	}
	defer m.mu.Unlock()

	m.state.Lock()
	m.pending = make(map[string]PendingInput)
	m.agent = nil
	m.state.Unlock()
	observability.SetPendingHumanInput(0)
	observability.RecordSessionReset()
	log.Printf("session: conversation reset")
	return nil
}

// ListPending returns a snapshot of the pending table. Diagnostics read the
// state lock only, so they answer immediately even while an agent turn is in
// flight.
func (m *Manager) ListPending() map[string]PendingInput {
	m.state.RLock()
	defer m.state.RUnlock()

	out := make(map[string]PendingInput, len(m.pending))
	for id, p := range m.pending {
		out[id] = p
	}
	return out
}

// PendingCount returns the number of outstanding clarifications.
func (m *Manager) PendingCount() int {
	m.state.RLock()
	defer m.state.RUnlock()
	return len(m.pending)
}

// AgentRunning reports whether the agent handle has been started.
func (m *Manager) AgentRunning() bool {
	m.state.RLock()
	defer m.state.RUnlock()
	return m.agent != nil
}

// Ping acquires and releases the session lock under ctx. A stuck agent call
// holds the lock, so health probes with a deadline time out instead of
// reporting ok.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.mu.Lock(ctx); err != nil {
		return err
	}
	m.mu.Unlock()
	return nil
}

// Close tears the session down on shutdown. Pending state is volatile and is
// simply dropped.
func (m *Manager) Close() error {
	return m.Reset(context.Background())
}

// chanMutex is a mutex that respects context cancellation while callers wait
// for the critical section. A hung agent call can hold the lock for a long
// time; queued requests should still honor their deadlines.
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	m := make(chanMutex, 1)
	m <- struct{}{}
	return m
}

func (m chanMutex) Lock(ctx context.Context) error {
	select {
	case <-m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m chanMutex) Unlock() {
	m <- struct{}{}
}
