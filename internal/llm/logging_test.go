package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/evolutia/examgen/internal/store"
)

// memRepo collects appended events for assertions.
type memRepo struct {
	events []store.LLMRequestEventData
}

func (m *memRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	m.events = append(m.events, data)
	return nil
}

func (m *memRepo) QueryLLMEvents(context.Context, store.QueryOpts) ([]store.LLMEvent, error) {
	return nil, nil
}
func (m *memRepo) GetLLMEvent(context.Context, int) (*store.LLMEvent, error) { return nil, nil }
func (m *memRepo) LLMUsageByPurpose(context.Context) ([]store.UsageStat, error) {
	return nil, nil
}
func (m *memRepo) LLMUsageByModel(context.Context) ([]store.UsageStat, error) { return nil, nil }

func TestLoggingProvider_RecordsSuccess(t *testing.T) {
	repo := &memRepo{}
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage("generated text"),
		Usage:   Usage{InputTokens: 100, OutputTokens: 50},
	})
	p := WithLogging(mock, "mock", repo)

	ctx := WithPurpose(context.Background(), "variation")
	_, err := p.Generate(ctx, Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "prompt"}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	e := repo.events[0]
	if e.Provider != "mock" || e.Purpose != "variation" {
		t.Errorf("unexpected provenance: %q %q", e.Provider, e.Purpose)
	}
	if !e.Success {
		t.Error("expected success recorded")
	}
	if e.InputTokens != 100 || e.OutputTokens != 50 {
		t.Errorf("tokens not recorded: %d/%d", e.InputTokens, e.OutputTokens)
	}
	if e.ResponseBody != "generated text" {
		t.Errorf("response body = %q", e.ResponseBody)
	}
}

func TestLoggingProvider_RecordsFailure(t *testing.T) {
	repo := &memRepo{}
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{}})
	p := WithLogging(mock, "mock", repo)

	_, err := p.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected the inner error surfaced")
	}

	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	e := repo.events[0]
	if e.Success {
		t.Error("expected failure recorded")
	}
	if e.ErrorMessage == "" {
		t.Error("expected the error message recorded")
	}
}
