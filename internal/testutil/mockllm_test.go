package testutil

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

func TestMockLLM_PatternMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		patterns []struct{ pattern, response string }
		input    string
		want     string
	}{
		{
			name:  "fallback when no patterns",
			input: "hello",
			want:  "default response",
		},
		{
			name: "exact match",
			patterns: []struct{ pattern, response string }{
				{"hello", "hi there"},
			},
			input: "hello",
			want:  "hi there",
		},
		{
			name: "case insensitive match",
			patterns: []struct{ pattern, response string }{
				{"hello", "hi there"},
			},
			input: "HELLO world",
			want:  "hi there",
		},
		{
			name: "first match wins",
			patterns: []struct{ pattern, response string }{
				{"hello", "first"},
				{"hello", "second"},
			},
			input: "hello",
			want:  "first",
		},
		{
			name: "no match returns fallback",
			patterns: []struct{ pattern, response string }{
				{"hello", "hi"},
			},
			input: "goodbye",
			want:  "default response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewMockLLM("default response")
			for _, p := range tt.patterns {
				m.AddResponse(p.pattern, p.response)
			}

			resp, err := m.generate(context.Background(), &ai.ModelRequest{
				Messages: []*ai.Message{ai.NewUserMessage(ai.NewTextPart(tt.input))},
			}, nil)
			if err != nil {
				t.Fatalf("generate() error = %v", err)
			}
			if got := resp.Message.Text(); got != tt.want {
				t.Errorf("generate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMockLLM_RecordsCalls(t *testing.T) {
	t.Parallel()
	m := NewMockLLM("fallback")

	_, err := m.generate(context.Background(), &ai.ModelRequest{
		Messages: []*ai.Message{
			ai.NewSystemMessage(ai.NewTextPart("persona")),
			ai.NewUserMessage(ai.NewTextPart("question")),
		},
	}, nil)
	if err != nil {
		t.Fatalf("generate() error = %v", err)
	}

	calls := m.Calls()
	if len(calls) != 1 {
		t.Fatalf("Calls() len = %d, want 1", len(calls))
	}
	if calls[0].UserMessage != "question" {
		t.Errorf("UserMessage = %q, want %q", calls[0].UserMessage, "question")
	}
	if calls[0].SystemMessage != "persona" {
		t.Errorf("SystemMessage = %q, want %q", calls[0].SystemMessage, "persona")
	}

	m.Reset()
	if len(m.Calls()) != 0 {
		t.Error("Reset() did not clear calls")
	}
}

func TestMockLLM_RegisterModel(t *testing.T) {
	t.Parallel()
	m := NewMockLLM("registered")
	g := genkit.Init(context.Background())

	model := m.RegisterModel(g)
	if model == nil {
		t.Fatal("RegisterModel() returned nil")
	}
	if got := model.Name(); got != "mock/test-model" {
		t.Errorf("RegisterModel().Name() = %q, want %q", got, "mock/test-model")
	}

	if genkit.LookupModel(g, "mock/test-model") == nil {
		t.Fatal("LookupModel() returned nil after registration")
	}
}
