package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lcrdev/docchat/internal/document"
	"github.com/lcrdev/docchat/internal/log"
	"github.com/lcrdev/docchat/internal/memory"
)

// goleakOptions ignores goroutines owned by process-wide machinery
// that outlives any single test.
func goleakOptions() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	}
}

// fakeState is a minimal SessionState for handler tests.
type fakeState struct {
	mu       sync.Mutex
	pipeline *Pipeline
	doc      document.Document
	mem      *memory.Memory
}

func (s *fakeState) Snapshot() (*Pipeline, document.Document, *memory.Memory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline == nil {
		return nil, document.Document{}, nil, false
	}
	return s.pipeline, s.doc, s.mem, true
}

func (s *fakeState) set(p *Pipeline, doc document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipeline = p
	s.doc = doc
}

func newHandler(t *testing.T, state SessionState) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerConfig{State: state, Logger: log.NewNop()})
	require.NoError(t, err)
	return h
}

func TestSubmitNotInitialized(t *testing.T) {
	state := &fakeState{mem: memory.New()}
	h := newHandler(t, state)

	_, err := h.Submit(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, 0, state.mem.Len())
}

func TestSubmitSuccessfulTurn(t *testing.T) {
	client := &scriptedClient{fragments: []string{"Hi ", "there"}}
	state := &fakeState{mem: memory.New()}
	state.set(newPipeline(t, client), document.Document{
		SourceType: document.Text,
		Content:    "Hello world",
	})
	h := newHandler(t, state)

	var streamed string
	reply, err := h.Submit(context.Background(), "greet me", func(_ context.Context, f string) error {
		streamed += f
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply)
	assert.Equal(t, "Hi there", streamed)

	// Document content travels verbatim inside the prompt.
	assert.Contains(t, client.lastPrompt(t).System, "Hello world")

	turns := state.mem.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, memory.RoleUser, turns[0].Role)
	assert.Equal(t, "greet me", turns[0].Content)
	assert.Equal(t, memory.RoleAssistant, turns[1].Role)
	assert.Equal(t, "Hi there", turns[1].Content)
}

func TestSubmitFailureLeavesMemoryUntouched(t *testing.T) {
	client := &scriptedClient{
		fragments: []string{"partial "},
		err:       errors.New("stream reset"),
	}
	state := &fakeState{mem: memory.New()}
	state.set(newPipeline(t, client), document.Document{SourceType: document.Text, Content: "doc"})
	h := newHandler(t, state)

	_, err := h.Submit(context.Background(), "q", nil)
	assert.ErrorIs(t, err, ErrProviderInvocation)
	assert.Equal(t, 0, state.mem.Len())
}

func TestSubmitThreadsHistory(t *testing.T) {
	client := &scriptedClient{fragments: []string{"second answer"}}
	state := &fakeState{mem: memory.New()}
	state.set(newPipeline(t, client), document.Document{SourceType: document.Text, Content: "doc"})
	state.mem.AppendUser("first question")
	state.mem.AppendAssistant("first answer")
	h := newHandler(t, state)

	_, err := h.Submit(context.Background(), "second question", nil)
	require.NoError(t, err)

	prompt := client.lastPrompt(t)
	require.Len(t, prompt.History, 2)
	assert.Equal(t, "first question", prompt.History[0].Content)
	assert.Equal(t, "first answer", prompt.History[1].Content)
	assert.Equal(t, 4, state.mem.Len())
}

func TestSubmitAfterReinitializeUsesNewDocument(t *testing.T) {
	client := &scriptedClient{fragments: []string{"ok"}}
	state := &fakeState{mem: memory.New()}
	state.set(newPipeline(t, client), document.Document{SourceType: document.Site, Content: "old page"})
	h := newHandler(t, state)

	_, err := h.Submit(context.Background(), "first", nil)
	require.NoError(t, err)

	state.set(newPipeline(t, client), document.Document{SourceType: document.Pdf, Content: "new report"})

	_, err = h.Submit(context.Background(), "second", nil)
	require.NoError(t, err)

	prompt := client.lastPrompt(t)
	assert.Contains(t, prompt.System, "new report")
	assert.NotContains(t, prompt.System, "old page")
}

func TestSubmitTrimsReplayedHistory(t *testing.T) {
	client := &scriptedClient{fragments: []string{"ok"}}
	state := &fakeState{mem: memory.New()}
	state.set(newPipeline(t, client), document.Document{SourceType: document.Text, Content: "doc"})
	for i := 0; i < 5; i++ {
		state.mem.AppendUser("q")
		state.mem.AppendAssistant("a")
	}

	h, err := NewHandler(HandlerConfig{State: state, Logger: log.NewNop(), MaxHistoryTurns: 4})
	require.NoError(t, err)

	_, err = h.Submit(context.Background(), "latest", nil)
	require.NoError(t, err)

	// Only the trailing four turns travel with the prompt; memory
	// itself keeps everything.
	assert.Len(t, client.lastPrompt(t).History, 4)
	assert.Equal(t, 12, state.mem.Len())
}

func TestSubmitSerializesTurns(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	client := &scriptedClient{fragments: []string{"reply"}}
	state := &fakeState{mem: memory.New()}
	state.set(newPipeline(t, client), document.Document{SourceType: document.Text, Content: "doc"})
	h := newHandler(t, state)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Submit(context.Background(), "q", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	turns := state.mem.Turns()
	require.Len(t, turns, 2*n)
	// Each successful turn appends user then assistant, never
	// interleaved with another turn.
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, memory.RoleUser, turns[i].Role)
		assert.Equal(t, memory.RoleAssistant, turns[i+1].Role)
	}
}
