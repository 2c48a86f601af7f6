package governance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-run/ember/internal/cortex"
	"github.com/ember-run/ember/internal/knowledge"
	"github.com/ember-run/ember/internal/memoryintegration"
	"github.com/ember-run/ember/internal/model"
	"github.com/ember-run/ember/internal/orchestrator"
	"github.com/ember-run/ember/internal/privacy"
	"github.com/ember-run/ember/internal/store"
)

type echoBackend struct{}

func (echoBackend) Generate(ctx context.Context, prompt string, msgs []model.Message, temperature float64, maxTokens int) (string, bool) {
	return "The answer is sunny.", true
}
func (echoBackend) Available() bool      { return true }
func (echoBackend) Status() model.Status { return model.Status{Provider: "echo", Kind: model.KindLocal} }

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := store.Open("sqlite3", ":memory:", store.DialectSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mem := memoryintegration.New(cortex.New(store.NewCortexAdapter(s)), s)

	backends := model.NewRegistry()
	require.NoError(t, backends.RegisterBackend("local", echoBackend{}))

	router := knowledge.NewRouter(nil, nil, nil, nil, nil, nil, nil)
	orch := orchestrator.New(backends, privacy.New(), router, nil, nil)

	return NewEngine(orch, mem, s, nil)
}

func TestProcessInputReturnsRichResponse(t *testing.T) {
	e := newTestEngine(t)
	resp := e.ProcessInput(context.Background(), "explain how does this api work", "user-1", RequestHints{
		Candidates: []AgentProfile{{Name: "tutor", TaskFit: map[TaskType]float64{TaskLearning: 0.8}}},
	})

	assert.Equal(t, "The answer is sunny.", resp.Response)
	assert.NotEmpty(t, resp.FullText)
	assert.Equal(t, TaskLearning, resp.TaskType)
	assert.Equal(t, "user-1", resp.UserID)
	assert.NotZero(t, resp.Timestamp)
	assert.Len(t, resp.Agents, 1)
}

func TestProcessInputPersistsProfileAcrossCalls(t *testing.T) {
	e := newTestEngine(t)
	e.ProcessInput(context.Background(), "explain how does this api work", "user-2", RequestHints{})

	last, ok := e.profiles.LastSeen("user-2")
	require.True(t, ok)
	assert.Equal(t, ContextLearning, last.Context)
}
