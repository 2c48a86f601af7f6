package governance

import (
	"context"
	"time"

	"github.com/ember-run/ember/internal/memoryintegration"
	"github.com/ember-run/ember/internal/model"
	"github.com/ember-run/ember/internal/orchestrator"
	"github.com/ember-run/ember/internal/store"
)

// ProfileStore persists and retrieves a user's last-seen communication
// profile, the "brain's last-seen profile" referenced in §4.8.
type ProfileStore interface {
	LastSeen(userID string) (*Profile, bool)
	Save(userID string, p Profile)
}

// InMemoryProfileStore is a simple map-backed ProfileStore, sufficient for
// a single-process deployment.
type InMemoryProfileStore struct {
	profiles map[string]Profile
}

// NewInMemoryProfileStore constructs an empty profile store.
func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{profiles: make(map[string]Profile)}
}

func (s *InMemoryProfileStore) LastSeen(userID string) (*Profile, bool) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, false
	}
	return &p, true
}

func (s *InMemoryProfileStore) Save(userID string, p Profile) {
	s.profiles[userID] = p
}

// storeHistoryAdapter bridges store.Store onto the quality checker's
// ResponseHistory and KnowledgeSource interfaces.
type storeHistoryAdapter struct {
	s *store.Store
}

func (a storeHistoryAdapter) SimilarResponses(ctx context.Context, input string, limit int) ([]PastResponse, error) {
	turns, err := a.s.SearchConversations(ctx, input, limit, 0)
	if err != nil {
		return nil, err
	}
	out := make([]PastResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, PastResponse{Text: t.Response})
	}
	return out, nil
}

func (a storeHistoryAdapter) SearchKnowledge(ctx context.Context, query string, limit int) ([]KnowledgeFact, error) {
	entries, err := a.s.SearchKnowledge(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]KnowledgeFact, 0, len(entries))
	for _, e := range entries {
		out = append(out, KnowledgeFact{Value: e.Value})
	}
	return out, nil
}

// agentHistoryAdapter is a zero-history PerformanceHistory fallback; a real
// deployment can supply one backed by store.GetMemoryStats-style tracking.
type agentHistoryAdapter struct{}

func (agentHistoryAdapter) SuccessRate(agentName string, taskType TaskType) float64 { return 0.5 }

// RequestHints carries the caller-supplied metadata hints and optional
// candidate agent roster for one process_input call.
type RequestHints struct {
	Metadata   MetadataHints
	Candidates []AgentProfile
	History    PerformanceHistory
}

// Response is the rich object returned by process_input (§4.11 step 8).
type Response struct {
	Response             string
	FullText             string
	GovernanceContext    Context
	TaskType             TaskType
	Agents               []SelectedAgent
	CommunicationProfile Profile
	Quality              QualityReport
	Timestamp            time.Time
	UserID               string
}

// Engine is the top-level Governance Engine: the system's single public
// entry point, composing context detection, profile resolution, task
// classification, agent selection, generation, quality-checking, and
// post-editing into one call (§4.11).
type Engine struct {
	orchestrator *orchestrator.Orchestrator
	memory       *memoryintegration.Integration
	store        *store.Store
	profiles     ProfileStore
}

// NewEngine wires the Governance Engine over its collaborators.
func NewEngine(o *orchestrator.Orchestrator, mem *memoryintegration.Integration, s *store.Store, profiles ProfileStore) *Engine {
	if profiles == nil {
		profiles = NewInMemoryProfileStore()
	}
	return &Engine{orchestrator: o, memory: mem, store: s, profiles: profiles}
}

// ProcessInput runs the full §4.11 pipeline for one user request.
func (e *Engine) ProcessInput(ctx context.Context, userInput, userID string, hints RequestHints) Response {
	now := time.Now()

	detectedCtx, detectionScore := DetectContext(userInput, hints.Metadata)
	lastSeen, _ := e.profiles.LastSeen(userID)
	profile := ResolveProfile(detectedCtx, detectionScore, lastSeen)

	classification := ClassifyTask(userInput)

	history := hints.History
	if history == nil {
		history = agentHistoryAdapter{}
	}
	agents := SelectAgents(classification, hints.Candidates, history)

	systemPrompt := SystemPrompt(profile)
	draft, ok := e.orchestrator.Generate(ctx, userInput, orchestrator.Options{
		Context: []model.Message{{Role: "system", Content: systemPrompt}},
	})
	if !ok {
		draft = ""
	}

	var quality QualityReport
	if e.store != nil {
		adapter := storeHistoryAdapter{s: e.store}
		quality = Check(ctx, userInput, draft, adapter, adapter)
	} else {
		quality = Check(ctx, userInput, draft, nil, nil)
	}

	finalResponse, fullResponse := PostEdit(draft, profile)

	e.profiles.Save(userID, profile)
	if e.memory != nil {
		e.memory.Capture(ctx, userInput, string(classification.TaskType), finalResponse, now)
	}

	return Response{
		Response:             finalResponse,
		FullText:             fullResponse,
		GovernanceContext:    detectedCtx,
		TaskType:             classification.TaskType,
		Agents:               agents,
		CommunicationProfile: profile,
		Quality:              quality,
		Timestamp:            now,
		UserID:               userID,
	}
}
