package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTaskPicksHighestScoringType(t *testing.T) {
	c := ClassifyTask("there's a nasty vulnerability, possible exploit in the login flow")
	assert.Equal(t, TaskSecurity, c.TaskType)
	assert.Greater(t, c.Confidence, 0.0)
}

func TestClassifyTaskUnknownWhenNoKeywordsMatch(t *testing.T) {
	c := ClassifyTask("zzz qqq xyz")
	assert.Equal(t, TaskUnknown, c.TaskType)
	assert.Equal(t, 0.0, c.Confidence)
}

func TestTierForComplexityBumpsUpOnLowConfidence(t *testing.T) {
	assert.Equal(t, TierSonnet, tierForComplexity(TaskLearning, 0.1))
	assert.Equal(t, TierHaiku, tierForComplexity(TaskLearning, 0.8))
	assert.Equal(t, TierOpus, tierForComplexity(TaskSecurity, 0.9))
}

type fakeHistory2 struct {
	rates map[string]float64
}

func (f *fakeHistory2) SuccessRate(agentName string, taskType TaskType) float64 {
	return f.rates[agentName]
}

func TestSelectAgentsRanksByBlendedScoreAndCapsAtThree(t *testing.T) {
	candidates := []AgentProfile{
		{Name: "alpha", TaskFit: map[TaskType]float64{TaskSecurity: 0.9}},
		{Name: "beta", TaskFit: map[TaskType]float64{TaskSecurity: 0.5}},
		{Name: "gamma", TaskFit: map[TaskType]float64{TaskSecurity: 0.2}},
		{Name: "delta", TaskFit: map[TaskType]float64{TaskSecurity: 0.1}},
	}
	history := &fakeHistory2{rates: map[string]float64{"alpha": 0.2, "beta": 0.9, "gamma": 0.5, "delta": 1.0}}

	classification := TaskClassification{TaskType: TaskSecurity, Confidence: 0.8}
	selected := SelectAgents(classification, candidates, history)

	assert.Len(t, selected, 3)
	for i := 1; i < len(selected); i++ {
		assert.GreaterOrEqual(t, selected[i-1].Score, selected[i].Score)
	}
	for _, s := range selected {
		assert.Equal(t, TierOpus, s.Tier)
	}
}

func TestSelectAgentsWithoutHistoryUsesRecommendationOnly(t *testing.T) {
	candidates := []AgentProfile{
		{Name: "solo", TaskFit: map[TaskType]float64{TaskDebug: 0.7}},
	}
	classification := TaskClassification{TaskType: TaskDebug, Confidence: 0.9}
	selected := SelectAgents(classification, candidates, nil)
	assert.Len(t, selected, 1)
	assert.InDelta(t, 0.42, selected[0].Score, 0.001)
}
