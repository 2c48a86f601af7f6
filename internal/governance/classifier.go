package governance

import "strings"

// TaskType is one of the 11 recognized task kinds (§3).
type TaskType string

const (
	TaskCodeMod      TaskType = "CODE_MOD"
	TaskCodeReview   TaskType = "CODE_REVIEW"
	TaskLearning     TaskType = "LEARNING"
	TaskSecurity     TaskType = "SECURITY"
	TaskArchitecture TaskType = "ARCHITECTURE"
	TaskResearch     TaskType = "RESEARCH"
	TaskOptimization TaskType = "OPTIMIZATION"
	TaskDebug        TaskType = "DEBUG"
	TaskDataAnalysis TaskType = "DATA_ANALYSIS"
	TaskDoc          TaskType = "DOC"
	TaskUnknown      TaskType = "UNKNOWN"
)

var taskKeywords = map[TaskType][]string{
	TaskCodeMod:      {"implement", "add a feature", "refactor", "write a function", "rename"},
	TaskCodeReview:   {"review this", "code review", "is this good", "any issues with"},
	TaskLearning:     {"explain", "what is", "how does", "teach me", "understand"},
	TaskSecurity:     {"vulnerability", "cve", "exploit", "security", "attack", "penetration"},
	TaskArchitecture: {"design", "architecture", "system design", "scalability", "tradeoff"},
	TaskResearch:     {"research", "compare", "survey", "literature", "state of the art"},
	TaskOptimization: {"optimize", "performance", "faster", "reduce latency", "bottleneck"},
	TaskDebug:        {"bug", "error", "crash", "stack trace", "not working", "fix this"},
	TaskDataAnalysis: {"dataset", "analyze", "statistics", "chart", "trend in the data"},
	TaskDoc:          {"document", "write docs", "readme", "docstring", "comment this"},
}

// TaskClassification is the §3 data-model record for a classified request.
type TaskClassification struct {
	TaskType   TaskType
	Confidence float64
	Scores     map[TaskType]float64
}

// ClassifyTask scores each task type by keyword weight, mirroring the
// communication context detector's shape (§4.9-style classifier per §4.11
// step 3). A flat zero across all types falls back to UNKNOWN.
func ClassifyTask(input string) TaskClassification {
	lower := strings.ToLower(input)
	scores := make(map[TaskType]float64, len(taskKeywords))
	bestType := TaskUnknown
	bestScore := 0.0

	for t, keywords := range taskKeywords {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		score := float64(hits) / float64(len(keywords))
		scores[t] = score
		if score > bestScore {
			bestScore = score
			bestType = t
		}
	}

	if bestScore == 0 {
		return TaskClassification{TaskType: TaskUnknown, Confidence: 0, Scores: scores}
	}
	return TaskClassification{TaskType: bestType, Confidence: bestScore, Scores: scores}
}

// ModelTier is the cost/capability tier an agent is assigned.
type ModelTier string

const (
	TierHaiku  ModelTier = "HAIKU"
	TierSonnet ModelTier = "SONNET"
	TierOpus   ModelTier = "OPUS"
)

// complexityByTaskType gives the baseline tier for a task type; ClassifyTask's
// confidence then nudges up one tier when the match is weak (the classifier
// is unsure, so the selector compensates by reaching for a stronger model).
var complexityByTaskType = map[TaskType]ModelTier{
	TaskCodeMod:      TierSonnet,
	TaskCodeReview:   TierSonnet,
	TaskLearning:     TierHaiku,
	TaskSecurity:     TierOpus,
	TaskArchitecture: TierOpus,
	TaskResearch:     TierSonnet,
	TaskOptimization: TierSonnet,
	TaskDebug:        TierSonnet,
	TaskDataAnalysis: TierSonnet,
	TaskDoc:          TierHaiku,
	TaskUnknown:      TierHaiku,
}

func tierForComplexity(t TaskType, confidence float64) ModelTier {
	tier := complexityByTaskType[t]
	if confidence < 0.3 {
		return bumpTier(tier)
	}
	return tier
}

func bumpTier(t ModelTier) ModelTier {
	switch t {
	case TierHaiku:
		return TierSonnet
	case TierSonnet:
		return TierOpus
	default:
		return TierOpus
	}
}

// AgentProfile is a registered specialist agent's static description.
type AgentProfile struct {
	Name    string
	TaskFit map[TaskType]float64 // per-task recommendation strength, 0..1
}

// PerformanceHistory supplies an agent's historical success rate for a
// given task type, used to blend with the classifier's own recommendation.
type PerformanceHistory interface {
	SuccessRate(agentName string, taskType TaskType) float64
}

// SelectedAgent is one ranked agent assignment, ready to hand to the
// Orchestrator.
type SelectedAgent struct {
	Agent Agent
	Score float64
	Tier  ModelTier
}

// Agent is the minimal identity the selector ranks; callers supply the
// full roster via a registry elsewhere.
type Agent struct {
	Name string
}

// SelectAgents ranks candidates by (classifier_recommendation*0.6 +
// historical_success_rate*0.4) and returns the top 3, each tagged with a
// model tier chosen from the task-type/confidence complexity map (§4.11
// step 4).
func SelectAgents(classification TaskClassification, candidates []AgentProfile, history PerformanceHistory) []SelectedAgent {
	tier := tierForComplexity(classification.TaskType, classification.Confidence)

	ranked := make([]SelectedAgent, 0, len(candidates))
	for _, c := range candidates {
		recommendation := c.TaskFit[classification.TaskType]
		successRate := 0.0
		if history != nil {
			successRate = history.SuccessRate(c.Name, classification.TaskType)
		}
		score := recommendation*0.6 + successRate*0.4
		ranked = append(ranked, SelectedAgent{Agent: Agent{Name: c.Name}, Score: score, Tier: tier})
	}

	sortBySelectedAgentScoreDesc(ranked)
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	return ranked
}

func sortBySelectedAgentScoreDesc(agents []SelectedAgent) {
	for i := 1; i < len(agents); i++ {
		for j := i; j > 0 && agents[j].Score > agents[j-1].Score; j-- {
			agents[j], agents[j-1] = agents[j-1], agents[j]
		}
	}
}
