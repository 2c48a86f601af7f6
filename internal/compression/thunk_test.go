package compression

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clusterFixture() []ClusterItem {
	return []ClusterItem{
		{Content: "Alice likes pizza on Friday", Response: "noted"},
		{Content: "Alice likes pizza on Saturday", Response: "ok"},
		{Content: "Alice likes pizza every week", Response: "got it"},
	}
}

func TestCompressPatternRejectsClusterSmallerThanThree(t *testing.T) {
	_, err := CompressPattern(clusterFixture()[:2])
	assert.Error(t, err)
}

func TestCompressPatternProducesTriggersAndTemplate(t *testing.T) {
	thunk, err := CompressPattern(clusterFixture())
	require.NoError(t, err)
	assert.Equal(t, KindPattern, thunk.Kind)
	assert.NotEmpty(t, thunk.TriggerPattern)
	assert.LessOrEqual(t, thunk.ThunkBytes, thunk.OriginalBytes)
}

func TestFinalizeThunkRejectsEqualRatio(t *testing.T) {
	template := "fixed template text"
	originalBytes := len(template)

	_, err := finalizeThunk(KindPattern, nil, template, nil, originalBytes, 0.5, 0.9)
	assert.ErrorIs(t, err, ErrNotCompressible)
}

func TestCompressKnowledgeCapsAtTenFacts(t *testing.T) {
	var cluster []ClusterItem
	for i := 0; i < 15; i++ {
		cluster = append(cluster, ClusterItem{Content: "fact number " + string(rune('a'+i)), Response: "fact"})
	}
	thunk, err := CompressKnowledge(cluster)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(strings.Split(thunk.Template, " | ")), 10)
}

func TestCompressRoutineFindsPeakHour(t *testing.T) {
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	cluster := []ClusterItem{
		{Content: "stand up meeting", Response: "done", Timestamp: base},
		{Content: "stand up meeting", Response: "done", Timestamp: base},
		{Content: "stand up meeting", Response: "done", Timestamp: base.Add(10 * time.Hour)},
	}
	thunk, err := CompressRoutine(cluster)
	require.NoError(t, err)
	assert.Contains(t, thunk.Template, "08:00")
}

func TestThunkGenerateSubstitutesTimePlaceholders(t *testing.T) {
	thunk := &Thunk{Template: "{greeting}, today is {day} ({date}) at {time}"}
	morning := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	out := thunk.Generate(morning, nil)
	assert.Contains(t, out, "Good morning")
	assert.Contains(t, out, "Monday")
	assert.Equal(t, 1, thunk.FireCount)
	assert.Equal(t, morning, thunk.LastFired)
}

func TestGreetingBoundaries(t *testing.T) {
	assert.Equal(t, "Good morning", greetingFor(time.Date(2026, 1, 1, 11, 59, 0, 0, time.UTC)))
	assert.Equal(t, "Good afternoon", greetingFor(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Good afternoon", greetingFor(time.Date(2026, 1, 1, 17, 59, 0, 0, time.UTC)))
	assert.Equal(t, "Good evening", greetingFor(time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC)))
}

func TestThunkMatchesOnTriggerKeyword(t *testing.T) {
	thunk, err := CompressPattern(clusterFixture())
	require.NoError(t, err)
	assert.True(t, thunk.Matches("ALICE likes PIZZA again"))
}

func TestCompressPatternIsDeterministicAcrossRuns(t *testing.T) {
	a, err := CompressPattern(clusterFixture())
	require.NoError(t, err)
	b, err := CompressPattern(clusterFixture())
	require.NoError(t, err)

	diff := cmp.Diff(a, b,
		cmpopts.IgnoreUnexported(Thunk{}),
		cmpopts.IgnoreFields(Thunk{}, "ID"),
	)
	assert.Empty(t, diff, "two compressions of the same cluster should produce equivalent thunks:\n%s", diff)
}
