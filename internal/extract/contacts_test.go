package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockScorer returns canned AI scores and records the batch it was given.
type mockScorer struct {
	scores map[string]int
	calls  int
	batch  []string
}

func (m *mockScorer) ValidateNames(_ context.Context, names []string, _, _ string) map[string]int {
	m.calls++
	m.batch = names
	if m.scores == nil {
		return map[string]int{}
	}
	return m.scores
}

func TestMineContacts_SingleAIBatch(t *testing.T) {
	ms := &mockScorer{scores: map[string]int{"Jane Doe": 90, "Bob Smith": 85}}
	fragments := []string{
		"Jane Doe, CEO of Acme Corp, founded the company.",
		"Operations are led by Bob Smith, Director of Operations.",
	}

	contacts := MineContacts(context.Background(), fragments, "Acme Corp", ms, MinerOptions{})

	require.Equal(t, 1, ms.calls, "all candidates must go through one classification call")
	assert.Contains(t, ms.batch, "Jane Doe")
	assert.Contains(t, ms.batch, "Bob Smith")
	require.Len(t, contacts, 2)
	assert.Equal(t, "Jane Doe", contacts[0].Name)
	assert.NotZero(t, contacts[0].Probability)
	assert.NotZero(t, contacts[0].NameConfidenceScore)
}

func TestMineContacts_RoleCapture(t *testing.T) {
	ms := &mockScorer{scores: map[string]int{"Jane Doe": 90}}
	contacts := MineContacts(context.Background(), []string{"Jane Doe, CEO, runs the firm."}, "", ms, MinerOptions{})
	require.Len(t, contacts, 1)
	assert.Equal(t, "CEO", contacts[0].Role)
}

func TestMineContacts_DropsLowCombined(t *testing.T) {
	// AI says these are not people.
	ms := &mockScorer{scores: map[string]int{"Jane Doe": 5}}
	contacts := MineContacts(context.Background(), []string{"Jane Doe was mentioned."}, "", ms, MinerOptions{})
	assert.Empty(t, contacts)
}

func TestMineContacts_FailOpenUsesPatternOnly(t *testing.T) {
	ms := &mockScorer{scores: nil} // classifier outage → empty map
	contacts := MineContacts(context.Background(), []string{"Jane Doe, CEO, runs Beta Industries."}, "Beta Industries", ms, MinerOptions{})
	require.Len(t, contacts, 1)
	// Pattern-only probability: clean shape + role context, no AI cap.
	assert.Equal(t, contacts[0].NameConfidenceScore, contacts[0].Probability)
}

func TestMineContacts_NoCandidatesSkipsAI(t *testing.T) {
	ms := &mockScorer{}
	contacts := MineContacts(context.Background(), []string{"no names here at all"}, "", ms, MinerOptions{})
	assert.Empty(t, contacts)
	assert.Equal(t, 0, ms.calls)
}

func TestMineContacts_DedupAcrossFragments(t *testing.T) {
	ms := &mockScorer{scores: map[string]int{"Jane Doe": 90}}
	contacts := MineContacts(context.Background(), []string{"Jane Doe spoke.", "Jane Doe, CEO, answered."}, "", ms, MinerOptions{})
	require.Len(t, contacts, 1)
	assert.Equal(t, []string{"Jane Doe"}, ms.batch)
}
