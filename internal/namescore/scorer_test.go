package namescore

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-discovery/pkg/anthropic"
)

// mockClient returns a canned response or error.
type mockClient struct {
	resp  *anthropic.MessageResponse
	err   error
	calls int
	last  anthropic.MessageRequest
}

func (m *mockClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.calls++
	m.last = req
	return m.resp, m.err
}

func textResponse(s string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: s}}}
}

func TestValidateNames_BatchesIntoSingleCall(t *testing.T) {
	mc := &mockClient{resp: textResponse(`{"Jane Doe": 90, "Sales Team": 5}`)}
	s := New(mc, "claude-haiku-4-5-20251001")

	scores := s.ValidateNames(context.Background(), []string{"Jane Doe", "Sales Team"}, "Acme Corp", "")
	require.Equal(t, 1, mc.calls)
	assert.Equal(t, 90, scores["Jane Doe"])
	assert.Equal(t, 5, scores["Sales Team"])
	assert.Contains(t, mc.last.Messages[0].Content, "- Jane Doe")
	assert.Contains(t, mc.last.Messages[0].Content, "Acme Corp")
}

func TestValidateNames_EmptyInputSkipsCall(t *testing.T) {
	mc := &mockClient{}
	s := New(mc, "m")
	assert.Empty(t, s.ValidateNames(context.Background(), nil, "", ""))
	assert.Equal(t, 0, mc.calls)
}

func TestValidateNames_FailOpenOnError(t *testing.T) {
	mc := &mockClient{err: eris.New("boom")}
	s := New(mc, "m")
	assert.Empty(t, s.ValidateNames(context.Background(), []string{"Jane Doe"}, "", ""))
}

func TestValidateNames_FailOpenOnGarbage(t *testing.T) {
	mc := &mockClient{resp: textResponse("I cannot answer that.")}
	s := New(mc, "m")
	assert.Empty(t, s.ValidateNames(context.Background(), []string{"Jane Doe"}, "", ""))
}

func TestValidateNames_RecoverJSONFromProse(t *testing.T) {
	mc := &mockClient{resp: textResponse("Here are the scores:\n{\"Jane Doe\": 88}\nHope that helps.")}
	s := New(mc, "m")
	scores := s.ValidateNames(context.Background(), []string{"Jane Doe"}, "", "")
	assert.Equal(t, map[string]int{"Jane Doe": 88}, scores)
}

func TestParseScores_OutOfRangeRejectsBatch(t *testing.T) {
	_, ok := parseScores(`{"Jane Doe": 120}`)
	assert.False(t, ok)
	_, ok = parseScores(`{"Jane Doe": -1}`)
	assert.False(t, ok)
	_, ok = parseScores(`{"Jane Doe": 95}`)
	assert.True(t, ok)
}
