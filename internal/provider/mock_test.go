package provider

import (
	"context"

	"github.com/sells-group/contact-discovery/pkg/apollo"
	"github.com/sells-group/contact-discovery/pkg/hunter"
	"github.com/sells-group/contact-discovery/pkg/perplexity"
)

type mockApollo struct {
	resp  *apollo.MatchResponse
	err   error
	calls int
	last  apollo.MatchRequest
}

func (m *mockApollo) MatchPerson(_ context.Context, req apollo.MatchRequest) (*apollo.MatchResponse, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

type mockPerplexity struct {
	content string
	err     error
	calls   int
	last    perplexity.ChatCompletionRequest
}

func (m *mockPerplexity) ChatCompletion(_ context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &perplexity.ChatCompletionResponse{
		Choices: []perplexity.Choice{
			{Message: perplexity.Message{Role: "assistant", Content: m.content}},
		},
	}, nil
}

type mockHunter struct {
	resp  *hunter.FindResponse
	err   error
	calls int
	last  hunter.FindRequest
}

func (m *mockHunter) FindEmail(_ context.Context, req hunter.FindRequest) (*hunter.FindResponse, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}
