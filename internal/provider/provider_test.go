package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-discovery/internal/model"
	"github.com/sells-group/contact-discovery/pkg/apollo"
	"github.com/sells-group/contact-discovery/pkg/hunter"
)

func TestRegistry_TagsInWaterfallOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewHunterAdapter(&mockHunter{}))
	reg.Register(NewApolloAdapter(&mockApollo{}))
	reg.Register(NewEnrichAdapter(&mockPerplexity{}, "sonar"))

	tags := reg.Tags()
	require.Len(t, tags, 3)
	assert.Equal(t, model.TagApolloSearch, tags[0])
	assert.Equal(t, model.TagContactEnrichment, tags[1])
	assert.Equal(t, model.TagHunterSearch, tags[2])
}

func TestRegistry_GetUnregistered(t *testing.T) {
	reg := NewRegistry()
	assert.Nil(t, reg.Get(model.TagApolloSearch))
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		full        string
		first, last string
	}{
		{"Jane Doe", "Jane", "Doe"},
		{"Jane van der Berg", "Jane", "Berg"},
		{"Madonna", "Madonna", ""},
		{"  Jane   Doe  ", "Jane", "Doe"},
		{"", "", ""},
	}
	for _, tt := range tests {
		first, last := SplitName(tt.full)
		assert.Equal(t, tt.first, first, tt.full)
		assert.Equal(t, tt.last, last, tt.full)
	}
}

func TestApolloAdapter_VerifiedEmail(t *testing.T) {
	m := &mockApollo{resp: &apollo.MatchResponse{Person: &apollo.Person{
		Name:        "Jane Doe",
		Title:       "VP of Engineering",
		Email:       "jane.doe@acme.com",
		EmailStatus: "verified",
	}}}
	a := NewApolloAdapter(m)

	res := a.Execute(context.Background(), model.SearchContext{
		ContactName: "Jane Doe",
		CompanyName: "Acme Corp",
		Domain:      "acme.com",
	})

	assert.True(t, res.Found())
	assert.Equal(t, model.TagApolloSearch, res.Source)
	assert.Equal(t, "jane.doe@acme.com", res.Email)
	assert.Equal(t, "VP of Engineering", res.Role)
	assert.Equal(t, 90, res.Confidence)
	assert.Equal(t, "Jane Doe", m.last.Name)
}

func TestApolloAdapter_UnverifiedEmailLowerConfidence(t *testing.T) {
	m := &mockApollo{resp: &apollo.MatchResponse{Person: &apollo.Person{
		Email:       "jane.doe@acme.com",
		EmailStatus: "guessed",
	}}}
	res := NewApolloAdapter(m).Execute(context.Background(), model.SearchContext{ContactName: "Jane Doe"})

	assert.True(t, res.Found())
	assert.Equal(t, 65, res.Confidence)
}

func TestApolloAdapter_NoMatch(t *testing.T) {
	m := &mockApollo{resp: &apollo.MatchResponse{}}
	res := NewApolloAdapter(m).Execute(context.Background(), model.SearchContext{ContactName: "Jane Doe"})

	assert.False(t, res.Found())
	assert.Equal(t, "none", res.Metadata["match"])
}

func TestApolloAdapter_PlaceholderEmailRejected(t *testing.T) {
	m := &mockApollo{resp: &apollo.MatchResponse{Person: &apollo.Person{
		Email: "test@example.com",
	}}}
	res := NewApolloAdapter(m).Execute(context.Background(), model.SearchContext{ContactName: "Jane Doe"})

	assert.False(t, res.Found())
	assert.Equal(t, "rejected_by_pattern", res.Metadata["match"])
}

func TestApolloAdapter_TransportErrorYieldsEmptyResult(t *testing.T) {
	m := &mockApollo{err: errors.New("connection refused")}
	res := NewApolloAdapter(m).Execute(context.Background(), model.SearchContext{ContactName: "Jane Doe"})

	assert.False(t, res.Found())
	assert.Contains(t, res.Metadata["error"], "connection refused")
	assert.Equal(t, 1, m.calls, "non-transient error must not retry")
}

func TestEnrichAdapter_ParsesJSONWithChatter(t *testing.T) {
	m := &mockPerplexity{content: `Based on public sources:
{"email": "jane.doe@acme.com", "role": "CTO", "confidence": 80}`}
	res := NewEnrichAdapter(m, "sonar").Execute(context.Background(), model.SearchContext{
		ContactName: "Jane Doe",
		CompanyName: "Acme Corp",
		Website:     "https://acme.com",
		Domain:      "acme.com",
	})

	assert.True(t, res.Found())
	assert.Equal(t, model.TagContactEnrichment, res.Source)
	assert.Equal(t, "jane.doe@acme.com", res.Email)
	assert.Equal(t, "CTO", res.Role)
	assert.Equal(t, 80, res.Confidence)
	assert.Equal(t, []string{"acme.com"}, m.last.SearchDomainFilter, "research must be pinned to the company domain")
}

func TestEnrichAdapter_NullEmail(t *testing.T) {
	m := &mockPerplexity{content: `{"email": null, "role": "CTO", "confidence": 0}`}
	res := NewEnrichAdapter(m, "sonar").Execute(context.Background(), model.SearchContext{ContactName: "Jane Doe"})

	assert.False(t, res.Found())
	assert.Equal(t, "none", res.Metadata["match"])
	assert.Equal(t, "CTO", res.Role)
}

func TestEnrichAdapter_UnparseableResponse(t *testing.T) {
	m := &mockPerplexity{content: "I could not find this person."}
	res := NewEnrichAdapter(m, "sonar").Execute(context.Background(), model.SearchContext{ContactName: "Jane Doe"})

	assert.False(t, res.Found())
	assert.NotEmpty(t, res.Metadata["error"])
}

func TestEnrichAdapter_APIError(t *testing.T) {
	m := &mockPerplexity{err: errors.New("rate limited")}
	res := NewEnrichAdapter(m, "sonar").Execute(context.Background(), model.SearchContext{ContactName: "Jane Doe"})

	assert.False(t, res.Found())
	assert.Contains(t, res.Metadata["error"], "rate limited")
}

func TestParseEnrichment_ConfidenceClamped(t *testing.T) {
	email, _, conf, ok := parseEnrichment(`{"email": "jane@acme.com", "confidence": 250}`)
	require.True(t, ok)
	assert.Equal(t, "jane@acme.com", email)
	assert.Equal(t, 100, conf)
}

func TestHunterAdapter_Found(t *testing.T) {
	m := &mockHunter{resp: &hunter.FindResponse{Data: hunter.FindData{
		Email:    "jane.doe@acme.com",
		Score:    0.92,
		Position: "CTO",
	}}}
	res := NewHunterAdapter(m).Execute(context.Background(), model.SearchContext{
		ContactName: "Jane Doe",
		Domain:      "acme.com",
	})

	assert.True(t, res.Found())
	assert.Equal(t, model.TagHunterSearch, res.Source)
	assert.Equal(t, 92, res.Confidence)
	assert.Equal(t, "CTO", res.Role)
	assert.Equal(t, "Jane", m.last.FirstName)
	assert.Equal(t, "Doe", m.last.LastName)
}

func TestHunterAdapter_PayloadError(t *testing.T) {
	m := &mockHunter{resp: &hunter.FindResponse{Errors: []hunter.APIError{
		{ID: "no_result", Code: 200, Details: "no email found for this person"},
	}}}
	res := NewHunterAdapter(m).Execute(context.Background(), model.SearchContext{
		ContactName: "Jane Doe",
		Domain:      "acme.com",
	})

	assert.False(t, res.Found())
	assert.Equal(t, "no email found for this person", res.Metadata["error"])
}

func TestHunterAdapter_MissingInputs(t *testing.T) {
	a := NewHunterAdapter(&mockHunter{})

	res := a.Execute(context.Background(), model.SearchContext{ContactName: "Jane Doe"})
	assert.False(t, res.Found())

	res = a.Execute(context.Background(), model.SearchContext{Domain: "acme.com"})
	assert.False(t, res.Found())
}

func TestCandidateEmails_FilteredPermutations(t *testing.T) {
	got := CandidateEmails("Jane", "Doe", "acme.com")

	require.NotEmpty(t, got)
	assert.Equal(t, "jane.doe@acme.com", got[0])
	assert.Contains(t, got, "j.doe@acme.com")
	for _, e := range got {
		assert.NotContains(t, e, " ")
	}
}

func TestCandidateEmails_NoInputs(t *testing.T) {
	assert.Nil(t, CandidateEmails("", "Doe", "acme.com"))
	assert.Nil(t, CandidateEmails("Jane", "Doe", ""))
}
