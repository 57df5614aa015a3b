package apollo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchPerson_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/people/match", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("X-Api-Key"))

		var req MatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Jane Doe", req.Name)

		json.NewEncoder(w).Encode(MatchResponse{Person: &Person{
			Name:  "Jane Doe",
			Title: "CEO",
			Email: "jane.doe@acme.com",
		}})
	}))
	defer srv.Close()

	c := NewClient("key-123", WithBaseURL(srv.URL))
	resp, err := c.MatchPerson(context.Background(), MatchRequest{Name: "Jane Doe", OrganizationName: "Acme Corp"})
	require.NoError(t, err)
	require.NotNil(t, resp.Person)
	assert.Equal(t, "jane.doe@acme.com", resp.Person.Email)
	assert.Equal(t, "CEO", resp.Person.Title)
}

func TestMatchPerson_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(MatchResponse{})
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	resp, err := c.MatchPerson(context.Background(), MatchRequest{Name: "Nobody"})
	require.NoError(t, err)
	assert.Nil(t, resp.Person)
}

func TestMatchPerson_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.MatchPerson(context.Background(), MatchRequest{Name: "Jane Doe"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}
