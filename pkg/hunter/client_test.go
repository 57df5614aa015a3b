package hunter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindEmail_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email-finder", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "acme.com", q.Get("domain"))
		assert.Equal(t, "Jane", q.Get("first_name"))
		assert.Equal(t, "Doe", q.Get("last_name"))
		assert.Equal(t, "key-123", q.Get("api_key"))

		json.NewEncoder(w).Encode(FindResponse{Data: FindData{
			Email: "jane.doe@acme.com",
			Score: 0.72,
		}})
	}))
	defer srv.Close()

	c := NewClient("key-123", WithBaseURL(srv.URL))
	resp, err := c.FindEmail(context.Background(), FindRequest{Domain: "acme.com", FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@acme.com", resp.Data.Email)
	assert.InDelta(t, 0.72, resp.Data.Score, 0.001)
}

func TestFindEmail_SingleTokenNameOmitsLast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("last_name"))
		json.NewEncoder(w).Encode(FindResponse{})
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.FindEmail(context.Background(), FindRequest{Domain: "acme.com", FirstName: "Cher"})
	require.NoError(t, err)
}

func TestFindEmail_APILevelErrorOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(FindResponse{Errors: []APIError{{ID: "wrong_params", Code: 400, Details: "no domain"}}})
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	resp, err := c.FindEmail(context.Background(), FindRequest{FirstName: "Jane"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Errors)
	assert.Empty(t, resp.Data.Email)
}

func TestFindEmail_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.FindEmail(context.Background(), FindRequest{Domain: "acme.com", FirstName: "Jane"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429")
}
