package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCredits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/credits", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"balance": 42, "is_blocked": false}`)
	}))
	defer srv.Close()

	ledger := NewLedger(srv.URL, "test-key")
	status, err := ledger.CheckCredits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, status.Balance)
	assert.False(t, status.IsBlocked)
}

func TestCheckCredits_BlockedAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"balance": 0, "is_blocked": true}`)
	}))
	defer srv.Close()

	status, err := NewLedger(srv.URL, "test-key").CheckCredits(context.Background())
	require.NoError(t, err)
	assert.True(t, status.IsBlocked)
}

func TestCheckCredits_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewLedger(srv.URL, "test-key").CheckCredits(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestChargeForEmailSearch_Found(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/charges/email-search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"success": true, "charged": true, "new_balance": 41}`)
	}))
	defer srv.Close()

	res, err := NewLedger(srv.URL, "test-key", WithSearchCost(2)).
		ChargeForEmailSearch(context.Background(), "contact-1", true)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Charged)
	assert.Equal(t, 41, res.NewBalance)
	assert.Equal(t, "contact-1", got["contact_id"])
	assert.Equal(t, float64(2), got["amount"])
}

func TestChargeForEmailSearch_NotFoundNeverCallsEndpoint(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls++
	}))
	defer srv.Close()

	res, err := NewLedger(srv.URL, "test-key").
		ChargeForEmailSearch(context.Background(), "contact-1", false)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Charged)
	assert.Zero(t, calls)
}

func TestChargeForEmailSearch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "payment provider down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewLedger(srv.URL, "test-key").
		ChargeForEmailSearch(context.Background(), "contact-1", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}
