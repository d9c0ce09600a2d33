package exchangerate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/latest/BRL", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"BRL","date":"2024-05-01","rates":{"BRL":1,"USD":0.20,"EUR":0.19}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	table, err := client.FetchRates(context.Background(), "BRL")
	require.NoError(t, err)

	assert.Equal(t, "BRL", table.Base)
	assert.Len(t, table.Rates, 3)

	usd, ok := table.Rate("USD")
	require.True(t, ok)
	assert.InDelta(t, 0.20, usd, 1e-9)
}

func TestFetchRatesRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"base":"BRL","rates":{"USD":0.20}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	table, err := client.FetchRates(context.Background(), "BRL")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())

	_, ok := table.Rate("USD")
	assert.True(t, ok)
}

func TestFetchRatesDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchRates(context.Background(), "XYZ")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetchRatesDropsNonPositiveFactors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"base":"BRL","rates":{"USD":0.20,"BAD":-1,"ZERO":0}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	table, err := client.FetchRates(context.Background(), "BRL")
	require.NoError(t, err)

	assert.Len(t, table.Rates, 1)
	_, ok := table.Rate("BAD")
	assert.False(t, ok)
}

func TestFetchRatesRejectsEmptyTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"base":"BRL","rates":{}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchRates(context.Background(), "BRL")
	assert.Error(t, err)
}
