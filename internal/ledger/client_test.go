package ledger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientInvoke(t *testing.T) {
	var gotPath, gotFrom, gotSync string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFrom = r.URL.Query().Get("from")
		gotSync = r.URL.Query().Get("sync")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Invoke(context.Background(), "createPaymentDefinition", "0x0000000000000000000000000000000000000001", map[string]any{
		"paymentDefinitionID": "0x01",
		"name":                "d1",
	})
	require.NoError(t, err)

	assert.Equal(t, "/createPaymentDefinition", gotPath)
	assert.Equal(t, "0x0000000000000000000000000000000000000001", gotFrom)
	assert.Equal(t, "false", gotSync)

	var args map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &args))
	assert.Equal(t, "d1", args["name"])
}

func TestClientInvokeGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "revert", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Invoke(context.Background(), "createPaymentDefinition", "0x01", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revert")
}

func TestMultiClientFailover(t *testing.T) {
	var badCalls, goodCalls atomic.Int64
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badCalls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		goodCalls.Add(1)
	}))
	defer good.Close()

	m, err := NewMultiClient([]string{bad.URL, good.URL}, 2)
	require.NoError(t, err)

	err = m.Invoke(context.Background(), "createPaymentInstance", "0x01", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), badCalls.Load())
	assert.Equal(t, int64(1), goodCalls.Load())

	// The working endpoint is now the default.
	assert.Equal(t, good.URL, m.BaseURL())
	require.NoError(t, m.Invoke(context.Background(), "createPaymentInstance", "0x01", nil))
	assert.Equal(t, int64(1), badCalls.Load())
}

func TestMultiClientEmptyEndpoints(t *testing.T) {
	_, err := NewMultiClient([]string{"", "  "}, 3)
	assert.Error(t, err)
}
