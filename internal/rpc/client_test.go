package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// rpcServer fakes a node: handler gets the decoded method and params and
// returns the full response body.
func rpcServer(t *testing.T, handler func(req rpcRequest) any) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(handler(req))
	}))
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      5 * time.Second,
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
	})
}

func TestClient_SendTransaction(t *testing.T) {
	c := rpcServer(t, func(req rpcRequest) any {
		assert.Equal(t, "sendTransaction", req.Method)

		var params []json.RawMessage
		require.NoError(t, json.Unmarshal(req.Params, &params))
		require.Len(t, params, 2)

		var opts map[string]any
		require.NoError(t, json.Unmarshal(params[1], &opts))
		assert.Equal(t, "base64", opts["encoding"])
		assert.Equal(t, true, opts["skipPreflight"])
		assert.Equal(t, "processed", opts["preflightCommitment"])

		return map[string]any{"result": "sig-abc"}
	})

	sig, err := c.SendTransaction(context.Background(), "dHgtYnl0ZXM=", SendOptions{
		SkipPreflight:       true,
		PreflightCommitment: "processed",
		MaxRetries:          3,
	})
	require.NoError(t, err)
	assert.Equal(t, "sig-abc", sig)
}

func TestClient_SendTransaction_NodeError(t *testing.T) {
	c := rpcServer(t, func(req rpcRequest) any {
		return map[string]any{
			"error": map[string]any{"code": -32002, "message": "blockhash not found"},
		}
	})

	_, err := c.SendTransaction(context.Background(), "dHg=", SendOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blockhash not found")
}

func TestClient_GetSignatureStatuses(t *testing.T) {
	c := rpcServer(t, func(req rpcRequest) any {
		assert.Equal(t, "getSignatureStatuses", req.Method)
		return map[string]any{
			"result": map[string]any{
				"value": []any{
					nil, // unseen signature
					map[string]any{"slot": 99, "confirmationStatus": "confirmed"},
				},
			},
		}
	})

	statuses, err := c.GetSignatureStatuses(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Nil(t, statuses[0])
	require.NotNil(t, statuses[1])
	assert.Equal(t, "confirmed", statuses[1].ConfirmationStatus)
}

func TestClient_GetBalance(t *testing.T) {
	c := rpcServer(t, func(req rpcRequest) any {
		assert.Equal(t, "getBalance", req.Method)
		return map[string]any{"result": map[string]any{"value": 2_500_000_000}}
	})

	lamports, err := c.GetBalance(context.Background(), "some-address", "confirmed")
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000_000), lamports)
}

func TestClient_GetTokenSupply(t *testing.T) {
	c := rpcServer(t, func(req rpcRequest) any {
		assert.Equal(t, "getTokenSupply", req.Method)
		return map[string]any{
			"result": map[string]any{
				"value": map[string]any{"amount": "1000000000", "decimals": 6},
			},
		}
	})

	supply, err := c.GetTokenSupply(context.Background(), "some-mint")
	require.NoError(t, err)
	assert.Equal(t, uint8(6), supply.Decimals)
	assert.Equal(t, "1000000000", supply.Amount)
}

func TestClient_GetTransaction_AccountKeys(t *testing.T) {
	c := rpcServer(t, func(req rpcRequest) any {
		assert.Equal(t, "getTransaction", req.Method)
		return map[string]any{
			"result": map[string]any{
				"transaction": map[string]any{
					"message": map[string]any{
						"accountKeys": []any{
							map[string]any{"pubkey": "fee-payer"},
							map[string]any{"pubkey": "program"},
						},
					},
				},
			},
		}
	})

	tx, err := c.GetTransaction(context.Background(), "sig")
	require.NoError(t, err)
	require.NotNil(t, tx.Result)
	require.NotNil(t, tx.Result.Transaction)
	keys := tx.Result.Transaction.Message.AccountKeys
	require.Len(t, keys, 2)
	assert.Equal(t, "fee-payer", keys[0].Pubkey)
}

func TestClient_GetSignaturesForAddress_RPCError(t *testing.T) {
	c := rpcServer(t, func(req rpcRequest) any {
		return map[string]any{
			"error": map[string]any{"code": -32602, "message": "invalid address"},
		}
	})

	_, err := c.GetSignaturesForAddress(context.Background(), "bogus", map[string]interface{}{"limit": 10})
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"value": 1}})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      5 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})

	lamports, err := c.GetBalance(context.Background(), "addr", "confirmed")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), lamports)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestClient_RetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      time.Second,
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
	})

	_, err := c.GetBalance(context.Background(), "addr", "confirmed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
}
