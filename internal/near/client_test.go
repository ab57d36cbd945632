package near

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newFakeRPC serves JSON-RPC responses produced by handler.
func newFakeRPC(t *testing.T, handler func(method string, params json.RawMessage) (interface{}, *RPCError)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		result, rpcErr := handler(req.Method, req.Params)
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, zap.NewNop())
}

func TestViewFunctionDecodesResultBytes(t *testing.T) {
	client := newFakeRPC(t, func(method string, params json.RawMessage) (interface{}, *RPCError) {
		assert.Equal(t, "query", method)

		var p map[string]string
		require.NoError(t, json.Unmarshal(params, &p))
		assert.Equal(t, "call_function", p["request_type"])
		assert.Equal(t, "slots.testnet", p["account_id"])
		assert.Equal(t, "get_credits", p["method_name"])

		args, err := base64.StdEncoding.DecodeString(p["args_base64"])
		require.NoError(t, err)
		assert.JSONEq(t, `{"account_id":"bob.testnet"}`, string(args))

		// The RPC encodes result bytes as a JSON array of numbers.
		return map[string]interface{}{"result": []int{34, 48, 34}, "logs": []string{}}, nil
	})

	raw, err := client.ViewFunction(context.Background(), "slots.testnet", "get_credits",
		map[string]string{"account_id": "bob.testnet"})
	require.NoError(t, err)
	assert.Equal(t, `"0"`, string(raw))
}

func TestViewFunctionSurfacesRPCError(t *testing.T) {
	client := newFakeRPC(t, func(string, json.RawMessage) (interface{}, *RPCError) {
		return nil, &RPCError{Code: -32000, Message: "Server error"}
	})

	_, err := client.ViewFunction(context.Background(), "slots.testnet", "get_credits", map[string]string{})
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
}

func TestViewAccessKeyRejectsResultEmbeddedError(t *testing.T) {
	// Some node versions report a missing key as an error string inside the
	// result instead of a top-level JSON-RPC error.
	client := newFakeRPC(t, func(method string, _ json.RawMessage) (interface{}, *RPCError) {
		assert.Equal(t, "query", method)
		return map[string]interface{}{
			"error":        "access key ed25519:doesnotexist does not exist while viewing",
			"block_height": uint64(1000),
			"block_hash":   "9xU4",
		}, nil
	})

	_, err := client.ViewAccessKey(context.Background(), "bob.testnet", "ed25519:doesnotexist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestSendTransactionClassifiesContractFailure(t *testing.T) {
	client := newFakeRPC(t, func(method string, _ json.RawMessage) (interface{}, *RPCError) {
		assert.Equal(t, "broadcast_tx_commit", method)
		return map[string]interface{}{
			"status":      json.RawMessage(`{"Failure":` + alreadyInitializedFailure + `}`),
			"transaction": map[string]string{"hash": "9xU4"},
		}, nil
	})

	_, err := client.SendTransaction(context.Background(), []byte{1, 2, 3})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "9xU4", execErr.TxHash)
	assert.True(t, IsAlreadyInitialized(err))
}

func TestCallChangeSignsAndBroadcasts(t *testing.T) {
	kp, pub := generateKey(t)
	signer := &Signer{AccountID: "bob.testnet", Key: kp}

	blockHash := make([]byte, 32)
	copy(blockHash, []byte("recent-block-hash"))

	deposit := new(big.Int)
	deposit.SetString("10000000000000000000000000", 10)

	client := newFakeRPC(t, func(method string, params json.RawMessage) (interface{}, *RPCError) {
		switch method {
		case "query":
			var p map[string]string
			require.NoError(t, json.Unmarshal(params, &p))
			assert.Equal(t, "access_key", p["request_type"])
			assert.Equal(t, "bob.testnet", p["account_id"])
			assert.Equal(t, kp.EncodedPublicKey(), p["public_key"])
			return map[string]interface{}{
				"nonce":        uint64(41),
				"block_hash":   base58.Encode(blockHash),
				"block_height": uint64(1000),
			}, nil

		case "broadcast_tx_commit":
			var p []string
			require.NoError(t, json.Unmarshal(params, &p))
			require.Len(t, p, 1)
			raw, err := base64.StdEncoding.DecodeString(p[0])
			require.NoError(t, err)

			var signedTx SignedTransaction
			require.NoError(t, borsh.Deserialize(&signedTx, raw))
			tx := signedTx.Transaction
			assert.Equal(t, "bob.testnet", tx.SignerID)
			assert.Equal(t, "slots.testnet", tx.ReceiverID)
			assert.Equal(t, uint64(42), tx.Nonce)
			assert.Equal(t, blockHash, tx.BlockHash[:])
			require.Len(t, tx.Actions, 1)
			fc := tx.Actions[0].FunctionCall
			assert.Equal(t, "deposit", fc.MethodName)
			assert.Equal(t, uint64(200_000_000_000_000), fc.Gas)
			assert.Equal(t, 0, fc.Deposit.Big().Cmp(deposit))

			payload, err := borsh.Serialize(tx)
			require.NoError(t, err)
			hash := sha256.Sum256(payload)
			assert.True(t, ed25519.Verify(pub, hash[:], signedTx.Signature.Data[:]))

			return map[string]interface{}{
				"status":      map[string]string{"SuccessValue": ""},
				"transaction": map[string]string{"hash": "FinalHash"},
			}, nil
		}
		t.Fatalf("unexpected rpc method %q", method)
		return nil, nil
	})

	outcome, err := client.CallChange(context.Background(), signer, "slots.testnet", "deposit",
		map[string]string{}, 200_000_000_000_000, deposit)
	require.NoError(t, err)
	assert.Equal(t, "FinalHash", outcome.TxHash)
}
