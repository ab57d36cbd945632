package near

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	rpcCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slotvault_rpc_calls_total",
		Help: "Total NEAR JSON-RPC calls, labeled by outcome",
	}, []string{"method", "outcome"})

	rpcCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "slotvault_rpc_call_duration_seconds",
		Help:    "Latency distribution of NEAR JSON-RPC calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method"})
)

// Client is a minimal NEAR JSON-RPC client covering the three calls the
// service needs: view-function queries, access-key lookups and transaction
// broadcast. It never retries; failures propagate to the caller unchanged.
type Client struct {
	url    string
	client *http.Client
	log    *zap.Logger
	nextID atomic.Uint64
}

func NewClient(nodeURL string, log *zap.Logger) *Client {
	return &Client{
		url:    nodeURL,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	timer := prometheus.NewTimer(rpcCallDuration.WithLabelValues(method))
	defer timer.ObserveDuration()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		rpcCallsTotal.WithLabelValues(method, "transport_error").Inc()
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		rpcCallsTotal.WithLabelValues(method, "bad_response").Inc()
		return fmt.Errorf("rpc %s: decode response: %w", method, err)
	}
	if envelope.Error != nil {
		rpcCallsTotal.WithLabelValues(method, "rpc_error").Inc()
		c.log.Warn("rpc call rejected",
			zap.String("method", method),
			zap.Int("code", envelope.Error.Code),
			zap.String("message", envelope.Error.Message))
		return envelope.Error
	}

	rpcCallsTotal.WithLabelValues(method, "ok").Inc()
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("rpc %s: decode result: %w", method, err)
		}
	}
	return nil
}

// callFunctionResult mirrors the query/call_function result; the RPC encodes
// the return bytes as a JSON array of numbers.
type callFunctionResult struct {
	Result      []int    `json:"result"`
	Logs        []string `json:"logs"`
	BlockHeight uint64   `json:"block_height"`
}

// ViewFunction invokes a read-only contract method against final state and
// returns the raw result bytes (the method's JSON-encoded return value).
func (c *Client) ViewFunction(ctx context.Context, contractID, method string, args interface{}) ([]byte, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}

	var res callFunctionResult
	err = c.call(ctx, "query", map[string]interface{}{
		"request_type": "call_function",
		"finality":     "final",
		"account_id":   contractID,
		"method_name":  method,
		"args_base64":  base64.StdEncoding.EncodeToString(argsJSON),
	}, &res)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(res.Result))
	for i, b := range res.Result {
		out[i] = byte(b)
	}
	return out, nil
}

// AccessKeyView carries the nonce and a recent block hash, both needed to
// build the next transaction for the key.
type AccessKeyView struct {
	Nonce       uint64 `json:"nonce"`
	BlockHash   string `json:"block_hash"`
	BlockHeight uint64 `json:"block_height"`
}

// accessKeyResult also captures the error string some node versions embed in
// the result instead of returning a top-level JSON-RPC error.
type accessKeyResult struct {
	AccessKeyView
	Error string `json:"error"`
}

func (c *Client) ViewAccessKey(ctx context.Context, accountID, publicKey string) (*AccessKeyView, error) {
	var res accessKeyResult
	err := c.call(ctx, "query", map[string]interface{}{
		"request_type": "access_key",
		"finality":     "final",
		"account_id":   accountID,
		"public_key":   publicKey,
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, fmt.Errorf("access key %s for %s: %s", publicKey, accountID, res.Error)
	}
	return &res.AccessKeyView, nil
}

// ExecutionOutcome is the settled result of a change-method call.
type ExecutionOutcome struct {
	TxHash       string
	SuccessValue []byte
}

type txStatus struct {
	SuccessValue     *string         `json:"SuccessValue"`
	SuccessReceiptID *string         `json:"SuccessReceiptId"`
	Failure          json.RawMessage `json:"Failure"`
}

type txResult struct {
	Status      txStatus `json:"status"`
	Transaction struct {
		Hash string `json:"hash"`
	} `json:"transaction"`
}

// SendTransaction broadcasts a signed transaction and waits for its outcome.
// A contract-side rejection comes back as *ExecutionError.
func (c *Client) SendTransaction(ctx context.Context, signedTx []byte) (*ExecutionOutcome, error) {
	var res txResult
	params := []string{base64.StdEncoding.EncodeToString(signedTx)}
	if err := c.call(ctx, "broadcast_tx_commit", params, &res); err != nil {
		return nil, err
	}

	if len(res.Status.Failure) > 0 {
		return nil, newExecutionError(res.Status.Failure, res.Transaction.Hash)
	}

	outcome := &ExecutionOutcome{TxHash: res.Transaction.Hash}
	if res.Status.SuccessValue != nil && *res.Status.SuccessValue != "" {
		value, err := base64.StdEncoding.DecodeString(*res.Status.SuccessValue)
		if err != nil {
			return nil, fmt.Errorf("decode success value: %w", err)
		}
		outcome.SuccessValue = value
	}
	return outcome, nil
}

// CallChange builds, signs and submits a single function-call transaction
// under the signer's key: nonce and block hash come from the signer's access
// key, deposit is in yoctoNEAR.
func (c *Client) CallChange(ctx context.Context, signer *Signer, receiverID, method string, args interface{}, gas uint64, deposit *big.Int) (*ExecutionOutcome, error) {
	accessKey, err := c.ViewAccessKey(ctx, signer.AccountID, signer.Key.EncodedPublicKey())
	if err != nil {
		return nil, fmt.Errorf("access key for %s: %w", signer.AccountID, err)
	}

	blockHash, err := base58.Decode(accessKey.BlockHash)
	if err != nil || len(blockHash) != 32 {
		return nil, fmt.Errorf("malformed block hash %q", accessKey.BlockHash)
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}
	action, err := NewFunctionCall(method, argsJSON, gas, deposit)
	if err != nil {
		return nil, err
	}

	tx := Transaction{
		SignerID:   signer.AccountID,
		PublicKey:  signer.Key.PublicKey(),
		Nonce:      accessKey.Nonce + 1,
		ReceiverID: receiverID,
		Actions:    []Action{action},
	}
	copy(tx.BlockHash[:], blockHash)

	signedTx, err := SignTransaction(tx, signer.Key)
	if err != nil {
		return nil, err
	}

	c.log.Debug("broadcasting transaction",
		zap.String("signer", signer.AccountID),
		zap.String("receiver", receiverID),
		zap.String("method", method))
	return c.SendTransaction(ctx, signedTx)
}
