package near

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// RPCError is a failure reported by the JSON-RPC server itself (bad request,
// unknown account, handler errors).
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ExecutionError is a contract-side failure: the transaction was accepted by
// the network but the receiver's code rejected it.
type ExecutionError struct {
	TxHash  string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed (tx %s): %s", e.TxHash, e.Message)
}

func newExecutionError(failure json.RawMessage, txHash string) *ExecutionError {
	msg := executionMessage(failure)
	if msg == "" {
		msg = string(failure)
	}
	return &ExecutionError{TxHash: txHash, Message: msg}
}

// executionMessage digs the human-readable panic text out of the nested
// failure structure (ActionError -> FunctionCallError -> ExecutionError).
func executionMessage(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return findExecutionError(v)
}

func findExecutionError(v interface{}) string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	if s, ok := m["ExecutionError"].(string); ok {
		return s
	}
	for _, child := range m {
		if s := findExecutionError(child); s != "" {
			return s
		}
	}
	return ""
}

// The contract only signals these conditions through its panic text, so the
// substring checks are confined to the two predicates below.

// IsAlreadyInitialized reports whether err is the contract refusing a second
// initialization call.
func IsAlreadyInitialized(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee) && strings.Contains(ee.Message, "Already initialized!")
}

// IsNoCredits reports whether err is the contract refusing a play because the
// caller's credits are exhausted.
func IsNoCredits(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee) && strings.Contains(ee.Message, "No credits to play")
}
