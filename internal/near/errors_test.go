package near

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

const alreadyInitializedFailure = `{
	"ActionError": {
		"index": 0,
		"kind": {
			"FunctionCallError": {
				"ExecutionError": "Smart contract panicked: Already initialized!"
			}
		}
	}
}`

func TestExecutionMessageExtraction(t *testing.T) {
	err := newExecutionError(json.RawMessage(alreadyInitializedFailure), "9xU4")
	assert.Equal(t, "Smart contract panicked: Already initialized!", err.Message)
	assert.Contains(t, err.Error(), "9xU4")
}

func TestExecutionMessageFallsBackToRawFailure(t *testing.T) {
	err := newExecutionError(json.RawMessage(`{"InvalidTxError":"InvalidNonce"}`), "tx")
	assert.Contains(t, err.Message, "InvalidNonce")
}

func TestIsAlreadyInitialized(t *testing.T) {
	execErr := newExecutionError(json.RawMessage(alreadyInitializedFailure), "tx")
	assert.True(t, IsAlreadyInitialized(execErr))

	// Wrapping must not defeat classification.
	assert.True(t, IsAlreadyInitialized(fmt.Errorf("initialize contract: %w", execErr)))

	assert.False(t, IsAlreadyInitialized(errors.New("Already initialized!")))
	assert.False(t, IsAlreadyInitialized(&ExecutionError{Message: "Invalid owner account!"}))
}

func TestIsNoCredits(t *testing.T) {
	assert.True(t, IsNoCredits(&ExecutionError{Message: "Smart contract panicked: No credits to play!!!"}))
	assert.False(t, IsNoCredits(&ExecutionError{Message: "Already initialized!"}))
	assert.False(t, IsNoCredits(errors.New("No credits to play!!!")))
}
