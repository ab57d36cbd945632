package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/arvales/slotvault/internal/near"
)

// GasBudget bounds every change-method call at 200 Tgas.
const GasBudget = uint64(200_000_000_000_000)

// Caller is the slice of the RPC client the binding uses.
type Caller interface {
	ViewFunction(ctx context.Context, contractID, method string, args interface{}) ([]byte, error)
	CallChange(ctx context.Context, signer *near.Signer, receiverID, method string, args interface{}, gas uint64, deposit *big.Int) (*near.ExecutionOutcome, error)
}

// SlotMachine binds the deployed contract's view and change methods to one
// contract ID. It performs no retries and no unit conversion: amounts in and
// out are yoctoNEAR, exactly as the contract stores them.
type SlotMachine struct {
	rpc        Caller
	contractID string
	log        *zap.Logger
}

func NewSlotMachine(rpc Caller, contractID string, log *zap.Logger) *SlotMachine {
	return &SlotMachine{rpc: rpc, contractID: contractID, log: log}
}

func (s *SlotMachine) ContractID() string {
	return s.contractID
}

// GetCredits returns the credits balance for accountID. Accounts that never
// deposited read as zero.
func (s *SlotMachine) GetCredits(ctx context.Context, accountID string) (*big.Int, error) {
	raw, err := s.rpc.ViewFunction(ctx, s.contractID, "get_credits", map[string]string{
		"account_id": accountID,
	})
	if err != nil {
		return nil, fmt.Errorf("get_credits for %s: %w", accountID, err)
	}

	// The contract returns its U128 as a JSON decimal string.
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("get_credits returned %q: %w", raw, err)
	}
	credits, ok := new(big.Int).SetString(encoded, 10)
	if !ok {
		return nil, fmt.Errorf("get_credits returned non-numeric balance %q", encoded)
	}
	return credits, nil
}

// Deposit attaches amountYocto to the contract's deposit method, crediting
// the signer's balance by the same amount.
func (s *SlotMachine) Deposit(ctx context.Context, signer *near.Signer, amountYocto *big.Int) (*near.ExecutionOutcome, error) {
	outcome, err := s.rpc.CallChange(ctx, signer, s.contractID, "deposit", map[string]string{}, GasBudget, amountYocto)
	if err != nil {
		return nil, err
	}
	s.log.Info("deposit accepted",
		zap.String("account", signer.AccountID),
		zap.String("amount_yocto", amountYocto.String()),
		zap.String("tx", outcome.TxHash))
	return outcome, nil
}

// Play spends one NEAR of credits on a spin and returns the byte the
// contract drew.
func (s *SlotMachine) Play(ctx context.Context, signer *near.Signer) (uint8, *near.ExecutionOutcome, error) {
	outcome, err := s.rpc.CallChange(ctx, signer, s.contractID, "play", map[string]string{}, GasBudget, nil)
	if err != nil {
		return 0, nil, err
	}

	var drawn uint8
	if err := json.Unmarshal(outcome.SuccessValue, &drawn); err != nil {
		return 0, nil, fmt.Errorf("play returned %q: %w", outcome.SuccessValue, err)
	}
	return drawn, outcome, nil
}

// Init performs the one-time new(owner_id) call. The contract refusing a
// second initialization is expected and swallowed; any other failure
// propagates.
func (s *SlotMachine) Init(ctx context.Context, signer *near.Signer, ownerID string) error {
	_, err := s.rpc.CallChange(ctx, signer, s.contractID, "new", map[string]string{
		"owner_id": ownerID,
	}, GasBudget, nil)
	if err != nil {
		if near.IsAlreadyInitialized(err) {
			s.log.Info("contract already initialized", zap.String("contract", s.contractID))
			return nil
		}
		return fmt.Errorf("initialize contract %s: %w", s.contractID, err)
	}

	s.log.Info("contract initialized",
		zap.String("contract", s.contractID),
		zap.String("owner", ownerID))
	return nil
}
