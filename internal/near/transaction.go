package near

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/near/borsh-go"
)

// PublicKey is the protocol's key representation (key type byte + raw key).
type PublicKey struct {
	KeyType uint8
	Data    [32]byte
}

type Signature struct {
	KeyType uint8
	Data    [64]byte
}

// U128 is an unsigned 128-bit integer in the protocol's little-endian layout.
// Balances and attached deposits are denominated in yoctoNEAR (10^-24 NEAR).
type U128 [16]byte

func NewU128(v *big.Int) (U128, error) {
	var u U128
	if v == nil {
		return u, nil
	}
	if v.Sign() < 0 {
		return u, fmt.Errorf("amount %s is negative", v)
	}
	if v.BitLen() > 128 {
		return u, fmt.Errorf("amount %s overflows u128", v)
	}
	be := v.Bytes()
	for i, b := range be {
		u[len(be)-1-i] = b
	}
	return u, nil
}

func (u U128) Big() *big.Int {
	be := make([]byte, 16)
	for i := range u {
		be[15-i] = u[i]
	}
	return new(big.Int).SetBytes(be)
}

// Transaction is the borsh payload signed and submitted to the network.
type Transaction struct {
	SignerID   string
	PublicKey  PublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []Action
}

type SignedTransaction struct {
	Transaction Transaction
	Signature   Signature
}

// Action variants. The declaration order fixes the borsh enum tags and must
// match the protocol exactly.
type Action struct {
	Enum           borsh.Enum `borsh_enum:"true"`
	CreateAccount  CreateAccount
	DeployContract DeployContract
	FunctionCall   FunctionCall
	Transfer       Transfer
	Stake          Stake
	AddKey         AddKey
	DeleteKey      DeleteKey
	DeleteAccount  DeleteAccount
}

const actionFunctionCall = 2

type CreateAccount struct{}

type DeployContract struct {
	Code []byte
}

type FunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    U128
}

type Transfer struct {
	Deposit U128
}

type Stake struct {
	Stake     U128
	PublicKey PublicKey
}

type AccessKeyPermission struct {
	Enum         borsh.Enum `borsh_enum:"true"`
	FunctionCall FunctionCallPermission
	FullAccess   struct{}
}

type FunctionCallPermission struct {
	Allowance   *U128
	ReceiverID  string
	MethodNames []string
}

type AccessKey struct {
	Nonce      uint64
	Permission AccessKeyPermission
}

type AddKey struct {
	PublicKey PublicKey
	AccessKey AccessKey
}

type DeleteKey struct {
	PublicKey PublicKey
}

type DeleteAccount struct {
	BeneficiaryID string
}

// NewFunctionCall builds a function-call action. A nil deposit attaches
// nothing.
func NewFunctionCall(method string, args []byte, gas uint64, deposit *big.Int) (Action, error) {
	amount, err := NewU128(deposit)
	if err != nil {
		return Action{}, err
	}
	return Action{
		Enum: actionFunctionCall,
		FunctionCall: FunctionCall{
			MethodName: method,
			Args:       args,
			Gas:        gas,
			Deposit:    amount,
		},
	}, nil
}

// SignTransaction serializes tx, signs the sha256 of the payload and returns
// the borsh-encoded signed transaction ready for broadcast.
func SignTransaction(tx Transaction, key *KeyPair) ([]byte, error) {
	payload, err := borsh.Serialize(tx)
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}
	hash := sha256.Sum256(payload)

	signed := SignedTransaction{
		Transaction: tx,
		Signature:   Signature{KeyType: 0, Data: key.sign(hash[:])},
	}
	out, err := borsh.Serialize(signed)
	if err != nil {
		return nil, fmt.Errorf("serialize signed transaction: %w", err)
	}
	return out, nil
}
