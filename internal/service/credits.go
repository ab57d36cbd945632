package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/arvales/slotvault/internal/models"
	"github.com/arvales/slotvault/internal/near"
)

var (
	ErrSubmissionInFlight = errors.New("another submission is in flight")
	ErrInvalidAmount      = errors.New("amount must be a positive number of NEAR")
)

// yoctoExponent converts whole NEAR to the contract's base unit (10^24).
const yoctoExponent = 24

// cacheTTL bounds how stale a cached credits read may be before the next
// GetCredits goes back to the contract.
const cacheTTL = 5 * time.Second

// Binding is the contract surface the service drives.
type Binding interface {
	GetCredits(ctx context.Context, accountID string) (*big.Int, error)
	Deposit(ctx context.Context, signer *near.Signer, amountYocto *big.Int) (*near.ExecutionOutcome, error)
	Play(ctx context.Context, signer *near.Signer) (uint8, *near.ExecutionOutcome, error)
}

// Receipts is the persistence slice the service writes through. Writes are
// best-effort: a failed receipt never fails the call that produced it.
type Receipts interface {
	RecordReceipt(ctx context.Context, accountID, kind string, amountYocto *big.Int, txHash string) (int64, error)
	GetReceipts(ctx context.Context, accountID string) ([]models.Receipt, error)
	UpsertSnapshot(ctx context.Context, accountID string, credits *big.Int) error
	GetSnapshot(ctx context.Context, accountID string) (*big.Int, error)
}

type cachedCredits struct {
	credits   *big.Int
	fetchedAt time.Time
}

// CreditsService owns the view/update cycle: cached credit reads, guarded
// deposits and plays, and the transient notification that follows a deposit.
type CreditsService struct {
	binding       Binding
	receipts      Receipts
	Notifications *Notifications
	log           *zap.Logger

	sf      singleflight.Group
	mu      sync.Mutex
	cache   map[string]cachedCredits
	pending map[string]bool

	now func() time.Time
}

func NewCreditsService(binding Binding, receipts Receipts, notifications *Notifications, log *zap.Logger) *CreditsService {
	return &CreditsService{
		binding:       binding,
		receipts:      receipts,
		Notifications: notifications,
		log:           log,
		cache:         make(map[string]cachedCredits),
		pending:       make(map[string]bool),
		now:           time.Now,
	}
}

// GetCredits returns the account's credits, served from the cache while it is
// fresh. Fetch failures are surfaced to the caller, never swallowed.
func (s *CreditsService) GetCredits(ctx context.Context, accountID string) (models.Credits, error) {
	s.mu.Lock()
	entry, ok := s.cache[accountID]
	s.mu.Unlock()
	if ok && s.now().Sub(entry.fetchedAt) < cacheTTL {
		return s.view(accountID, entry), nil
	}
	return s.fetch(ctx, accountID)
}

// fetch goes to the contract, collapsing concurrent fetches for the same
// account into one RPC call.
func (s *CreditsService) fetch(ctx context.Context, accountID string) (models.Credits, error) {
	v, err, _ := s.sf.Do(accountID, func() (interface{}, error) {
		credits, err := s.binding.GetCredits(ctx, accountID)
		if err != nil {
			s.log.Warn("credits fetch failed", zap.String("account", accountID), zap.Error(err))
			return nil, err
		}

		entry := cachedCredits{credits: credits, fetchedAt: s.now()}
		s.mu.Lock()
		s.cache[accountID] = entry
		s.mu.Unlock()

		if err := s.receipts.UpsertSnapshot(ctx, accountID, credits); err != nil {
			s.log.Warn("snapshot write failed", zap.String("account", accountID), zap.Error(err))
		}
		return entry, nil
	})
	if err != nil {
		return models.Credits{}, fmt.Errorf("fetch credits: %w", err)
	}
	return s.view(accountID, v.(cachedCredits)), nil
}

func (s *CreditsService) view(accountID string, entry cachedCredits) models.Credits {
	return models.Credits{
		AccountID: accountID,
		Yocto:     entry.credits.String(),
		Near:      decimal.NewFromBigInt(entry.credits, -yoctoExponent).String(),
		FetchedAt: entry.fetchedAt,
	}
}

// ParseAmount converts a whole-NEAR decimal string into yoctoNEAR.
func ParseAmount(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil || !d.IsPositive() {
		return nil, ErrInvalidAmount
	}
	yocto := d.Shift(yoctoExponent)
	if !yocto.IsInteger() {
		return nil, ErrInvalidAmount
	}
	return yocto.BigInt(), nil
}

// begin reserves the account's single submission slot, the equivalent of
// disabling the form while a call is pending.
func (s *CreditsService) begin(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[accountID] {
		return ErrSubmissionInFlight
	}
	s.pending[accountID] = true
	return nil
}

func (s *CreditsService) end(accountID string) {
	s.mu.Lock()
	delete(s.pending, accountID)
	s.mu.Unlock()
}

// Deposit submits amountYocto to the contract under the signer's key. The
// submission slot is released as soon as the remote call resolves, success or
// failure, before any of the post-success bookkeeping runs.
func (s *CreditsService) Deposit(ctx context.Context, signer *near.Signer, amountYocto *big.Int) (models.DepositResponse, error) {
	if err := s.begin(signer.AccountID); err != nil {
		return models.DepositResponse{}, err
	}

	outcome, err := s.binding.Deposit(ctx, signer, amountYocto)
	s.end(signer.AccountID)
	if err != nil {
		s.log.Error("deposit failed",
			zap.String("account", signer.AccountID),
			zap.String("amount_yocto", amountYocto.String()),
			zap.Error(err))
		return models.DepositResponse{}, err
	}

	receipt := s.record(ctx, signer.AccountID, "deposit", amountYocto, outcome.TxHash)
	credits := s.refresh(ctx, signer.AccountID)
	s.Notifications.Publish(signer.AccountID, outcome.TxHash)

	return models.DepositResponse{Receipt: receipt, Credits: credits}, nil
}

// Play spends one NEAR of credits on a spin.
func (s *CreditsService) Play(ctx context.Context, signer *near.Signer) (models.PlayResponse, error) {
	if err := s.begin(signer.AccountID); err != nil {
		return models.PlayResponse{}, err
	}

	drawn, outcome, err := s.binding.Play(ctx, signer)
	s.end(signer.AccountID)
	if err != nil {
		s.log.Error("play failed", zap.String("account", signer.AccountID), zap.Error(err))
		return models.PlayResponse{}, err
	}

	stake := new(big.Int).Exp(big.NewInt(10), big.NewInt(yoctoExponent), nil)
	receipt := s.record(ctx, signer.AccountID, "play", stake, outcome.TxHash)
	credits := s.refresh(ctx, signer.AccountID)

	return models.PlayResponse{
		Drawn:   drawn,
		Won:     drawn < 128,
		Receipt: receipt,
		Credits: credits,
	}, nil
}

// Receipts lists the account's receipt history, newest first.
func (s *CreditsService) Receipts(ctx context.Context, accountID string) ([]models.Receipt, error) {
	return s.receipts.GetReceipts(ctx, accountID)
}

func (s *CreditsService) record(ctx context.Context, accountID, kind string, amountYocto *big.Int, txHash string) models.Receipt {
	receipt := models.Receipt{
		AccountID:   accountID,
		Kind:        kind,
		AmountYocto: amountYocto.String(),
		TxHash:      txHash,
		CreatedAt:   s.now(),
	}
	id, err := s.receipts.RecordReceipt(ctx, accountID, kind, amountYocto, txHash)
	if err != nil {
		s.log.Warn("receipt write failed", zap.String("account", accountID), zap.Error(err))
		return receipt
	}
	receipt.ID = id
	return receipt
}

// refresh re-fetches credits after a successful change call. The call already
// succeeded, so a failed refresh only degrades the returned view: first to the
// in-memory cache, then to the persisted snapshot.
func (s *CreditsService) refresh(ctx context.Context, accountID string) models.Credits {
	credits, err := s.fetch(ctx, accountID)
	if err != nil {
		s.log.Warn("post-submit refresh failed", zap.String("account", accountID), zap.Error(err))
		s.mu.Lock()
		entry, ok := s.cache[accountID]
		s.mu.Unlock()
		if ok {
			return s.view(accountID, entry)
		}
		snapshot, snapErr := s.receipts.GetSnapshot(ctx, accountID)
		if snapErr != nil {
			s.log.Warn("snapshot read failed", zap.String("account", accountID), zap.Error(snapErr))
		}
		if snapshot != nil {
			return s.view(accountID, cachedCredits{credits: snapshot})
		}
		return models.Credits{AccountID: accountID}
	}
	return credits
}
