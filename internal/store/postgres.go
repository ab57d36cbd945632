package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arvales/slotvault/internal/models"
)

// Store persists deposit/play receipts and the lagging credit snapshots.
// The contract remains the source of truth; everything here is bookkeeping.
type Store struct {
	Db *pgxpool.Pool
}

func NewStore(connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Db: pool}, nil
}

func (s *Store) Close() {
	s.Db.Close()
}

// RecordReceipt inserts a receipt row and returns its ID.
func (s *Store) RecordReceipt(ctx context.Context, accountID, kind string, amountYocto *big.Int, txHash string) (int64, error) {
	var id int64
	err := s.Db.QueryRow(ctx,
		"INSERT INTO receipts (account_id, kind, amount_yocto, tx_hash) VALUES ($1, $2, $3, $4) RETURNING id",
		accountID, kind, amountYocto.String(), txHash,
	).Scan(&id)
	return id, err
}

// GetReceipts retrieves receipts for one account, newest first.
func (s *Store) GetReceipts(ctx context.Context, accountID string) ([]models.Receipt, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT id, account_id, kind, amount_yocto, tx_hash, created_at FROM receipts WHERE account_id = $1 ORDER BY created_at DESC",
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	receipts := []models.Receipt{}
	for rows.Next() {
		var r models.Receipt
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Kind, &r.AmountYocto, &r.TxHash, &r.CreatedAt); err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

// UpsertSnapshot records the credits value observed by the latest fetch.
func (s *Store) UpsertSnapshot(ctx context.Context, accountID string, credits *big.Int) error {
	_, err := s.Db.Exec(ctx,
		`INSERT INTO credit_snapshots (account_id, credits_yocto, fetched_at) VALUES ($1, $2, now())
		 ON CONFLICT (account_id) DO UPDATE SET credits_yocto = $2, fetched_at = now()`,
		accountID, credits.String())
	return err
}

// GetSnapshot returns the last observed credits value, or nil when the
// account was never fetched.
func (s *Store) GetSnapshot(ctx context.Context, accountID string) (*big.Int, error) {
	var encoded string
	err := s.Db.QueryRow(ctx,
		"SELECT credits_yocto FROM credit_snapshots WHERE account_id = $1",
		accountID).Scan(&encoded)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	credits, ok := new(big.Int).SetString(encoded, 10)
	if !ok {
		return nil, fmt.Errorf("snapshot for %s is non-numeric: %q", accountID, encoded)
	}
	return credits, nil
}
