package models

import "time"

// Credits is the locally cached view of an account's balance. It lags the
// contract: it is only as fresh as the last completed fetch.
type Credits struct {
	AccountID string    `json:"account_id"`
	Yocto     string    `json:"credits_yocto"`
	Near      string    `json:"credits_near"`
	FetchedAt time.Time `json:"fetched_at"`
}

// DepositRequest is the payload from the client; Amount is whole NEAR as a
// decimal string.
type DepositRequest struct {
	Amount string `json:"amount"`
}

// Receipt is the persistent record of one accepted change call.
type Receipt struct {
	ID          int64     `json:"id"`
	AccountID   string    `json:"account_id"`
	Kind        string    `json:"kind"` // deposit | play
	AmountYocto string    `json:"amount_yocto"`
	TxHash      string    `json:"tx_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

type DepositResponse struct {
	Receipt Receipt `json:"receipt"`
	Credits Credits `json:"credits"`
}

type PlayResponse struct {
	Drawn   uint8   `json:"drawn"`
	Won     bool    `json:"won"`
	Receipt Receipt `json:"receipt"`
	Credits Credits `json:"credits"`
}

// Notification is the transient post-deposit banner. It stays visible until
// ExpiresAt; a later deposit replaces it wholesale.
type Notification struct {
	AccountID   string    `json:"account_id"`
	TxHash      string    `json:"tx_hash"`
	ExplorerURL string    `json:"explorer_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type SessionRequest struct {
	AccountID string `json:"account_id"`
	SecretKey string `json:"secret_key"`
}

type SessionResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
}
