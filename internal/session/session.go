package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arvales/slotvault/internal/near"
)

// Verifier checks that a presented key really is an access key of the
// account, so a session is only issued for a signable identity.
type Verifier interface {
	ViewAccessKey(ctx context.Context, accountID, publicKey string) (*near.AccessKeyView, error)
}

// Manager issues and resolves bearer-token sessions. A session carries the
// signer used for the account's change calls.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*near.Signer
	verifier Verifier
	log      *zap.Logger
}

func NewManager(verifier Verifier, log *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*near.Signer),
		verifier: verifier,
		log:      log,
	}
}

// SignIn validates the key against the chain and returns a session token.
func (m *Manager) SignIn(ctx context.Context, accountID, secretKey string) (string, error) {
	signer, err := near.NewSigner(accountID, secretKey)
	if err != nil {
		return "", err
	}

	if _, err := m.verifier.ViewAccessKey(ctx, accountID, signer.Key.EncodedPublicKey()); err != nil {
		return "", fmt.Errorf("key is not registered for %s: %w", accountID, err)
	}

	token := uuid.NewString()
	m.mu.Lock()
	m.sessions[token] = signer
	m.mu.Unlock()

	m.log.Info("session opened", zap.String("account", accountID))
	return token, nil
}

// Lookup resolves a token to its signer.
func (m *Manager) Lookup(token string) (*near.Signer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	signer, ok := m.sessions[token]
	return signer, ok
}

// SignOut destroys the session; unknown tokens are a no-op.
func (m *Manager) SignOut(token string) {
	m.mu.Lock()
	signer, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()

	if ok {
		m.log.Info("session closed", zap.String("account", signer.AccountID))
	}
}

type contextKey struct{}

// WithSigner attaches the session's signer to the request context.
func WithSigner(ctx context.Context, signer *near.Signer) context.Context {
	return context.WithValue(ctx, contextKey{}, signer)
}

// FromContext returns the signed-in identity, if any.
func FromContext(ctx context.Context) (*near.Signer, bool) {
	signer, ok := ctx.Value(contextKey{}).(*near.Signer)
	return signer, ok
}
