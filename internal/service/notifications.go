package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/arvales/slotvault/internal/models"
)

// visibleFor is how long a post-deposit notification stays active.
const visibleFor = 11 * time.Second

// Notifications tracks the transient per-account banner shown after a
// successful deposit. A re-trigger replaces the previous notification and its
// expiry outright, so there is never more than one countdown per account.
type Notifications struct {
	mu          sync.Mutex
	active      map[string]models.Notification
	explorerURL string
	now         func() time.Time
}

func NewNotifications(explorerURL string) *Notifications {
	return &Notifications{
		active:      make(map[string]models.Notification),
		explorerURL: explorerURL,
		now:         time.Now,
	}
}

// Publish makes the notification visible for the fixed duration, replacing
// any still-active one.
func (n *Notifications) Publish(accountID, txHash string) models.Notification {
	note := models.Notification{
		AccountID:   accountID,
		TxHash:      txHash,
		ExplorerURL: fmt.Sprintf("%s/transactions/%s", n.explorerURL, txHash),
		ExpiresAt:   n.now().Add(visibleFor),
	}

	n.mu.Lock()
	n.active[accountID] = note
	n.mu.Unlock()
	return note
}

// Active returns the account's notification while its window is open.
// Expired entries are dropped on the way out.
func (n *Notifications) Active(accountID string) (models.Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	note, ok := n.active[accountID]
	if !ok {
		return models.Notification{}, false
	}
	if !n.now().Before(note.ExpiresAt) {
		delete(n.active, accountID)
		return models.Notification{}, false
	}
	return note, true
}
