// Package ledger maintains the unified, owner-scoped, chronologically
// ordered in-memory view of transactions.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/model"
	"github.com/centavo-app/centavo/internal/service"
)

// DefaultRefreshInterval is the cadence of the background refresh
// while an owner identity is present.
const DefaultRefreshInterval = 5 * time.Minute

// Store assembles the ledger from the persistence gateway and
// serializes all mutating operations' effects into one list.
//
// Overlapping refreshes are not prevented: the last one to complete
// wins. This is an accepted limitation, not a guarantee.
type Store struct {
	gateway  service.Gateway
	interval time.Duration

	mu          sync.RWMutex
	ownerID     string
	list        []model.Transaction
	loading     bool
	err         error
	lastRefresh time.Time

	stopAuto context.CancelFunc
	wg       sync.WaitGroup
}

// Option customizes a Store.
type Option func(*Store)

// WithRefreshInterval overrides the auto-refresh cadence.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Store) { s.interval = d }
}

// NewStore creates a ledger store backed by gateway. No background
// work starts until an owner identity is set.
func NewStore(gateway service.Gateway, opts ...Option) *Store {
	s := &Store{
		gateway:  gateway,
		interval: DefaultRefreshInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetOwner switches the store to a new owner identity. A non-empty id
// starts the periodic auto-refresh; an empty id clears the ledger and
// stops it.
func (s *Store) SetOwner(id string) {
	s.mu.Lock()
	if s.ownerID == id {
		s.mu.Unlock()
		return
	}
	if s.stopAuto != nil {
		s.stopAuto()
		s.stopAuto = nil
	}
	s.ownerID = id
	s.list = nil
	s.err = nil
	s.lastRefresh = time.Time{}

	var ctx context.Context
	if id != "" {
		ctx, s.stopAuto = context.WithCancel(context.Background())
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if id != "" {
		go s.autoRefresh(ctx)
	}
}

// ClearOwner drops the identity, empties the ledger and cancels the
// auto-refresh schedule.
func (s *Store) ClearOwner() {
	s.SetOwner("")
}

// Close tears the store down, cancelling background work on every
// path and waiting for it to finish.
func (s *Store) Close() {
	s.ClearOwner()
	s.wg.Wait()
}

// autoRefresh refreshes immediately and then on every tick until the
// owner identity changes or the store is closed.
func (s *Store) autoRefresh(ctx context.Context) {
	defer s.wg.Done()

	if err := s.Refresh(ctx); err != nil {
		slog.Warn("initial ledger refresh failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				slog.Warn("background ledger refresh failed", "error", err)
			}
		}
	}
}

// Refresh fetches all records for the current identity, sorts them
// newest first and replaces the in-memory list. On failure the
// previous list stays intact and the error is recorded.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	owner := s.ownerID
	if owner == "" {
		s.list = nil
		s.loading = false
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	transactions, err := s.gateway.ListAll(ctx, owner)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	// The identity changed while the fetch was in flight; its result
	// belongs to the old owner and is discarded.
	if s.ownerID != owner {
		return nil
	}
	if err != nil {
		s.err = err
		return fmt.Errorf("refresh ledger: %w", err)
	}

	sortLedger(transactions)
	s.list = transactions
	s.lastRefresh = time.Now()
	return nil
}

// sortLedger orders transactions descending by date. Equal dates fall
// back to descending id so the order is deterministic regardless of
// which collection answered first.
func sortLedger(transactions []model.Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		if !transactions[i].OccurredOn.Equal(transactions[j].OccurredOn) {
			return transactions[j].OccurredOn.Before(transactions[i].OccurredOn)
		}
		return transactions[i].ID > transactions[j].ID
	})
}

// Create writes a new transaction through the gateway and refreshes
// the ledger to pick up the server-assigned id and canonical values.
func (s *Store) Create(ctx context.Context, data model.Transaction) error {
	s.mu.Lock()
	owner := s.ownerID
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	if owner == "" {
		s.setErr(common.ErrNoIdentity)
		return common.ErrNoIdentity
	}

	if _, err := s.gateway.Create(ctx, data); err != nil {
		s.setErr(err)
		return err
	}
	return s.Refresh(ctx)
}

// Update patches the transaction with the given id and refreshes.
// The kind is looked up from the in-memory list.
func (s *Store) Update(ctx context.Context, id string, patch service.TransactionPatch) error {
	s.mu.Lock()
	var kind model.TransactionKind
	found := false
	for _, tx := range s.list {
		if tx.ID == id {
			kind = tx.Kind
			found = true
			break
		}
	}
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	if !found {
		err := fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
		s.setErr(err)
		return err
	}

	if _, err := s.gateway.Update(ctx, id, kind, patch); err != nil {
		s.setErr(err)
		return err
	}
	return s.Refresh(ctx)
}

// Delete removes the transaction remotely and, on success, drops it
// from the in-memory list directly instead of refetching. On failure
// the list is unchanged and the error is surfaced.
func (s *Store) Delete(ctx context.Context, id string, kind model.TransactionKind) error {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	if err := s.gateway.Delete(ctx, id, kind); err != nil {
		s.setErr(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	kept := s.list[:0:0]
	for _, tx := range s.list {
		if tx.ID != id {
			kept = append(kept, tx)
		}
	}
	s.list = kept
	return nil
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.err = err
}

// Transactions returns a copy of the current ledger, newest first.
func (s *Store) Transactions() []model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Transaction, len(s.list))
	copy(out, s.list)
	return out
}

// Loading reports whether an operation is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last recorded operation error, if any.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// ClearErr discards the recorded error.
func (s *Store) ClearErr() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

// LastRefresh returns when the ledger was last successfully replaced.
func (s *Store) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}
