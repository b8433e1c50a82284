package core

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/canvass/internal/logging"
)

// Resolver manages persons whose leader reference could not be matched at
// import time.
type Resolver struct {
	store    Store
	notifier Notifier
}

// NewResolver returns a resolver that publishes to notifier. A nil
// notifier drops events.
func NewResolver(store Store, notifier Notifier) *Resolver {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &Resolver{store: store, notifier: notifier}
}

// ListPending returns persons waiting on the leader with national id key.
func (r *Resolver) ListPending(ctx context.Context, key string) ([]CanvassedPerson, error) {
	key = normalizeNationalID(key)
	var persons []CanvassedPerson
	err := r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		persons, err = tx.PendingPersons(ctx, key)
		return err
	})
	return persons, err
}

// ResolveResult reports how many persons were linked.
type ResolveResult struct {
	Affected int64 `json:"affected"`
}

// Resolve assigns the persons pending on key to leaderID. When ids is
// non-empty only those persons move. The leader must carry key as its
// national id. Calling Resolve again once nothing is pending affects no rows.
func (r *Resolver) Resolve(ctx context.Context, key string, leaderID int64, ids []int64) (ResolveResult, error) {
	key = normalizeNationalID(key)

	var (
		leader   *Leader
		affected int64
	)
	err := r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		l, err := tx.LeaderByID(ctx, leaderID)
		if errors.Is(err, ErrNotFound) {
			return &LeaderMismatchError{LeaderKey: key, LeaderID: leaderID}
		}
		if err != nil {
			return err
		}
		if l.NationalID != key {
			return &LeaderMismatchError{LeaderKey: key, LeaderID: leaderID, Actual: l.NationalID}
		}
		leader = l

		affected, err = tx.AssignPending(ctx, key, leaderID, ids)
		return err
	})
	if err != nil {
		return ResolveResult{}, err
	}

	logging.FromContext(ctx).Info("pending relationships resolved",
		"leader_key", key,
		"leader_id", leaderID,
		"affected", affected,
	)
	if affected > 0 {
		r.notifier.Publish(ctx, Event{
			Type:      EventPendingResolved,
			LeaderKey: key,
			Leader:    leader,
			Affected:  affected,
			At:        time.Now(),
		})
	}
	return ResolveResult{Affected: affected}, nil
}

// CleanupOrphans returns every person pending on a key with no matching
// leader to Unassigned.
func (r *Resolver) CleanupOrphans(ctx context.Context) (int64, error) {
	var cleared int64
	err := r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		cleared, err = tx.ClearOrphanPending(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}

	logging.FromContext(ctx).Info("orphan pending relationships cleared", "cleared", cleared)
	if cleared > 0 {
		r.notifier.Publish(ctx, Event{Type: EventPendingCleaned, Affected: cleared, At: time.Now()})
	}
	return cleared, nil
}

// OnLeaderCreated looks for persons waiting on the new leader and, if any
// exist, publishes them so an operator can confirm the link. Nothing is
// assigned automatically.
func (r *Resolver) OnLeaderCreated(ctx context.Context, leader Leader) ([]CanvassedPerson, error) {
	matches, err := r.ListPending(ctx, leader.NationalID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	logging.FromContext(ctx).Info("new leader has pending matches",
		"leader_id", leader.ID,
		"leader_key", leader.NationalID,
		"matches", len(matches),
	)
	l := leader
	r.notifier.Publish(ctx, Event{
		Type:      EventLeaderPendingMatches,
		LeaderKey: leader.NationalID,
		Leader:    &l,
		Persons:   matches,
		At:        time.Now(),
	})
	return matches, nil
}

// Summary counts pending persons per leader key.
func (r *Resolver) Summary(ctx context.Context) ([]PendingCount, error) {
	var counts []PendingCount
	err := r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		counts, err = tx.PendingCounts(ctx)
		return err
	})
	return counts, err
}

// Assign links a person to a leader by hand, from any state.
func (r *Resolver) Assign(ctx context.Context, personID, leaderID int64) error {
	return r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.PersonByID(ctx, personID); err != nil {
			return err
		}
		if _, err := tx.LeaderByID(ctx, leaderID); err != nil {
			return err
		}
		return tx.SetRelationship(ctx, personID, AssignedTo(leaderID))
	})
}

// Unassign clears a person's relationship by hand.
func (r *Resolver) Unassign(ctx context.Context, personID int64) error {
	return r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.PersonByID(ctx, personID); err != nil {
			return err
		}
		return tx.SetRelationship(ctx, personID, Unassigned())
	})
}
