package core

import (
	"context"
	"time"
)

// Store runs work inside a single transaction. fn's error rolls the whole
// transaction back; a nil return commits.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of queries the engine runs within one transaction.
// Lookups return ErrNotFound when nothing matches. Inserts report natural
// key collisions as ErrDuplicateNaturalKey.
type Tx interface {
	// Savepoint runs fn so that a failure undoes only fn's writes.
	Savepoint(ctx context.Context, fn func(ctx context.Context) error) error

	PersonByNationalID(ctx context.Context, nationalID string) (*CanvassedPerson, error)
	PersonByID(ctx context.Context, id int64) (*CanvassedPerson, error)
	InsertPerson(ctx context.Context, p *CanvassedPerson) error
	UpdatePerson(ctx context.Context, p *CanvassedPerson) error

	LeaderByNationalID(ctx context.Context, nationalID string) (*Leader, error)
	LeaderByID(ctx context.Context, id int64) (*Leader, error)
	InsertLeader(ctx context.Context, l *Leader) error
	UpdateLeader(ctx context.Context, l *Leader) error

	CandidateByName(ctx context.Context, name string) (*Candidate, error)
	InsertCandidate(ctx context.Context, c *Candidate) error
	UpdateCandidate(ctx context.Context, c *Candidate) error

	// GroupsByName returns every group with the name across candidates,
	// oldest first. No match is an empty slice, not ErrNotFound.
	GroupsByName(ctx context.Context, name string) ([]Group, error)
	GroupByCandidateAndName(ctx context.Context, candidateID int64, name string) (*Group, error)
	InsertGroup(ctx context.Context, g *Group) error
	UpdateGroup(ctx context.Context, g *Group) error

	// PendingPersons lists persons waiting on leaderKey, ordered by id.
	PendingPersons(ctx context.Context, leaderKey string) ([]CanvassedPerson, error)
	// AssignPending moves persons pending on leaderKey to leaderID. A
	// non-empty ids restricts the update to those persons.
	AssignPending(ctx context.Context, leaderKey string, leaderID int64, ids []int64) (int64, error)
	// ClearOrphanPending resets pending keys that match no leader.
	ClearOrphanPending(ctx context.Context) (int64, error)
	PendingCounts(ctx context.Context) ([]PendingCount, error)
	SetRelationship(ctx context.Context, personID int64, state RelationshipState) error

	RecordBatch(ctx context.Context, rec BatchRecord) error
	RecentBatches(ctx context.Context, limit int) ([]BatchRecord, error)
	// PruneBatches deletes up to limit journal entries created before cutoff.
	PruneBatches(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// EventType names a notification.
type EventType string

const (
	EventLeaderPendingMatches EventType = "leader.pending_matches"
	EventPendingResolved      EventType = "pending.resolved"
	EventPendingCleaned       EventType = "pending.cleaned"
	EventImportCompleted      EventType = "import.completed"
)

// Event is pushed to connected operators.
type Event struct {
	Type      EventType         `json:"type"`
	LeaderKey string            `json:"leaderKey,omitempty"`
	Leader    *Leader           `json:"leader,omitempty"`
	Persons   []CanvassedPerson `json:"persons,omitempty"`
	Affected  int64             `json:"affected,omitempty"`
	Result    *ImportResult     `json:"result,omitempty"`
	At        time.Time         `json:"at"`
}

// Notifier delivers events. Publish must not block on slow consumers.
type Notifier interface {
	Publish(ctx context.Context, ev Event)
}

type discardNotifier struct{}

func (discardNotifier) Publish(context.Context, Event) {}
