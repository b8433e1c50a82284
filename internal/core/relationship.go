package core

import (
	"encoding/json"
	"fmt"
)

// RelationKind is the discriminant of RelationshipState.
type RelationKind uint8

const (
	RelationUnassigned RelationKind = iota
	RelationPending
	RelationAssigned
)

func (k RelationKind) String() string {
	switch k {
	case RelationPending:
		return "pending_leader"
	case RelationAssigned:
		return "assigned"
	default:
		return "unassigned"
	}
}

// RelationshipState records how a canvassed person is linked to a leader.
// Exactly one variant is active, so a person can never carry both a leader
// id and a pending leader key.
//
//	Unassigned --import cites unknown key--> PendingLeader(key)
//	Unassigned --import cites known key----> AssignedTo(id)
//	PendingLeader(key) --resolve-----------> AssignedTo(id)
//	PendingLeader(key) --cleanup-----------> Unassigned
//
// Leaving AssignedTo only happens through a manual Unassign or Assign.
type RelationshipState struct {
	kind      RelationKind
	leaderKey string
	leaderID  int64
}

// Unassigned is the zero relationship.
func Unassigned() RelationshipState {
	return RelationshipState{}
}

// PendingLeader waits for a leader with the given national id to exist.
func PendingLeader(key string) RelationshipState {
	return RelationshipState{kind: RelationPending, leaderKey: key}
}

// AssignedTo links the person to an existing leader.
func AssignedTo(leaderID int64) RelationshipState {
	return RelationshipState{kind: RelationAssigned, leaderID: leaderID}
}

func (s RelationshipState) Kind() RelationKind { return s.kind }

// LeaderKey returns the pending key, if the state is PendingLeader.
func (s RelationshipState) LeaderKey() (string, bool) {
	return s.leaderKey, s.kind == RelationPending
}

// LeaderID returns the assigned leader, if the state is AssignedTo.
func (s RelationshipState) LeaderID() (int64, bool) {
	return s.leaderID, s.kind == RelationAssigned
}

func (s RelationshipState) IsPending() bool  { return s.kind == RelationPending }
func (s RelationshipState) IsAssigned() bool { return s.kind == RelationAssigned }

func (s RelationshipState) String() string {
	switch s.kind {
	case RelationPending:
		return fmt.Sprintf("pending_leader(%s)", s.leaderKey)
	case RelationAssigned:
		return fmt.Sprintf("assigned(%d)", s.leaderID)
	default:
		return "unassigned"
	}
}

// Columns flattens the state into the nullable leader_id and
// pending_leader_key storage columns.
func (s RelationshipState) Columns() (leaderID *int64, pendingKey *string) {
	switch s.kind {
	case RelationAssigned:
		id := s.leaderID
		return &id, nil
	case RelationPending:
		key := s.leaderKey
		return nil, &key
	}
	return nil, nil
}

// RelationshipFromColumns rebuilds a state from storage columns. A row that
// somehow carries both is treated as assigned.
func RelationshipFromColumns(leaderID *int64, pendingKey *string) RelationshipState {
	switch {
	case leaderID != nil:
		return AssignedTo(*leaderID)
	case pendingKey != nil && *pendingKey != "":
		return PendingLeader(*pendingKey)
	}
	return Unassigned()
}

type relationshipJSON struct {
	Kind      string `json:"kind"`
	LeaderKey string `json:"leaderKey,omitempty"`
	LeaderID  int64  `json:"leaderId,omitempty"`
}

func (s RelationshipState) MarshalJSON() ([]byte, error) {
	return json.Marshal(relationshipJSON{
		Kind:      s.kind.String(),
		LeaderKey: s.leaderKey,
		LeaderID:  s.leaderID,
	})
}

func (s *RelationshipState) UnmarshalJSON(data []byte) error {
	var raw relationshipJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case "", "unassigned":
		*s = Unassigned()
	case "pending_leader":
		*s = PendingLeader(raw.LeaderKey)
	case "assigned":
		*s = AssignedTo(raw.LeaderID)
	default:
		return fmt.Errorf("unknown relationship kind %q", raw.Kind)
	}
	return nil
}
