package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationshipState_Variants(t *testing.T) {
	u := Unassigned()
	assert.Equal(t, RelationUnassigned, u.Kind())
	_, ok := u.LeaderKey()
	assert.False(t, ok)
	_, ok = u.LeaderID()
	assert.False(t, ok)

	p := PendingLeader("99999999")
	assert.True(t, p.IsPending())
	assert.False(t, p.IsAssigned())
	key, ok := p.LeaderKey()
	assert.True(t, ok)
	assert.Equal(t, "99999999", key)
	_, ok = p.LeaderID()
	assert.False(t, ok, "a pending person has no leader id")

	a := AssignedTo(42)
	id, ok := a.LeaderID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	_, ok = a.LeaderKey()
	assert.False(t, ok, "an assigned person has no pending key")
}

func TestRelationshipState_Columns(t *testing.T) {
	tests := []struct {
		name    string
		state   RelationshipState
		wantID  *int64
		wantKey *string
	}{
		{"unassigned", Unassigned(), nil, nil},
		{"pending", PendingLeader("99999999"), nil, ptr("99999999")},
		{"assigned", AssignedTo(7), ptr(int64(7)), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, key := tt.state.Columns()
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.state, RelationshipFromColumns(id, key))
		})
	}
}

func TestRelationshipFromColumns_Edges(t *testing.T) {
	assert.Equal(t, Unassigned(), RelationshipFromColumns(nil, ptr("")))
	assert.Equal(t, AssignedTo(3), RelationshipFromColumns(ptr(int64(3)), ptr("99999999")))
}

func TestRelationshipState_JSON(t *testing.T) {
	data, err := json.Marshal(PendingLeader("99999999"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"pending_leader","leaderKey":"99999999"}`, string(data))

	var got RelationshipState
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"assigned","leaderId":9}`), &got))
	assert.Equal(t, AssignedTo(9), got)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"both"}`), &got))
}

func ptr[T any](v T) *T { return &v }
