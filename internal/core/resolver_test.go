package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/canvass/internal/core"
)

// seedPending imports three persons waiting on 99999999 and one on
// 88888888, then registers leader 99999999.
func seedPending(t *testing.T, f *fixture) core.Leader {
	t.Helper()
	ctx := context.Background()

	_, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, []core.ImportRow{
		person("11111111", "ana", "perez", "", "99999999"),
		person("22222222", "luis", "gomez", "", "99.999.999"),
		person("33333333", "eva", "diaz", "", "99999999"),
		person("44444444", "juan", "mora", "", "88888888"),
	})
	require.NoError(t, err)

	reg, err := f.importer.RegisterLeader(ctx, &core.LeaderInput{
		NationalID: core.Set("99999999"),
		FirstName:  core.Set("Marta"),
		LastName:   core.Set("Rojas"),
	})
	require.NoError(t, err)
	return *reg.Leader
}

func TestResolver_ListPending(t *testing.T) {
	f := newFixture()
	seedPending(t, f)
	ctx := context.Background()

	got, err := f.resolver.ListPending(ctx, "99.999.999")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "11111111", got[0].NationalID)
	assert.Less(t, got[0].ID, got[1].ID)

	none, err := f.resolver.ListPending(ctx, "12345678")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestResolver_Summary(t *testing.T) {
	f := newFixture()
	seedPending(t, f)

	counts, err := f.resolver.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.PendingCount{
		{LeaderKey: "99999999", Count: 3},
		{LeaderKey: "88888888", Count: 1},
	}, counts)
}

func TestResolver_ResolveAll(t *testing.T) {
	f := newFixture()
	leader := seedPending(t, f)
	ctx := context.Background()

	res, err := f.resolver.Resolve(ctx, "99999999", leader.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Affected)

	for _, id := range []string{"11111111", "22222222", "33333333"} {
		p, _ := f.store.Person(id)
		assert.Equal(t, core.AssignedTo(leader.ID), p.Relationship, id)
	}
	other, _ := f.store.Person("44444444")
	assert.True(t, other.Relationship.IsPending(), "other keys are untouched")

	evs := f.events.ofType(core.EventPendingResolved)
	require.Len(t, evs, 1)
	assert.Equal(t, int64(3), evs[0].Affected)

	again, err := f.resolver.Resolve(ctx, "99999999", leader.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, again.Affected)
	assert.Len(t, f.events.ofType(core.EventPendingResolved), 1, "no event when nothing moved")
}

func TestResolver_ResolveSubset(t *testing.T) {
	f := newFixture()
	leader := seedPending(t, f)
	ctx := context.Background()

	pending, err := f.resolver.ListPending(ctx, "99999999")
	require.NoError(t, err)
	other, _ := f.store.Person("44444444")

	res, err := f.resolver.Resolve(ctx, "99999999", leader.ID, []int64{pending[0].ID, other.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Affected, "ids pending on another key are ignored")

	left, err := f.resolver.ListPending(ctx, "99999999")
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestResolver_ResolveMismatch(t *testing.T) {
	f := newFixture()
	leader := seedPending(t, f)
	ctx := context.Background()

	tests := []struct {
		name     string
		key      string
		leaderID int64
	}{
		{"leader owns another key", "88888888", leader.ID},
		{"leader does not exist", "99999999", leader.ID + 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.resolver.Resolve(ctx, tt.key, tt.leaderID, nil)
			assert.ErrorIs(t, err, core.ErrLeaderMismatch)
		})
	}

	pending, err := f.resolver.ListPending(ctx, "99999999")
	require.NoError(t, err)
	assert.Len(t, pending, 3, "nothing moves on a mismatch")
}

func TestResolver_CleanupOrphans(t *testing.T) {
	f := newFixture()
	seedPending(t, f)
	ctx := context.Background()

	n, err := f.resolver.CleanupOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	juan, _ := f.store.Person("44444444")
	assert.Equal(t, core.Unassigned(), juan.Relationship)

	pending, err := f.resolver.ListPending(ctx, "99999999")
	require.NoError(t, err)
	assert.Len(t, pending, 3, "keys with a leader are kept for review")

	require.Len(t, f.events.ofType(core.EventPendingCleaned), 1)

	n, err = f.resolver.CleanupOrphans(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestResolver_AssignUnassign(t *testing.T) {
	f := newFixture()
	leader := seedPending(t, f)
	ctx := context.Background()

	juan, _ := f.store.Person("44444444")
	require.NoError(t, f.resolver.Assign(ctx, juan.ID, leader.ID))
	juan, _ = f.store.Person("44444444")
	assert.Equal(t, core.AssignedTo(leader.ID), juan.Relationship)

	require.NoError(t, f.resolver.Unassign(ctx, juan.ID))
	juan, _ = f.store.Person("44444444")
	assert.Equal(t, core.Unassigned(), juan.Relationship)

	assert.ErrorIs(t, f.resolver.Assign(ctx, juan.ID, leader.ID+1000), core.ErrNotFound)
	assert.ErrorIs(t, f.resolver.Unassign(ctx, 99999), core.ErrNotFound)
}

func TestResolver_OnLeaderCreated_NoMatches(t *testing.T) {
	f := newFixture()
	matches, err := f.resolver.OnLeaderCreated(context.Background(), core.Leader{ID: 1, NationalID: "12345678"})
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Empty(t, f.events.ofType(core.EventLeaderPendingMatches))
}
