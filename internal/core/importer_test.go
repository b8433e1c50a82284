package core_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/canvass/internal/core"
	"github.com/JonMunkholm/canvass/internal/store/memstore"
)

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *recorder) Publish(_ context.Context, ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(t core.EventType) []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	store    *memstore.Store
	events   *recorder
	resolver *core.Resolver
	importer *core.Importer
}

func newFixture() *fixture {
	store := memstore.New()
	events := &recorder{}
	resolver := core.NewResolver(store, events)
	return &fixture{
		store:    store,
		events:   events,
		resolver: resolver,
		importer: core.NewImporter(store, resolver, core.NewImportLimiter(2, time.Second)),
	}
}

var personMapping = core.FieldMapping{
	"Cedula":   core.FieldNationalID,
	"Nombre":   core.FieldFirstName,
	"Apellido": core.FieldLastName,
	"Celular":  core.FieldPhone,
	"Lider":    core.FieldLeaderNationalID,
}

var leaderMapping = core.FieldMapping{
	"Cedula":   core.FieldNationalID,
	"Nombre":   core.FieldFirstName,
	"Apellido": core.FieldLastName,
	"Grupo":    core.FieldGroupName,
}

func person(id, first, last, phone, leader string) core.ImportRow {
	return core.ImportRow{"Cedula": id, "Nombre": first, "Apellido": last, "Celular": phone, "Lider": leader}
}

func TestImport_PartialSuccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	rows := []core.ImportRow{
		person("11111111", "ana", "perez", "3001111111", ""),
		person("22222222", "luis", "", "", ""),
		person("11111111", "ana", "perez", "3002222222", ""),
	}
	res, err := f.importer.Import(ctx, core.ImportRequest{
		Entity:   core.EntityPerson,
		Mapping:  personMapping,
		Rows:     rows,
		FileName: "planilla.csv",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalRows)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Updated)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.BatchID)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Row)
	assert.Equal(t, core.FieldLastName, res.Errors[0].Field)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 3, res.Warnings[0].Row)
	assert.Contains(t, res.Warnings[0].Message, "same key as row 1")

	p, ok := f.store.Person("11111111")
	require.True(t, ok)
	assert.Equal(t, "Ana", p.FirstName)
	assert.Equal(t, "3002222222", p.Phone, "last row with the key wins")
	_, ok = f.store.Person("22222222")
	assert.False(t, ok)

	counts := f.store.Counts()
	assert.Equal(t, 1, counts.Persons)
	assert.Equal(t, 1, counts.Batches)

	batches, err := f.importer.RecentBatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, res.BatchID, batches[0].ID)
	assert.Equal(t, "planilla.csv", batches[0].FileName)
	assert.Equal(t, 2, batches[0].SuccessCount)

	completed := f.events.ofType(core.EventImportCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, res.BatchID, completed[0].Result.BatchID)
}

func TestImport_RerunUpdatesOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rows := []core.ImportRow{
		person("11111111", "ana", "perez", "3001111111", ""),
		person("22222222", "luis", "gomez", "", ""),
	}

	first, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	second, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Updated)
	assert.True(t, second.Success)
	assert.Equal(t, 2, f.store.Counts().Persons)
}

func TestImport_SparseRowKeepsStoredValues(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, []core.ImportRow{
		person("11111111", "ana", "perez", "3001111111", ""),
	})
	require.NoError(t, err)

	_, err = f.importer.ImportBatch(ctx, core.EntityPerson, core.FieldMapping{
		"Cedula":   core.FieldNationalID,
		"Nombre":   core.FieldFirstName,
		"Apellido": core.FieldLastName,
	}, []core.ImportRow{{"Cedula": "11111111", "Nombre": "ana maria", "Apellido": "perez"}})
	require.NoError(t, err)

	p, _ := f.store.Person("11111111")
	assert.Equal(t, "Ana Maria", p.FirstName)
	assert.Equal(t, "3001111111", p.Phone, "unmapped column leaves the stored phone")
}

func TestImport_LeaderReferences(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.importer.ImportBatch(ctx, core.EntityLeader, leaderMapping, []core.ImportRow{
		{"Cedula": "77777777", "Nombre": "marta", "Apellido": "rojas"},
	})
	require.NoError(t, err)
	known, ok := f.store.Leader("77777777")
	require.True(t, ok)

	res, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, []core.ImportRow{
		person("11111111", "ana", "perez", "", "77.777.777"),
		person("22222222", "luis", "gomez", "", "99999999"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pending)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, core.FieldLeaderNationalID, res.Warnings[0].Field)

	ana, _ := f.store.Person("11111111")
	id, ok := ana.Relationship.LeaderID()
	require.True(t, ok)
	assert.Equal(t, known.ID, id)

	luis, _ := f.store.Person("22222222")
	key, ok := luis.Relationship.LeaderKey()
	require.True(t, ok)
	assert.Equal(t, "99999999", key)

	t.Run("assigned person is never reassigned by import", func(t *testing.T) {
		res, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, []core.ImportRow{
			person("11111111", "ana", "perez", "", "99999999"),
		})
		require.NoError(t, err)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0].Message, "already assigned")

		ana, _ := f.store.Person("11111111")
		assert.Equal(t, core.AssignedTo(known.ID), ana.Relationship)
	})
}

func TestImport_NewLeaderAnnouncesPendingMatches(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, []core.ImportRow{
		person("11111111", "ana", "perez", "", "99999999"),
		person("22222222", "luis", "gomez", "", "99999999"),
	})
	require.NoError(t, err)
	assert.Empty(t, f.events.ofType(core.EventLeaderPendingMatches))

	_, err = f.importer.ImportBatch(ctx, core.EntityLeader, leaderMapping, []core.ImportRow{
		{"Cedula": "99999999", "Nombre": "marta", "Apellido": "rojas"},
		{"Cedula": "88888888", "Nombre": "pedro", "Apellido": "sanz"},
	})
	require.NoError(t, err)

	evs := f.events.ofType(core.EventLeaderPendingMatches)
	require.Len(t, evs, 1, "only the leader with waiting persons is announced")
	assert.Equal(t, "99999999", evs[0].LeaderKey)
	assert.Len(t, evs[0].Persons, 2)

	p, _ := f.store.Person("11111111")
	assert.True(t, p.Relationship.IsPending(), "announcing does not assign")
}

func TestImport_LeaderGroup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.importer.ImportBatch(ctx, core.EntityCandidate, core.FieldMapping{
		"Nombre": core.FieldName, "Correo": core.FieldEmail,
	}, []core.ImportRow{{"Nombre": "laura ruiz", "Correo": "laura@campana.co"}})
	require.NoError(t, err)

	_, err = f.importer.ImportBatch(ctx, core.EntityGroup, core.FieldMapping{
		"Grupo": core.FieldName, "Candidato": core.FieldCandidateName,
	}, []core.ImportRow{{"Grupo": "jovenes", "Candidato": "Laura Ruiz"}})
	require.NoError(t, err)

	res, err := f.importer.ImportBatch(ctx, core.EntityLeader, leaderMapping, []core.ImportRow{
		{"Cedula": "99999999", "Nombre": "marta", "Apellido": "rojas", "Grupo": "jovenes"},
		{"Cedula": "88888888", "Nombre": "pedro", "Apellido": "sanz", "Grupo": "veteranos"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, core.FieldGroupName, res.Warnings[0].Field)
	assert.Equal(t, 2, res.Warnings[0].Row)

	marta, _ := f.store.Leader("99999999")
	require.NotNil(t, marta.GroupID)
	pedro, _ := f.store.Leader("88888888")
	assert.Nil(t, pedro.GroupID)
}

func TestImport_LeaderGroupSharedAcrossCandidates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.importer.ImportBatch(ctx, core.EntityCandidate, core.FieldMapping{
		"Nombre": core.FieldName, "Correo": core.FieldEmail,
	}, []core.ImportRow{
		{"Nombre": "laura ruiz", "Correo": "laura@campana.co"},
		{"Nombre": "pedro sanz", "Correo": "pedro@campana.co"},
	})
	require.NoError(t, err)
	_, err = f.importer.ImportBatch(ctx, core.EntityGroup, core.FieldMapping{
		"Grupo": core.FieldName, "Candidato": core.FieldCandidateName,
	}, []core.ImportRow{
		{"Grupo": "norte", "Candidato": "Laura Ruiz"},
		{"Grupo": "norte", "Candidato": "Pedro Sanz"},
	})
	require.NoError(t, err)

	var oldest int64
	require.NoError(t, f.store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		groups, err := tx.GroupsByName(ctx, "Norte")
		require.Len(t, groups, 2)
		oldest = groups[0].ID
		return err
	}))

	res, err := f.importer.ImportBatch(ctx, core.EntityLeader, leaderMapping, []core.ImportRow{
		{"Cedula": "99999999", "Nombre": "marta", "Apellido": "rojas", "Grupo": "norte"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, core.FieldGroupName, res.Warnings[0].Field)
	assert.Contains(t, res.Warnings[0].Message, "exists under 2 candidates")
	assert.Contains(t, res.Warnings[0].Message, fmt.Sprintf("using group %d", oldest))

	marta, _ := f.store.Leader("99999999")
	require.NotNil(t, marta.GroupID)
	assert.Equal(t, oldest, *marta.GroupID)

	t.Run("clear marker removes the group", func(t *testing.T) {
		res, err := f.importer.ImportBatch(ctx, core.EntityLeader, leaderMapping, []core.ImportRow{
			{"Cedula": "99999999", "Nombre": "marta", "Apellido": "rojas", "Grupo": core.ClearMarker},
		})
		require.NoError(t, err)
		assert.Empty(t, res.Warnings)

		marta, _ := f.store.Leader("99999999")
		assert.Nil(t, marta.GroupID)
	})
}

func TestImport_ClearMarker(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, []core.ImportRow{
		person("11111111", "ana", "perez", "3001111111", "99999999"),
	})
	require.NoError(t, err)
	ana, _ := f.store.Person("11111111")
	require.True(t, ana.Relationship.IsPending())

	res, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, []core.ImportRow{
		person("11111111", "ana", "perez", "#borrar", "#BORRAR"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Zero(t, res.Pending)
	assert.Empty(t, res.Warnings)

	ana, _ = f.store.Person("11111111")
	assert.Equal(t, core.Unassigned(), ana.Relationship, "clearing the reference drops the pending marker")
	assert.Empty(t, ana.Phone)

	t.Run("assigned person keeps its leader", func(t *testing.T) {
		_, err := f.importer.ImportBatch(ctx, core.EntityLeader, leaderMapping, []core.ImportRow{
			{"Cedula": "77777777", "Nombre": "marta", "Apellido": "rojas"},
		})
		require.NoError(t, err)
		_, err = f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, []core.ImportRow{
			person("11111111", "ana", "perez", "", "77777777"),
		})
		require.NoError(t, err)

		res, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, []core.ImportRow{
			person("11111111", "ana", "perez", "", core.ClearMarker),
		})
		require.NoError(t, err)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0].Message, "clear ignored")

		ana, _ := f.store.Person("11111111")
		assert.True(t, ana.Relationship.IsAssigned())
	})

	t.Run("required field cannot be cleared", func(t *testing.T) {
		res, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, []core.ImportRow{
			person("11111111", "ana", core.ClearMarker, "", ""),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.ErrorCount)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, core.FieldLastName, res.Errors[0].Field)
		assert.Contains(t, res.Errors[0].Message, "cannot be cleared")

		ana, _ := f.store.Person("11111111")
		assert.Equal(t, "Perez", ana.LastName)
	})
}

func TestImport_GroupNeedsKnownCandidate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mapping := core.FieldMapping{"Grupo": core.FieldName, "Candidato": core.FieldCandidateName}

	res, err := f.importer.ImportBatch(ctx, core.EntityGroup, mapping, []core.ImportRow{
		{"Grupo": "jovenes", "Candidato": "Nadie"},
		{"Grupo": "mujeres", "Candidato": ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, 2, res.ErrorCount)
	for _, e := range res.Errors {
		assert.Equal(t, core.FieldCandidateName, e.Field)
	}
	assert.Zero(t, f.store.Counts().Groups)
}

func TestImport_CandidateValidation(t *testing.T) {
	f := newFixture()
	res, err := f.importer.ImportBatch(context.Background(), core.EntityCandidate, core.FieldMapping{
		"Nombre": core.FieldName, "Correo": core.FieldEmail,
	}, []core.ImportRow{
		{"Nombre": "laura ruiz", "Correo": "laura@campana.co"},
		{"Nombre": "sin correo", "Correo": ""},
		{"Nombre": "mal correo", "Correo": "nope"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 2, res.ErrorCount)
}

func TestImport_DuplicateKeyIsRowError(t *testing.T) {
	f := newFixture()
	f.store.InjectFault(memstore.Fault{Op: "InsertPerson", After: 1, Err: core.ErrDuplicateNaturalKey})

	res, err := f.importer.ImportBatch(context.Background(), core.EntityPerson, personMapping, []core.ImportRow{
		person("11111111", "ana", "perez", "", ""),
		person("22222222", "luis", "gomez", "", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Row)
	assert.Contains(t, res.Errors[0].Message, "already exists")

	persons := f.store.Persons()
	require.Len(t, persons, 1)
	assert.Equal(t, "22222222", persons[0].NationalID)
}

func TestImport_UnexpectedFaultRollsBackBatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	boom := errors.New("connection reset by peer")
	f.store.InjectFault(memstore.Fault{Op: "InsertPerson", After: 2, Err: boom})

	_, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, []core.ImportRow{
		person("11111111", "ana", "perez", "", ""),
		person("22222222", "luis", "gomez", "", ""),
		person("33333333", "eva", "diaz", "", ""),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrImportAborted)
	assert.ErrorIs(t, err, boom)

	var aborted *core.TransactionAbortedError
	require.True(t, errors.As(err, &aborted))
	assert.Equal(t, 2, aborted.Row)

	counts := f.store.Counts()
	assert.Zero(t, counts.Persons, "rows before the fault are rolled back too")
	assert.Zero(t, counts.Batches)
	assert.Empty(t, f.events.ofType(core.EventImportCompleted))
}

func TestImport_RejectsBeforeWriting(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rows := []core.ImportRow{person("11111111", "ana", "perez", "", "")}

	tests := []struct {
		name    string
		entity  core.EntityType
		mapping core.FieldMapping
		wantErr error
	}{
		{"unknown entity", core.EntityType("voter"), personMapping, core.ErrUnknownEntity},
		{"mapping for another entity", core.EntityCandidate, personMapping, core.ErrInvalidMapping},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.importer.ImportBatch(ctx, tt.entity, tt.mapping, rows)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Zero(t, f.store.Counts().Batches)
}

func TestImport_EmptyBatch(t *testing.T) {
	f := newFixture()
	res, err := f.importer.ImportBatch(context.Background(), core.EntityPerson, personMapping, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalRows)
	assert.True(t, res.Success)
	assert.NotNil(t, res.Errors)
}

func TestImport_Cancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, []core.ImportRow{
		person("11111111", "ana", "perez", "", ""),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.store.Counts().Persons)
}

func TestImport_LimiterBusy(t *testing.T) {
	store := memstore.New()
	limiter := core.NewImportLimiter(1, 10*time.Millisecond)
	importer := core.NewImporter(store, nil, limiter)

	require.True(t, limiter.TryAcquire())
	defer limiter.Release()

	_, err := importer.ImportBatch(context.Background(), core.EntityPerson, personMapping, nil)
	assert.ErrorIs(t, err, core.ErrTooManyImports)
	assert.Same(t, limiter, importer.Limiter())
}

func TestRegisterLeader(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.importer.ImportBatch(ctx, core.EntityPerson, personMapping, []core.ImportRow{
		person("11111111", "ana", "perez", "", "99999999"),
	})
	require.NoError(t, err)

	in := &core.LeaderInput{
		NationalID: core.Set("99999999"),
		FirstName:  core.Set("Marta"),
		LastName:   core.Set("Rojas"),
		Phone:      core.Set("123"),
	}
	reg, err := f.importer.RegisterLeader(ctx, in)
	require.NoError(t, err)
	assert.True(t, reg.Created)
	assert.Equal(t, 1, reg.PendingMatches)
	require.Len(t, reg.Warnings, 1)
	assert.Equal(t, core.FieldPhone, reg.Warnings[0].Field)
	assert.Len(t, f.events.ofType(core.EventLeaderPendingMatches), 1)

	again, err := f.importer.RegisterLeader(ctx, &core.LeaderInput{
		NationalID: core.Set("99999999"),
		FirstName:  core.Set("Marta"),
		LastName:   core.Set("Rojas Diaz"),
	})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, reg.Leader.ID, again.Leader.ID)
	assert.Equal(t, 0, again.PendingMatches)
	assert.Len(t, f.events.ofType(core.EventLeaderPendingMatches), 1)

	_, err = f.importer.RegisterLeader(ctx, &core.LeaderInput{NationalID: core.Set("12")})
	var vfe *core.ValidationFailedError
	require.True(t, errors.As(err, &vfe))
	assert.True(t, core.HasErrors(vfe.Issues))
	assert.Equal(t, 1, f.store.Counts().Leaders)
}

func TestPruneJournal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, f.store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		for i := range 5 {
			rec := core.BatchRecord{ID: string(rune('a' + i)), CreatedAt: now.Add(-48 * time.Hour)}
			if err := tx.RecordBatch(ctx, rec); err != nil {
				return err
			}
		}
		return tx.RecordBatch(ctx, core.BatchRecord{ID: "fresh", CreatedAt: now})
	}))

	deleted, err := f.importer.PruneJournal(ctx, now.Add(-24*time.Hour), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), deleted)

	left, err := f.importer.RecentBatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "fresh", left[0].ID)
}

func TestRunJournalPruner_StopsWithContext(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.importer.RunJournalPruner(ctx, core.JournalRetention{MaxAge: time.Hour, CheckInterval: time.Hour})
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pruner did not stop after cancel")
	}

	// Disabled pruning returns at once.
	f.importer.RunJournalPruner(context.Background(), core.JournalRetention{})
}

func TestImport_JournalRecordsCaller(t *testing.T) {
	f := newFixture()
	ctx := core.WithCaller(context.Background(), core.Caller{IPAddress: "10.0.0.7", UserAgent: "importctl"})

	_, err := f.importer.Import(ctx, core.ImportRequest{
		Entity:   core.EntityPerson,
		Mapping:  personMapping,
		Rows:     []core.ImportRow{person("11111111", "ana", "perez", "", "")},
		FileName: "planilla.csv",
	})
	require.NoError(t, err)

	batches, err := f.importer.RecentBatches(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "10.0.0.7", batches[0].IPAddress)
	assert.Equal(t, "importctl", batches[0].UserAgent)
	assert.Equal(t, "planilla.csv", batches[0].FileName)
	assert.Equal(t, 1, batches[0].Inserted)
}
