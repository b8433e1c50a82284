package core

// importer.go drives one batch import.
//
// A batch runs inside a single transaction. Rows are processed strictly in
// file order so that row numbers in reports are stable and later rows see
// earlier rows' writes. Each row's writes sit behind a savepoint: a rejected
// row rolls back to it and the batch carries on. Any other failure aborts the
// transaction, so either every accepted row of the batch is stored or none is.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/canvass/internal/logging"
)

// ImportRequest is one execute-import call.
type ImportRequest struct {
	Entity   EntityType
	Mapping  FieldMapping
	Rows     []ImportRow
	FileName string
}

// Importer runs batch imports against a Store.
type Importer struct {
	store    Store
	resolver *Resolver
	limiter  *ImportLimiter
	notifier Notifier
}

// NewImporter wires an importer. limiter may be nil for no concurrency cap.
func NewImporter(store Store, resolver *Resolver, limiter *ImportLimiter) *Importer {
	if resolver == nil {
		resolver = NewResolver(store, nil)
	}
	return &Importer{
		store:    store,
		resolver: resolver,
		limiter:  limiter,
		notifier: resolver.notifier,
	}
}

// ImportBatch imports rows of entity using mapping.
func (im *Importer) ImportBatch(ctx context.Context, entity EntityType, mapping FieldMapping, rows []ImportRow) (*ImportResult, error) {
	return im.Import(ctx, ImportRequest{Entity: entity, Mapping: mapping, Rows: rows})
}

// Import runs req. Row problems are reported inside the result; an error
// return means nothing from the batch was stored.
func (im *Importer) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if !req.Entity.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, req.Entity)
	}
	if err := req.Mapping.Validate(req.Entity); err != nil {
		return nil, err
	}
	if im.limiter != nil {
		if err := im.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer im.limiter.Release()
	}

	start := time.Now()
	batchID := uuid.NewString()
	logger := logging.WithFields(ctx,
		"batch_id", batchID,
		"entity", string(req.Entity),
		"rows", len(req.Rows),
	)

	var (
		res     *ImportResult
		created []Leader
	)
	err := im.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		b := &batch{
			tx:     tx,
			entity: req.Entity,
			agg:    NewAggregator(req.Entity, len(req.Rows), start),
			seen:   make(map[string]int),
		}
		for i, row := range req.Rows {
			if err := b.process(ctx, req.Mapping, row, i+1); err != nil {
				return &TransactionAbortedError{Entity: req.Entity, Row: i + 1, Err: err}
			}
		}

		res = b.agg.Finish(time.Now())
		res.BatchID = batchID
		created = b.created
		return tx.RecordBatch(ctx, newBatchRecord(ctx, batchID, req.FileName, res, time.Now()))
	})
	if err != nil {
		var aborted *TransactionAbortedError
		if !errors.As(err, &aborted) {
			err = &TransactionAbortedError{Entity: req.Entity, Err: err}
		}
		logger.Error("import aborted", "error", err)
		return nil, err
	}

	logger.Info("import completed",
		"success", res.SuccessCount,
		"errors", res.ErrorCount,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"pending", res.Pending,
		"duration_ms", res.ExecutionTimeMs,
	)

	for _, l := range created {
		if _, err := im.resolver.OnLeaderCreated(ctx, l); err != nil {
			logger.Warn("pending match lookup failed", "leader_id", l.ID, "error", err)
		}
	}
	im.notifier.Publish(ctx, Event{Type: EventImportCompleted, Result: res, At: time.Now()})

	return res, nil
}

// LeaderRegistration is the outcome of creating or updating one leader.
type LeaderRegistration struct {
	Leader         *Leader       `json:"leader"`
	Created        bool          `json:"created"`
	PendingMatches int           `json:"pendingMatches"`
	Warnings       []ImportError `json:"warnings,omitempty"`
}

// RegisterLeader upserts a single leader outside of a file import and, when
// the leader is new, looks for persons waiting on its national id.
func (im *Importer) RegisterLeader(ctx context.Context, in *LeaderInput) (*LeaderRegistration, error) {
	issues := ValidateRow(in, 1)
	if HasErrors(issues) {
		return nil, &ValidationFailedError{Issues: issues}
	}

	reg := &LeaderRegistration{Warnings: issues}
	err := im.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		out, warnings, err := upsertLeader(ctx, tx, in, 1)
		if err != nil {
			return err
		}
		reg.Warnings = append(reg.Warnings, warnings...)
		reg.Created = out.inserted
		reg.Leader = out.leader
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reg.Created {
		matches, err := im.resolver.OnLeaderCreated(ctx, *reg.Leader)
		if err != nil {
			logging.FromContext(ctx).Warn("pending match lookup failed", "leader_id", reg.Leader.ID, "error", err)
		}
		reg.PendingMatches = len(matches)
	}
	return reg, nil
}

// RecentBatches returns the newest journal entries first.
func (im *Importer) RecentBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []BatchRecord
	err := im.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.RecentBatches(ctx, limit)
		return err
	})
	return out, err
}

// Limiter exposes the concurrency limiter, which may be nil.
func (im *Importer) Limiter() *ImportLimiter { return im.limiter }

// batch is the per-call state of one import.
type batch struct {
	tx      Tx
	entity  EntityType
	agg     *Aggregator
	seen    map[string]int
	created []Leader
}

// process handles one row. A non-nil return aborts the batch.
func (b *batch) process(ctx context.Context, mapping FieldMapping, row ImportRow, idx int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := applyMapping(row, mapping, b.entity)
	if err != nil {
		return err
	}

	issues := ValidateRow(in, idx)
	if HasErrors(issues) {
		b.agg.Fail(issues...)
		return nil
	}

	var (
		out      rowOutcome
		warnings []ImportError
	)
	err = b.tx.Savepoint(ctx, func(ctx context.Context) error {
		var err error
		out, warnings, err = upsert(ctx, b.tx, in, idx)
		return err
	})

	var rej *rowRejection
	switch {
	case errors.As(err, &rej):
		b.agg.Fail(append(issues, rej.issue)...)
		return nil
	case errors.Is(err, ErrDuplicateNaturalKey):
		key := in.NaturalKey()
		b.agg.Fail(append(issues, rowError(idx, naturalKeyField(b.entity), key,
			fmt.Sprintf("a record with key %q already exists", key)))...)
		return nil
	case err != nil:
		return err
	}

	key := in.NaturalKey()
	if prev, ok := b.seen[key]; ok {
		warnings = append(warnings, rowWarning(idx, naturalKeyField(b.entity), key,
			fmt.Sprintf("same key as row %d; values from this row replace it", prev)))
	}
	b.seen[key] = idx

	if out.inserted && out.leader != nil {
		b.created = append(b.created, *out.leader)
	}
	b.agg.Record(append(issues, warnings...)...)
	b.agg.succeed(out)
	return nil
}

func naturalKeyField(entity EntityType) FieldTag {
	switch entity {
	case EntityPerson, EntityLeader:
		return FieldNationalID
	}
	return FieldName
}

func upsert(ctx context.Context, tx Tx, in Input, idx int) (rowOutcome, []ImportError, error) {
	switch in := in.(type) {
	case *PersonInput:
		return upsertPerson(ctx, tx, in, idx)
	case *LeaderInput:
		return upsertLeader(ctx, tx, in, idx)
	case *CandidateInput:
		return upsertCandidate(ctx, tx, in)
	case *GroupInput:
		return upsertGroup(ctx, tx, in, idx)
	}
	return rowOutcome{}, nil, fmt.Errorf("unsupported input type %T", in)
}

// lookup turns ErrNotFound into a nil record.
func lookup[T any](v *T, err error) (*T, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func upsertPerson(ctx context.Context, tx Tx, in *PersonInput, idx int) (rowOutcome, []ImportError, error) {
	existing, err := lookup(tx.PersonByNationalID(ctx, in.NaturalKey()))
	if err != nil {
		return rowOutcome{}, nil, err
	}

	p := existing
	if p == nil {
		p = &CanvassedPerson{}
	}
	in.applyTo(p)

	rel, warnings, err := resolveLeaderRef(ctx, tx, p.Relationship, in.LeaderNationalID, idx)
	if err != nil {
		return rowOutcome{}, nil, err
	}
	p.Relationship = rel

	if existing == nil {
		err = tx.InsertPerson(ctx, p)
	} else {
		err = tx.UpdatePerson(ctx, p)
	}
	return rowOutcome{inserted: existing == nil, pending: rel.IsPending()}, warnings, err
}

// resolveLeaderRef applies a row's leader reference to the current state.
// An assigned person keeps its leader; only manual reassignment moves it.
func resolveLeaderRef(ctx context.Context, tx Tx, current RelationshipState, ref Field[string], idx int) (RelationshipState, []ImportError, error) {
	switch ref.Op() {
	case NoChange:
		return current, nil, nil
	case ClearOp:
		if id, ok := current.LeaderID(); ok {
			return current, []ImportError{rowWarning(idx, FieldLeaderNationalID, ClearMarker,
				fmt.Sprintf("person is assigned to leader %d; clear ignored", id))}, nil
		}
		return Unassigned(), nil, nil
	}

	key, _ := ref.Value()
	leader, err := lookup(tx.LeaderByNationalID(ctx, key))
	if err != nil {
		return current, nil, err
	}

	if id, ok := current.LeaderID(); ok {
		if leader != nil && leader.ID == id {
			return current, nil, nil
		}
		return current, []ImportError{rowWarning(idx, FieldLeaderNationalID, key,
			fmt.Sprintf("person is already assigned to leader %d; reference ignored", id))}, nil
	}

	if leader == nil {
		return PendingLeader(key), []ImportError{rowWarning(idx, FieldLeaderNationalID, key,
			fmt.Sprintf("leader %s not found; relationship left pending", key))}, nil
	}
	return AssignedTo(leader.ID), nil, nil
}

func upsertLeader(ctx context.Context, tx Tx, in *LeaderInput, idx int) (rowOutcome, []ImportError, error) {
	existing, err := lookup(tx.LeaderByNationalID(ctx, in.NaturalKey()))
	if err != nil {
		return rowOutcome{}, nil, err
	}

	l := existing
	if l == nil {
		l = &Leader{}
	}
	in.applyTo(l)

	warnings, err := resolveGroupRef(ctx, tx, l, in.GroupName, idx)
	if err != nil {
		return rowOutcome{}, nil, err
	}

	if existing == nil {
		err = tx.InsertLeader(ctx, l)
	} else {
		err = tx.UpdateLeader(ctx, l)
	}
	return rowOutcome{inserted: existing == nil, leader: l}, warnings, err
}

// resolveGroupRef binds l to the group named by ref. Group names are only
// unique per candidate, so a name shared by several candidates binds the
// oldest group and says so.
func resolveGroupRef(ctx context.Context, tx Tx, l *Leader, ref Field[string], idx int) ([]ImportError, error) {
	switch ref.Op() {
	case NoChange:
		return nil, nil
	case ClearOp:
		l.GroupID = nil
		return nil, nil
	}

	name, _ := ref.Value()
	groups, err := tx.GroupsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return []ImportError{rowWarning(idx, FieldGroupName, name,
			fmt.Sprintf("group %q not found; group left unchanged", name))}, nil
	}

	id := groups[0].ID
	l.GroupID = &id
	if len(groups) > 1 {
		return []ImportError{rowWarning(idx, FieldGroupName, name,
			fmt.Sprintf("group %q exists under %d candidates; using group %d", name, len(groups), id))}, nil
	}
	return nil, nil
}

func upsertCandidate(ctx context.Context, tx Tx, in *CandidateInput) (rowOutcome, []ImportError, error) {
	existing, err := lookup(tx.CandidateByName(ctx, in.NaturalKey()))
	if err != nil {
		return rowOutcome{}, nil, err
	}

	c := existing
	if c == nil {
		c = &Candidate{}
	}
	in.applyTo(c)

	if existing == nil {
		err = tx.InsertCandidate(ctx, c)
	} else {
		err = tx.UpdateCandidate(ctx, c)
	}
	return rowOutcome{inserted: existing == nil}, nil, err
}

func upsertGroup(ctx context.Context, tx Tx, in *GroupInput, idx int) (rowOutcome, []ImportError, error) {
	candName, ok := in.CandidateName.Value()
	if !ok || candName == "" {
		return rowOutcome{}, nil, reject(idx, FieldCandidateName, "", "a group must reference a candidate")
	}
	cand, err := lookup(tx.CandidateByName(ctx, candName))
	if err != nil {
		return rowOutcome{}, nil, err
	}
	if cand == nil {
		return rowOutcome{}, nil, reject(idx, FieldCandidateName, candName,
			fmt.Sprintf("candidate %q not found", candName))
	}

	name := in.Name.Or("")
	existing, err := lookup(tx.GroupByCandidateAndName(ctx, cand.ID, name))
	if err != nil {
		return rowOutcome{}, nil, err
	}

	g := existing
	if g == nil {
		g = &Group{CandidateID: cand.ID}
	}
	in.applyTo(g)

	if existing == nil {
		err = tx.InsertGroup(ctx, g)
	} else {
		err = tx.UpdateGroup(ctx, g)
	}
	return rowOutcome{inserted: existing == nil}, nil, err
}
