// Package memstore is an in-memory core.Store for tests and dry runs.
//
// Transactions are serialized and work on a copy of the data set that
// replaces the committed copy only when the transaction function returns
// nil. Writes made inside a savepoint are logged so a failed savepoint can
// undo exactly its own writes. Natural keys are indexed and their
// uniqueness is enforced the same way the database enforces it.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/canvass/internal/core"
)

type groupKey struct {
	candidateID int64
	name        string
}

type dataset struct {
	persons    map[int64]core.CanvassedPerson
	leaders    map[int64]core.Leader
	candidates map[int64]core.Candidate
	groups     map[int64]core.Group
	batches    []core.BatchRecord
	seq        int64

	// natural key indexes
	personKeys    map[string]int64
	leaderKeys    map[string]int64
	candidateKeys map[string]int64
	groupKeys     map[groupKey]int64
}

func newDataset() *dataset {
	return &dataset{
		persons:       make(map[int64]core.CanvassedPerson),
		leaders:       make(map[int64]core.Leader),
		candidates:    make(map[int64]core.Candidate),
		groups:        make(map[int64]core.Group),
		personKeys:    make(map[string]int64),
		leaderKeys:    make(map[string]int64),
		candidateKeys: make(map[string]int64),
		groupKeys:     make(map[groupKey]int64),
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		persons:       maps.Clone(d.persons),
		leaders:       make(map[int64]core.Leader, len(d.leaders)),
		candidates:    maps.Clone(d.candidates),
		groups:        maps.Clone(d.groups),
		batches:       slices.Clone(d.batches),
		seq:           d.seq,
		personKeys:    maps.Clone(d.personKeys),
		leaderKeys:    maps.Clone(d.leaderKeys),
		candidateKeys: maps.Clone(d.candidateKeys),
		groupKeys:     maps.Clone(d.groupKeys),
	}
	for k, v := range d.leaders {
		if v.GroupID != nil {
			id := *v.GroupID
			v.GroupID = &id
		}
		c.leaders[k] = v
	}
	return c
}

func (d *dataset) nextID() int64 {
	d.seq++
	return d.seq
}

// Fault makes the Nth call (1-based) of an operation fail with Err.
type Fault struct {
	Op    string
	After int
	Err   error
}

// Store is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	data   *dataset
	faults map[string]*faultState
	now    func() time.Time
}

type faultState struct {
	fault Fault
	calls int
}

func New() *Store {
	return &Store{
		data:   newDataset(),
		faults: make(map[string]*faultState),
		now:    time.Now,
	}
}

// InjectFault arms a fault. Operation names match the core.Tx method names,
// for example "InsertPerson".
func (s *Store) InjectFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[f.Op] = &faultState{fault: f}
}

// ClearFaults disarms every fault.
func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]*faultState)
}

// InTx runs fn against a private copy of the data.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{store: s, d: s.data.clone()}
	if err := fn(ctx, t); err != nil {
		return err
	}
	s.data = t.d
	return nil
}

// Counts reports committed records per entity.
type Counts struct {
	Persons    int
	Leaders    int
	Candidates int
	Groups     int
	Batches    int
}

func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		Persons:    len(s.data.persons),
		Leaders:    len(s.data.leaders),
		Candidates: len(s.data.candidates),
		Groups:     len(s.data.groups),
		Batches:    len(s.data.batches),
	}
}

// Persons returns committed persons ordered by id.
func (s *Store) Persons() []core.CanvassedPerson {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.CanvassedPerson, 0, len(s.data.persons))
	for _, p := range s.data.persons {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Person returns the committed person with nationalID.
func (s *Store) Person(nationalID string) (core.CanvassedPerson, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.data.personKeys[nationalID]
	if !ok {
		return core.CanvassedPerson{}, false
	}
	return s.data.persons[id], true
}

// Leader returns the committed leader with nationalID.
func (s *Store) Leader(nationalID string) (core.Leader, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.data.leaderKeys[nationalID]
	if !ok {
		return core.Leader{}, false
	}
	return s.data.leaders[id], true
}

type tx struct {
	store *Store
	d     *dataset
	undo  []func()
	depth int
}

var _ core.Tx = (*tx)(nil)

func (t *tx) fault(op string) error {
	fs, ok := t.store.faults[op]
	if !ok {
		return nil
	}
	fs.calls++
	if fs.calls == fs.fault.After {
		return fs.fault.Err
	}
	return nil
}

// Savepoint undoes the writes fn made when fn fails. Undo entries of a
// successful inner savepoint stay logged until the outermost one ends, so
// an enclosing failure still reverts them.
func (t *tx) Savepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	mark := len(t.undo)
	t.depth++
	err := fn(ctx)
	t.depth--
	if err != nil {
		for i := len(t.undo) - 1; i >= mark; i-- {
			t.undo[i]()
		}
		t.undo = t.undo[:mark]
		return err
	}
	if t.depth == 0 {
		t.undo = t.undo[:0]
	}
	return nil
}

// logUndo is a no-op outside a savepoint: a failed transaction drops its
// whole working copy.
func (t *tx) logUndo(fn func()) {
	if t.depth > 0 {
		t.undo = append(t.undo, fn)
	}
}

// put stores v under id and keeps the natural key index in step.
func put[K comparable, V any](t *tx, rows map[int64]V, keys map[K]int64, id int64, v V, key func(V) K) {
	prev, existed := rows[id]
	if existed {
		delete(keys, key(prev))
	}
	rows[id] = v
	keys[key(v)] = id
	t.logUndo(func() {
		delete(keys, key(v))
		if existed {
			rows[id] = prev
			keys[key(prev)] = id
			return
		}
		delete(rows, id)
	})
}

// heldByOther reports whether k already belongs to a record other than id.
func heldByOther[K comparable](keys map[K]int64, k K, id int64) bool {
	other, ok := keys[k]
	return ok && other != id
}

func personKeyOf(p core.CanvassedPerson) string { return p.NationalID }
func leaderKeyOf(l core.Leader) string          { return l.NationalID }
func candidateKeyOf(c core.Candidate) string    { return c.Name }
func groupKeyOf(g core.Group) groupKey          { return groupKey{g.CandidateID, g.Name} }

func (t *tx) putPerson(p core.CanvassedPerson) {
	put(t, t.d.persons, t.d.personKeys, p.ID, p, personKeyOf)
}

func (t *tx) PersonByNationalID(_ context.Context, nationalID string) (*core.CanvassedPerson, error) {
	id, ok := t.d.personKeys[nationalID]
	if !ok {
		return nil, core.ErrNotFound
	}
	p := t.d.persons[id]
	return &p, nil
}

func (t *tx) PersonByID(_ context.Context, id int64) (*core.CanvassedPerson, error) {
	p, ok := t.d.persons[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &p, nil
}

func (t *tx) InsertPerson(ctx context.Context, p *core.CanvassedPerson) error {
	if err := t.fault("InsertPerson"); err != nil {
		return err
	}
	if _, err := t.PersonByNationalID(ctx, p.NationalID); err == nil {
		return fmt.Errorf("%w: person %s", core.ErrDuplicateNaturalKey, p.NationalID)
	}
	now := t.store.now()
	p.ID = t.d.nextID()
	p.CreatedAt, p.UpdatedAt = now, now
	t.putPerson(*p)
	return nil
}

func (t *tx) UpdatePerson(_ context.Context, p *core.CanvassedPerson) error {
	if err := t.fault("UpdatePerson"); err != nil {
		return err
	}
	cur, ok := t.d.persons[p.ID]
	if !ok {
		return core.ErrNotFound
	}
	if heldByOther(t.d.personKeys, p.NationalID, p.ID) {
		return fmt.Errorf("%w: person %s", core.ErrDuplicateNaturalKey, p.NationalID)
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = t.store.now()
	t.putPerson(*p)
	return nil
}

func (t *tx) LeaderByNationalID(_ context.Context, nationalID string) (*core.Leader, error) {
	id, ok := t.d.leaderKeys[nationalID]
	if !ok {
		return nil, core.ErrNotFound
	}
	l := t.d.leaders[id]
	return &l, nil
}

func (t *tx) LeaderByID(_ context.Context, id int64) (*core.Leader, error) {
	l, ok := t.d.leaders[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &l, nil
}

func (t *tx) InsertLeader(ctx context.Context, l *core.Leader) error {
	if err := t.fault("InsertLeader"); err != nil {
		return err
	}
	if _, err := t.LeaderByNationalID(ctx, l.NationalID); err == nil {
		return fmt.Errorf("%w: leader %s", core.ErrDuplicateNaturalKey, l.NationalID)
	}
	now := t.store.now()
	l.ID = t.d.nextID()
	l.CreatedAt, l.UpdatedAt = now, now
	put(t, t.d.leaders, t.d.leaderKeys, l.ID, *l, leaderKeyOf)
	return nil
}

func (t *tx) UpdateLeader(_ context.Context, l *core.Leader) error {
	if err := t.fault("UpdateLeader"); err != nil {
		return err
	}
	cur, ok := t.d.leaders[l.ID]
	if !ok {
		return core.ErrNotFound
	}
	if heldByOther(t.d.leaderKeys, l.NationalID, l.ID) {
		return fmt.Errorf("%w: leader %s", core.ErrDuplicateNaturalKey, l.NationalID)
	}
	l.CreatedAt = cur.CreatedAt
	l.UpdatedAt = t.store.now()
	put(t, t.d.leaders, t.d.leaderKeys, l.ID, *l, leaderKeyOf)
	return nil
}

func (t *tx) CandidateByName(_ context.Context, name string) (*core.Candidate, error) {
	id, ok := t.d.candidateKeys[name]
	if !ok {
		return nil, core.ErrNotFound
	}
	c := t.d.candidates[id]
	return &c, nil
}

func (t *tx) InsertCandidate(ctx context.Context, c *core.Candidate) error {
	if err := t.fault("InsertCandidate"); err != nil {
		return err
	}
	if _, err := t.CandidateByName(ctx, c.Name); err == nil {
		return fmt.Errorf("%w: candidate %s", core.ErrDuplicateNaturalKey, c.Name)
	}
	now := t.store.now()
	c.ID = t.d.nextID()
	c.CreatedAt, c.UpdatedAt = now, now
	put(t, t.d.candidates, t.d.candidateKeys, c.ID, *c, candidateKeyOf)
	return nil
}

func (t *tx) UpdateCandidate(_ context.Context, c *core.Candidate) error {
	if err := t.fault("UpdateCandidate"); err != nil {
		return err
	}
	cur, ok := t.d.candidates[c.ID]
	if !ok {
		return core.ErrNotFound
	}
	if heldByOther(t.d.candidateKeys, c.Name, c.ID) {
		return fmt.Errorf("%w: candidate %s", core.ErrDuplicateNaturalKey, c.Name)
	}
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = t.store.now()
	put(t, t.d.candidates, t.d.candidateKeys, c.ID, *c, candidateKeyOf)
	return nil
}

func (t *tx) GroupsByName(_ context.Context, name string) ([]core.Group, error) {
	out := []core.Group{}
	for _, g := range t.d.groups {
		if g.Name == name {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) GroupByCandidateAndName(_ context.Context, candidateID int64, name string) (*core.Group, error) {
	id, ok := t.d.groupKeys[groupKey{candidateID, name}]
	if !ok {
		return nil, core.ErrNotFound
	}
	g := t.d.groups[id]
	return &g, nil
}

func (t *tx) InsertGroup(ctx context.Context, g *core.Group) error {
	if err := t.fault("InsertGroup"); err != nil {
		return err
	}
	if _, ok := t.d.candidates[g.CandidateID]; !ok {
		return fmt.Errorf("group %q: candidate %d does not exist", g.Name, g.CandidateID)
	}
	if _, err := t.GroupByCandidateAndName(ctx, g.CandidateID, g.Name); err == nil {
		return fmt.Errorf("%w: group %s", core.ErrDuplicateNaturalKey, g.Name)
	}
	now := t.store.now()
	g.ID = t.d.nextID()
	g.CreatedAt, g.UpdatedAt = now, now
	put(t, t.d.groups, t.d.groupKeys, g.ID, *g, groupKeyOf)
	return nil
}

func (t *tx) UpdateGroup(_ context.Context, g *core.Group) error {
	if err := t.fault("UpdateGroup"); err != nil {
		return err
	}
	cur, ok := t.d.groups[g.ID]
	if !ok {
		return core.ErrNotFound
	}
	if heldByOther(t.d.groupKeys, groupKeyOf(*g), g.ID) {
		return fmt.Errorf("%w: group %s", core.ErrDuplicateNaturalKey, g.Name)
	}
	g.CreatedAt = cur.CreatedAt
	g.UpdatedAt = t.store.now()
	put(t, t.d.groups, t.d.groupKeys, g.ID, *g, groupKeyOf)
	return nil
}

func (t *tx) PendingPersons(_ context.Context, leaderKey string) ([]core.CanvassedPerson, error) {
	out := []core.CanvassedPerson{}
	for _, p := range t.d.persons {
		if key, ok := p.Relationship.LeaderKey(); ok && key == leaderKey {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) AssignPending(ctx context.Context, leaderKey string, leaderID int64, ids []int64) (int64, error) {
	if err := t.fault("AssignPending"); err != nil {
		return 0, err
	}
	pending, _ := t.PendingPersons(ctx, leaderKey)
	var n int64
	now := t.store.now()
	for _, p := range pending {
		if len(ids) > 0 && !slices.Contains(ids, p.ID) {
			continue
		}
		p.Relationship = core.AssignedTo(leaderID)
		p.UpdatedAt = now
		t.putPerson(p)
		n++
	}
	return n, nil
}

func (t *tx) ClearOrphanPending(_ context.Context) (int64, error) {
	var n int64
	now := t.store.now()
	var orphans []core.CanvassedPerson
	for _, p := range t.d.persons {
		key, ok := p.Relationship.LeaderKey()
		if !ok {
			continue
		}
		if _, known := t.d.leaderKeys[key]; !known {
			orphans = append(orphans, p)
		}
	}
	for _, p := range orphans {
		p.Relationship = core.Unassigned()
		p.UpdatedAt = now
		t.putPerson(p)
		n++
	}
	return n, nil
}

func (t *tx) PendingCounts(_ context.Context) ([]core.PendingCount, error) {
	counts := make(map[string]int)
	for _, p := range t.d.persons {
		if key, ok := p.Relationship.LeaderKey(); ok {
			counts[key]++
		}
	}
	out := make([]core.PendingCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, core.PendingCount{LeaderKey: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].LeaderKey < out[j].LeaderKey
	})
	return out, nil
}

func (t *tx) SetRelationship(_ context.Context, personID int64, state core.RelationshipState) error {
	if err := t.fault("SetRelationship"); err != nil {
		return err
	}
	p, ok := t.d.persons[personID]
	if !ok {
		return core.ErrNotFound
	}
	if id, assigned := state.LeaderID(); assigned {
		if _, ok := t.d.leaders[id]; !ok {
			return fmt.Errorf("leader %d: %w", id, core.ErrNotFound)
		}
	}
	p.Relationship = state
	p.UpdatedAt = t.store.now()
	t.putPerson(p)
	return nil
}

func (t *tx) RecordBatch(_ context.Context, rec core.BatchRecord) error {
	if err := t.fault("RecordBatch"); err != nil {
		return err
	}
	n := len(t.d.batches)
	t.d.batches = append(t.d.batches, rec)
	t.logUndo(func() { t.d.batches = t.d.batches[:n] })
	return nil
}

func (t *tx) PruneBatches(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	if err := t.fault("PruneBatches"); err != nil {
		return 0, err
	}
	var deleted int64
	kept := t.d.batches[:0:0]
	for _, rec := range t.d.batches {
		if rec.CreatedAt.Before(cutoff) && deleted < int64(limit) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	prev := t.d.batches
	t.d.batches = kept
	t.logUndo(func() { t.d.batches = prev })
	return deleted, nil
}

func (t *tx) RecentBatches(_ context.Context, limit int) ([]core.BatchRecord, error) {
	out := make([]core.BatchRecord, 0, min(limit, len(t.d.batches)))
	for i := len(t.d.batches) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, t.d.batches[i])
	}
	return out, nil
}
