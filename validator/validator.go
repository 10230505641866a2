// Package validator keeps a set of stratigraphic relations free of
// contradictions.
//
// Contemporaneous units are grouped into components with a disjoint set;
// anterior/posterior relations become edges of a DAG over component roots.
// A relation is accepted only if it can join the current graph without
// closing a cycle or contradicting an existing order.
//
// # Rejections and fatal errors
//
// Ordinary rejections are returned as [stratigraphie.ValidationResult]
// values. InitGraph and ApplyDiff return an [*stratigraphie.IntegrityError]
// when a relation set expected to be consistent is not; ApplyDiff restores
// the pre-diff graph before returning it.
//
// A Validator is not safe for concurrent use. Use package worker to share
// one between goroutines.
package validator

import (
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/meikuraledutech/stratigraphie"
	"github.com/meikuraledutech/stratigraphie/compdag"
	"github.com/meikuraledutech/stratigraphie/nodeindex"
	"github.com/meikuraledutech/stratigraphie/unionfind"
)

// Validator orchestrates the indexer, the disjoint set and the component DAG.
type Validator struct {
	index   *nodeindex.Indexer
	sets    *unionfind.DisjointSet
	graph   *compdag.Graph
	records *recordSet
	logger  *log.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for rebuild and rollback events.
func WithLogger(l *log.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New creates an empty Validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		index:   nodeindex.New(),
		sets:    unionfind.New(0),
		graph:   compdag.New(0),
		records: newRecordSet(),
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Reset clears every node, component, edge and relation record.
func (v *Validator) Reset() {
	v.index.Reset()
	v.sets.Reset()
	v.graph.Reset()
	v.records = newRecordSet()
}

// InitGraph replaces the whole state: it registers nodes, then applies every
// live relation in order. The first rejection resets the validator and is
// returned as an *IntegrityError wrapping ErrIntegrity.
func (v *Validator) InitGraph(nodes []string, relations []stratigraphie.Relation) error {
	if err := v.load(nodes, relations); err != nil {
		v.Reset()
		return err
	}
	v.logger.Debug("graph initialised", "nodes", v.index.Len(), "relations", v.records.len())
	return nil
}

// load resets and replays nodes and relations. It does not clean up after a
// failure; callers decide between reset and restore.
func (v *Validator) load(nodes []string, relations []stratigraphie.Relation) error {
	v.Reset()
	for _, key := range nodes {
		v.register(key)
	}
	for i := range relations {
		r := &relations[i]
		if !r.Live {
			continue
		}
		if res := v.ApplyRelation(r); !res.OK {
			return &stratigraphie.IntegrityError{
				RelationID: r.ID,
				Reason:     res.Reason,
				Cause:      stratigraphie.ErrIntegrity,
			}
		}
	}
	return nil
}

// register assigns an id to key and grows the disjoint set and DAG with it.
func (v *Validator) register(key string) int {
	id := v.index.GetOrCreateID(key)
	v.sets.EnsureSize(v.index.Len())
	v.graph.EnsureCapacity(v.index.Len())
	return id
}

// roots resolves both endpoints of r to component roots, registering
// unknown keys.
func (v *Validator) roots(r *stratigraphie.Relation) (anterior, posterior int, ok bool) {
	a, p, ok := v.index.Endpoints(r)
	if !ok {
		return -1, -1, false
	}
	v.sets.EnsureSize(v.index.Len())
	v.graph.EnsureCapacity(v.index.Len())
	return v.sets.Find(a), v.sets.Find(p), true
}

// peekRoots resolves endpoints without registering anything. Keys never
// seen before get virtual ids past the end of the index; they behave as
// isolated singletons.
func (v *Validator) peekRoots(r *stratigraphie.Relation) (anterior, posterior int, ok bool) {
	ak, pk := r.AnteriorKey(), r.PosteriorKey()
	if ak == "" || pk == "" {
		return -1, -1, false
	}
	next := v.index.Len()
	resolve := func(key string) int {
		if id, ok := v.index.Lookup(key); ok {
			return v.sets.Find(id)
		}
		if key == ak {
			return next
		}
		return next + 1
	}
	return resolve(ak), resolve(pk), true
}

// ValidateRelation reports whether r could be applied. It never mutates
// the graph.
func (v *Validator) ValidateRelation(r *stratigraphie.Relation) stratigraphie.ValidationResult {
	if r == nil {
		return stratigraphie.Rejected(stratigraphie.ReasonInvalidEndpoint)
	}
	a, p, ok := v.peekRoots(r)
	if !ok {
		return stratigraphie.Rejected(stratigraphie.ReasonInvalidEndpoint)
	}
	return v.check(r.Contemporain, a, p)
}

func (v *Validator) check(contemporain bool, a, p int) stratigraphie.ValidationResult {
	if contemporain {
		if a == p {
			return stratigraphie.Valid()
		}
		if v.graph.CanReach(a, p) || v.graph.CanReach(p, a) {
			return stratigraphie.Rejected(stratigraphie.ReasonPresentConflict)
		}
		return stratigraphie.Valid()
	}
	if a == p {
		return stratigraphie.Rejected(stratigraphie.ReasonSelfTargeting)
	}
	if v.graph.CanReach(p, a) {
		return stratigraphie.Rejected(stratigraphie.ReasonCycleDetected)
	}
	return stratigraphie.Valid()
}

// ApplyRelation validates r and, on success, merges its endpoints or adds
// the order edge, then stores the record. A tombstone (Live false) only
// deletes the stored record.
func (v *Validator) ApplyRelation(r *stratigraphie.Relation) stratigraphie.ValidationResult {
	if r == nil {
		return stratigraphie.Rejected(stratigraphie.ReasonInvalidEndpoint)
	}
	if !r.Live {
		v.records.delete(r.ID)
		return stratigraphie.Valid()
	}
	if res := v.ValidateRelation(r); !res.OK {
		return res
	}

	a, p, _ := v.roots(r)
	if r.Contemporain {
		if u := v.sets.Union(a, p); u.Merged {
			v.graph.ContractMerge(u.Root, u.Absorbed)
		}
	} else if !v.graph.TryAddEdge(a, p) {
		return stratigraphie.Rejected(stratigraphie.ReasonCycleDetected)
	}

	v.records.put(*r)
	return stratigraphie.Valid()
}

// state is a full copy of the working graph used to roll back a diff.
type state struct {
	index   *nodeindex.Indexer
	sets    *unionfind.DisjointSet
	graph   *compdag.Graph
	records *recordSet
}

func (v *Validator) save() state {
	return state{
		index:   v.index.Clone(),
		sets:    v.sets.Clone(),
		graph:   v.graph.Clone(),
		records: v.records.clone(),
	}
}

func (v *Validator) restore(s state) {
	v.index, v.sets, v.graph, v.records = s.index, s.sets, s.graph, s.records
}

// ApplyDiff drops removed and updated relation ids, rebuilds the graph from
// the remaining records, then applies Updated followed by Added. Either the
// whole diff applies or the graph is restored to its pre-diff state and an
// *IntegrityError wrapping ErrDiffRejected names the first failing relation.
func (v *Validator) ApplyDiff(d stratigraphie.Diff) error {
	before := v.save()

	drop := make(map[string]struct{}, len(d.Removed)+len(d.Updated))
	for _, id := range d.Removed {
		drop[id] = struct{}{}
	}
	for _, r := range d.Updated {
		drop[r.ID] = struct{}{}
	}

	if err := v.load(before.index.Keys(), before.records.list(drop)); err != nil {
		return v.rollback(before, err)
	}

	changes := make([]stratigraphie.Relation, 0, len(d.Updated)+len(d.Added))
	changes = append(changes, d.Updated...)
	changes = append(changes, d.Added...)
	for i := range changes {
		r := &changes[i]
		if res := v.ApplyRelation(r); !res.OK {
			return v.rollback(before, &stratigraphie.IntegrityError{
				RelationID: r.ID,
				Reason:     res.Reason,
			})
		}
	}

	v.logger.Debug("diff applied",
		"added", len(d.Added), "removed", len(d.Removed), "updated", len(d.Updated),
		"relations", v.records.len())
	return nil
}

func (v *Validator) rollback(before state, err error) error {
	v.restore(before)

	var ie *stratigraphie.IntegrityError
	if !errors.As(err, &ie) {
		return err
	}
	rejected := &stratigraphie.IntegrityError{
		RelationID: ie.RelationID,
		Reason:     ie.Reason,
		Cause:      stratigraphie.ErrDiffRejected,
	}
	v.logger.Warn("diff rolled back", "relation", ie.RelationID, "reason", ie.Reason)
	return rejected
}

// Stats returns diagnostic counters.
func (v *Validator) Stats() stratigraphie.Stats {
	return stratigraphie.Stats{
		Components: v.sets.ComponentCount(),
		Edges:      v.graph.EdgeCount(),
		Nodes:      v.index.Len(),
	}
}

// Snapshot returns every known node key and every stored relation, enough
// to rebuild an identical graph with InitGraph.
func (v *Validator) Snapshot() stratigraphie.Snapshot {
	return stratigraphie.Snapshot{
		Nodes:     v.index.Keys(),
		Relations: v.records.list(nil),
	}
}

// Relation returns the stored record for id.
func (v *Validator) Relation(id string) (stratigraphie.Relation, bool) {
	return v.records.get(id)
}
