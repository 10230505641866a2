package validator

import "github.com/meikuraledutech/stratigraphie"

// recordSet holds applied relations keyed by id, in first-applied order.
// Overwriting a record keeps its position so a rebuild replays relations in
// the order they originally joined the graph.
type recordSet struct {
	byID  map[string]stratigraphie.Relation
	order []string
}

func newRecordSet() *recordSet {
	return &recordSet{byID: make(map[string]stratigraphie.Relation)}
}

func (s *recordSet) put(r stratigraphie.Relation) {
	if _, ok := s.byID[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.byID[r.ID] = r
}

func (s *recordSet) get(id string) (stratigraphie.Relation, bool) {
	r, ok := s.byID[id]
	return r, ok
}

func (s *recordSet) delete(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *recordSet) len() int { return len(s.order) }

// list returns the records in order, skipping ids in drop.
func (s *recordSet) list(drop map[string]struct{}) []stratigraphie.Relation {
	out := make([]stratigraphie.Relation, 0, len(s.order))
	for _, id := range s.order {
		if _, skip := drop[id]; skip {
			continue
		}
		out = append(out, s.byID[id])
	}
	return out
}

func (s *recordSet) clone() *recordSet {
	c := &recordSet{
		byID:  make(map[string]stratigraphie.Relation, len(s.byID)),
		order: append([]string(nil), s.order...),
	}
	for k, v := range s.byID {
		c.byID[k] = v
	}
	return c
}
