// Package nodeindex maps opaque stratigraphic-unit keys to dense integer ids.
package nodeindex

import "github.com/meikuraledutech/stratigraphie"

// Indexer is a bidirectional key <-> id mapping. Ids are assigned
// sequentially from 0 and are never reused until Reset.
type Indexer struct {
	ids  map[string]int
	keys []string
}

// New creates an empty Indexer.
func New() *Indexer {
	return &Indexer{ids: make(map[string]int)}
}

// GetOrCreateID returns the id for key, assigning the next one on first sighting.
func (ix *Indexer) GetOrCreateID(key string) int {
	if id, ok := ix.ids[key]; ok {
		return id
	}
	id := len(ix.keys)
	ix.ids[key] = id
	ix.keys = append(ix.keys, key)
	return id
}

// Lookup returns the id for key without assigning one.
func (ix *Indexer) Lookup(key string) (int, bool) {
	id, ok := ix.ids[key]
	return id, ok
}

// HasKey reports whether key has been assigned an id.
func (ix *Indexer) HasKey(key string) bool {
	_, ok := ix.ids[key]
	return ok
}

// Key returns the key registered under id.
func (ix *Indexer) Key(id int) (string, bool) {
	if id < 0 || id >= len(ix.keys) {
		return "", false
	}
	return ix.keys[id], true
}

// Len returns the number of registered keys.
func (ix *Indexer) Len() int { return len(ix.keys) }

// Keys returns a copy of every registered key in id order.
func (ix *Indexer) Keys() []string {
	out := make([]string, len(ix.keys))
	copy(out, ix.keys)
	return out
}

// Endpoints resolves the anterior and posterior keys of r to ids, creating
// ids as needed. ok is false when r is nil or either endpoint is missing;
// in that case nothing is registered.
func (ix *Indexer) Endpoints(r *stratigraphie.Relation) (anterior, posterior int, ok bool) {
	if r == nil {
		return -1, -1, false
	}
	ak, pk := r.AnteriorKey(), r.PosteriorKey()
	if ak == "" || pk == "" {
		return -1, -1, false
	}
	return ix.GetOrCreateID(ak), ix.GetOrCreateID(pk), true
}

// Reset clears both maps.
func (ix *Indexer) Reset() {
	ix.ids = make(map[string]int)
	ix.keys = nil
}

// Clone returns an independent copy.
func (ix *Indexer) Clone() *Indexer {
	c := &Indexer{
		ids:  make(map[string]int, len(ix.ids)),
		keys: ix.Keys(),
	}
	for k, v := range ix.ids {
		c.ids[k] = v
	}
	return c
}
