// Package stratigraphie defines the relation payloads, results and storage
// contract shared by the validation engine and its transports.
package stratigraphie

// Relation is a stratigraphic relation between two units as supplied by the
// record-management layer. Anterior/posterior keys carry a base-unit key and
// a grouping key; the base-unit key wins when both are set.
type Relation struct {
	ID             string `json:"relation_id"`
	Live           bool   `json:"live"`
	Contemporain   bool   `json:"is_contemporain"`
	AnteriorUS     string `json:"us_anterieure,omitempty"`
	AnteriorGroup  string `json:"groupe_anterieur,omitempty"`
	PosteriorUS    string `json:"us_posterieure,omitempty"`
	PosteriorGroup string `json:"groupe_posterieur,omitempty"`
}

// AnteriorKey returns the key of the anterior endpoint, or "" when missing.
func (r *Relation) AnteriorKey() string {
	return firstNonEmpty(r.AnteriorUS, r.AnteriorGroup)
}

// PosteriorKey returns the key of the posterior endpoint, or "" when missing.
func (r *Relation) PosteriorKey() string {
	return firstNonEmpty(r.PosteriorUS, r.PosteriorGroup)
}

func firstNonEmpty(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

// Diff is a batch of relation changes applied atomically.
// Removed lists relation ids; Updated replaces existing records.
type Diff struct {
	Added   []Relation `json:"added,omitempty"`
	Removed []string   `json:"removed,omitempty"`
	Updated []Relation `json:"updated,omitempty"`
}

// Reason explains why a relation was rejected.
type Reason string

const (
	ReasonSelfTargeting   Reason = "SELF_TARGETING"
	ReasonCycleDetected   Reason = "CYCLE_DETECTED"
	ReasonPresentConflict Reason = "PRESENT_CONFLICT"
	ReasonInvalidEndpoint Reason = "INVALID_ENDPOINT"
)

// ValidationResult is the non-fatal outcome of checking a single relation.
type ValidationResult struct {
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason,omitempty"`
}

// Valid is the accepting result.
func Valid() ValidationResult { return ValidationResult{OK: true} }

// Rejected builds a rejecting result.
func Rejected(reason Reason) ValidationResult {
	return ValidationResult{Reason: reason}
}

// Stats are diagnostic counters over the working graph.
type Stats struct {
	Components int `json:"components"`
	Edges      int `json:"edges"`
	Nodes      int `json:"nNodes"`
}

// Snapshot is the full caller-side state needed to rebuild a graph on a
// cold start: every known node key and every live relation, in order.
type Snapshot struct {
	Nodes     []string   `json:"nodes"`
	Relations []Relation `json:"relations"`
}
