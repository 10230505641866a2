package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/stratigraphie"
)

// SaveSnapshot replaces the stored snapshot of a site in one transaction.
// Node and relation order is kept through a position column.
func (s *PGStore) SaveSnapshot(ctx context.Context, siteID string, snap *stratigraphie.Snapshot) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("stratigraphie: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace semantics: drop the previous snapshot, keep the site row.
	if _, err := tx.Exec(ctx,
		`INSERT INTO strat_sites (id) VALUES ($1) ON CONFLICT (id) DO UPDATE SET saved_at = NOW()`,
		siteID,
	); err != nil {
		return fmt.Errorf("stratigraphie: upsert site: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM strat_relations WHERE site_id = $1`, siteID); err != nil {
		return fmt.Errorf("stratigraphie: delete relations: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM strat_nodes WHERE site_id = $1`, siteID); err != nil {
		return fmt.Errorf("stratigraphie: delete nodes: %w", err)
	}

	for i, key := range snap.Nodes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO strat_nodes (site_id, key, position) VALUES ($1, $2, $3)`,
			siteID, key, i,
		); err != nil {
			return fmt.Errorf("stratigraphie: insert node %s: %w", key, err)
		}
	}

	for i, r := range snap.Relations {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("stratigraphie: encode relation %s: %w", r.ID, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO strat_relations (site_id, relation_id, position, data) VALUES ($1, $2, $3, $4)`,
			siteID, r.ID, i, data,
		); err != nil {
			return fmt.Errorf("stratigraphie: insert relation %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("stratigraphie: commit: %w", err)
	}
	return nil
}

// LoadSnapshot retrieves the stored snapshot of a site.
// Returns nil, nil if nothing was saved for siteID.
func (s *PGStore) LoadSnapshot(ctx context.Context, siteID string) (*stratigraphie.Snapshot, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT TRUE FROM strat_sites WHERE id = $1`, siteID).Scan(&exists)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stratigraphie: get site: %w", err)
	}

	snap := &stratigraphie.Snapshot{Nodes: []string{}, Relations: []stratigraphie.Relation{}}

	rows, err := s.db.Query(ctx,
		`SELECT key FROM strat_nodes WHERE site_id = $1 ORDER BY position`, siteID)
	if err != nil {
		return nil, fmt.Errorf("stratigraphie: query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("stratigraphie: scan node: %w", err)
		}
		snap.Nodes = append(snap.Nodes, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stratigraphie: rows nodes: %w", err)
	}

	rows, err = s.db.Query(ctx,
		`SELECT data FROM strat_relations WHERE site_id = $1 ORDER BY position`, siteID)
	if err != nil {
		return nil, fmt.Errorf("stratigraphie: query relations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("stratigraphie: scan relation: %w", err)
		}
		var r stratigraphie.Relation
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("stratigraphie: decode relation: %w", err)
		}
		snap.Relations = append(snap.Relations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stratigraphie: rows relations: %w", err)
	}

	return snap, nil
}

// DeleteSnapshot removes everything stored for siteID.
// No error if the site doesn't exist.
func (s *PGStore) DeleteSnapshot(ctx context.Context, siteID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM strat_sites WHERE id = $1`, siteID); err != nil {
		return fmt.Errorf("stratigraphie: delete site: %w", err)
	}
	return nil
}
