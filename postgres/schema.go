package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS strat_sites (
    id         TEXT PRIMARY KEY,
    saved_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS strat_nodes (
    site_id    TEXT NOT NULL REFERENCES strat_sites(id) ON DELETE CASCADE,
    key        TEXT NOT NULL,
    position   INTEGER NOT NULL,
    PRIMARY KEY (site_id, key)
);

CREATE TABLE IF NOT EXISTS strat_relations (
    site_id     TEXT NOT NULL REFERENCES strat_sites(id) ON DELETE CASCADE,
    relation_id TEXT NOT NULL,
    position    INTEGER NOT NULL,
    data        JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (site_id, relation_id)
);

CREATE INDEX IF NOT EXISTS idx_strat_nodes_position     ON strat_nodes(site_id, position);
CREATE INDEX IF NOT EXISTS idx_strat_relations_position ON strat_relations(site_id, position);
`

// CreateSchema creates the snapshot tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the snapshot tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS strat_relations, strat_nodes, strat_sites CASCADE;`)
	return err
}
