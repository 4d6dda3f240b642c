package postgres

import (
	"context"
	"fmt"
)

// schemaStatements create the tables used by Repository. Each statement is
// idempotent so EnsureSchema can run on every start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS policymaker (
		id BIGSERIAL PRIMARY KEY,
		abbreviation TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS meeting (
		id BIGSERIAL PRIMARY KEY,
		policymaker_id BIGINT NOT NULL REFERENCES policymaker (id),
		start_datetime TIMESTAMPTZ NOT NULL,
		UNIQUE (policymaker_id, start_datetime)
	)`,
	`CREATE TABLE IF NOT EXISTS meeting_document (
		id BIGSERIAL PRIMARY KEY,
		meeting_id BIGINT NOT NULL REFERENCES meeting (id),
		origin_url TEXT NOT NULL DEFAULT '',
		origin_id TEXT NOT NULL UNIQUE,
		type TEXT,
		place TEXT NOT NULL DEFAULT '',
		publish_datetime TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS meeting_session (
		id BIGSERIAL PRIMARY KEY,
		meeting_document_id BIGINT NOT NULL REFERENCES meeting_document (id),
		start_datetime TIMESTAMPTZ NOT NULL,
		end_datetime TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS participant (
		id BIGSERIAL PRIMARY KEY,
		meeting_document_id BIGINT NOT NULL REFERENCES meeting_document (id),
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		UNIQUE (meeting_document_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS agenda_item (
		id BIGSERIAL PRIMARY KEY,
		meeting_document_id BIGINT NOT NULL REFERENCES meeting_document (id),
		index INTEGER NOT NULL,
		subject TEXT NOT NULL,
		dnro TEXT,
		preparers TEXT[] NOT NULL DEFAULT '{}',
		introducers TEXT[] NOT NULL DEFAULT '{}',
		resolution TEXT,
		resolution_category TEXT,
		UNIQUE (meeting_document_id, index)
	)`,
	`CREATE INDEX IF NOT EXISTS agenda_item_dnro_idx ON agenda_item (dnro)`,
}

// EnsureSchema creates missing tables and indexes.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
