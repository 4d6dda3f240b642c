// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/ktweb-minutes/internal/minutes"
	"github.com/JakeFAU/ktweb-minutes/internal/store"
)

const uniqueViolation = "23505"

type querier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type pool interface {
	querier
	Begin(context.Context) (pgx.Tx, error)
	Ping(context.Context) error
	Close()
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Repository implements store.Repository on Postgres.
type Repository struct {
	pool pool
}

var _ store.Repository = (*Repository)(nil)

// New connects a pool using cfg.
func New(ctx context.Context, cfg Config) (*Repository, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Repository{pool: p}, nil
}

// NewWithPool wraps an existing pool (primarily for testing).
func NewWithPool(p pool) (*Repository, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Repository{pool: p}, nil
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// IngestMeetingDocument stores doc in a single transaction. A document whose
// origin id is already stored is left untouched and reported with Created false.
func (r *Repository) IngestMeetingDocument(
	ctx context.Context,
	doc minutes.MeetingDocument,
	policymakerName string,
) (store.IngestResult, error) {
	start, ok := doc.StartDatetime()
	if !ok {
		return store.IngestResult{}, fmt.Errorf("ingest %s: %w", doc.OriginID, store.ErrNoStartTime)
	}
	if policymakerName == "" {
		policymakerName = doc.Policymaker
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return store.IngestResult{}, fmt.Errorf("begin ingest: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	policymakerID, err := lookupOrInsert(ctx, tx,
		`SELECT id FROM policymaker WHERE abbreviation = $1`, []any{doc.Policymaker},
		`INSERT INTO policymaker (abbreviation, name) VALUES ($1, $2) RETURNING id`,
		[]any{doc.Policymaker, policymakerName},
	)
	if err != nil {
		return store.IngestResult{}, fmt.Errorf("ingest policymaker %s: %w", doc.Policymaker, err)
	}

	var existing int64
	err = tx.QueryRow(ctx, `SELECT id FROM meeting_document WHERE origin_id = $1`, doc.OriginID).Scan(&existing)
	switch {
	case err == nil:
		if err := tx.Commit(ctx); err != nil {
			return store.IngestResult{}, fmt.Errorf("commit ingest: %w", err)
		}
		committed = true
		return store.IngestResult{MeetingDocumentID: existing, Created: false}, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return store.IngestResult{}, fmt.Errorf("lookup meeting document %s: %w", doc.OriginID, err)
	}

	meetingID, err := lookupOrInsert(ctx, tx,
		`SELECT id FROM meeting WHERE policymaker_id = $1 AND start_datetime = $2`,
		[]any{policymakerID, start},
		`INSERT INTO meeting (policymaker_id, start_datetime) VALUES ($1, $2) RETURNING id`,
		[]any{policymakerID, start},
	)
	if err != nil {
		return store.IngestResult{}, fmt.Errorf("ingest meeting: %w", err)
	}

	var docID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO meeting_document (meeting_id, origin_url, origin_id, type, place, publish_datetime)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		meetingID, doc.OriginURL, doc.OriginID, store.DocumentTypeOf(doc.Type), doc.Place, doc.PublishDatetime,
	).Scan(&docID)
	if err != nil {
		return store.IngestResult{}, fmt.Errorf("insert meeting document %s: %w", doc.OriginID, mapError(err))
	}

	for _, s := range doc.Sessions {
		_, err := tx.Exec(ctx,
			`INSERT INTO meeting_session (meeting_document_id, start_datetime, end_datetime) VALUES ($1, $2, $3)`,
			docID, s.Start, s.End,
		)
		if err != nil {
			return store.IngestResult{}, fmt.Errorf("insert meeting session: %w", err)
		}
	}

	for _, p := range store.ParticipantsOf(doc.Participants) {
		_, err := tx.Exec(ctx,
			`INSERT INTO participant (meeting_document_id, name, role) VALUES ($1, $2, $3)
			ON CONFLICT (meeting_document_id, name) DO NOTHING`,
			docID, p.Name, p.Role,
		)
		if err != nil {
			return store.IngestResult{}, fmt.Errorf("insert participant %s: %w", p.Name, err)
		}
	}

	for _, item := range doc.AgendaItems {
		_, err := tx.Exec(ctx,
			`INSERT INTO agenda_item (meeting_document_id, index, subject, dnro, preparers, introducers,
			resolution, resolution_category)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (meeting_document_id, index) DO NOTHING`,
			docID, item.Index, item.Subject, item.Dnro, nonNil(item.Preparers), nonNil(item.Introducers),
			item.Resolution, store.ResolutionCategoryOf(item.ResolutionCategory),
		)
		if err != nil {
			return store.IngestResult{}, fmt.Errorf("insert agenda item %d: %w", item.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return store.IngestResult{}, fmt.Errorf("commit ingest: %w", mapError(err))
	}
	committed = true
	return store.IngestResult{MeetingDocumentID: docID, Created: true}, nil
}

func lookupOrInsert(
	ctx context.Context,
	q querier,
	selectSQL string,
	selectArgs []any,
	insertSQL string,
	insertArgs []any,
) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, selectSQL, selectArgs...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("lookup: %w", err)
	}
	if err := q.QueryRow(ctx, insertSQL, insertArgs...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert: %w", mapError(err))
	}
	return id, nil
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
