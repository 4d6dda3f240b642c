package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/ktweb-minutes/internal/store"
)

// Column whitelists for ORDER BY. Keys are store.Order* values.
var (
	policymakerOrder = map[string]string{
		store.OrderID:           "id",
		store.OrderAbbreviation: "abbreviation",
		store.OrderName:         "name",
	}
	meetingOrder = map[string]string{
		store.OrderID:            "id",
		store.OrderStartDatetime: "start_datetime",
	}
	meetingDocumentOrder = map[string]string{
		store.OrderID:              "d.id",
		store.OrderOriginID:        "d.origin_id",
		store.OrderPublishDatetime: "d.publish_datetime",
	}
	agendaItemOrder = map[string]string{
		store.OrderID:    "id",
		store.OrderIndex: "index",
	}
)

func orderClause(q store.Query, columns map[string]string, tiebreak string) (string, error) {
	key := q.OrderBy
	if key == "" {
		key = store.OrderID
	}
	col, ok := columns[key]
	if !ok {
		return "", fmt.Errorf("unsupported order %q", q.OrderBy)
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	clause := " ORDER BY " + col + " " + dir
	if col != tiebreak {
		clause += ", " + tiebreak
	}
	return clause, nil
}

func (r *Repository) count(ctx context.Context, sql string, args ...any) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return total, nil
}

const policymakerFilter = ` FROM policymaker WHERE ($1 = '' OR abbreviation = $1)`

// ListPolicymakers returns a page of policymakers.
func (r *Repository) ListPolicymakers(ctx context.Context, q store.Query) ([]store.Policymaker, int, error) {
	order, err := orderClause(q, policymakerOrder, "id")
	if err != nil {
		return nil, 0, err
	}
	total, err := r.count(ctx, `SELECT count(*)`+policymakerFilter, q.Abbreviation)
	if err != nil {
		return nil, 0, fmt.Errorf("list policymakers: %w", err)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, abbreviation, name`+policymakerFilter+order+` LIMIT $2 OFFSET $3`,
		q.Abbreviation, q.Limit, q.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list policymakers: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Policymaker, error) {
		var p store.Policymaker
		err := row.Scan(&p.ID, &p.Abbreviation, &p.Name)
		return p, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan policymakers: %w", err)
	}
	return out, total, nil
}

// GetPolicymaker returns one policymaker by id.
func (r *Repository) GetPolicymaker(ctx context.Context, id int64) (store.Policymaker, error) {
	var p store.Policymaker
	err := r.pool.QueryRow(ctx, `SELECT id, abbreviation, name FROM policymaker WHERE id = $1`, id).
		Scan(&p.ID, &p.Abbreviation, &p.Name)
	if err != nil {
		return store.Policymaker{}, notFound("get policymaker", err)
	}
	return p, nil
}

const meetingFilter = ` FROM meeting WHERE ($1 = 0 OR policymaker_id = $1)`

// ListMeetings returns a page of meetings.
func (r *Repository) ListMeetings(ctx context.Context, q store.Query) ([]store.Meeting, int, error) {
	order, err := orderClause(q, meetingOrder, "id")
	if err != nil {
		return nil, 0, err
	}
	total, err := r.count(ctx, `SELECT count(*)`+meetingFilter, q.PolicymakerID)
	if err != nil {
		return nil, 0, fmt.Errorf("list meetings: %w", err)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, policymaker_id, start_datetime`+meetingFilter+order+` LIMIT $2 OFFSET $3`,
		q.PolicymakerID, q.Limit, q.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list meetings: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Meeting, error) {
		var m store.Meeting
		err := row.Scan(&m.ID, &m.PolicymakerID, &m.StartDatetime)
		return m, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan meetings: %w", err)
	}
	return out, total, nil
}

// GetMeeting returns one meeting by id.
func (r *Repository) GetMeeting(ctx context.Context, id int64) (store.Meeting, error) {
	var m store.Meeting
	err := r.pool.QueryRow(ctx, `SELECT id, policymaker_id, start_datetime FROM meeting WHERE id = $1`, id).
		Scan(&m.ID, &m.PolicymakerID, &m.StartDatetime)
	if err != nil {
		return store.Meeting{}, notFound("get meeting", err)
	}
	return m, nil
}

const (
	meetingDocumentColumns = `SELECT d.id, d.meeting_id, m.policymaker_id, d.origin_id, d.origin_url, d.type,
		d.place, d.publish_datetime`
	meetingDocumentFrom   = ` FROM meeting_document d JOIN meeting m ON m.id = d.meeting_id`
	meetingDocumentFilter = meetingDocumentFrom +
		` WHERE ($1 = 0 OR d.meeting_id = $1) AND ($2 = 0 OR m.policymaker_id = $2)`
)

func scanMeetingDocument(row pgx.Row) (store.MeetingDocument, error) {
	var d store.MeetingDocument
	err := row.Scan(&d.ID, &d.MeetingID, &d.PolicymakerID, &d.OriginID, &d.OriginURL, &d.Type,
		&d.Place, &d.PublishDatetime)
	return d, err
}

// ListMeetingDocuments returns a page of meeting documents with their
// sessions and participants.
func (r *Repository) ListMeetingDocuments(ctx context.Context, q store.Query) ([]store.MeetingDocument, int, error) {
	order, err := orderClause(q, meetingDocumentOrder, "d.id")
	if err != nil {
		return nil, 0, err
	}
	total, err := r.count(ctx, `SELECT count(*)`+meetingDocumentFilter, q.MeetingID, q.PolicymakerID)
	if err != nil {
		return nil, 0, fmt.Errorf("list meeting documents: %w", err)
	}
	rows, err := r.pool.Query(ctx,
		meetingDocumentColumns+meetingDocumentFilter+order+` LIMIT $3 OFFSET $4`,
		q.MeetingID, q.PolicymakerID, q.Limit, q.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list meeting documents: %w", err)
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.MeetingDocument, error) {
		return scanMeetingDocument(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan meeting documents: %w", err)
	}
	if err := r.loadChildren(ctx, docs); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// GetMeetingDocument returns one meeting document by id.
func (r *Repository) GetMeetingDocument(ctx context.Context, id int64) (store.MeetingDocument, error) {
	d, err := scanMeetingDocument(r.pool.QueryRow(ctx,
		meetingDocumentColumns+meetingDocumentFrom+` WHERE d.id = $1`, id))
	if err != nil {
		return store.MeetingDocument{}, notFound("get meeting document", err)
	}
	docs := []store.MeetingDocument{d}
	if err := r.loadChildren(ctx, docs); err != nil {
		return store.MeetingDocument{}, err
	}
	return docs[0], nil
}

// loadChildren fills sessions and participants for docs in two queries.
func (r *Repository) loadChildren(ctx context.Context, docs []store.MeetingDocument) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]int64, len(docs))
	byID := make(map[int64]*store.MeetingDocument, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
		docs[i].Sessions = []store.Session{}
		docs[i].Participants = []store.Participant{}
		byID[docs[i].ID] = &docs[i]
	}

	rows, err := r.pool.Query(ctx,
		`SELECT meeting_document_id, start_datetime, end_datetime FROM meeting_session
		WHERE meeting_document_id = ANY($1) ORDER BY start_datetime, id`, ids)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	for rows.Next() {
		var docID int64
		var s store.Session
		if err := rows.Scan(&docID, &s.Start, &s.End); err != nil {
			rows.Close()
			return fmt.Errorf("scan session: %w", err)
		}
		if d := byID[docID]; d != nil {
			d.Sessions = append(d.Sessions, s)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	rows, err = r.pool.Query(ctx,
		`SELECT meeting_document_id, name, role FROM participant
		WHERE meeting_document_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var docID int64
		var p store.Participant
		if err := rows.Scan(&docID, &p.Name, &p.Role); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		if d := byID[docID]; d != nil {
			d.Participants = append(d.Participants, p)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	return nil
}

const (
	agendaItemColumns = `SELECT id, meeting_document_id, index, subject, dnro, preparers, introducers,
		resolution, resolution_category`
	agendaItemFilter = ` FROM agenda_item WHERE ($1 = 0 OR meeting_document_id = $1) AND ($2 = '' OR dnro = $2)`
)

func scanAgendaItem(row pgx.Row) (store.AgendaItem, error) {
	var a store.AgendaItem
	err := row.Scan(&a.ID, &a.MeetingDocumentID, &a.Index, &a.Subject, &a.Dnro, &a.Preparers,
		&a.Introducers, &a.Resolution, &a.ResolutionCategory)
	return a, err
}

// ListAgendaItems returns a page of agenda items.
func (r *Repository) ListAgendaItems(ctx context.Context, q store.Query) ([]store.AgendaItem, int, error) {
	order, err := orderClause(q, agendaItemOrder, "id")
	if err != nil {
		return nil, 0, err
	}
	total, err := r.count(ctx, `SELECT count(*)`+agendaItemFilter, q.MeetingDocumentID, q.Dnro)
	if err != nil {
		return nil, 0, fmt.Errorf("list agenda items: %w", err)
	}
	rows, err := r.pool.Query(ctx,
		agendaItemColumns+agendaItemFilter+order+` LIMIT $3 OFFSET $4`,
		q.MeetingDocumentID, q.Dnro, q.Limit, q.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list agenda items: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.AgendaItem, error) {
		return scanAgendaItem(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan agenda items: %w", err)
	}
	return out, total, nil
}

// GetAgendaItem returns one agenda item by id.
func (r *Repository) GetAgendaItem(ctx context.Context, id int64) (store.AgendaItem, error) {
	a, err := scanAgendaItem(r.pool.QueryRow(ctx, agendaItemColumns+` FROM agenda_item WHERE id = $1`, id))
	if err != nil {
		return store.AgendaItem{}, notFound("get agenda item", err)
	}
	return a, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
