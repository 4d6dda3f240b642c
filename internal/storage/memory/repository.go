// Package memory provides in-process implementations for development and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/JakeFAU/ktweb-minutes/internal/minutes"
	"github.com/JakeFAU/ktweb-minutes/internal/store"
)

// Repository keeps ingested documents in maps guarded by a mutex. It follows
// the same uniqueness rules as the Postgres schema.
type Repository struct {
	mu sync.RWMutex

	nextID int64

	policymakers map[int64]store.Policymaker
	meetings     map[int64]store.Meeting
	documents    map[int64]store.MeetingDocument
	items        map[int64]store.AgendaItem

	policymakerByAbbr map[string]int64
	meetingByKey      map[meetingKey]int64
	documentByOrigin  map[string]int64
}

type meetingKey struct {
	policymakerID int64
	start         int64
}

var _ store.Repository = (*Repository)(nil)

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		policymakers:      make(map[int64]store.Policymaker),
		meetings:          make(map[int64]store.Meeting),
		documents:         make(map[int64]store.MeetingDocument),
		items:             make(map[int64]store.AgendaItem),
		policymakerByAbbr: make(map[string]int64),
		meetingByKey:      make(map[meetingKey]int64),
		documentByOrigin:  make(map[string]int64),
	}
}

func (r *Repository) id() int64 {
	r.nextID++
	return r.nextID
}

// IngestMeetingDocument stores doc unless its origin id is already known.
func (r *Repository) IngestMeetingDocument(
	_ context.Context,
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

	r.mu.Lock()
	defer r.mu.Unlock()

	pmID, ok := r.policymakerByAbbr[doc.Policymaker]
	if !ok {
		pmID = r.id()
		r.policymakers[pmID] = store.Policymaker{ID: pmID, Abbreviation: doc.Policymaker, Name: policymakerName}
		r.policymakerByAbbr[doc.Policymaker] = pmID
	}

	if existing, ok := r.documentByOrigin[doc.OriginID]; ok {
		return store.IngestResult{MeetingDocumentID: existing, Created: false}, nil
	}

	key := meetingKey{policymakerID: pmID, start: start.UnixNano()}
	meetingID, ok := r.meetingByKey[key]
	if !ok {
		meetingID = r.id()
		r.meetings[meetingID] = store.Meeting{ID: meetingID, PolicymakerID: pmID, StartDatetime: start}
		r.meetingByKey[key] = meetingID
	}

	docID := r.id()
	participants := make([]store.Participant, 0, doc.Participants.Count())
	seen := make(map[string]bool)
	for _, p := range store.ParticipantsOf(doc.Participants) {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		participants = append(participants, p)
	}
	r.documents[docID] = store.MeetingDocument{
		ID:              docID,
		MeetingID:       meetingID,
		PolicymakerID:   pmID,
		OriginID:        doc.OriginID,
		OriginURL:       doc.OriginURL,
		Type:            store.DocumentTypeOf(doc.Type),
		Place:           doc.Place,
		PublishDatetime: doc.PublishDatetime,
		Sessions:        store.SessionsOf(doc.Sessions),
		Participants:    participants,
	}
	r.documentByOrigin[doc.OriginID] = docID

	indexes := make(map[int]bool)
	for _, item := range doc.AgendaItems {
		if indexes[item.Index] {
			continue
		}
		indexes[item.Index] = true
		id := r.id()
		r.items[id] = store.AgendaItem{
			ID:                 id,
			MeetingDocumentID:  docID,
			Index:              item.Index,
			Subject:            item.Subject,
			Dnro:               item.Dnro,
			Preparers:          slices.Clone(orEmpty(item.Preparers)),
			Introducers:        slices.Clone(orEmpty(item.Introducers)),
			Resolution:         item.Resolution,
			ResolutionCategory: store.ResolutionCategoryOf(item.ResolutionCategory),
		}
	}
	return store.IngestResult{MeetingDocumentID: docID, Created: true}, nil
}

// ListPolicymakers returns a page of policymakers.
func (r *Repository) ListPolicymakers(_ context.Context, q store.Query) ([]store.Policymaker, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []store.Policymaker
	for _, p := range r.policymakers {
		if q.Abbreviation != "" && p.Abbreviation != q.Abbreviation {
			continue
		}
		out = append(out, p)
	}
	less, err := sorter(q, map[string]func(a, b store.Policymaker) int{
		store.OrderID:           func(a, b store.Policymaker) int { return cmp.Compare(a.ID, b.ID) },
		store.OrderAbbreviation: func(a, b store.Policymaker) int { return cmp.Compare(a.Abbreviation, b.Abbreviation) },
		store.OrderName:         func(a, b store.Policymaker) int { return cmp.Compare(a.Name, b.Name) },
	}, func(p store.Policymaker) int64 { return p.ID })
	if err != nil {
		return nil, 0, err
	}
	page, total := paginate(out, q, less)
	return page, total, nil
}

// GetPolicymaker returns one policymaker by id.
func (r *Repository) GetPolicymaker(_ context.Context, id int64) (store.Policymaker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policymakers[id]
	if !ok {
		return store.Policymaker{}, store.ErrNotFound
	}
	return p, nil
}

// ListMeetings returns a page of meetings.
func (r *Repository) ListMeetings(_ context.Context, q store.Query) ([]store.Meeting, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []store.Meeting
	for _, m := range r.meetings {
		if q.PolicymakerID != 0 && m.PolicymakerID != q.PolicymakerID {
			continue
		}
		out = append(out, m)
	}
	less, err := sorter(q, map[string]func(a, b store.Meeting) int{
		store.OrderID:            func(a, b store.Meeting) int { return cmp.Compare(a.ID, b.ID) },
		store.OrderStartDatetime: func(a, b store.Meeting) int { return a.StartDatetime.Compare(b.StartDatetime) },
	}, func(m store.Meeting) int64 { return m.ID })
	if err != nil {
		return nil, 0, err
	}
	page, total := paginate(out, q, less)
	return page, total, nil
}

// GetMeeting returns one meeting by id.
func (r *Repository) GetMeeting(_ context.Context, id int64) (store.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meetings[id]
	if !ok {
		return store.Meeting{}, store.ErrNotFound
	}
	return m, nil
}

// ListMeetingDocuments returns a page of meeting documents.
func (r *Repository) ListMeetingDocuments(_ context.Context, q store.Query) ([]store.MeetingDocument, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []store.MeetingDocument
	for _, d := range r.documents {
		if q.MeetingID != 0 && d.MeetingID != q.MeetingID {
			continue
		}
		if q.PolicymakerID != 0 && d.PolicymakerID != q.PolicymakerID {
			continue
		}
		out = append(out, copyDocument(d))
	}
	less, err := sorter(q, map[string]func(a, b store.MeetingDocument) int{
		store.OrderID:              func(a, b store.MeetingDocument) int { return cmp.Compare(a.ID, b.ID) },
		store.OrderOriginID:        func(a, b store.MeetingDocument) int { return cmp.Compare(a.OriginID, b.OriginID) },
		store.OrderPublishDatetime: func(a, b store.MeetingDocument) int { return compareTime(a.PublishDatetime, b.PublishDatetime) },
	}, func(d store.MeetingDocument) int64 { return d.ID })
	if err != nil {
		return nil, 0, err
	}
	page, total := paginate(out, q, less)
	return page, total, nil
}

// GetMeetingDocument returns one meeting document by id.
func (r *Repository) GetMeetingDocument(_ context.Context, id int64) (store.MeetingDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.documents[id]
	if !ok {
		return store.MeetingDocument{}, store.ErrNotFound
	}
	return copyDocument(d), nil
}

// ListAgendaItems returns a page of agenda items.
func (r *Repository) ListAgendaItems(_ context.Context, q store.Query) ([]store.AgendaItem, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []store.AgendaItem
	for _, a := range r.items {
		if q.MeetingDocumentID != 0 && a.MeetingDocumentID != q.MeetingDocumentID {
			continue
		}
		if q.Dnro != "" && (a.Dnro == nil || *a.Dnro != q.Dnro) {
			continue
		}
		out = append(out, a)
	}
	less, err := sorter(q, map[string]func(a, b store.AgendaItem) int{
		store.OrderID:    func(a, b store.AgendaItem) int { return cmp.Compare(a.ID, b.ID) },
		store.OrderIndex: func(a, b store.AgendaItem) int { return cmp.Compare(a.Index, b.Index) },
	}, func(a store.AgendaItem) int64 { return a.ID })
	if err != nil {
		return nil, 0, err
	}
	page, total := paginate(out, q, less)
	return page, total, nil
}

// GetAgendaItem returns one agenda item by id.
func (r *Repository) GetAgendaItem(_ context.Context, id int64) (store.AgendaItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return store.AgendaItem{}, store.ErrNotFound
	}
	return a, nil
}

// Ping always succeeds.
func (r *Repository) Ping(context.Context) error { return nil }

// Close is a no-op.
func (r *Repository) Close() {}

func sorter[T any](q store.Query, keys map[string]func(a, b T) int, id func(T) int64) (func(a, b T) int, error) {
	key := q.OrderBy
	if key == "" {
		key = store.OrderID
	}
	compare, ok := keys[key]
	if !ok {
		return nil, fmt.Errorf("unsupported order %q", q.OrderBy)
	}
	return func(a, b T) int {
		c := compare(a, b)
		if q.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(id(a), id(b))
	}, nil
}

func paginate[T any](items []T, q store.Query, compare func(a, b T) int) ([]T, int) {
	slices.SortFunc(items, compare)
	total := len(items)
	if q.Offset >= total {
		return []T{}, total
	}
	end := total
	if q.Limit > 0 && q.Offset+q.Limit < total {
		end = q.Offset + q.Limit
	}
	return items[q.Offset:end], total
}

// compareTime orders nil values last, as Postgres does for ascending NULLs.
func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

func copyDocument(d store.MeetingDocument) store.MeetingDocument {
	d.Sessions = slices.Clone(d.Sessions)
	d.Participants = slices.Clone(d.Participants)
	return d
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
