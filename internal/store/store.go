package store

import (
	"context"
	"errors"
	"time"

	"github.com/JakeFAU/ktweb-minutes/internal/minutes"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate signals a unique key violation: the record is already stored.
var ErrDuplicate = errors.New("record already exists")

// Policymaker is a governing body such as a board or committee.
type Policymaker struct {
	ID           int64
	Abbreviation string
	Name         string
}

// Meeting is one sitting of a policymaker, unique by start time.
type Meeting struct {
	ID            int64
	PolicymakerID int64
	StartDatetime time.Time
}

// Session is a stored meeting time span.
type Session struct {
	Start time.Time
	End   *time.Time
}

// Participant is a person attending a meeting in a role.
type Participant struct {
	Name string
	Role string
}

// MeetingDocument is a published agenda or minutes, unique by origin id.
type MeetingDocument struct {
	ID              int64
	MeetingID       int64
	PolicymakerID   int64
	OriginID        string
	OriginURL       string
	Type            *string
	Place           string
	PublishDatetime *time.Time
	Sessions        []Session
	Participants    []Participant
}

// AgendaItem is a stored issue, unique by (meeting document, index).
type AgendaItem struct {
	ID                 int64
	MeetingDocumentID  int64
	Index              int
	Subject            string
	Dnro               *string
	Preparers          []string
	Introducers        []string
	Resolution         *string
	ResolutionCategory *string
}

// IngestResult reports what IngestMeetingDocument did.
type IngestResult struct {
	MeetingDocumentID int64
	// Created is false when a document with the same origin id already existed.
	Created bool
}

// Sort keys accepted in Query.OrderBy.
const (
	OrderID              = "id"
	OrderAbbreviation    = "abbreviation"
	OrderName            = "name"
	OrderStartDatetime   = "start_datetime"
	OrderOriginID        = "origin_id"
	OrderPublishDatetime = "publish_datetime"
	OrderIndex           = "index"
)

// Query pages and filters list calls. Zero-valued filters are ignored.
type Query struct {
	Limit   int
	Offset  int
	OrderBy string
	Desc    bool

	PolicymakerID     int64
	MeetingID         int64
	MeetingDocumentID int64
	Abbreviation      string
	Dnro              string
}

// Repository persists meeting documents and serves them back.
type Repository interface {
	// IngestMeetingDocument stores doc and everything below it. It is
	// idempotent on the document's origin id.
	IngestMeetingDocument(ctx context.Context, doc minutes.MeetingDocument, policymakerName string) (IngestResult, error)

	ListPolicymakers(ctx context.Context, q Query) ([]Policymaker, int, error)
	GetPolicymaker(ctx context.Context, id int64) (Policymaker, error)
	ListMeetings(ctx context.Context, q Query) ([]Meeting, int, error)
	GetMeeting(ctx context.Context, id int64) (Meeting, error)
	ListMeetingDocuments(ctx context.Context, q Query) ([]MeetingDocument, int, error)
	GetMeetingDocument(ctx context.Context, id int64) (MeetingDocument, error)
	ListAgendaItems(ctx context.Context, q Query) ([]AgendaItem, int, error)
	GetAgendaItem(ctx context.Context, id int64) (AgendaItem, error)

	Ping(ctx context.Context) error
	Close()
}

// ParticipantsOf flattens extracted participants into stored rows.
func ParticipantsOf(p minutes.Participants) []Participant {
	out := make([]Participant, 0, p.Count())
	for _, name := range p.DecisionMakers {
		out = append(out, Participant{Name: name, Role: minutes.RoleDecisionMaker})
	}
	for _, name := range p.Others {
		out = append(out, Participant{Name: name, Role: minutes.RoleOther})
	}
	return out
}

// SessionsOf converts extracted sessions into stored rows.
func SessionsOf(sessions []minutes.Session) []Session {
	out := make([]Session, len(sessions))
	for i, s := range sessions {
		out[i] = Session{Start: s.Start, End: s.End}
	}
	return out
}

// DocumentTypeOf returns the stored form of an extracted document type.
func DocumentTypeOf(t *minutes.DocumentType) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

// ResolutionCategoryOf returns the stored form of a resolution category.
func ResolutionCategoryOf(r *minutes.Resolution) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

// ErrNoStartTime is returned when a document without sessions is ingested.
var ErrNoStartTime = errors.New("meeting document has no start time")
