package api

import (
	"strconv"
	"time"

	"github.com/JakeFAU/ktweb-minutes/internal/store"
)

func resourceURI(kind string, id int64) string {
	return pathPrefix + "/" + kind + "/" + strconv.FormatInt(id, 10) + "/"
}

// PolicymakerResource is the JSON form of a policymaker.
type PolicymakerResource struct {
	ID           int64  `json:"id"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
	OriginID     string `json:"origin_id"`
	ResourceURI  string `json:"resource_uri"`
}

func policymakerResource(p store.Policymaker) PolicymakerResource {
	return PolicymakerResource{
		ID:           p.ID,
		Abbreviation: p.Abbreviation,
		Name:         p.Name,
		OriginID:     p.Abbreviation,
		ResourceURI:  resourceURI("policymaker", p.ID),
	}
}

// MeetingResource is the JSON form of a meeting.
type MeetingResource struct {
	ID            int64     `json:"id"`
	Date          string    `json:"date"`
	Year          int       `json:"year"`
	StartDatetime time.Time `json:"start_datetime"`
	Policymaker   string    `json:"policymaker"`
	ResourceURI   string    `json:"resource_uri"`
}

func meetingResource(m store.Meeting) MeetingResource {
	return MeetingResource{
		ID:            m.ID,
		Date:          m.StartDatetime.Format(time.DateOnly),
		Year:          m.StartDatetime.Year(),
		StartDatetime: m.StartDatetime,
		Policymaker:   resourceURI("policymaker", m.PolicymakerID),
		ResourceURI:   resourceURI("meeting", m.ID),
	}
}

// SessionResource is one meeting time span.
type SessionResource struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end"`
}

// ParticipantResource is one attendee.
type ParticipantResource struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// MeetingDocumentResource is the JSON form of a meeting document.
type MeetingDocumentResource struct {
	ID           int64                 `json:"id"`
	Meeting      string                `json:"meeting"`
	Policymaker  string                `json:"policymaker"`
	OriginID     string                `json:"origin_id"`
	OriginURL    string                `json:"origin_url"`
	Type         *string               `json:"type"`
	Place        string                `json:"place"`
	PublishTime  *time.Time            `json:"publish_time"`
	Sessions     []SessionResource     `json:"sessions"`
	Participants []ParticipantResource `json:"participants"`
	ResourceURI  string                `json:"resource_uri"`
}

func meetingDocumentResource(d store.MeetingDocument) MeetingDocumentResource {
	sessions := make([]SessionResource, 0, len(d.Sessions))
	for _, s := range d.Sessions {
		sessions = append(sessions, SessionResource{Start: s.Start, End: s.End})
	}
	participants := make([]ParticipantResource, 0, len(d.Participants))
	for _, p := range d.Participants {
		participants = append(participants, ParticipantResource{Name: p.Name, Role: p.Role})
	}
	return MeetingDocumentResource{
		ID:           d.ID,
		Meeting:      resourceURI("meeting", d.MeetingID),
		Policymaker:  resourceURI("policymaker", d.PolicymakerID),
		OriginID:     d.OriginID,
		OriginURL:    d.OriginURL,
		Type:         d.Type,
		Place:        d.Place,
		PublishTime:  d.PublishDatetime,
		Sessions:     sessions,
		Participants: participants,
		ResourceURI:  resourceURI("meeting_document", d.ID),
	}
}

// AgendaItemResource is the JSON form of an agenda item.
type AgendaItemResource struct {
	ID                 int64    `json:"id"`
	MeetingDocument    string   `json:"meeting_document"`
	Index              int      `json:"index"`
	Subject            string   `json:"subject"`
	Dnro               *string  `json:"dnro"`
	Preparers          []string `json:"preparers"`
	Introducers        []string `json:"introducers"`
	Resolution         *string  `json:"resolution"`
	ResolutionCategory *string  `json:"resolution_category"`
	ResourceURI        string   `json:"resource_uri"`
}

func agendaItemResource(a store.AgendaItem) AgendaItemResource {
	return AgendaItemResource{
		ID:                 a.ID,
		MeetingDocument:    resourceURI("meeting_document", a.MeetingDocumentID),
		Index:              a.Index,
		Subject:            a.Subject,
		Dnro:               a.Dnro,
		Preparers:          orEmpty(a.Preparers),
		Introducers:        orEmpty(a.Introducers),
		Resolution:         a.Resolution,
		ResolutionCategory: a.ResolutionCategory,
		ResourceURI:        resourceURI("agenda_item", a.ID),
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
