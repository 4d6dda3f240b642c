// Package validate checks extracted meeting documents for missing or
// inconsistent fields. It never rejects a document; callers log the
// warnings and continue.
package validate

import (
	"fmt"

	"github.com/JakeFAU/ktweb-minutes/internal/minutes"
)

// Fields a warning can refer to.
const (
	FieldPolicymaker    = "policymaker"
	FieldPlace          = "place"
	FieldSessions       = "sessions"
	FieldDecisionMakers = "decision_makers"
	FieldOthers         = "others"
	FieldAgendaItems    = "agenda_items"
	FieldIndex          = "index"
	FieldSubject        = "subject"
	FieldDnro           = "dnro"
)

// Warning describes one problem in a meeting document. Item is the agenda
// item index the warning belongs to, or zero for document-level warnings.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Item    int    `json:"item,omitempty"`
}

func (w Warning) String() string {
	if w.Item != 0 {
		return fmt.Sprintf("agenda item %d: %s", w.Item, w.Message)
	}
	return w.Message
}

// Validate returns every warning for doc, in a stable order.
func Validate(doc minutes.MeetingDocument) []Warning {
	var out []Warning
	add := func(field, msg string, item int) {
		out = append(out, Warning{Field: field, Message: msg, Item: item})
	}

	if doc.Policymaker == "" {
		add(FieldPolicymaker, "governing body not found", 0)
	}
	if doc.Place == "" {
		add(FieldPlace, "meeting place not found", 0)
	}

	ends := 0
	for _, s := range doc.Sessions {
		if s.End == nil {
			continue
		}
		ends++
		if !s.Start.Before(*s.End) {
			add(FieldSessions, "meeting start time is past end time", 0)
		}
	}
	if ends != len(doc.Sessions) {
		add(FieldSessions, "number of meeting start-times and end-times do not match", 0)
	}

	if len(doc.Participants.DecisionMakers) == 0 {
		add(FieldDecisionMakers, "decision-makers not found", 0)
	}
	if len(doc.Participants.Others) == 0 {
		add(FieldOthers, "other participants not found", 0)
	}

	if len(doc.AgendaItems) == 0 {
		add(FieldAgendaItems, "issues not found", 0)
	}
	seen := make(map[int]struct{}, len(doc.AgendaItems))
	for _, item := range doc.AgendaItems {
		if item.Index == 0 {
			add(FieldIndex, "issue number not found", 0)
		} else if _, dup := seen[item.Index]; dup {
			add(FieldIndex, "issue number is not unique", item.Index)
		}
		seen[item.Index] = struct{}{}
		if item.Subject == "" {
			add(FieldSubject, "issue title not found", item.Index)
		}
		presented := len(item.Introducers) > 0 || len(item.Preparers) > 0
		if presented && item.Dnro == nil {
			add(FieldDnro, "presented issue does not have dnro", item.Index)
		}
	}
	return out
}
