// Package minutes defines the records extracted from ktweb meeting documents.
package minutes

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType distinguishes published minutes from agendas.
type DocumentType string

// Known document types.
const (
	DocumentMinutes DocumentType = "minutes"
	DocumentAgenda  DocumentType = "agenda"
)

// Roles a participant can have in a meeting.
const (
	RoleDecisionMaker = "decision-maker"
	RoleOther         = "other"
)

// Session is one contiguous sitting of a meeting. End is nil when the
// cover page only states a start time.
type Session struct {
	Start time.Time  `json:"start_datetime" yaml:"start_datetime"`
	End   *time.Time `json:"end_datetime,omitempty" yaml:"end_datetime,omitempty"`
}

// Participants groups the people attending a meeting by role.
type Participants struct {
	DecisionMakers []string `json:"decision_makers" yaml:"decision_makers"`
	Others         []string `json:"others" yaml:"others"`
}

// Count returns the number of listed people.
func (p Participants) Count() int {
	return len(p.DecisionMakers) + len(p.Others)
}

// AgendaItem is one numbered issue handled in a meeting.
type AgendaItem struct {
	Index              int         `json:"index" yaml:"index"`
	Subject            string      `json:"subject" yaml:"subject"`
	Dnro               *string     `json:"dnro,omitempty" yaml:"dnro,omitempty"`
	Preparers          []string    `json:"preparers" yaml:"preparers"`
	Introducers        []string    `json:"introducers" yaml:"introducers"`
	Resolution         *string     `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	ResolutionCategory *Resolution `json:"resolution_category,omitempty" yaml:"resolution_category,omitempty"`
	Geometries         []string    `json:"geometries" yaml:"geometries"`
	SourceFile         string      `json:"source_file" yaml:"source_file"`
}

// MeetingDocument is everything extracted from one meeting document directory.
type MeetingDocument struct {
	OriginID        string        `json:"origin_id" yaml:"origin_id"`
	OriginURL       string        `json:"origin_url" yaml:"origin_url"`
	Policymaker     string        `json:"policymaker" yaml:"policymaker"`
	Type            *DocumentType `json:"type,omitempty" yaml:"type,omitempty"`
	Place           string        `json:"place" yaml:"place"`
	Sessions        []Session     `json:"sessions" yaml:"sessions"`
	PublishDatetime *time.Time    `json:"publish_datetime,omitempty" yaml:"publish_datetime,omitempty"`
	Participants    Participants  `json:"participants" yaml:"participants"`
	AgendaItems     []AgendaItem  `json:"agenda_items" yaml:"agenda_items"`
}

// StartDatetime returns the start of the first session.
func (d MeetingDocument) StartDatetime() (time.Time, bool) {
	if len(d.Sessions) == 0 {
		return time.Time{}, false
	}
	return d.Sessions[0].Start, true
}

// Resolution classifies the outcome of an agenda item.
type Resolution string

// The closed set of resolution categories.
const (
	ResolutionPassedUnchanged Resolution = "PASSED_UNCHANGED"
	ResolutionPassedVoted     Resolution = "PASSED_VOTED"
	ResolutionPassedRevised   Resolution = "PASSED_REVISED"
	ResolutionPassedModified  Resolution = "PASSED_MODIFIED"
	ResolutionRejected        Resolution = "REJECTED"
	ResolutionNoted           Resolution = "NOTED"
	ResolutionReturned        Resolution = "RETURNED"
	ResolutionRemoved         Resolution = "REMOVED"
	ResolutionTabled          Resolution = "TABLED"
	ResolutionElection        Resolution = "ELECTION"
)

// Resolutions lists every category in declaration order.
var Resolutions = []Resolution{
	ResolutionPassedUnchanged,
	ResolutionPassedVoted,
	ResolutionPassedRevised,
	ResolutionPassedModified,
	ResolutionRejected,
	ResolutionNoted,
	ResolutionReturned,
	ResolutionRemoved,
	ResolutionTabled,
	ResolutionElection,
}

// ParseResolutionCategory maps a category name, case-insensitively, onto the closed set.
func ParseResolutionCategory(name string) (Resolution, error) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for _, r := range Resolutions {
		if string(r) == want {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown resolution category %q", name)
}
