package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ktweb-minutes/internal/minutes"
)

func ptr[T any](v T) *T {
	return &v
}

func validDocument() minutes.MeetingDocument {
	start := time.Date(2013, 6, 3, 18, 0, 0, 0, time.UTC)
	return minutes.MeetingDocument{
		OriginID:    "kh/2013/03061800",
		Policymaker: "kh",
		Place:       "Kaupungintalo",
		Sessions:    []minutes.Session{{Start: start, End: ptr(start.Add(2 * time.Hour))}},
		Participants: minutes.Participants{
			DecisionMakers: []string{"Pekka Virtanen"},
			Others:         []string{"Maija Meikäläinen"},
		},
		AgendaItems: []minutes.AgendaItem{
			{Index: 1, Subject: "Kokouksen avaus"},
			{Index: 2, Subject: "Talousarvio", Dnro: ptr("12/2013"), Preparers: []string{"Pekka Virtanen"}},
		},
	}
}

func messages(ws []Warning) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Message
	}
	return out
}

func TestValidateCleanDocument(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Validate(validDocument()))
}

func TestValidateDocumentLevel(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Policymaker = ""
	doc.Place = ""
	doc.Participants = minutes.Participants{}
	doc.AgendaItems = nil
	doc.Sessions = append(doc.Sessions, minutes.Session{Start: doc.Sessions[0].Start})

	assert.Equal(t, []string{
		"governing body not found",
		"meeting place not found",
		"number of meeting start-times and end-times do not match",
		"decision-makers not found",
		"other participants not found",
		"issues not found",
	}, messages(Validate(doc)))
}

func TestValidateSessionOrder(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Sessions[0].End = ptr(doc.Sessions[0].Start.Add(-time.Minute))

	ws := Validate(doc)
	require.Len(t, ws, 1)
	assert.Equal(t, FieldSessions, ws[0].Field)
	assert.Equal(t, "meeting start time is past end time", ws[0].Message)
}

func TestValidateAgendaItems(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.AgendaItems = []minutes.AgendaItem{
		{Index: 0, Subject: "x"},
		{Index: 3},
		{Index: 4, Subject: "Kaava", Introducers: []string{"Maija Meikäläinen"}},
		{Index: 4, Subject: "Kaava", Dnro: ptr("1/2013")},
	}

	ws := Validate(doc)
	assert.Equal(t, []string{
		"issue number not found",
		"issue title not found",
		"presented issue does not have dnro",
		"issue number is not unique",
	}, messages(ws))
	assert.Equal(t, "agenda item 4: presented issue does not have dnro", ws[2].String())
}
