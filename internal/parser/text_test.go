package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, h, mi int) time.Time {
	return time.Date(y, m, d, h, mi, 0, 0, time.UTC)
}

func TestParseMeetingTimes(t *testing.T) {
	t.Parallel()

	sessions := ParseMeetingTimes("maanantai 3.6.2013 kello 18.00–20.30", time.UTC)
	require.Len(t, sessions, 1)
	assert.Equal(t, date(2013, 6, 3, 18, 0), sessions[0].Start)
	require.NotNil(t, sessions[0].End)
	assert.Equal(t, date(2013, 6, 3, 20, 30), *sessions[0].End)
}

func TestParseMeetingTimesMidnightSpillover(t *testing.T) {
	t.Parallel()

	sessions := ParseMeetingTimes("3.6.2013 klo 23.00 - 25.15", time.UTC)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].End)
	assert.Equal(t, date(2013, 6, 4, 1, 15), *sessions[0].End)

	sessions = ParseMeetingTimes("3.6.2013 klo 22.00-24.00", time.UTC)
	require.Len(t, sessions, 1)
	assert.Equal(t, date(2013, 6, 4, 0, 0), *sessions[0].End)

	sessions = ParseMeetingTimes("3.6.2013 klo 23.30-0.45", time.UTC)
	require.Len(t, sessions, 1)
	assert.Equal(t, date(2013, 6, 4, 0, 45), *sessions[0].End)
}

func TestParseMeetingTimesVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		starts []time.Time
		ends   int
	}{
		{name: "several spans", text: "ti 4.6.2013 klo 9.00-12.00 ja 4.6.2013 klo 13.00-15.30", starts: []time.Time{date(2013, 6, 4, 9, 0), date(2013, 6, 4, 13, 0)}, ends: 2},
		{name: "comma", text: "14.1.2013, kello 16.00 – 18.45", starts: []time.Time{date(2013, 1, 14, 16, 0)}, ends: 1},
		{name: "start only", text: "14.1.2013 klo 16.00", starts: []time.Time{date(2013, 1, 14, 16, 0)}, ends: 0},
		{name: "place", text: "Kaupungintalo, kokoushuone 2", starts: nil},
		{name: "bad date", text: "31.2.2013 klo 10.00-11.00", starts: nil},
		{name: "bad hour", text: "1.2.2013 klo 27.00-28.00", starts: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := ParseMeetingTimes(tt.text, nil)
			require.Len(t, sessions, len(tt.starts))
			ends := 0
			for i, s := range sessions {
				assert.Equal(t, tt.starts[i], s.Start)
				if s.End != nil {
					ends++
				}
			}
			assert.Equal(t, tt.ends, ends)
		})
	}
}

func TestParseDnro(t *testing.T) {
	t.Parallel()

	_, ok := ParseDnro("Dnro 0/00")
	assert.False(t, ok)

	got, ok := ParseDnro("Dnro 123/2013")
	require.True(t, ok)
	assert.Equal(t, "123/2013", got)

	got, ok = ParseDnro("  Dnro 45 /2012, Kaupunginhallitus")
	require.True(t, ok)
	assert.Equal(t, "45/2012", got)

	_, ok = ParseDnro("Asiassa Dnro 12/2013 mainittu")
	assert.False(t, ok)
}

func TestSplitNumberedTitle(t *testing.T) {
	t.Parallel()

	n, title, ok := SplitNumberedTitle("7 Talousarvion muutos")
	require.True(t, ok)
	assert.Equal(t, 7, n)
	assert.Equal(t, "Talousarvion muutos", title)

	n, title, ok = SplitNumberedTitle("12\n  Kokouksen   avaus ")
	require.True(t, ok)
	assert.Equal(t, 12, n)
	assert.Equal(t, "Kokouksen avaus", title)

	n, title, ok = SplitNumberedTitle("3")
	require.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Empty(t, title)

	_, _, ok = SplitNumberedTitle("Talousarvio 7")
	assert.False(t, ok)
}

func TestFindPersons(t *testing.T) {
	t.Parallel()

	got := FindPersons("Asian valmisteli kaupunginsihteeri Pekka Virtanen, puh. 014 266 1234 ja Anna-Liisa Mäki-Petäjä")
	assert.Equal(t, []string{"Pekka Virtanen", "Anna-Liisa Mäki-Petäjä"}, got)

	assert.Nil(t, FindPersons("ei nimiä tässä"))
}

func TestAttendeeName(t *testing.T) {
	t.Parallel()

	name, ok := AttendeeName("x Pekka Virtanen puheenjohtaja")
	require.True(t, ok)
	assert.Equal(t, "Pekka Virtanen", name)

	name, ok = AttendeeName("X   Åsa Öberg")
	require.True(t, ok)
	assert.Equal(t, "Åsa Öberg", name)

	_, ok = AttendeeName("Pekka Virtanen")
	assert.False(t, ok)
	_, ok = AttendeeName("x varajäsen")
	assert.False(t, ok)
}

func TestParseResolution(t *testing.T) {
	t.Parallel()

	got, ok := ParseResolution([]string{
		"Päätösehdotus Kaupunginhallitus hyväksyy.",
		"Päätös Hyväksyttiin.",
		"Muuta",
		"Päätös   Hyväksyttiin\n muutettuna.",
	})
	require.True(t, ok)
	assert.Equal(t, "Hyväksyttiin muutettuna.", got)

	got, ok = ParseResolution([]string{"Päätös", "", "Merkittiin tiedoksi."})
	require.True(t, ok)
	assert.Equal(t, "Merkittiin tiedoksi.", got)

	_, ok = ParseResolution([]string{"Päätösehdotus Hyväksytään."})
	assert.False(t, ok)
}

func TestPersonsAfter(t *testing.T) {
	t.Parallel()

	paragraphs := []string{
		"Dnro 12/2013",
		"Asian esitteli Kalle Kunnanjohtaja Ei Oikea",
		"Asian valmisteli Pekka Virtanen",
		"Asian valmisteli Toinen Henkilö",
	}
	assert.Equal(t, []string{"Pekka Virtanen"}, PersonsAfter(paragraphs, preparersPrefix))
	assert.Equal(t, []string{"Kalle Kunnanjohtaja Ei Oikea"}, PersonsAfter(paragraphs, introducersPrefix))
	assert.Nil(t, PersonsAfter(nil, preparersPrefix))
}

func TestDirectoryStart(t *testing.T) {
	t.Parallel()

	got, ok := DirectoryStart("/data/paatokset/kh/2013/03061800", time.UTC)
	require.True(t, ok)
	assert.Equal(t, date(2013, 6, 3, 18, 0), got)

	_, ok = DirectoryStart("/data/kh/2013/index", time.UTC)
	assert.False(t, ok)
	_, ok = DirectoryStart("/data/kh/latest/03061800", time.UTC)
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	got, ok := ParseDate("Nähtävänä 12.6.2013 alkaen", time.UTC)
	require.True(t, ok)
	assert.Equal(t, date(2013, 6, 12, 0, 0), got)

	_, ok = ParseDate("ei päivää", time.UTC)
	assert.False(t, ok)
}

func TestIssueNumberFromFile(t *testing.T) {
	t.Parallel()

	n, ok := IssueNumberFromFile("/x/htmtxt42.htm")
	require.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = IssueNumberFromFile("index.htm")
	assert.False(t, ok)
}

func TestTrimWS(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", TrimWS("  a\n\tb   c "))
}
