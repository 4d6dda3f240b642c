package parser

import (
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/ktweb-minutes/internal/minutes"
)

var (
	meetingInfoMarker    = regexp.MustCompile(`KOKOUSTIEDOT`)
	publishMarker        = regexp.MustCompile(`PÖYTÄKIRJA\s+YLEISESTI`)
	decisionMakersMarker = regexp.MustCompile(`Päätöksentekijä`)
	othersMarker         = regexp.MustCompile(`Muut läsnäolijat`)
)

// CoverPage holds the meeting-level fields of htmtxt0.htm.
type CoverPage struct {
	Sessions        []minutes.Session
	Place           string
	PublishDatetime *time.Time
	Participants    minutes.Participants
}

// ParseCoverPage extracts meeting times, place, publish date and participants.
// Sessions are read from the meeting info cell until the first paragraph
// without a time span; that paragraph is the place. A missing meeting info
// marker is a *minutes.ParseError.
func (p *Parser) ParseCoverPage(r io.Reader, path string) (CoverPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return CoverPage{}, &minutes.ParseError{Path: path, Reason: "read cover page", Err: err}
	}

	info, ok := valueCell(doc, meetingInfoMarker)
	if !ok {
		return CoverPage{}, &minutes.ParseError{Path: path, Reason: "meeting info marker not found"}
	}

	var cover CoverPage
	for _, text := range nonEmptyTexts(paragraphsOf(info)) {
		sessions := ParseMeetingTimes(text, p.loc)
		if len(sessions) == 0 {
			cover.Place = text
			break
		}
		cover.Sessions = append(cover.Sessions, sessions...)
	}

	if cell, ok := valueCell(doc, publishMarker); ok {
		if t, ok := ParseDate(cell.Text(), p.loc); ok {
			cover.PublishDatetime = &t
		}
	}

	cover.Participants = parseParticipants(doc)
	return cover, nil
}

func parseParticipants(doc *goquery.Document) minutes.Participants {
	var out minutes.Participants
	seen := make(map[string]struct{})
	collect := func(marker *regexp.Regexp) []string {
		cell, ok := valueCell(doc, marker)
		if !ok {
			return nil
		}
		var names []string
		for _, line := range lines(cell) {
			name, ok := AttendeeName(line)
			if !ok {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
		return names
	}
	out.DecisionMakers = collect(decisionMakersMarker)
	out.Others = collect(othersMarker)
	return out
}

func (p *Parser) fallbackStart(dir, path string) (minutes.Session, error) {
	start, ok := DirectoryStart(dir, p.loc)
	if !ok {
		return minutes.Session{}, &minutes.ParseError{
			Path:   path,
			Reason: fmt.Sprintf("no meeting time on cover page and directory %q is not <year>/<DDMMHHMM>", dir),
		}
	}
	return minutes.Session{Start: start}, nil
}
