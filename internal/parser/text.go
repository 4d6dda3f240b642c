package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/ktweb-minutes/internal/minutes"
)

var (
	personPattern = regexp.MustCompile(
		`[A-ZÖÄÅ][a-zöäå]*(?:-[A-ZÖÄÅ][a-zöäå]*)*(?: [A-ZÖÄÅ][a-zöäå]*(?:-[A-ZÖÄÅ][a-zöäå]*)*)+`)
	meetingTimePattern = regexp.MustCompile(
		`(\d{1,2})\.(\d{1,2})\.(\d{4})\s*,?\s*(?:kello|klo)\s*(\d{1,2})[.:](\d{2})(?:\s*[-–]\s*(\d{1,2})[.:](\d{2}))?`)
	datePattern           = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)
	dnroPattern           = regexp.MustCompile(`^Dnro\s+(\d+)\s?/\s?(\d+)`)
	numberedTitlePattern  = regexp.MustCompile(`(?s)^(\d+)(?:\s+(.*))?$`)
	resolutionPattern     = regexp.MustCompile(`(?s)^Päätös(?:\s+(.*))?$`)
	attendancePattern     = regexp.MustCompile(`^[xX]\s+(.+)$`)
	directoryStartPattern = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})(\d{2})$`)
	issueFilePattern      = regexp.MustCompile(`^htmtxt(\d+)\.htm$`)
)

const emptyDnro = "0/00"

// Markers of paragraph content.
const (
	preparersPrefix   = "Asian valmisteli"
	introducersPrefix = "Asian esitteli"
)

// TrimWS collapses every whitespace run to one space and trims the ends.
func TrimWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseMeetingTimes finds every "D.M.YYYY klo H.MM–H.MM" span in text. An end
// hour of 24 or more wraps into the next day, and an end earlier than its start
// moves to the following day. A span without an end time yields a Session with
// a nil End.
func ParseMeetingTimes(text string, loc *time.Location) []minutes.Session {
	if loc == nil {
		loc = time.UTC
	}
	var out []minutes.Session
	for _, m := range meetingTimePattern.FindAllStringSubmatch(text, -1) {
		day, month, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		hour, minute := atoi(m[4]), atoi(m[5])
		if hour > 23 || minute > 59 {
			continue
		}
		start := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
		if start.Day() != day || int(start.Month()) != month {
			continue
		}
		session := minutes.Session{Start: start}
		if m[6] != "" {
			endHour, endMinute := atoi(m[6])%24, atoi(m[7])
			if endMinute > 59 {
				continue
			}
			end := time.Date(year, time.Month(month), day, endHour, endMinute, 0, 0, loc)
			if end.Before(start) {
				end = end.AddDate(0, 0, 1)
			}
			session.End = &end
		}
		out = append(out, session)
	}
	return out
}

// ParseDate returns the first D.M.YYYY date in text at midnight.
func ParseDate(text string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	day, month, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// DirectoryStart derives a meeting start from the <year>/<DDMMHHMM> layout
// of a meeting document directory.
func DirectoryStart(dir string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	clean := filepath.Clean(dir)
	m := directoryStartPattern.FindStringSubmatch(filepath.Base(clean))
	if m == nil {
		return time.Time{}, false
	}
	yearText := filepath.Base(filepath.Dir(clean))
	if len(yearText) != 4 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return time.Time{}, false
	}
	day, month, hour, minute := atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4])
	if hour > 23 || minute > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// ParseDnro returns the case number at the start of a paragraph. The
// placeholder 0/00 counts as no case number.
func ParseDnro(text string) (string, bool) {
	dnro, ok := matchDnro(text)
	if !ok || dnro == emptyDnro {
		return "", false
	}
	return dnro, true
}

// matchDnro returns the case number of a Dnro paragraph, placeholder included.
func matchDnro(text string) (string, bool) {
	m := dnroPattern.FindStringSubmatch(TrimWS(text))
	if m == nil {
		return "", false
	}
	return m[1] + "/" + m[2], true
}

// SplitNumberedTitle splits "7 Talousarvion muutos" into 7 and the title.
// The title is empty when the text holds only the number.
func SplitNumberedTitle(text string) (int, string, bool) {
	m := numberedTitlePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return n, TrimWS(m[2]), true
}

// FindPersons returns every capitalized multi-word name in text, in order.
func FindPersons(text string) []string {
	found := personPattern.FindAllString(TrimWS(text), -1)
	if len(found) == 0 {
		return nil
	}
	return found
}

// AttendeeName extracts the person from an attendance line marked with a
// leading x.
func AttendeeName(line string) (string, bool) {
	m := attendancePattern.FindStringSubmatch(TrimWS(line))
	if m == nil {
		return "", false
	}
	name := personPattern.FindString(m[1])
	return name, name != ""
}

// ParseResolution returns the text of the last paragraph starting with the
// word Päätös. When that paragraph holds only the word, the next non-empty
// paragraph is the resolution.
func ParseResolution(paragraphs []string) (string, bool) {
	var (
		resolution string
		found      bool
	)
	for i, p := range paragraphs {
		m := resolutionPattern.FindStringSubmatch(strings.TrimSpace(p))
		if m == nil {
			continue
		}
		text := TrimWS(m[1])
		if text == "" {
			text = nextNonEmpty(paragraphs, i+1)
		}
		resolution, found = text, true
	}
	return resolution, found
}

// PersonsAfter applies FindPersons to the first paragraph starting with prefix.
func PersonsAfter(paragraphs []string, prefix string) []string {
	for _, p := range paragraphs {
		text := TrimWS(p)
		if strings.HasPrefix(text, prefix) {
			return FindPersons(strings.TrimPrefix(text, prefix))
		}
	}
	return nil
}

// IssueNumberFromFile parses N out of htmtxt<N>.htm.
func IssueNumberFromFile(name string) (int, bool) {
	m := issueFilePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, false
	}
	return atoi(m[1]), true
}

func nextNonEmpty(paragraphs []string, from int) string {
	for _, p := range paragraphs[min(from, len(paragraphs)):] {
		if text := TrimWS(p); text != "" {
			return text
		}
	}
	return ""
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
