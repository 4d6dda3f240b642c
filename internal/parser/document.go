// Package parser extracts meeting records from downloaded ktweb pages.
//
// The page parsers depend on the ktweb layout: labelled table rows on the
// cover page, a p.Asiaotsikko heading on issue pages and fixed Finnish
// keywords. The text heuristics they share are exported so they can be
// exercised on plain strings.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/ktweb-minutes/internal/logging"
	"github.com/JakeFAU/ktweb-minutes/internal/minutes"
)

// Parser turns meeting document directories into records. Times are
// interpreted in the configured location.
type Parser struct {
	loc    *time.Location
	logger *zap.Logger
}

// New builds a Parser. A nil location means UTC.
func New(loc *time.Location, logger *zap.Logger) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc, logger: logging.OrNop(logger).Named("parser")}
}

// HasCoverPage reports whether dir looks like a meeting document directory.
func HasCoverPage(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, minutes.CoverPageFile))
	return err == nil && info.Mode().IsRegular()
}

// ParseMeetingDocument extracts everything from one meeting document
// directory laid out as <policymaker>/<year>/<DDMMHHMM>.
func (p *Parser) ParseMeetingDocument(dir string) (minutes.MeetingDocument, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return minutes.MeetingDocument{}, &minutes.ParseError{Path: dir, Reason: "resolve directory", Err: err}
	}

	doc := minutes.MeetingDocument{
		OriginID:    OriginID(abs),
		Policymaker: filepath.Base(filepath.Dir(filepath.Dir(abs))),
		AgendaItems: []minutes.AgendaItem{},
	}

	coverPath := filepath.Join(abs, minutes.CoverPageFile)
	f, err := os.Open(coverPath)
	if err != nil {
		return minutes.MeetingDocument{}, &minutes.ParseError{Path: coverPath, Reason: "open cover page", Err: err}
	}
	cover, err := p.ParseCoverPage(f, coverPath)
	_ = f.Close()
	if err != nil {
		return minutes.MeetingDocument{}, err
	}
	if len(cover.Sessions) == 0 {
		session, err := p.fallbackStart(abs, coverPath)
		if err != nil {
			return minutes.MeetingDocument{}, err
		}
		p.logger.Debug("meeting time taken from directory name", zap.String("dir", abs))
		cover.Sessions = []minutes.Session{session}
	}
	doc.Sessions = cover.Sessions
	doc.Place = cover.Place
	doc.PublishDatetime = cover.PublishDatetime
	doc.Participants = cover.Participants

	if doc.OriginURL, err = readOriginURL(abs); err != nil {
		return minutes.MeetingDocument{}, &minutes.ParseError{Path: abs, Reason: "read origin url", Err: err}
	}
	if doc.Type, err = readDocumentType(abs); err != nil {
		return minutes.MeetingDocument{}, &minutes.ParseError{Path: abs, Reason: "read index page", Err: err}
	}

	files, err := issueFiles(abs)
	if err != nil {
		return minutes.MeetingDocument{}, &minutes.ParseError{Path: abs, Reason: "list agenda items", Err: err}
	}
	for _, path := range files {
		item, err := p.parseAgendaItemFile(path)
		if err != nil {
			return minutes.MeetingDocument{}, err
		}
		doc.AgendaItems = append(doc.AgendaItems, item)
	}
	sort.SliceStable(doc.AgendaItems, func(i, j int) bool {
		return doc.AgendaItems[i].Index < doc.AgendaItems[j].Index
	})

	return doc, nil
}

func (p *Parser) parseAgendaItemFile(path string) (minutes.AgendaItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return minutes.AgendaItem{}, &minutes.ParseError{Path: path, Reason: "open agenda item", Err: err}
	}
	defer f.Close()
	return p.ParseAgendaItem(f, path)
}

// OriginID joins the last three path segments of a meeting document directory.
func OriginID(dir string) string {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(dir)), "/")
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	return strings.Join(parts, "/")
}

// DocumentTypeFromTitle classifies an index page title.
func DocumentTypeFromTitle(title string) *minutes.DocumentType {
	t := strings.ToLower(strings.TrimSpace(title))
	var dt minutes.DocumentType
	switch {
	case strings.HasPrefix(t, "pöytäkirja"):
		dt = minutes.DocumentMinutes
	case strings.HasPrefix(t, "esityslista"):
		dt = minutes.DocumentAgenda
	default:
		return nil
	}
	return &dt
}

func readDocumentType(dir string) (*minutes.DocumentType, error) {
	f, err := os.Open(filepath.Join(dir, minutes.IndexPageFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	index, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse index page: %w", err)
	}
	return DocumentTypeFromTitle(index.Find("title").First().Text()), nil
}

func readOriginURL(dir string) (string, error) {
	f, err := os.Open(filepath.Join(dir, minutes.OriginURLFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	return "", scanner.Err()
}
