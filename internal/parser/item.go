package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/ktweb-minutes/internal/minutes"
)

// ParseAgendaItem extracts one issue page. The number and subject come from
// the p.Asiaotsikko heading; pages without it fall back to the number in the
// file name and the paragraph starting with that number.
func (p *Parser) ParseAgendaItem(r io.Reader, path string) (minutes.AgendaItem, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return minutes.AgendaItem{}, &minutes.ParseError{Path: path, Reason: "read agenda item", Err: err}
	}
	paragraphs := paragraphsOf(doc.Selection)
	all := texts(paragraphs)

	item := minutes.AgendaItem{
		SourceFile:  filepath.Base(path),
		Preparers:   PersonsAfter(all, preparersPrefix),
		Introducers: PersonsAfter(all, introducersPrefix),
		Geometries:  []string{},
	}

	index, subject, ok := headingTitle(doc, paragraphs)
	if !ok {
		index, subject, ok = fileNumberTitle(path, all)
	}
	if !ok {
		return minutes.AgendaItem{}, &minutes.ParseError{Path: path, Reason: "agenda item number not found"}
	}
	item.Index, item.Subject = index, subject

	if dnro, ok := firstDnro(all); ok {
		item.Dnro = &dnro
	}
	if resolution, ok := ParseResolution(all); ok {
		item.Resolution = &resolution
	}
	return item, nil
}

// firstDnro returns the first case number found in paragraphs. A leading
// 0/00 placeholder means the item has none.
func firstDnro(paragraphs []string) (string, bool) {
	for _, text := range paragraphs {
		if dnro, ok := matchDnro(text); ok {
			return dnro, dnro != emptyDnro
		}
	}
	return "", false
}

func headingTitle(doc *goquery.Document, paragraphs []paragraph) (int, string, bool) {
	heading := doc.Find("p.Asiaotsikko").First()
	if heading.Length() == 0 {
		return 0, "", false
	}
	index, title, ok := SplitNumberedTitle(TrimWS(textWithBreaks(heading.Nodes[0])))
	if !ok {
		return 0, "", false
	}
	if title == "" {
		for i, para := range paragraphs {
			if para.node == heading.Nodes[0] {
				title = nextNonEmpty(texts(paragraphs), i+1)
				break
			}
		}
	}
	return index, title, true
}

func fileNumberTitle(path string, all []string) (int, string, bool) {
	index, ok := IssueNumberFromFile(path)
	if !ok {
		return 0, "", false
	}
	number := strconv.Itoa(index)
	for i, text := range all {
		if text == number {
			return index, nextNonEmpty(all, i+1), true
		}
		if rest, found := strings.CutPrefix(text, number+" "); found {
			return index, TrimWS(rest), true
		}
	}
	return index, "", true
}

func issueFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "htmtxt*.htm"))
	if err != nil {
		return nil, fmt.Errorf("glob agenda items: %w", err)
	}
	var out []string
	for _, m := range matches {
		if filepath.Base(m) == minutes.CoverPageFile {
			continue
		}
		if _, ok := IssueNumberFromFile(m); ok {
			out = append(out, m)
		}
	}
	return out, nil
}
