package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// paragraph is the text of one <p>, with <br> kept as newlines.
type paragraph struct {
	node *html.Node
	raw  string
	text string
}

func paragraphsOf(sel *goquery.Selection) []paragraph {
	var out []paragraph
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		raw := textWithBreaks(p.Nodes[0])
		out = append(out, paragraph{node: p.Nodes[0], raw: raw, text: TrimWS(raw)})
	})
	return out
}

func texts(ps []paragraph) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.text
	}
	return out
}

func nonEmptyTexts(ps []paragraph) []string {
	var out []string
	for _, p := range ps {
		if p.text != "" {
			out = append(out, p.text)
		}
	}
	return out
}

// lines splits a cell's paragraphs on line breaks. Cells without
// paragraphs are split directly.
func lines(cell *goquery.Selection) []string {
	var raw []string
	ps := paragraphsOf(cell)
	if len(ps) == 0 {
		for _, n := range cell.Nodes {
			raw = append(raw, textWithBreaks(n))
		}
	}
	for _, p := range ps {
		raw = append(raw, p.raw)
	}
	var out []string
	for _, r := range raw {
		for _, line := range strings.Split(r, "\n") {
			if text := TrimWS(line); text != "" {
				out = append(out, text)
			}
		}
	}
	return out
}

func textWithBreaks(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func findText(n *html.Node, pattern *regexp.Regexp) *html.Node {
	if n.Type == html.TextNode && pattern.MatchString(n.Data) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findText(c, pattern); found != nil {
			return found
		}
	}
	return nil
}

// valueCell locates the table cell that follows the cell holding the first
// text matching marker. ktweb cover pages lay out each section as a label
// cell followed by a value cell.
func valueCell(doc *goquery.Document, marker *regexp.Regexp) (*goquery.Selection, bool) {
	if len(doc.Nodes) == 0 {
		return nil, false
	}
	markerNode := findText(doc.Nodes[0], marker)
	if markerNode == nil {
		return nil, false
	}
	for n := markerNode.Parent; n != nil; n = n.Parent {
		if n.Type != html.ElementNode || n.DataAtom != atom.Tr {
			continue
		}
		cells := cellsOf(n)
		for i, cell := range cells {
			if contains(cell, markerNode) && i+1 < len(cells) {
				return goquery.NewDocumentFromNode(cells[i+1]).Selection, true
			}
		}
	}
	return nil, false
}

func cellsOf(tr *html.Node) []*html.Node {
	var out []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			out = append(out, c)
		}
	}
	return out
}

func contains(ancestor, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}
