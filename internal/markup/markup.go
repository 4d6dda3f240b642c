// Package markup decodes legacy ktweb pages and normalizes their HTML trees.
//
// Normalization is a pure transformation: comments, doctype declarations,
// style and meta elements are removed, every attribute except class, href
// and target is stripped, and carriage returns, soft hyphens and
// non-breaking spaces in text are collapsed to a single space. Applying it
// twice yields the same tree as applying it once.
package markup

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/encoding/charmap"
)

// Encoding names the byte encoding of a fetched page.
type Encoding string

// Encodings used by ktweb installations.
const (
	Windows1252 Encoding = "windows-1252"
	ISO88591    Encoding = "iso-8859-1"
	UTF8        Encoding = "utf-8"
)

var keptAttributes = map[string]struct{}{
	"class":  {},
	"href":   {},
	"target": {},
}

var noiseRun = regexp.MustCompile("[\r\u00ad\u00a0]+")

// Decode wraps r so that it yields UTF-8 for the given source encoding.
func Decode(r io.Reader, enc Encoding) (io.Reader, error) {
	switch Encoding(strings.ToLower(string(enc))) {
	case Windows1252:
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	case ISO88591:
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case UTF8, "":
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
}

// Parse decodes r with enc and returns the normalized document tree.
func Parse(r io.Reader, enc Encoding) (*html.Node, error) {
	decoded, err := Decode(r, enc)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	Normalize(doc)
	return doc, nil
}

// Normalize rewrites the tree rooted at n in place.
func Normalize(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if isNoise(c) {
			n.RemoveChild(c)
			c = next
			continue
		}
		switch c.Type {
		case html.ElementNode:
			c.Attr = keepAttributes(c.Attr)
			Normalize(c)
		case html.TextNode:
			c.Data = CleanText(c.Data)
		}
		c = next
	}
}

// CleanText collapses runs of carriage returns, soft hyphens and
// non-breaking spaces into one plain space.
func CleanText(s string) string {
	return noiseRun.ReplaceAllString(s, " ")
}

// Render serializes the tree rooted at n as UTF-8 HTML.
func Render(n *html.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

func isNoise(n *html.Node) bool {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return true
	case html.ElementNode:
		return n.DataAtom == atom.Style || n.DataAtom == atom.Meta
	}
	return false
}

func keepAttributes(attrs []html.Attribute) []html.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		if a.Namespace != "" {
			continue
		}
		if _, ok := keptAttributes[strings.ToLower(a.Key)]; ok {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
