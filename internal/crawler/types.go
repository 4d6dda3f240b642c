package crawler

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/html"

	"github.com/JakeFAU/ktweb-minutes/internal/markup"
)

// PageKind identifies the role a page plays in a ktweb site.
type PageKind string

// Page kinds, one per ktweb page type.
const (
	KindPolicymaker PageKind = "policymaker"
	KindIndex       PageKind = "index"
	KindCover       PageKind = "cover"
	KindIssue       PageKind = "issue"
)

// Encodings assigns the source byte encoding of each page kind.
type Encodings struct {
	Policymaker markup.Encoding
	Index       markup.Encoding
	Cover       markup.Encoding
	Issue       markup.Encoding
}

// DefaultEncodings matches the encodings ktweb servers emit.
func DefaultEncodings() Encodings {
	return Encodings{
		Policymaker: markup.Windows1252,
		Index:       markup.ISO88591,
		Cover:       markup.Windows1252,
		Issue:       markup.Windows1252,
	}
}

// For returns the encoding of kind.
func (e Encodings) For(kind PageKind) markup.Encoding {
	switch kind {
	case KindPolicymaker:
		return e.Policymaker
	case KindIndex:
		return e.Index
	case KindCover:
		return e.Cover
	default:
		return e.Issue
	}
}

// FetchRequest describes one page download.
type FetchRequest struct {
	URL   string
	Kind  PageKind
	Force bool
}

// FetchResponse is the raw result of a network request.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Page is a downloaded page. Doc is nil when the page was already on disk
// and no request was made.
type Page struct {
	URL    string
	Key    string
	Path   string
	Doc    *html.Node
	Cached bool
	// Digest is the content hash, set when the Downloader has a Hasher.
	Digest string
	// Unchanged marks a forced download whose content matched the file on disk.
	Unchanged bool
}

// Diagnostic records a page that could not be downloaded or stored.
type Diagnostic struct {
	URL  string   `json:"url"`
	Kind PageKind `json:"kind"`
	Err  error    `json:"-"`
}

// String renders the diagnostic for logs and reports.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %v", d.Kind, d.URL, d.Err)
}

// DocumentResult summarizes the download of one meeting document.
type DocumentResult struct {
	IndexURL string
	// Dir is the local meeting document directory; empty when the index failed.
	Dir      string
	Pages    []string
	Failures []Diagnostic
}

// OK reports whether every page of the document was downloaded.
func (r DocumentResult) OK() bool {
	return r.Dir != "" && len(r.Failures) == 0
}
