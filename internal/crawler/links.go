package crawler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// issueLink matches links to the frame wrapper of an issue page.
var issueLink = regexp.MustCompile(`^(.*)frmtxt(\d+)\.htm`)

// placeholderIssue is the number ktweb uses for rows that are not real issues.
const placeholderIssue = "9999"

// IndexURLs lists meeting document index links: the first anchor of every
// h3 heading, resolved against base. When headingPrefix is non-empty only
// headings starting with it, case-insensitively, are used.
func IndexURLs(doc *html.Node, base *url.URL, headingPrefix string) []string {
	prefix := strings.ToLower(strings.TrimSpace(headingPrefix))
	seen := make(map[string]struct{})
	var out []string
	goquery.NewDocumentFromNode(doc).Find("h3").Each(func(_ int, h *goquery.Selection) {
		if prefix != "" && !strings.HasPrefix(strings.ToLower(strings.TrimSpace(h.Text())), prefix) {
			return
		}
		href, ok := h.Find("a[href]").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		abs, err := Resolve(base, href)
		if err != nil {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	})
	return out
}

// IssueURLs lists the issue pages of a meeting document index in table order.
// Rows of the first table linking to frmtxt<N>.htm map to htmtxt<N>.htm;
// the 9999 placeholder row is skipped.
func IssueURLs(doc *html.Node, base *url.URL) []string {
	seen := make(map[string]struct{})
	var out []string
	table := goquery.NewDocumentFromNode(doc).Find("table").First()
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		row.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			m := issueLink.FindStringSubmatch(strings.TrimSpace(href))
			if m == nil {
				return true
			}
			if m[2] == placeholderIssue {
				return false
			}
			abs, err := Resolve(base, m[1]+"htmtxt"+m[2]+".htm")
			if err != nil {
				return false
			}
			if _, dup := seen[abs]; !dup {
				seen[abs] = struct{}{}
				out = append(out, abs)
			}
			return false
		})
	})
	return out
}
