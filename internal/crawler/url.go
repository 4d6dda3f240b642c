package crawler

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// LocalKey maps a URL onto its slash-separated location below the download root.
// Only the URL path is used, so the mirror reproduces the site's directory layout.
func LocalKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	p := u.EscapedPath()
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	trailing := strings.HasSuffix(p, "/")
	key := strings.TrimPrefix(path.Clean("/"+p), "/")
	if key == "" || key == "." {
		return "", fmt.Errorf("url %q has no path", rawURL)
	}
	if trailing {
		key = path.Join(key, "index.html")
	}
	return key, nil
}

// Resolve resolves ref against base.
func Resolve(base *url.URL, ref string) (string, error) {
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", ref, err)
	}
	return base.ResolveReference(r).String(), nil
}
