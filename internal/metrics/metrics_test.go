package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeHost(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://www3.jkl.fi/paatokset/kh.htm", "www3.jkl.fi"},
		{"mixed case", "https://WWW3.jkl.fi/path", "www3.jkl.fi"},
		{"no scheme", "www3.jkl.fi/paatokset", "www3.jkl.fi"},
		{"host with port", "localhost:8080", "localhost"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeHost(tc.input))
		})
	}
}

func TestObservers(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(pagesFetchedTotal.WithLabelValues("issue", "ok"))
	ObservePage("http://www3.jkl.fi/paatokset/kh/htmtxt1.htm", "issue", "ok", 2048)
	assert.Equal(t, before+1, testutil.ToFloat64(pagesFetchedTotal.WithLabelValues("issue", "ok")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(bytesFetchedTotal.WithLabelValues("www3.jkl.fi")), 2048.0)

	before = testutil.ToFloat64(documentsIngestedTotal.WithLabelValues("created"))
	ObserveDocument("created")
	assert.Equal(t, before+1, testutil.ToFloat64(documentsIngestedTotal.WithLabelValues("created")))

	before = testutil.ToFloat64(validationWarningsTotal.WithLabelValues("place"))
	ObserveValidationWarning("place")
	assert.Equal(t, before+1, testutil.ToFloat64(validationWarningsTotal.WithLabelValues("place")))

	ObserveRateLimitDelay("http://www3.jkl.fi/", 300*time.Millisecond)
	assert.Positive(t, testutil.CollectAndCount(rateLimitDelaySeconds))
}

func FuzzSanitizeHost(f *testing.F) {
	for _, tc := range []string{"http://www3.jkl.fi", "https://example.com", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeHost(orig) == "" {
			t.Errorf("SanitizeHost(%q) returned an empty string", orig)
		}
	})
}
