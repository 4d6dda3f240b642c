package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ktweb-minutes/internal/crawler"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/kh.htm", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1252")
		w.Header().Set("X-Agent", r.UserAgent())
		_, _ = w.Write([]byte{'<', 'p', '>', 'P', 0xe4, 0xe4, 't', 0xf6, 's', '<', '/', 'p', '>'})
	})
	mux.HandleFunc("/slow.htm", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchReturnsRawBody(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	f := New(Config{UserAgent: "ktweb-test", Timeout: time.Second})

	for i := 0; i < 2; i++ {
		resp, err := f.Fetch(context.Background(), srv.URL+"/kh.htm")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []byte{'<', 'p', '>', 'P', 0xe4, 0xe4, 't', 0xf6, 's', '<', '/', 'p', '>'}, resp.Body)
		assert.Equal(t, "ktweb-test", resp.Headers.Get("X-Agent"))
	}
}

func TestFetchNotFound(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	f := New(Config{Timeout: time.Second})

	_, err := f.Fetch(context.Background(), srv.URL+"/missing.htm")
	require.Error(t, err)
	var fe *crawler.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestFetchHonoursContext(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	f := New(Config{Timeout: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.Fetch(ctx, srv.URL+"/slow.htm")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestBuildCollector(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "coverage-agent", RespectRobots: true, Timeout: time.Second})
	collector := f.buildCollector(time.Unix(0, 0), &crawler.FetchResponse{}, new(error))
	assert.Equal(t, "coverage-agent", collector.UserAgent)
	assert.False(t, collector.IgnoreRobotsTxt)
	assert.True(t, collector.AllowURLRevisit)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	var result crawler.FetchResponse
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, time.Unix(0, 0), &result, &fetchErr)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request:    &colly.Request{URL: mustParseURL(t, "http://www3.jkl.fi/paatokset/kh.htm")},
	})
	assert.Equal(t, http.StatusCreated, result.StatusCode)
	assert.Equal(t, "body", string(result.Body))
	assert.Equal(t, "ok", result.Headers.Get("X-Resp"))
	assert.Equal(t, "http://www3.jkl.fi/paatokset/kh.htm", result.URL)

	hooks.onError(nil, errors.New("boom"))
	require.EqualError(t, fetchErr, "boom")
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
