package gcs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)
	_, err = New(&storage.Client{}, Config{})
	require.Error(t, err)
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	s := &BlobStore{bucket: "b", prefix: "ktweb"}
	assert.Equal(t, "ktweb/www3.jkl.fi/paatokset/kh.htm", s.ObjectName("/www3.jkl.fi/paatokset/kh.htm"))

	s.prefix = ""
	assert.Equal(t, "www3.jkl.fi/paatokset/kh.htm", s.ObjectName("www3.jkl.fi/paatokset/kh.htm"))
}

func TestPutObjectUploads(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.Contains(r.URL.Path, "/b/archive/o") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"bucket":"archive","name":"ktweb/kh.htm"}`)
	}))
	defer srv.Close()

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	store, err := New(client, Config{Bucket: "archive", Prefix: "ktweb/"})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	uri, err := store.PutObject(context.Background(), "kh.htm", "text/html", strings.NewReader("<html></html>"))
	require.NoError(t, err)
	assert.Equal(t, "gs://archive/ktweb/kh.htm", uri)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "<html></html>")

	_, err = store.PutObject(context.Background(), " ", "", strings.NewReader(""))
	require.Error(t, err)
}
