package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/JakeFAU/ktweb-minutes/internal/minutes"
	pubmemory "github.com/JakeFAU/ktweb-minutes/internal/publisher/memory"
	"github.com/JakeFAU/ktweb-minutes/internal/storage/memory"
	"github.com/JakeFAU/ktweb-minutes/internal/store"
)

type stubParser map[string]parseResult

type parseResult struct {
	doc minutes.MeetingDocument
	err error
}

func (p stubParser) ParseMeetingDocument(dir string) (minutes.MeetingDocument, error) {
	r, ok := p[dir]
	if !ok {
		return minutes.MeetingDocument{}, errors.New("unknown dir")
	}
	return r.doc, r.err
}

type fixedIDs struct{}

func (fixedIDs) NewID() (string, error) { return "run-1", nil }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type failingRepo struct {
	store.Repository
	err error
}

func (r failingRepo) IngestMeetingDocument(context.Context, minutes.MeetingDocument, string) (store.IngestResult, error) {
	return store.IngestResult{}, r.err
}

func completeDocument(origin string) minutes.MeetingDocument {
	start := time.Date(2013, 6, 3, 15, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	return minutes.MeetingDocument{
		OriginID:    origin,
		Policymaker: "kh",
		Place:       "Kaupungintalo",
		Sessions:    []minutes.Session{{Start: start, End: &end}},
		Participants: minutes.Participants{
			DecisionMakers: []string{"Pekka Virtanen"},
			Others:         []string{"Maija Meikäläinen"},
		},
		AgendaItems: []minutes.AgendaItem{{Index: 1, Subject: "Kokouksen laillisuus"}},
	}
}

func newIngester(t *testing.T, parser Parser, repo store.Repository, pub Publisher) *Ingester {
	t.Helper()
	ing, err := New(Deps{
		Parser:          parser,
		Repository:      repo,
		Publisher:       pub,
		IDs:             fixedIDs{},
		Clock:           fixedClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		PolicymakerName: func(string) string { return "Kaupunginhallitus" },
	}, Config{Concurrency: 2, Topic: "documents"})
	require.NoError(t, err)
	return ing
}

func TestRunStoresAndPublishes(t *testing.T) {
	t.Parallel()

	repo := memory.NewRepository()
	pub := pubmemory.New()
	parser := stubParser{
		"a": {doc: completeDocument("kh/2013/03061800")},
		"b": {err: &minutes.ParseError{Path: "b/htmtxt0.htm", Reason: "meeting times not found"}},
		"c": {doc: completeDocument("kh/2013/03061800")},
	}

	report, err := newIngester(t, parser, repo, pub).Run(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "b", report.Failures[0].Dir)
	assert.Contains(t, report.Failures[0].Err, "meeting times not found")

	msgs := pub.Messages("documents")
	require.Len(t, msgs, 1)
	event, ok := msgs[0].Payload.(Event)
	require.True(t, ok)
	assert.Equal(t, EventIngested, event.Type)
	assert.Equal(t, "kh/2013/03061800", event.OriginID)
	assert.Equal(t, 1, event.AgendaItems)

	pms, _, err := repo.ListPolicymakers(context.Background(), store.Query{})
	require.NoError(t, err)
	require.Len(t, pms, 1)
	assert.Equal(t, "Kaupunginhallitus", pms[0].Name)
}

func TestRunPersistsDocumentWithWarnings(t *testing.T) {
	t.Parallel()

	doc := completeDocument("kh/2013/03061800")
	doc.Participants.DecisionMakers = nil

	repo := memory.NewRepository()
	report, err := newIngester(t, stubParser{"a": {doc: doc}}, repo, nil).Run(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Warnings)

	_, total, err := repo.ListMeetingDocuments(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestRunReportsRepositoryFailures(t *testing.T) {
	t.Parallel()

	repo := failingRepo{err: errors.New("connection refused")}
	report, err := newIngester(t, stubParser{"a": {doc: completeDocument("x")}}, repo, nil).
		Run(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	require.Len(t, report.Failures, 1)

	dup := failingRepo{err: store.ErrDuplicate}
	report, err = newIngester(t, stubParser{"a": {doc: completeDocument("x")}}, dup, nil).
		Run(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, report.Failures)
}

func TestRunRecordsSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ing, err := New(Deps{
		Parser: stubParser{
			"a": {doc: completeDocument("kh/2013/03061500")},
			"b": {doc: completeDocument("kh/2013/04061500")},
		},
		Repository: failingRepo{err: errors.New("connection refused")},
		IDs:        fixedIDs{},
		Clock:      fixedClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		Tracer:     tp.Tracer("test"),
	}, Config{Concurrency: 1})
	require.NoError(t, err)

	_, err = ing.Run(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	root := spans[2]
	assert.Equal(t, "ingest.Run", root.Name())
	for _, s := range spans[:2] {
		assert.Equal(t, "ingest.MeetingDocument", s.Name())
		assert.Equal(t, root.SpanContext().TraceID(), s.SpanContext().TraceID())
		assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID())
		assert.Equal(t, codes.Error, s.Status().Code)
	}
}

func TestRunPublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	pub := pubmemory.New()
	pub.FailWith(errors.New("unavailable"))
	report, err := newIngester(t, stubParser{"a": {doc: completeDocument("x")}}, memory.NewRepository(), pub).
		Run(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Empty(t, report.Failures)
}

func TestRunHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newIngester(t, stubParser{"a": {doc: completeDocument("x")}}, memory.NewRepository(), nil).
		Run(ctx, []string{"a"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewValidatesDeps(t *testing.T) {
	t.Parallel()

	_, err := New(Deps{}, Config{})
	require.Error(t, err)
	_, err = New(Deps{Parser: stubParser{}, Repository: memory.NewRepository()}, Config{})
	require.Error(t, err)
}

func TestFindMeetingDocumentDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, dir := range []string{"kh/2013/03061800", "kh/2012/15121600", "ltk/2013/01021700"} {
		full := filepath.Join(root, dir)
		require.NoError(t, os.MkdirAll(full, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(full, minutes.CoverPageFile), []byte("<html></html>"), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "kh/2013/empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "kh.htm"), []byte("x"), 0o644))

	dirs, err := FindMeetingDocumentDirs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "kh/2012/15121600"),
		filepath.Join(root, "kh/2013/03061800"),
		filepath.Join(root, "ltk/2013/01021700"),
	}, dirs)

	_, err = FindMeetingDocumentDirs(filepath.Join(root, "missing"))
	require.Error(t, err)
}
