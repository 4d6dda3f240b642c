// Package ingest parses downloaded meeting document directories, validates
// them and persists them through a store.Repository.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/ktweb-minutes/internal/logging"
	"github.com/JakeFAU/ktweb-minutes/internal/metrics"
	"github.com/JakeFAU/ktweb-minutes/internal/minutes"
	"github.com/JakeFAU/ktweb-minutes/internal/store"
	"github.com/JakeFAU/ktweb-minutes/internal/validate"
)

const tracerName = "github.com/JakeFAU/ktweb-minutes/internal/ingest"

// EventIngested is the type of the event published for each new document.
const EventIngested = "meeting_document.ingested"

// Document outcome labels used in metrics.
const (
	statusCreated = "created"
	statusSkipped = "skipped"
	statusFailed  = "failed"
)

// Parser extracts a meeting document from a directory.
type Parser interface {
	ParseMeetingDocument(dir string) (minutes.MeetingDocument, error)
}

// Publisher emits ingest events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// Deps wires an Ingester. Publisher may be nil.
type Deps struct {
	Parser     Parser
	Repository store.Repository
	Publisher  Publisher
	IDs        IDGenerator
	Clock      Clock
	// PolicymakerName resolves an abbreviation to a display name.
	PolicymakerName func(abbreviation string) string
	// Tracer defaults to the global OpenTelemetry tracer.
	Tracer trace.Tracer
	Logger *zap.Logger
}

// Config tunes an Ingester.
type Config struct {
	Concurrency int
	Topic       string
}

// Event is published once per newly stored meeting document.
type Event struct {
	Type              string    `json:"type"`
	RunID             string    `json:"run_id"`
	MeetingDocumentID int64     `json:"meeting_document_id"`
	OriginID          string    `json:"origin_id"`
	OriginURL         string    `json:"origin_url,omitempty"`
	Policymaker       string    `json:"policymaker"`
	StartDatetime     time.Time `json:"start_datetime"`
	AgendaItems       int       `json:"agenda_items"`
	Warnings          int       `json:"warnings"`
	IngestedAt        time.Time `json:"ingested_at"`
}

// Diagnostic records a directory that could not be ingested.
type Diagnostic struct {
	Dir string `json:"dir"`
	Err string `json:"error"`
}

// Report summarizes one Run.
type Report struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Processed  int          `json:"processed"`
	Created    int          `json:"created"`
	Skipped    int          `json:"skipped"`
	Warnings   int          `json:"warnings"`
	Failures   []Diagnostic `json:"failures"`
}

// Ingester runs the parse, validate and persist pipeline.
type Ingester struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New validates deps and returns an Ingester.
func New(deps Deps, cfg Config) (*Ingester, error) {
	if deps.Parser == nil {
		return nil, fmt.Errorf("parser is required")
	}
	if deps.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if deps.IDs == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if deps.PolicymakerName == nil {
		deps.PolicymakerName = func(abbr string) string { return abbr }
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(tracerName)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Ingester{deps: deps, cfg: cfg, logger: logging.OrNop(deps.Logger).Named("ingest")}, nil
}

type parsed struct {
	doc minutes.MeetingDocument
	err error
}

// Run ingests dirs. Parsing happens concurrently; persisting happens in
// input order so ids are assigned deterministically. Per-directory problems
// are reported in the Report; the returned error is reserved for
// cancellation and setup failures.
func (i *Ingester) Run(ctx context.Context, dirs []string) (Report, error) {
	runID, err := i.deps.IDs.NewID()
	if err != nil {
		return Report{}, fmt.Errorf("generate run id: %w", err)
	}
	ctx, span := i.deps.Tracer.Start(ctx, "ingest.Run", trace.WithAttributes(
		attribute.String("ktweb.run_id", runID),
		attribute.Int("ktweb.dirs", len(dirs)),
	))
	defer span.End()

	report := Report{RunID: runID, StartedAt: i.deps.Clock.Now(), Failures: []Diagnostic{}}
	logger := i.logger.With(zap.String("run_id", runID))
	logger.Info("ingest started", zap.Int("dirs", len(dirs)), zap.Int("concurrency", i.cfg.Concurrency))

	results := make([]parsed, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.Concurrency)
	for idx, dir := range dirs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := i.deps.Parser.ParseMeetingDocument(dir)
			results[idx] = parsed{doc: doc, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return report, fmt.Errorf("parse meeting documents: %w", err)
	}

	for idx, dir := range dirs {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return report, fmt.Errorf("ingest canceled: %w", err)
		}
		report.Processed++
		res := results[idx]
		if res.err != nil {
			i.fail(logger, &report, dir, res.err)
			continue
		}
		i.ingestOne(ctx, logger, &report, dir, res.doc)
	}

	report.FinishedAt = i.deps.Clock.Now()
	span.SetAttributes(
		attribute.Int("ktweb.created", report.Created),
		attribute.Int("ktweb.failed", len(report.Failures)),
	)
	logger.Info("ingest finished",
		zap.Int("processed", report.Processed),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("warnings", report.Warnings),
		zap.Int("failed", len(report.Failures)),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (i *Ingester) ingestOne(ctx context.Context, logger *zap.Logger, report *Report, dir string, doc minutes.MeetingDocument) {
	ctx, span := i.deps.Tracer.Start(ctx, "ingest.MeetingDocument", trace.WithAttributes(
		attribute.String("ktweb.origin_id", doc.OriginID),
		attribute.String("ktweb.policymaker", doc.Policymaker),
	))
	defer span.End()

	docLogger := logger.With(zap.String("origin_id", doc.OriginID))
	if sc := span.SpanContext(); sc.HasTraceID() {
		docLogger = docLogger.With(zap.String("trace_id", sc.TraceID().String()))
	}

	warnings := validate.Validate(doc)
	for _, w := range warnings {
		metrics.ObserveValidationWarning(w.Field)
		docLogger.Warn("validation warning", zap.String("field", w.Field), zap.String("warning", w.String()))
	}
	report.Warnings += len(warnings)

	res, err := i.deps.Repository.IngestMeetingDocument(ctx, doc, i.deps.PolicymakerName(doc.Policymaker))
	switch {
	case errors.Is(err, store.ErrDuplicate):
		res.Created = false
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "store meeting document")
		i.fail(logger, report, dir, err)
		return
	}
	span.SetAttributes(attribute.Bool("ktweb.created", res.Created))
	if !res.Created {
		report.Skipped++
		metrics.ObserveDocument(statusSkipped)
		docLogger.Debug("meeting document already stored")
		return
	}
	report.Created++
	metrics.ObserveDocument(statusCreated)
	docLogger.Info("meeting document stored",
		zap.Int64("meeting_document_id", res.MeetingDocumentID),
		zap.Int("agenda_items", len(doc.AgendaItems)),
	)
	i.publish(ctx, docLogger, report.RunID, res.MeetingDocumentID, doc, len(warnings))
}

func (i *Ingester) publish(
	ctx context.Context,
	logger *zap.Logger,
	runID string,
	id int64,
	doc minutes.MeetingDocument,
	warnings int,
) {
	if i.deps.Publisher == nil || i.cfg.Topic == "" {
		return
	}
	start, _ := doc.StartDatetime()
	event := Event{
		Type:              EventIngested,
		RunID:             runID,
		MeetingDocumentID: id,
		OriginID:          doc.OriginID,
		OriginURL:         doc.OriginURL,
		Policymaker:       doc.Policymaker,
		StartDatetime:     start,
		AgendaItems:       len(doc.AgendaItems),
		Warnings:          warnings,
		IngestedAt:        i.deps.Clock.Now(),
	}
	msgID, err := i.deps.Publisher.Publish(ctx, i.cfg.Topic, event)
	if err != nil {
		logger.Warn("publish ingest event failed", zap.Error(err))
		return
	}
	logger.Debug("published ingest event", zap.String("message_id", msgID))
}

func (i *Ingester) fail(logger *zap.Logger, report *Report, dir string, err error) {
	metrics.ObserveDocument(statusFailed)
	logger.Error("ingest meeting document failed", zap.String("dir", dir), zap.Error(err))
	report.Failures = append(report.Failures, Diagnostic{Dir: dir, Err: err.Error()})
}

// FindMeetingDocumentDirs walks root and returns every directory holding a
// cover page, sorted.
func FindMeetingDocumentDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == minutes.CoverPageFile {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(dirs)
	return dirs, nil
}
