package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/budgetbook/budgetbook/internal/dedupe"
	"github.com/budgetbook/budgetbook/internal/detect"
	"github.com/budgetbook/budgetbook/internal/importer"
	"github.com/budgetbook/budgetbook/internal/importlog"
	"github.com/budgetbook/budgetbook/internal/logger"
	"github.com/budgetbook/budgetbook/internal/model"
	"github.com/budgetbook/budgetbook/internal/pipeline"
	"github.com/budgetbook/budgetbook/internal/store"
)

// DefaultWorkers bounds concurrent document parsing.
const DefaultWorkers = 4

// Options configure a Service.
type Options struct {
	Workers int
	// AutoDetectText preselects the institution of a text document by its
	// markers when the caller gave none.
	AutoDetectText bool
}

// Selection is what the caller chose for a batch of files.
type Selection struct {
	Institution string
	DryRun      bool
}

// Outcome is the result of importing one file. Err is set when the file
// could not be parsed or committed; Result and Commit are then empty.
type Outcome struct {
	File   string
	Result *pipeline.Result
	Commit dedupe.Result
	Err    error
}

// Status classifies the outcome for the import log.
func (o Outcome) Status(dryRun bool) string {
	switch {
	case o.Err != nil:
		return importlog.StatusFailed
	case dryRun:
		return importlog.StatusDryRun
	case o.Result == nil || o.Result.YieldedNothing:
		return importlog.StatusEmpty
	}
	return importlog.StatusImported
}

// LogEntry renders the outcome as an import log row.
func (o Outcome) LogEntry(ts time.Time, dryRun bool) importlog.Entry {
	e := importlog.Entry{
		Timestamp:  ts,
		File:       filepath.Base(o.File),
		Status:     o.Status(dryRun),
		Accepted:   len(o.Commit.Unique),
		Duplicates: len(o.Commit.Duplicates),
	}
	if o.Result != nil {
		e.Institution = o.Result.Detection.Institution
		e.Dropped = o.Result.Dropped
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	return e
}

// Service parses statements and commits them to a ledger.
type Service struct {
	pipeline *pipeline.Pipeline
	registry *importer.Registry
	ledger   *store.Ledger
	opts     Options
}

// NewService wires the pipeline and ledger together.
func NewService(p *pipeline.Pipeline, registry *importer.Registry, ledger *store.Ledger, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Service{pipeline: p, registry: registry, ledger: ledger, opts: opts}
}

// Parse runs the pipeline over one loaded document.
func (s *Service) Parse(ctx context.Context, doc pipeline.Document) (*pipeline.Result, error) {
	if doc.Institution == "" && doc.Container == pipeline.Textual && s.opts.AutoDetectText {
		if st, marker := detect.ScanText(doc.Text, s.registry); st != nil {
			log := logger.FromContext(ctx)
			log.Debug().Str("file", doc.Name).Str("marker", marker).
				Str("institution", st.Institution()).Msg("institution preselected")
			doc.Institution = st.Key()
		}
	}
	return s.pipeline.Run(ctx, doc)
}

// ImportDocument parses and commits one document. With dryRun the
// statement is only checked against the ledger.
func (s *Service) ImportDocument(ctx context.Context, doc pipeline.Document, dryRun bool) Outcome {
	out := Outcome{File: doc.Name}
	out.Result, out.Err = s.Parse(ctx, doc)
	if out.Err != nil {
		out.Result = nil
		return out
	}
	s.commit(ctx, &out, dryRun)
	return out
}

// ImportFiles parses paths concurrently and commits them one at a time in
// the order given, so a record repeated across files is stored once. A
// failing file does not stop the others; the returned error is only set
// when ctx is cancelled.
func (s *Service) ImportFiles(ctx context.Context, paths []string, sel Selection) ([]Outcome, error) {
	log := logger.FromContext(ctx)
	outcomes := make([]Outcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			out := Outcome{File: path}
			out.Result, out.Err = s.parseFile(gctx, path, sel.Institution)
			if out.Err != nil {
				out.Result = nil
				log.Warn().Err(out.Err).Str("file", path).Msg("parse failed")
			}
			outcomes[i] = out
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range outcomes {
		if err := ctx.Err(); err != nil {
			return outcomes[:i], err
		}
		if outcomes[i].Err == nil {
			s.commit(ctx, &outcomes[i], sel.DryRun)
		}
	}
	return outcomes, nil
}

func (s *Service) parseFile(ctx context.Context, path, institution string) (*pipeline.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Load(filepath.Base(path), data, institution)
	if err != nil {
		return nil, err
	}
	return s.Parse(ctx, doc)
}

func (s *Service) commit(ctx context.Context, out *Outcome, dryRun bool) {
	recs := model.Aggregate(out.Result.Statement)
	var err error
	if dryRun {
		out.Commit, err = s.ledger.Check(ctx, recs)
	} else {
		out.Commit, err = s.ledger.Commit(ctx, recs)
	}
	if err != nil {
		out.Err = fmt.Errorf("committing %s: %w", out.File, err)
	}
}
