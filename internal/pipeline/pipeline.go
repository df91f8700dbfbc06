// Package pipeline turns one decoded document into a Statement:
// detect, select strategy, extract, filter noise, validate, assemble.
package pipeline

import (
	"context"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetbook/budgetbook/internal/category"
	"github.com/budgetbook/budgetbook/internal/dates"
	"github.com/budgetbook/budgetbook/internal/detect"
	"github.com/budgetbook/budgetbook/internal/grid"
	"github.com/budgetbook/budgetbook/internal/importer"
	"github.com/budgetbook/budgetbook/internal/logger"
	"github.com/budgetbook/budgetbook/internal/model"
)

// Container is the declared shape of a document.
type Container string

const (
	Tabular Container = "tabular"
	Textual Container = "textual"
)

// Document is a decoded input. Text is set for textual documents and Grid
// for tabular ones. Institution is an optional explicit selection.
type Document struct {
	Name        string
	Container   Container
	Text        string
	Grid        grid.Grid
	Institution string
}

// Options tune the pipeline.
type Options struct {
	SanityCeiling  decimal.Decimal
	HeaderScanRows int
	Now            func() time.Time
}

// Result is a successful run.
type Result struct {
	Statement *model.Statement
	Detection detect.Detection
	Extracted int // candidates produced by the grammar
	Dropped   int // candidates rejected as noise or incomplete
	Repeated  int // exact repeats within the document
	// YieldedNothing is set when the document was recognized but no record survived.
	YieldedNothing bool
	Preview        []string
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	detector *detect.Detector
	noise    importer.NoiseFilter
	now      func() time.Time
}

// New builds a pipeline over registry.
func New(registry *importer.Registry, opts Options) *Pipeline {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		detector: detect.New(registry, opts.HeaderScanRows),
		noise:    importer.NewNoiseFilter(opts.SanityCeiling),
		now:      now,
	}
}

// Run processes doc. Detection and selection failures are returned as
// *model.Error; nothing partial is returned with an error.
func (p *Pipeline) Run(ctx context.Context, doc Document) (*Result, error) {
	log := logger.FromContext(ctx).With().Str("file", doc.Name).Logger()

	det, err := p.detect(doc)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("institution", det.Institution).Str("strategy", det.Strategy.Key()).Msg("detected")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Detection: *det, Preview: preview(doc)}
	var kept []model.TransactionRecord
	for c := range p.extract(doc, det) {
		res.Extracted++
		c = c.Normalize()
		if reason := p.noise.Reason(det.Strategy, c); reason != "" {
			res.Dropped++
			log.Trace().Str("raw", c.Raw).Str("reason", reason).Msg("dropped")
			continue
		}
		rec, ok := c.Record()
		if !ok {
			res.Dropped++
			log.Trace().Str("raw", c.Raw).Msg("dropped incomplete candidate")
			continue
		}
		rec.Institution = det.Institution
		rec.Category = category.Canonical(rec.Category)
		kept = append(kept, rec)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unique := dropRepeats(kept)
	res.Repeated = len(kept) - len(unique)

	header := model.StatementHeader{
		Institution: det.Institution,
		FileName:    doc.Name,
		ParsedAt:    p.now(),
	}
	if doc.Container == Textual {
		header.Account, header.Owner, header.Period = statementInfo(doc.Text)
	}
	res.Statement = model.NewStatement(header, unique)
	res.YieldedNothing = len(unique) == 0

	log.Debug().
		Int("extracted", res.Extracted).
		Int("dropped", res.Dropped).
		Int("repeated", res.Repeated).
		Int("accepted", len(unique)).
		Msg("statement assembled")
	return res, nil
}

func (p *Pipeline) detect(doc Document) (*detect.Detection, error) {
	switch doc.Container {
	case Tabular:
		if doc.Grid == nil {
			return nil, model.NewError(model.KindUnsupportedContainer, "tabular document without a grid", doc.Name)
		}
		return p.detector.Tabular(doc.Grid, doc.Institution)
	case Textual:
		return p.detector.Textual(doc.Text, doc.Institution)
	default:
		return nil, model.NewError(model.KindUnsupportedContainer,
			fmt.Sprintf("unsupported container %q", doc.Container), doc.Name)
	}
}

func (p *Pipeline) extract(doc Document, det *detect.Detection) iter.Seq[model.Candidate] {
	if doc.Container == Tabular {
		return importer.ExtractGrid(det.Strategy, doc.Grid, *det.Layout, det.HeaderRow)
	}
	return det.Strategy.Extract(doc.Text)
}

// dropRepeats removes exact repeats (same day, description and amount),
// which appear when a statement repeats rows across page breaks.
func dropRepeats(recs []model.TransactionRecord) []model.TransactionRecord {
	seen := make(map[string]bool, len(recs))
	out := make([]model.TransactionRecord, 0, len(recs))
	for _, r := range recs {
		k := r.Date.String() + "\x00" + r.Description + "\x00" + r.Amount.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

var (
	accountRe = regexp.MustCompile(`№\s*(\d{20,})`)
	ownerRe   = regexp.MustCompile(`Владелец:\s*(\p{Lu}\p{Ll}+(?:[ \t]+\p{Lu}\p{Ll}+){0,2})`)
	periodRe  = regexp.MustCompile(`Период выписки:\s*(\d{2}\.\d{2}\.\d{4})\s*[–—-]\s*(\d{2}\.\d{2}\.\d{4})`)
)

func statementInfo(text string) (account, owner string, period *model.Period) {
	if m := accountRe.FindStringSubmatch(text); m != nil {
		account = m[1]
	}
	if m := ownerRe.FindStringSubmatch(text); m != nil {
		owner = strings.TrimSpace(m[1])
	}
	if m := periodRe.FindStringSubmatch(text); m != nil {
		from, ok1 := dates.Parse(m[1])
		to, ok2 := dates.Parse(m[2])
		if ok1 && ok2 {
			period = &model.Period{From: from, To: to}
		}
	}
	return account, owner, period
}

const (
	textPreviewLines = 20
	gridPreviewRows  = 25
)

// preview returns the first lines of the document for troubleshooting.
func preview(doc Document) []string {
	var out []string
	switch doc.Container {
	case Textual:
		for line := range strings.Lines(doc.Text) {
			if l := strings.TrimSpace(line); l != "" {
				out = append(out, l)
				if len(out) == textPreviewLines {
					break
				}
			}
		}
	case Tabular:
		for row := 1; row <= min(doc.Grid.RowCount(), gridPreviewRows); row++ {
			out = append(out, grid.RowText(doc.Grid, row, " | "))
		}
	}
	return out
}
