package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/document"
	"github.com/dgallion1/docrank/internal/embedding"
	"github.com/dgallion1/docrank/internal/metrics"
	"github.com/dgallion1/docrank/internal/output"
	"github.com/dgallion1/docrank/internal/parser"
	"github.com/dgallion1/docrank/internal/rank"
	"github.com/dgallion1/docrank/internal/structure"
)

// Runner executes ranking runs: parse and structure every document, rank the
// pooled sections, assemble the output record.
type Runner struct {
	cfg     config.Config
	engine  embedding.Engine
	ranker  *rank.Ranker
	log     *zap.Logger
	metrics *metrics.Metrics

	parserOpts    parser.Options
	structureOpts structure.Options
	outputOpts    output.Options
}

// NewRunner wires a runner. The engine is shared by every run.
func NewRunner(cfg config.Config, engine embedding.Engine, log *zap.Logger, m *metrics.Metrics) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Runner{
		cfg:    cfg,
		engine: engine,
		ranker: rank.New(engine, rank.Options{
			TopK:             cfg.Ranking.TopK,
			MaxExcerptTokens: cfg.Ranking.MaxExcerptTokens,
			TitleTermBonus:   cfg.Ranking.TitleTermBonus,
			BodyTermBonus:    cfg.Ranking.BodyTermBonus,
			MaxBoost:         cfg.Ranking.MaxBoost,
		}),
		log:        log.With(zap.String("component", "pipeline")),
		metrics:    m,
		parserOpts: parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
		structureOpts: structure.Options{
			SizeRatio:       cfg.Structure.SizeRatio,
			GapRatio:        cfg.Structure.GapRatio,
			MaxHeadingRunes: cfg.Structure.MaxHeadingRunes,
		},
		outputOpts: output.DefaultOptions(),
	}
}

// SetClock replaces the clock used for output timestamps.
func (r *Runner) SetClock(now func() time.Time) {
	r.outputOpts.Now = now
}

// Engine returns the embedding engine.
func (r *Runner) Engine() embedding.Engine { return r.engine }

type docResult struct {
	sections []document.Section
	pages    int
	blocks   int
	err      *DocumentError
}

// Run processes desc against src under the run time budget. Document
// failures exclude the document and are recorded on run; the returned error
// is always fatal.
func (r *Runner) Run(ctx context.Context, run *Run, desc *Descriptor, src Source) (*output.Record, error) {
	if run == nil {
		run = NewRun()
	}
	log := r.log.With(zap.String("run_id", run.ID))
	ctx, cancel := context.WithTimeout(ctx, r.cfg.RunTimeout)
	defer cancel()
	start := time.Now()

	log.Info("run started",
		zap.Int("documents", len(desc.Documents)),
		zap.String("persona", desc.Persona.Role),
		zap.String("engine", r.engine.Name()),
	)

	run.SetStatus(StatusParsing, "parsing")
	sections, err := r.extractAll(ctx, run, desc, src, log)
	r.metrics.ObserveStage("parse", time.Since(start))
	if err != nil {
		return nil, r.fail(run, log, err)
	}

	run.SetStatus(StatusRanking, "ranking")
	rankStart := time.Now()
	res, err := r.ranker.Rank(ctx, sections, rank.Query{
		Persona: desc.Persona.Role,
		Task:    desc.JobToBeDone.Task,
	})
	r.metrics.ObserveStage("rank", time.Since(rankStart))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &BudgetExceeded{Stage: "rank", Budget: r.cfg.RunTimeout}
		}
		return nil, r.fail(run, log, err)
	}
	r.recordDropped(run, res.Dropped, log)
	r.metrics.SectionsRanked(len(res.Selected), len(res.Dropped))

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// Ranking finished, so the result is still worth emitting.
		budget := &BudgetExceeded{Stage: "assemble", Budget: r.cfg.RunTimeout}
		log.Warn("run budget exceeded, emitting ranked result", zap.Error(budget))
		run.AddError(budget.Error())
	}

	rec := output.Assemble(res.Selected, output.Meta{
		InputDocuments: desc.Filenames(),
		Persona:        desc.Persona.Role,
		JobToBeDone:    desc.JobToBeDone.Task,
		ChallengeInfo:  desc.ChallengeInfo,
	}, r.outputOpts)
	run.Complete(rec)
	snap := run.Snapshot()
	r.metrics.RunFinished(string(snap.Status))

	log.Info("run complete",
		zap.String("status", string(snap.Status)),
		zap.Int("candidates", res.Candidates),
		zap.Int("selected", len(res.Selected)),
		zap.Int("excluded", len(snap.Progress.Excluded)),
		zap.Int("dropped", len(res.Dropped)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return rec, nil
}

func (r *Runner) fail(run *Run, log *zap.Logger, err error) error {
	run.AddError(err.Error())
	run.SetStatus(StatusFailed, "failed")
	r.metrics.RunFinished(string(StatusFailed))
	log.Error("run failed", zap.Error(err))
	return err
}

// extractAll parses and structures documents on a bounded pool. Each worker
// fills only its own slot; results are merged in input order once all are
// done. If the budget runs out first, stalled workers are abandoned.
func (r *Runner) extractAll(ctx context.Context, run *Run, desc *Descriptor, src Source, log *zap.Logger) ([]document.Section, error) {
	results := make([]docResult, len(desc.Documents))
	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(r.cfg.Workers)
		for i, ref := range desc.Documents {
			g.Go(func() error {
				results[i] = r.processDocument(i, ref, src)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &BudgetExceeded{Stage: "parse", Budget: r.cfg.RunTimeout}
		}
		return nil, fmt.Errorf("parse: %w", ctx.Err())
	}

	var sections []document.Section
	parsed := 0
	for i, res := range results {
		if res.err != nil {
			run.Exclude(res.err)
			r.metrics.DocumentExcluded(res.err.Stage)
			log.Warn("document excluded",
				zap.String("document", res.err.Document),
				zap.String("stage", res.err.Stage),
				zap.Bool("excluded", true),
				zap.Error(res.err.Err),
			)
			continue
		}
		parsed++
		sections = append(sections, res.sections...)
		log.Debug("document structured",
			zap.String("document", desc.Documents[i].Filename),
			zap.Int("pages", res.pages),
			zap.Int("blocks", res.blocks),
			zap.Int("sections", len(res.sections)),
		)
	}
	run.SetCounts(len(desc.Documents), parsed, len(sections))
	r.metrics.SectionsExtracted(len(sections))
	return sections, nil
}

func (r *Runner) processDocument(idx int, ref DocumentRef, src Source) (res docResult) {
	name := ref.Filename
	fail := func(stage string, err error) docResult {
		return docResult{err: &DocumentError{Document: name, Stage: stage, Err: err}}
	}
	defer func() {
		if p := recover(); p != nil {
			res = fail("parse", fmt.Errorf("parser panic: %v", p))
		}
	}()

	p, err := parser.ForFile(name, r.parserOpts)
	if err != nil {
		return fail("parse", err)
	}
	f, err := src.Open(name)
	if err != nil {
		return fail("read", err)
	}
	defer f.Close()

	doc, err := p.Parse(f, name)
	if err != nil {
		return fail("parse", err)
	}
	doc.Name = name
	doc.Index = idx

	sections := structure.Extract(doc, r.structureOpts)
	if len(sections) == 0 {
		return fail("structure", ErrNoText)
	}
	return docResult{sections: sections, pages: len(doc.Pages), blocks: doc.BlockCount()}
}

func (r *Runner) recordDropped(run *Run, dropped []rank.Dropped, log *zap.Logger) {
	if len(dropped) == 0 {
		return
	}
	out := make([]DroppedSection, len(dropped))
	for i, d := range dropped {
		out[i] = DroppedSection{
			Document: d.Section.Document,
			Title:    d.Section.Title,
			Page:     d.Section.StartPage,
			Error:    d.Err.Error(),
		}
		log.Warn("section dropped",
			zap.String("document", d.Section.Document),
			zap.String("section", d.Section.Title),
			zap.String("stage", "embed"),
			zap.Error(d.Err),
		)
	}
	run.AddDropped(out...)
}
