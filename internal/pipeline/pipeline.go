package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"sublate/internal/langid"
	"sublate/internal/logging"
	"sublate/internal/policy"
	"sublate/internal/subtitle"
	"sublate/internal/translate"
)

// terminal outcome of one file x target run
const (
	StatusCompleted               = "completed"
	StatusCompletedWithUnresolved = "completed-with-unresolved-units"
	StatusFailed                  = "failed"
)

// OutcomeRecord is the terminal outcome of one file x target run as handed
// to the Recorder.
type OutcomeRecord struct {
	File       string
	TargetLang string
	OutputPath string
	Status     string
	CueCount   int
	Preserved  int
	Translated int
	Unresolved int
	Error      string
	Duration   time.Duration
}

// Recorder persists terminal outcomes. The pipeline itself holds no durable
// state.
type Recorder interface {
	RecordOutcome(ctx context.Context, record OutcomeRecord) error
}

// Result reports one file x target run to the caller.
type Result struct {
	File       string
	TargetLang string
	OutputPath string
	Status     string
	CueCount   int
	Preserved  int
	Translated int
	Unresolved *UnresolvedReport
	Warnings   []subtitle.Warning
	Err        error
}

// Config carries the per-run tuning knobs.
type Config struct {
	// SourceLang is the declared source language, used for cues whose
	// detected language is unknown. Empty is allowed.
	SourceLang string

	// ConfidenceThreshold gates preservation. Zero means
	// policy.DefaultConfidenceThreshold.
	ConfidenceThreshold float64

	// FileTimeout bounds one file x target run. Zero means no timeout.
	FileTimeout time.Duration

	// Delimiter selects the millisecond separator written to output files.
	Delimiter subtitle.Delimiter
}

// Pipeline translates one subtitle file end to end: parse, classify each
// cue, decide preserve or translate, route batches to providers, rebuild
// the track, and write the output atomically.
type Pipeline struct {
	classifier *langid.Classifier
	router     *translate.Router
	executor   *translate.Executor
	recorder   Recorder
	logger     *logging.Logger
	cfg        Config
}

type Option func(*Pipeline)

// WithRecorder registers a sink for terminal outcomes.
func WithRecorder(recorder Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = recorder
	}
}

// WithLogger replaces the default no-op logger.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithPairConcurrency caps how many language-pair groups translate
// concurrently within one file.
func WithPairConcurrency(n int) Option {
	return func(p *Pipeline) {
		p.executor = translate.NewExecutor(
			p.router,
			translate.WithPairConcurrency(n),
		)
	}
}

func New(
	classifier *langid.Classifier,
	router *translate.Router,
	cfg Config,
	opts ...Option,
) *Pipeline {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = policy.DefaultConfidenceThreshold
	}

	p := &Pipeline{
		classifier: classifier,
		router:     router,
		executor:   translate.NewExecutor(router),
		logger:     logging.NewNop(),
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFile translates one subtitle file into every requested target
// language. Cues are classified once and the classification is shared
// across targets. Each target yields one Result; a failed target never
// aborts its siblings.
func (p *Pipeline) ProcessFile(
	ctx context.Context,
	path string,
	outputDir string,
	targets []string,
) []Result {
	results := make([]Result, 0, len(targets))
	start := time.Now()

	track, warnings, err := subtitle.Open(path, p.cfg.SourceLang)
	if err != nil {
		p.logger.Errorw("Failed to parse subtitle file",
			"file", path,
			"error", err,
		)
		for _, target := range targets {
			res := Result{
				File:       path,
				TargetLang: target,
				Status:     StatusFailed,
				Err:        err,
			}
			results = append(results, p.record(ctx, res, time.Since(start)))
		}
		return results
	}

	p.logger.Infow("Parsed subtitle file",
		"file", path,
		"cues", len(track.Cues),
	)
	if len(warnings) > 0 {
		p.logger.Warnw("Skipped malformed cue blocks",
			"file", path,
			"count", len(warnings),
		)
		for _, warning := range warnings {
			p.logger.Debugw("Malformed cue block",
				"file", path,
				"detail", warning.String(),
			)
		}
	}

	classifications := p.classifier.ClassifyAll(track.Cues)

	for _, target := range targets {
		targetStart := time.Now()
		res := p.processTarget(ctx, track, classifications, path, outputDir, target)
		res.Warnings = warnings
		results = append(results, p.record(ctx, res, time.Since(targetStart)))
	}

	return results
}

func (p *Pipeline) processTarget(
	ctx context.Context,
	track *subtitle.Track,
	classifications []langid.Result,
	path, outputDir, target string,
) Result {
	res := Result{
		File:       path,
		TargetLang: target,
		CueCount:   len(track.Cues),
	}

	if err := p.router.CheckPair(track.Language, target); err != nil {
		res.Status = StatusFailed
		res.Err = err
		p.logger.Errorw("No provider for language pair",
			"file", path,
			"target_language", target,
			"error", err,
		)
		return res
	}

	decisions := make(map[int]policy.Decision, len(track.Cues))
	var units []translate.Unit
	for i, cue := range track.Cues {
		detection := classifications[i]
		decision := policy.Decide(detection, target, p.cfg.ConfidenceThreshold)
		decisions[cue.Index] = decision
		if decision == policy.Preserve {
			continue
		}

		sourceLang := detection.Language
		if sourceLang == langid.Unknown {
			sourceLang = track.Language
		}
		units = append(units, translate.Unit{
			CueIndex:   cue.Index,
			SourceText: cue.Text(),
			SourceLang: sourceLang,
			TargetLang: target,
		})
	}
	res.Preserved = len(track.Cues) - len(units)
	res.Translated = len(units)

	p.logger.Infow("Translating subtitles",
		"file", path,
		"target_language", target,
		"translate", len(units),
		"preserve", res.Preserved,
	)

	tctx := ctx
	if p.cfg.FileTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, p.cfg.FileTimeout)
		defer cancel()
	}

	outcomes, err := p.executor.Execute(tctx, units)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		p.logger.Errorw("Translation failed",
			"file", path,
			"target_language", target,
			"error", err,
		)
		return res
	}

	out, report, err := Reconstruct(track, decisions, outcomes)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		p.logger.Errorw("Reconstruction failed",
			"file", path,
			"target_language", target,
			"error", err,
		)
		return res
	}

	outputPath := outputPathFor(path, outputDir, target)
	opts := subtitle.WriteOptions{Delimiter: p.cfg.Delimiter}
	if err := subtitle.WriteFile(outputPath, out, opts); err != nil {
		res.Status = StatusFailed
		res.Err = err
		p.logger.Errorw("Failed to write output file",
			"file", path,
			"output", outputPath,
			"error", err,
		)
		return res
	}

	res.OutputPath = outputPath
	res.Unresolved = report

	if len(report.Cues) > 0 {
		res.Status = StatusCompletedWithUnresolved
		p.logger.Warnw("Completed with unresolved cues",
			"file", path,
			"target_language", target,
			"output", outputPath,
			"unresolved", len(report.Cues),
		)
		for _, cue := range report.Cues {
			p.logger.Debugw("Unresolved cue",
				"index", cue.Index,
				"start", cue.Start,
				"text", cue.Snippet,
			)
		}
		return res
	}

	res.Status = StatusCompleted
	p.logger.Infow("Translation complete",
		"file", path,
		"target_language", target,
		"output", outputPath,
	)
	return res
}

// record hands the terminal outcome to the recorder, if one is registered.
// Recording failures are logged, never fatal.
func (p *Pipeline) record(
	ctx context.Context,
	res Result,
	elapsed time.Duration,
) Result {
	if p.recorder == nil {
		return res
	}

	record := OutcomeRecord{
		File:       res.File,
		TargetLang: res.TargetLang,
		OutputPath: res.OutputPath,
		Status:     res.Status,
		CueCount:   res.CueCount,
		Preserved:  res.Preserved,
		Translated: res.Translated,
		Duration:   elapsed,
	}
	if res.Unresolved != nil {
		record.Unresolved = len(res.Unresolved.Cues)
	}
	if res.Err != nil {
		record.Error = res.Err.Error()
	}

	if err := p.recorder.RecordOutcome(ctx, record); err != nil {
		p.logger.Warnw("Failed to record outcome",
			"file", res.File,
			"target_language", res.TargetLang,
			"error", err,
		)
	}
	return res
}

// outputPathFor derives <base>.<target>.srt next to the input, or under
// outputDir when set.
func outputPathFor(path, outputDir, target string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := fmt.Sprintf("%s.%s.srt", base, target)
	if outputDir != "" {
		return filepath.Join(outputDir, name)
	}
	return filepath.Join(filepath.Dir(path), name)
}
