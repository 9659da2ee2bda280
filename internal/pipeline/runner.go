// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives identifiers through fetch, resolve, parse,
// clean, and extract, and writes one spreadsheet per run. Every stage
// degrades to placeholder or null values; only an unwritable export stops
// a run from producing its result.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/paper-reader/internal/acquire"
	"github.com/pdiddy/paper-reader/internal/artifact"
	"github.com/pdiddy/paper-reader/internal/clean"
	"github.com/pdiddy/paper-reader/internal/convert"
	"github.com/pdiddy/paper-reader/internal/metrics"
	"github.com/pdiddy/paper-reader/internal/sheet"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// exportLayout names export files extracted_YYYYMMDD_HHMMSS.xlsx.
const exportLayout = "20060102_150405"

// Fetcher downloads one article.
type Fetcher interface {
	Fetch(ctx context.Context, doi, dest string) acquire.FetchResult
}

// Parser turns a source file into a persisted structured document.
type Parser interface {
	Parse(ctx context.Context, source, out, doi string) convert.ParseResult
}

// Extractor runs the two LLM passes.
type Extractor interface {
	ExtractInfo(ctx context.Context, doc types.NarrativeDocument) (types.InfoExtraction, types.Degradation)
	ExtractData(ctx context.Context, doc types.NarrativeDocument, schema types.Schema) ([]types.DataRecord, types.Degradation)
}

// Cleaner recovers a narrative from raw XML.
type Cleaner interface {
	Clean(ctx context.Context, rawXML string) (types.NarrativeDocument, types.Degradation)
}

// Recorder persists run history.
type Recorder interface {
	StartRun(ctx context.Context, id string, identifiers int, startedAt time.Time) error
	RecordOutcome(ctx context.Context, runID string, o types.Outcome) error
	FinishRun(ctx context.Context, id string, finishedAt time.Time, rows int, exportPath, runErr string) error
}

// Options wires a Runner. Fetcher, Parser, and Extractor are required;
// the rest are optional.
type Options struct {
	Fetcher   Fetcher
	Parser    Parser
	Extractor Extractor

	// Cleaner, when set, is tried for XML sources whose stripped text is empty.
	Cleaner Cleaner

	Ledger  Recorder
	Metrics *metrics.Metrics

	Schema types.Schema
	Paths  types.PathsConfig

	Log logrus.FieldLogger

	// Progress receives one line per identifier and a run summary.
	Progress io.Writer

	// OnStart, when set, receives the run identifier before the first
	// identifier is processed.
	OnStart func(runID string)

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// RunResult summarises a completed run. ExportPath is empty only when the
// identifier list was empty.
type RunResult struct {
	RunID      string
	ExportPath string
	Rows       []types.Row
	Outcomes   []types.Outcome
}

// Runner executes pipeline runs. A Runner is not safe for concurrent
// runs; the HTTP service serialises them with a Guard.
type Runner struct {
	opts Options
}

// NewRunner creates a runner, filling defaults for the optional fields.
func NewRunner(opts Options) *Runner {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{opts: opts}
}

// Run processes ids in order. An empty list does nothing and returns a
// zero result. The returned error is non-nil only when the export could
// not be written; the result still carries every row and outcome.
func (r *Runner) Run(ctx context.Context, ids []string) (RunResult, error) {
	log := r.opts.Log
	if len(ids) == 0 {
		log.Warn("no identifiers to process")
		return RunResult{}, nil
	}

	res := RunResult{
		RunID:    uuid.NewString(),
		Rows:     []types.Row{},
		Outcomes: make([]types.Outcome, 0, len(ids)),
	}
	log = log.WithField("run", res.RunID)
	started := r.opts.Now()
	if r.opts.OnStart != nil {
		r.opts.OnStart(res.RunID)
	}

	r.opts.Metrics.StartRun()
	if r.opts.Ledger != nil {
		if err := r.opts.Ledger.StartRun(ctx, res.RunID, len(ids), started); err != nil {
			log.WithError(err).Warn("recording run start")
		}
	}
	log.WithField("identifiers", len(ids)).Info("run started")

	for i, id := range ids {
		t0 := r.opts.Now()
		outcome, rows := r.processOne(ctx, id, log)
		res.Rows = append(res.Rows, rows...)
		res.Outcomes = append(res.Outcomes, outcome)

		r.opts.Metrics.ObserveOutcome(outcome, r.opts.Now().Sub(t0))
		if r.opts.Ledger != nil {
			if err := r.opts.Ledger.RecordOutcome(ctx, res.RunID, outcome); err != nil {
				log.WithError(err).Warn("recording outcome")
			}
		}
		fmt.Fprintf(r.opts.Progress, "[%d/%d] %s %s\n", i+1, len(ids), id, summarize(outcome))
	}

	stamp := r.opts.Now().UTC().Format(exportLayout)
	res.ExportPath = filepath.Join(r.opts.Paths.Exports, "extracted_"+stamp+".xlsx")

	var runErr error
	if err := sheet.WriteRows(res.Rows, res.ExportPath); err != nil {
		runErr = fmt.Errorf("writing export: %w", err)
	}
	r.finish(ctx, res, runErr, log)

	if runErr != nil {
		return res, runErr
	}
	fmt.Fprintf(r.opts.Progress, "\nprocessed: %d, rows: %d, export: %s\n", len(ids), len(res.Rows), res.ExportPath)
	log.WithFields(logrus.Fields{"rows": len(res.Rows), "export": res.ExportPath}).Info("run complete")
	return res, nil
}

func (r *Runner) finish(ctx context.Context, res RunResult, runErr error, log logrus.FieldLogger) {
	status := types.RunFinished
	errMsg := ""
	if runErr != nil {
		status = types.RunFailed
		errMsg = runErr.Error()
		log.WithError(runErr).Error("run failed")
	}
	r.opts.Metrics.FinishRun(status)
	if r.opts.Ledger != nil {
		exportPath := res.ExportPath
		if runErr != nil {
			exportPath = ""
		}
		if err := r.opts.Ledger.FinishRun(ctx, res.RunID, r.opts.Now(), len(res.Rows), exportPath, errMsg); err != nil {
			log.WithError(err).Warn("recording run finish")
		}
	}
}

// processOne takes a single identifier through every stage. It never
// fails; problems are recorded on the outcome.
func (r *Runner) processOne(ctx context.Context, id string, runLog logrus.FieldLogger) (types.Outcome, []types.Row) {
	paths := r.opts.Paths
	log := runLog.WithField("doi", id)
	outcome := types.Outcome{Identifier: id}

	xmlPath := acquire.ArtifactPath(paths.Parsed, id, ".xml")
	parsedPath := acquire.ArtifactPath(paths.Parsed, id, ".json")
	cleanedPath := acquire.ArtifactPath(paths.Cleaned, id, ".json")
	infoPath := acquire.ArtifactPath(paths.Info, id, ".json")

	fetched := r.opts.Fetcher.Fetch(ctx, id, xmlPath)
	outcome.Fetch = fetched.Reason

	outcome.Source = acquire.Resolve(id, paths.Library, fetched, xmlPath)
	parsed := r.opts.Parser.Parse(ctx, outcome.Source, parsedPath, id)
	outcome.Parse = parsed.Reason

	narrative := clean.Strip(parsed.Document)
	if r.opts.Cleaner != nil && strings.TrimSpace(narrative.Text) == "" && parsed.Source.Format == convert.FormatXML {
		narrative, outcome.Clean = r.llmClean(ctx, outcome.Source, narrative, log)
	}
	if err := artifact.SaveJSON(narrative, cleanedPath); err != nil {
		outcome.Errors = append(outcome.Errors, err.Error())
		log.WithError(err).Error("saving cleaned document")
	}

	info, reason := r.opts.Extractor.ExtractInfo(ctx, narrative)
	outcome.Info = reason
	if err := artifact.SaveJSON(info, infoPath); err != nil {
		outcome.Errors = append(outcome.Errors, err.Error())
		log.WithError(err).Error("saving info")
	}

	records, reason := r.opts.Extractor.ExtractData(ctx, narrative, r.opts.Schema)
	outcome.Data = reason
	outcome.Records = len(records)

	rows := make([]types.Row, len(records))
	for i, rec := range records {
		rows[i] = types.NewRow(rec, id)
	}

	log.WithFields(logrus.Fields{
		types.StageFetch: outcome.Fetch.String(),
		types.StageParse: outcome.Parse.String(),
		types.StageInfo:  outcome.Info.String(),
		types.StageData:  outcome.Data.String(),
		"records":        outcome.Records,
	}).Info("identifier processed")
	return outcome, rows
}

func (r *Runner) llmClean(ctx context.Context, source string, fallback types.NarrativeDocument, log logrus.FieldLogger) (types.NarrativeDocument, types.Degradation) {
	raw, err := os.ReadFile(source)
	if err != nil {
		log.WithError(err).Warn("reading source for llm cleanup")
		return fallback, types.DegradedSourceMissing
	}
	log.Info("stripped text empty, trying llm cleanup")
	return r.opts.Cleaner.Clean(ctx, string(raw))
}

func summarize(o types.Outcome) string {
	var b strings.Builder
	for _, s := range []struct {
		name   string
		reason types.Degradation
	}{
		{types.StageFetch, o.Fetch},
		{types.StageParse, o.Parse},
		{types.StageInfo, o.Info},
		{types.StageData, o.Data},
	} {
		fmt.Fprintf(&b, "%s=%s ", s.name, s.reason)
	}
	fmt.Fprintf(&b, "records=%d", o.Records)
	return b.String()
}
