// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns a resolved source document into a structured
// document by way of a remote structural parser. The adapter never
// fails: any problem with the source or the service yields a placeholder
// document and a degradation reason, and the result is always persisted.
package convert

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/paper-reader/internal/artifact"
	"github.com/pdiddy/paper-reader/internal/resilience"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// breakerOp names the circuit breaker guarding the parsing service.
const breakerOp = "parser"

// StructuralParser is a two-step remote parsing service. Trigger submits a
// document; Result returns the structure of the last submitted document.
type StructuralParser interface {
	Trigger(ctx context.Context, sourcePath string) error
	Result(ctx context.Context) (types.StructuredDocument, error)
}

// ParseResult reports the outcome of one Parse call.
type ParseResult struct {
	Document types.StructuredDocument
	Reason   types.Degradation
	Source   SourceInfo
}

// OK reports whether the document came from the parser.
func (r ParseResult) OK() bool { return !r.Reason.Degraded() }

// Adapter drives a StructuralParser for one document at a time.
type Adapter struct {
	parser   StructuralParser
	breakers *resilience.Breakers
	log      logrus.FieldLogger
}

// NewAdapter creates an adapter. breakers may be nil; a nil logger uses the
// logrus standard logger.
func NewAdapter(parser StructuralParser, breakers *resilience.Breakers, log logrus.FieldLogger) *Adapter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Adapter{parser: parser, breakers: breakers, log: log}
}

// Parse converts the document at source and writes the structured result
// to out. A missing or empty source, a rejected trigger, or a failed
// result call all produce a placeholder document carrying the DOI.
func (a *Adapter) Parse(ctx context.Context, source, out, doi string) ParseResult {
	log := a.log.WithFields(logrus.Fields{"doi": doi, "source": source})

	res := ParseResult{Source: Probe(source)}
	switch {
	case !res.Source.Usable():
		log.Warn("source missing or empty, writing placeholder")
		res.Reason = types.DegradedSourceMissing
	default:
		res.Document, res.Reason = a.remote(ctx, source, doi, log)
	}

	if res.Reason.Degraded() {
		res.Document = types.PlaceholderDocument(doi)
	}
	a.persist(res.Document, out, log)
	return res
}

func (a *Adapter) remote(ctx context.Context, source, doi string, log logrus.FieldLogger) (types.StructuredDocument, types.Degradation) {
	err := a.breakers.Execute(breakerOp, func() error {
		return a.parser.Trigger(ctx, source)
	})
	if err != nil {
		if resilience.IsOpen(err) {
			log.WithError(err).Warn("parser circuit open, skipping")
			return types.StructuredDocument{}, types.DegradedCircuitOpen
		}
		log.WithError(err).Error("parser trigger failed")
		return types.StructuredDocument{}, types.DegradedTriggerFailed
	}

	var doc types.StructuredDocument
	err = a.breakers.Execute(breakerOp, func() error {
		var rerr error
		doc, rerr = a.parser.Result(ctx)
		return rerr
	})
	if err != nil {
		if resilience.IsOpen(err) {
			log.WithError(err).Warn("parser circuit open, skipping")
			return types.StructuredDocument{}, types.DegradedCircuitOpen
		}
		log.WithError(err).Error("parser result failed")
		return types.StructuredDocument{}, types.DegradedResultFailed
	}

	normalize(&doc, doi)
	log.WithField("sections", len(doc.Content.Sections)).Info("parsed document")
	return doc, types.DegradedNone
}

// normalize fills a DOI the parser left empty and replaces nil slices so
// the persisted document always carries arrays.
func normalize(doc *types.StructuredDocument, doi string) {
	if doc.Metadata.DOI == "" {
		doc.Metadata.DOI = doi
	}
	if doc.Metadata.Authors == nil {
		doc.Metadata.Authors = []json.RawMessage{}
	}
	if doc.Content.Sections == nil {
		doc.Content.Sections = []types.Section{}
	}
	if doc.Content.Tables == nil {
		doc.Content.Tables = []json.RawMessage{}
	}
	if doc.Content.Figures == nil {
		doc.Content.Figures = []json.RawMessage{}
	}
}

func (a *Adapter) persist(doc types.StructuredDocument, out string, log logrus.FieldLogger) {
	if out == "" {
		return
	}
	if err := artifact.SaveJSON(doc, out); err != nil {
		log.WithError(err).Error("saving parsed document")
	}
}
