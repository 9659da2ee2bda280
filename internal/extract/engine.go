// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract runs LLM-backed extraction passes over narrative
// documents. Model replies are parsed defensively: a failed call or an
// unusable reply yields null values and a degradation reason, never an
// error.
package extract

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/paper-reader/internal/resilience"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// breakerOp names the circuit breaker guarding the chat API.
const breakerOp = "llm"

// Info reply keys, tried in order.
var (
	materialKeys    = []string{"材料体系", "material_system"}
	processKeys     = []string{"工艺", "process"}
	performanceKeys = []string{"性能", "performance"}
	noveltyKeys     = []string{"创新点", "novelty"}
)

// Engine runs the info and data extraction passes against one completer.
type Engine struct {
	completer   ChatCompleter
	breakers    *resilience.Breakers
	temperature float64
	log         logrus.FieldLogger
}

// NewEngine creates an engine. breakers may be nil; a nil logger uses the
// logrus standard logger.
func NewEngine(completer ChatCompleter, breakers *resilience.Breakers, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		completer:   completer,
		breakers:    breakers,
		temperature: DefaultTemperature,
		log:         log,
	}
}

// Complete sends messages through the engine's breaker and returns the
// reply, or the degradation reason when no reply was obtained.
func (e *Engine) Complete(ctx context.Context, messages []Message) (string, types.Degradation) {
	var reply string
	err := e.breakers.Execute(breakerOp, func() error {
		var cerr error
		reply, cerr = e.completer.Complete(ctx, messages, e.temperature)
		return cerr
	})
	if err != nil {
		if resilience.IsOpen(err) {
			e.log.WithError(err).Warn("llm circuit open, skipping call")
			return "", types.DegradedCircuitOpen
		}
		e.log.WithError(err).Warn("llm call failed")
		return "", types.DegradedLLMError
	}
	return reply, types.DegradedNone
}

// ExtractInfo summarises a narrative into material system, process,
// performance, and novelty. Every field is nil when the reply is unusable.
func (e *Engine) ExtractInfo(ctx context.Context, doc types.NarrativeDocument) (types.InfoExtraction, types.Degradation) {
	messages, err := InfoPrompt(doc.Text)
	if err != nil {
		e.log.WithError(err).Error("rendering info prompt")
		return types.InfoExtraction{}, types.DegradedLLMError
	}

	reply, reason := e.Complete(ctx, messages)
	if reason.Degraded() {
		return types.InfoExtraction{}, reason
	}

	obj, err := ParseObject(reply)
	if err != nil {
		e.log.WithError(err).Warn("info reply is not a JSON object, returning empty info")
		return types.InfoExtraction{}, types.DegradedMalformedResponse
	}

	return types.InfoExtraction{
		MaterialSystem: firstValue(obj, materialKeys...),
		Process:        firstValue(obj, processKeys...),
		Performance:    firstValue(obj, performanceKeys...),
		Novelty:        firstValue(obj, noveltyKeys...),
	}, types.DegradedNone
}

// ExtractData asks for every schema field and returns exactly one record
// per field, in schema order. Records are null when the reply is unusable
// or omits the field.
func (e *Engine) ExtractData(ctx context.Context, doc types.NarrativeDocument, schema types.Schema) ([]types.DataRecord, types.Degradation) {
	if len(schema) == 0 {
		return []types.DataRecord{}, types.DegradedNone
	}

	messages, err := DataPrompt(doc.Text, schema)
	if err != nil {
		e.log.WithError(err).Error("rendering data prompt")
		return nullRecords(schema), types.DegradedLLMError
	}

	reply, reason := e.Complete(ctx, messages)
	if reason.Degraded() {
		return nullRecords(schema), reason
	}

	obj, err := ParseObject(reply)
	if err != nil {
		e.log.WithError(err).Warn("data reply is not a JSON object, returning null records")
		return nullRecords(schema), types.DegradedMalformedResponse
	}

	records := make([]types.DataRecord, len(schema))
	for i, f := range schema {
		value, evidence := valueEvidence(obj[f.Name])
		records[i] = types.DataRecord{Field: f.Name, Value: value, Evidence: evidence}
	}
	return records, types.DegradedNone
}

func nullRecords(schema types.Schema) []types.DataRecord {
	records := make([]types.DataRecord, len(schema))
	for i, f := range schema {
		records[i] = types.DataRecord{Field: f.Name}
	}
	return records
}
