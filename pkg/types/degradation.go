// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Degradation is the reason a stage returned placeholder or null output
// instead of real data. The zero value means the stage succeeded.
type Degradation string

const (
	DegradedNone Degradation = ""

	// Article fetch.
	DegradedNoCredential     Degradation = "no_credential"
	DegradedNotFound         Degradation = "not_found"
	DegradedUnauthorized     Degradation = "unauthorized"
	DegradedRetriesExhausted Degradation = "retries_exhausted"
	DegradedTransport        Degradation = "transport"

	// Structural parsing.
	DegradedSourceMissing Degradation = "source_missing"
	DegradedTriggerFailed Degradation = "trigger_failed"
	DegradedResultFailed  Degradation = "result_failed"

	// Extraction.
	DegradedMalformedResponse Degradation = "malformed_response"
	DegradedLLMError          Degradation = "llm_error"

	// Any stage guarded by a circuit breaker.
	DegradedCircuitOpen Degradation = "circuit_open"
)

// Degraded reports whether d carries a failure reason.
func (d Degradation) Degraded() bool {
	return d != DegradedNone
}

// String returns "ok" for the zero value so log lines stay readable.
func (d Degradation) String() string {
	if d == DegradedNone {
		return "ok"
	}
	return string(d)
}
