// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Stage names used in logs, metrics, and the run ledger.
const (
	StageFetch = "fetch"
	StageParse = "parse"
	StageClean = "clean"
	StageInfo  = "info"
	StageData  = "data"
)

// Outcome records how one identifier went through the pipeline. A stage
// whose reason is empty produced real data.
type Outcome struct {
	Identifier string `json:"identifier" yaml:"identifier"`

	// Source is the file handed to the parser, which may not exist.
	Source string `json:"source" yaml:"source"`

	Fetch Degradation `json:"fetch" yaml:"fetch"`
	Parse Degradation `json:"parse" yaml:"parse"`
	Clean Degradation `json:"clean,omitempty" yaml:"clean,omitempty"`
	Info  Degradation `json:"info" yaml:"info"`
	Data  Degradation `json:"data" yaml:"data"`

	// Records is the number of data records appended to the export.
	Records int `json:"records" yaml:"records"`

	// Errors lists persistence failures that did not stop the run.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Stages returns the outcome's reasons keyed by stage name.
func (o Outcome) Stages() map[string]Degradation {
	return map[string]Degradation{
		StageFetch: o.Fetch,
		StageParse: o.Parse,
		StageClean: o.Clean,
		StageInfo:  o.Info,
		StageData:  o.Data,
	}
}

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

// RunRecord summarises one pipeline run as kept in the ledger.
type RunRecord struct {
	ID          string     `json:"id"`
	Status      RunStatus  `json:"status"`
	Identifiers int        `json:"identifiers"`
	Rows        int        `json:"rows"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	ExportPath  string     `json:"export_path,omitempty"`
	Error       string     `json:"error,omitempty"`
}
