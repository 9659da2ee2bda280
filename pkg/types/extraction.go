// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ExtractionField names one value the data extraction pass asks the model for.
type ExtractionField struct {
	// Name is the key the model is asked to use in its JSON reply.
	Name string `json:"name" yaml:"name"`

	// Description tells the model what the field means.
	Description string `json:"description" yaml:"description"`
}

// Schema is an ordered list of extraction fields. Its order is the order of
// the records produced for every identifier.
type Schema []ExtractionField

// Names returns the field names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// DataRecord is one extracted field/value/evidence triple. Value and
// Evidence are nil when the model did not supply them or the reply could
// not be parsed.
type DataRecord struct {
	Field    string  `json:"field"`
	Value    *string `json:"value"`
	Evidence *string `json:"evidence"`
}

// InfoExtraction is the fixed-shape summary produced for each article.
type InfoExtraction struct {
	MaterialSystem *string `json:"material_system"`
	Process        *string `json:"process"`
	Performance    *string `json:"performance"`
	Novelty        *string `json:"novelty"`
}

// RowColumns lists the columns of a Row in output order.
var RowColumns = []string{"field", "value", "evidence", "doi"}

// Row is a DataRecord flattened for the tabular export, tagged with the
// identifier that produced it.
type Row struct {
	Field    string
	Value    *string
	Evidence *string
	DOI      string
}

// NewRow attaches an identifier to a record.
func NewRow(rec DataRecord, doi string) Row {
	return Row{Field: rec.Field, Value: rec.Value, Evidence: rec.Evidence, DOI: doi}
}

// Cells returns the row as an ordered list of column/value pairs. Nil
// values stay nil so sinks can leave the cell empty.
func (r Row) Cells() []Cell {
	return []Cell{
		{Column: "field", Value: &r.Field},
		{Column: "value", Value: r.Value},
		{Column: "evidence", Value: r.Evidence},
		{Column: "doi", Value: &r.DOI},
	}
}

// Cell is one named value of a flat row.
type Cell struct {
	Column string
	Value  *string
}
