// Package emit implements the OpenLineage document writer: it turns a
// finished core.ObjectInfo into the JSON shape the rest of the ecosystem
// consumes, with deterministic key ordering so that two runs over
// unchanged input produce byte-identical output.
package emit

import (
	"encoding/json"

	"github.com/google/uuid"

	"smf/internal/core"
)

// runNamespace anchors the deterministic run-id derivation: a stable UUIDv5
// namespace means the same object always gets the same run id across runs,
// which is what makes the emitted JSON diffable.
var runNamespace = uuid.MustParse("6ba7b813-9dad-11d1-80b4-00c04fd430c8")

// Field is one entry of a schema.fields or dataset list, kept as an
// exported struct (rather than a map) so field order in the marshaled JSON
// matches insertion order.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// InputField identifies one upstream column feeding a ColumnLineage entry.
type InputField struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Field     string `json:"field"`
}

// ColumnLineageFacetEntry is the per-output-column detail inside the
// columnLineage facet.
type ColumnLineageFacetEntry struct {
	InputFields             []InputField `json:"inputFields"`
	TransformationType      string       `json:"transformationType"`
	TransformationDescription string     `json:"transformationDescription,omitempty"`
}

// QualityFacet reports extraction confidence for the dataset.
type QualityFacet struct {
	IsFallback      bool    `json:"isFallback"`
	LineageCoverage float64 `json:"lineageCoverage"`
	ReasonCode      string  `json:"reasonCode,omitempty"`
}

// OutputFacets bundles the three facets an output dataset always carries.
type OutputFacets struct {
	Schema struct {
		Fields []Field `json:"fields"`
	} `json:"schema"`
	ColumnLineage struct {
		Fields map[string]ColumnLineageFacetEntry `json:"fields"`
	} `json:"columnLineage"`
	Quality QualityFacet `json:"quality"`
}

// Dataset is one input or output entry of the job facet.
type Dataset struct {
	Namespace string        `json:"namespace"`
	Name      string        `json:"name"`
	Facets    *OutputFacets `json:"facets,omitempty"`
}

// Job identifies the producing job: its namespace/name pair and the
// warehouse/dbt path convention used to locate its source file.
type Job struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Path      string `json:"path"`
}

// Run carries the deterministic run id.
type Run struct {
	RunID string `json:"runId"`
}

// Document is the full OpenLineage event emitted for one ObjectInfo.
type Document struct {
	EventType string    `json:"eventType"`
	EventTime string    `json:"eventTime"`
	Run       Run       `json:"run"`
	Job       Job       `json:"job"`
	Inputs    []Dataset `json:"inputs"`
	Outputs   []Dataset `json:"outputs"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// Options configures how a Document's job metadata is derived.
type Options struct {
	EventTime string // RFC3339, supplied by the caller so emit stays pure
	DbtMode   bool
}

// Build turns an ObjectInfo into its OpenLineage Document.
func Build(obj *core.ObjectInfo, opts Options) *Document {
	hint := obj.QualifiedName
	if obj.JobPathOverride != "" {
		hint = obj.JobPathOverride
	}

	doc := &Document{
		EventType: "COMPLETE",
		EventTime: opts.EventTime,
		Run:       Run{RunID: uuid.NewSHA1(runNamespace, []byte(hint)).String()},
		Job: Job{
			Namespace: obj.Schema.Namespace,
			Name:      obj.QualifiedName,
			Path:      jobPath(hint, opts.DbtMode),
		},
	}

	for _, dep := range obj.DependencyList() {
		doc.Inputs = append(doc.Inputs, Dataset{Namespace: obj.Schema.Namespace, Name: dep})
	}

	doc.Outputs = []Dataset{buildOutputDataset(obj)}
	doc.Warnings = obj.Warnings
	return doc
}

func jobPath(hint string, dbtMode bool) string {
	if dbtMode {
		return "dbt/models/" + hint + ".sql"
	}
	return "warehouse/sql/" + hint + ".sql"
}

func buildOutputDataset(obj *core.ObjectInfo) Dataset {
	facets := &OutputFacets{}
	for _, c := range obj.Schema.Columns {
		facets.Schema.Fields = append(facets.Schema.Fields, Field{Name: c.Name, Type: c.DataType, Nullable: c.Nullable})
	}

	facets.ColumnLineage.Fields = make(map[string]ColumnLineageFacetEntry, len(obj.Lineage))
	covered := 0
	for _, l := range obj.Lineage {
		entry := ColumnLineageFacetEntry{
			TransformationType:        string(l.Kind),
			TransformationDescription: l.Description,
		}
		for _, ref := range l.Inputs {
			entry.InputFields = append(entry.InputFields, InputField{
				Namespace: ref.Namespace,
				Name:      ref.TableName,
				Field:     ref.ColumnName,
			})
		}
		if l.Kind != core.Unknown && len(l.Inputs) > 0 {
			covered++
		}
		facets.ColumnLineage.Fields[l.OutputColumn] = entry
	}

	total := len(obj.Lineage)
	coverage := 1.0
	if total > 0 {
		coverage = float64(covered) / float64(total)
	}
	facets.Quality = QualityFacet{
		IsFallback:      obj.IsFallback,
		LineageCoverage: coverage,
		ReasonCode:      obj.ReasonCode,
	}

	return Dataset{Namespace: obj.Schema.Namespace, Name: obj.QualifiedName, Facets: facets}
}

// Marshal renders a Document as indented, deterministically-ordered JSON.
// Map iteration in Go's encoding/json already sorts object keys, which
// covers the columnLineage.fields map; every other field is an ordered
// struct or slice built in source order.
func Marshal(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}
