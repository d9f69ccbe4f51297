package core

import (
	"fmt"
	"sort"
)

// ObjectType classifies what produced an ObjectInfo.
type ObjectType string

const (
	ObjectTable     ObjectType = "table"
	ObjectView      ObjectType = "view"
	ObjectFunction  ObjectType = "function"
	ObjectProcedure ObjectType = "procedure"
	ObjectTempTable ObjectType = "temp_table"
	ObjectScript    ObjectType = "script"
	ObjectUnknown   ObjectType = "unknown"
)

// Reason codes surfaced to users when extraction falls back to a degraded
// or partial result.
const (
	ReasonOnlyProcedureResultset  = "ONLY_PROCEDURE_RESULTSET"
	ReasonNoPersistentOutput      = "NO_PERSISTENT_OUTPUT_DETECTED"
	ReasonUnknownDBContext        = "UNKNOWN_DB_CONTEXT"
	ReasonDbtNoFinalSelect        = "DBT_NO_FINAL_SELECT"
	ReasonInsertExecFallback      = "INSERT_EXEC_FALLBACK"
	ReasonNoASTParse              = "NO_AST_PARSE"
)

// ObjectInfo is the fully-resolved description of one SQL object: its
// identity, schema, per-column lineage, and dataset-level dependencies.
type ObjectInfo struct {
	QualifiedName string             `json:"qualifiedName"`
	ObjectType    ObjectType         `json:"objectType"`
	Schema        TableSchema        `json:"schema"`
	Lineage       []ColumnLineage    `json:"lineage"`
	Dependencies  map[string]struct{} `json:"-"`
	IsFallback    bool               `json:"isFallback,omitempty"`
	ReasonCode    string             `json:"reasonCode,omitempty"`
	JobPathOverride string           `json:"-"`
	Warnings      []string           `json:"-"`
}

// NewObjectInfo constructs an empty ObjectInfo ready to be filled in by a
// handler.
func NewObjectInfo(qualifiedName string, objectType ObjectType) *ObjectInfo {
	return &ObjectInfo{
		QualifiedName: qualifiedName,
		ObjectType:    objectType,
		Dependencies:  map[string]struct{}{},
	}
}

// AddDependency records a dataset-level dependency by qualified name.
func (o *ObjectInfo) AddDependency(qualifiedName string) {
	if qualifiedName == "" {
		return
	}
	o.Dependencies[qualifiedName] = struct{}{}
}

// DependencyList returns dependencies sorted for deterministic output.
func (o *ObjectInfo) DependencyList() []string {
	out := make([]string, 0, len(o.Dependencies))
	for d := range o.Dependencies {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Validate checks P1: for non-table objects, |lineage| == |schema.columns|
// and output names line up positionally with schema column names.
func (o *ObjectInfo) Validate() error {
	if o.ObjectType == ObjectTable {
		if len(o.Lineage) != 0 {
			return fmt.Errorf("object %s: tables must have empty lineage, got %d entries", o.QualifiedName, len(o.Lineage))
		}
		return o.Schema.Validate()
	}
	if len(o.Lineage) != len(o.Schema.Columns) {
		return fmt.Errorf("object %s: lineage count %d != schema column count %d", o.QualifiedName, len(o.Lineage), len(o.Schema.Columns))
	}
	for i, l := range o.Lineage {
		if l.OutputColumn != o.Schema.Columns[i].Name {
			return fmt.Errorf("object %s: lineage[%d] output %q != schema column %q", o.QualifiedName, i, l.OutputColumn, o.Schema.Columns[i].Name)
		}
		if err := l.Validate(); err != nil {
			return fmt.Errorf("object %s: %w", o.QualifiedName, err)
		}
	}
	return o.Schema.Validate()
}
