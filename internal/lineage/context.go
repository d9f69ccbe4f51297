// Package lineage implements the select-lineage engine: it turns a parsed
// SELECT/UNION tree into per-output-column lineage, the inferred output
// schema, and the set of dataset-level dependencies it read from. DDL and
// DML handlers in internal/ddl and internal/dml drive this engine; it
// never resolves object routing or namespace URIs itself, deferring both
// to internal/resolver.
package lineage

import (
	"fmt"

	"smf/internal/registry"
	"smf/internal/resolver"
)

// ParseContext threads the per-file collaborators a single parse needs
// through the traversal, as an explicit value rather than parser-embedded
// state.
type ParseContext struct {
	Resolver        *resolver.Resolver
	Schemas         *registry.SchemaRegistry
	CTEs            *registry.CteRegistry
	Temps           *registry.TempRegistry
	Renames         *RenameTable
	CurrentDatabase string

	// CTELineage holds the full per-column lineage of WITH-clause CTEs,
	// keyed by lowercased CTE name. It is created once per file and entries
	// stay for the rest of that file's parse; it is not cleared between
	// top-level statements. registry.CteRegistry only tracks column names
	// for consumers outside this package.
	CTELineage map[string]AliasTarget

	Warnings []string
}

// NewParseContext builds a context for one file's worth of parsing.
func NewParseContext(r *resolver.Resolver, schemas *registry.SchemaRegistry, renames *RenameTable, currentDatabase string) *ParseContext {
	return &ParseContext{
		Resolver:        r,
		Schemas:         schemas,
		CTEs:            registry.NewCteRegistry(),
		Temps:           registry.NewTempRegistry(),
		Renames:         renames,
		CurrentDatabase: currentDatabase,
		CTELineage:      make(map[string]AliasTarget),
	}
}

// Warnf records a non-fatal diagnostic (ambiguous column, unresolved
// alias) for the caller to surface via a fallback/warning reason code.
func (ctx *ParseContext) Warnf(format string, args ...any) {
	ctx.Warnings = append(ctx.Warnings, fmt.Sprintf(format, args...))
}

// depKey renders a dataset-level dependency key, matching the form
// core.ColumnReference.URI uses minus the column part.
func depKey(namespace, qualifiedName string) string {
	return namespace + "." + qualifiedName
}
