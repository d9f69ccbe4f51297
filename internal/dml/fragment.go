// Package dml implements the DML & materialization handlers: SELECT...INTO,
// INSERT...SELECT, INSERT...EXEC, MERGE, and UPDATE...FROM / DELETE with
// OUTPUT INTO. Each handler reduces one
// statement to a Fragment describing what it wrote and how; DDL
// handlers (internal/ddl) own assembling fragments into a finished
// ObjectInfo, since a single CREATE PROCEDURE body can write through
// several of these in sequence.
package dml

import (
	"smf/internal/core"
	"smf/internal/lineage"
	"smf/internal/resolver"
)

// Fragment is the output of processing one materializing DML statement:
// what it wrote (raw target text plus resolved identity when known), the
// lineage and schema it produced, and the datasets it read from.
type Fragment struct {
	TargetRaw     string
	IsTemp        bool
	Namespace     string
	QualifiedName string
	Lineage       []core.ColumnLineage
	Schema        []core.ColumnSchema
	Deps          map[string]struct{}
	IsFallback    bool
	ReasonCode    string
}

func newFragment() *Fragment {
	return &Fragment{Deps: map[string]struct{}{}}
}

// resolveTarget resolves a raw write-target identifier, registers the
// resulting schema when persistent, and commits a new temp-table version
// when the target is a temp table. It is shared by every handler that
// materializes a result set under a single name. deps is the caller's
// already-computed read-set (from lineage.SelectLineage or equivalent);
// resolveTarget copies it onto the fragment rather than re-deriving it.
func resolveTarget(raw string, lineageList []core.ColumnLineage, schema []core.ColumnSchema, deps map[string]struct{}, ctx *lineage.ParseContext) *Fragment {
	f := newFragment()
	f.TargetRaw = raw
	f.Lineage = lineageList
	f.Schema = schema
	for d := range deps {
		f.Deps[d] = struct{}{}
	}

	if resolver.IsTemp(raw) {
		f.IsTemp = true
		colInputs := make(map[string][]core.ColumnReference, len(lineageList))
		colNames := make([]string, len(lineageList))
		for i, l := range lineageList {
			colInputs[l.OutputColumn] = l.Inputs
			colNames[i] = l.OutputColumn
		}
		ctx.Temps.Commit(raw, colNames, f.Deps, colInputs)
		return f
	}

	resolved := ctx.Resolver.Resolve(raw, "table", ctx.CurrentDatabase, nil)
	f.Namespace = resolved.Namespace
	f.QualifiedName = resolved.QualifiedName
	if resolved.Database != "" {
		ctx.Resolver.LearnFromTarget(resolved.QualifiedName, resolved.Database)
	}
	ctx.Schemas.Put(core.TableSchema{Namespace: resolved.Namespace, QualifiedName: resolved.QualifiedName, Columns: schema})
	return f
}

