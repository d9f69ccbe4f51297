package ddl

import (
	"smf/internal/core"
	"smf/internal/dml"
	"smf/internal/lineage"
	"smf/internal/sqlast"
)

// ProcessCreateProcedure walks a procedure body once, in source order, so
// that any SELECT...INTO #tmp / INSERT INTO #tmp SELECT a later statement
// depends on has already populated the temp registry: every dml handler
// commits its temp version as it runs, so a single ordered pass is enough.
// It tracks the last
// persistent write target (SELECT INTO, INSERT INTO ... SELECT, MERGE,
// UPDATE/DELETE ... OUTPUT INTO) as the procedure's materialized output;
// the last such target wins when several branches write different
// targets. When the same target is written more than once, every branch's
// column lineage accumulates into one merged result (dml.ColumnAccumulator).
func ProcessCreateProcedure(stmt *sqlast.CreateProcedureStmt, ctx *lineage.ParseContext) *core.ObjectInfo {
	resolved := ctx.Resolver.Resolve(stmt.Name, "procedure", ctx.CurrentDatabase, nil)
	if resolved.Database != "" {
		ctx.Resolver.LearnFromCreate("procedure", resolved.QualifiedName, resolved.Database)
	}
	obj := core.NewObjectInfo(resolved.QualifiedName, core.ObjectProcedure)

	acc := dml.NewColumnAccumulator()
	deps := map[string]struct{}{}
	var targetNamespace, targetQualified string
	var lastVirtualSelect *sqlast.UnionStmt

	recordPersistent := func(f *dml.Fragment) {
		if f == nil || f.IsTemp {
			return
		}
		if f.QualifiedName != targetQualified || f.Namespace != targetNamespace {
			// A new target supersedes any columns accumulated for the
			// previous one; the last persistent target wins.
			acc = dml.NewColumnAccumulator()
			targetNamespace, targetQualified = f.Namespace, f.QualifiedName
		}
		for _, l := range f.Lineage {
			acc.Add(l)
		}
		for d := range f.Deps {
			deps[d] = struct{}{}
		}
	}

	for _, s := range stmt.Body {
		switch v := s.(type) {
		case *sqlast.UnionStmt:
			if v.IsSingle() && v.Branches[0].Into != "" {
				recordPersistent(dml.SelectInto(v.Branches[0], ctx))
			} else {
				lastVirtualSelect = v
			}
		case *sqlast.SelectStmt:
			if v.Into != "" {
				recordPersistent(dml.SelectInto(v, ctx))
			} else {
				lastVirtualSelect = &sqlast.UnionStmt{Branches: []*sqlast.SelectStmt{v}}
			}
		case *sqlast.InsertStmt:
			if v.Exec != "" {
				recordPersistent(dml.InsertExec(v, ctx))
			} else if v.Select != nil {
				recordPersistent(dml.InsertSelect(v, ctx))
			}
		case *sqlast.MergeStmt:
			recordPersistent(dml.Merge(v, ctx))
		case *sqlast.UpdateStmt:
			recordPersistent(dml.UpdateFrom(v, ctx))
		case *sqlast.DeleteStmt:
			recordPersistent(dml.DeleteWithOutput(v, ctx))
		}
	}

	if targetQualified != "" {
		lineageList := acc.Finalize()
		obj.Schema = core.TableSchema{Namespace: targetNamespace, QualifiedName: targetQualified, Columns: schemaFromAccumulated(lineageList)}
		obj.Lineage = lineageList
		obj.JobPathOverride = targetQualified
		for d := range deps {
			obj.AddDependency(d)
		}
		return obj
	}

	if lastVirtualSelect != nil {
		lineageList, schema, selDeps := lineage.SelectLineage(lastVirtualSelect, ctx)
		obj.Schema = core.TableSchema{Namespace: resolved.Namespace, QualifiedName: resolved.QualifiedName, Columns: schema}
		obj.Lineage = lineageList
		obj.ReasonCode = core.ReasonOnlyProcedureResultset
		for d := range selDeps {
			obj.AddDependency(d)
		}
		return obj
	}

	obj.Schema = core.TableSchema{Namespace: resolved.Namespace, QualifiedName: resolved.QualifiedName}
	obj.IsFallback = true
	obj.ReasonCode = core.ReasonNoPersistentOutput
	return obj
}

func schemaFromAccumulated(lineageList []core.ColumnLineage) []core.ColumnSchema {
	schema := make([]core.ColumnSchema, len(lineageList))
	for i, l := range lineageList {
		schema[i] = core.ColumnSchema{Name: l.OutputColumn, DataType: "unknown", Nullable: true, Ordinal: i}
	}
	return schema
}
