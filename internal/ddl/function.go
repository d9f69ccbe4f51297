package ddl

import (
	"smf/internal/core"
	"smf/internal/dml"
	"smf/internal/lineage"
	"smf/internal/sqlast"
)

// ProcessCreateFunction dispatches on the three CREATE FUNCTION shapes the
// parser distinguishes: a scalar UDF carries no schema or lineage; an
// inline TVF is a single SELECT body run straight through the
// select-lineage engine; a multi-statement TVF's @table schema comes from
// its RETURNS clause and its lineage is accumulated across every INSERT
// INTO @t SELECT in the body.
func ProcessCreateFunction(stmt *sqlast.CreateFunctionStmt, ctx *lineage.ParseContext) *core.ObjectInfo {
	resolved := ctx.Resolver.Resolve(stmt.Name, "function", ctx.CurrentDatabase, nil)
	if resolved.Database != "" {
		ctx.Resolver.LearnFromCreate("function", resolved.QualifiedName, resolved.Database)
	}
	obj := core.NewObjectInfo(resolved.QualifiedName, core.ObjectFunction)
	obj.Schema.Namespace = resolved.Namespace
	obj.Schema.QualifiedName = resolved.QualifiedName

	switch stmt.Kind {
	case sqlast.ScalarFunction:
		ctx.Schemas.Put(obj.Schema)
		return obj

	case sqlast.InlineTVF:
		lineageList, schema, deps := lineage.SelectLineage(stmt.InlineQuery, ctx)
		obj.Schema.Columns = schema
		obj.Lineage = lineageList
		for d := range deps {
			obj.AddDependency(d)
		}
		ctx.Schemas.Put(obj.Schema)
		return obj

	case sqlast.MultiTVF:
		cols := make([]core.ColumnSchema, len(stmt.TableSchema))
		for i, c := range stmt.TableSchema {
			cols[i] = core.ColumnSchema{Name: c.Name, DataType: normalizeType(c.DataType), Nullable: columnNullable(c), Ordinal: i}
		}
		obj.Schema.Columns = cols

		acc := dml.NewColumnAccumulator()
		for _, ins := range stmt.Inserts {
			if ins.Select == nil {
				continue
			}
			lineageList, _, deps := lineage.SelectLineage(ins.Select, ctx)
			applyColumnOverrideNames(ins.Columns, lineageList, cols)
			for _, l := range lineageList {
				acc.Add(l)
			}
			for d := range deps {
				obj.AddDependency(d)
			}
		}
		obj.Lineage = acc.Finalize()
		ctx.Schemas.Put(obj.Schema)
		return obj

	default:
		ctx.Schemas.Put(obj.Schema)
		return obj
	}
}

// applyColumnOverrideNames renames a branch's inferred output names to the
// INSERT's explicit column list, falling back to the @table schema's
// column order when no explicit list was given.
func applyColumnOverrideNames(explicit []string, lineageList []core.ColumnLineage, tableCols []core.ColumnSchema) {
	names := explicit
	if len(names) == 0 {
		for _, c := range tableCols {
			names = append(names, c.Name)
		}
	}
	for i := 0; i < len(names) && i < len(lineageList); i++ {
		lineageList[i].OutputColumn = names[i]
	}
}
