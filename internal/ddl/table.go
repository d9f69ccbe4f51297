// Package ddl implements the DDL handlers: CREATE TABLE, CREATE VIEW,
// CREATE FUNCTION (scalar and both TVF shapes), and CREATE PROCEDURE.
// Each handler resolves the object's FQN via internal/resolver,
// drives internal/lineage and internal/dml for anything that needs
// SELECT/DML semantics, and returns a finished core.ObjectInfo.
package ddl

import (
	"strings"

	"smf/internal/core"
	"smf/internal/lineage"
	"smf/internal/sqlast"
)

// ProcessCreateTable builds the schema-only ObjectInfo for a CREATE TABLE
// statement and registers it in the schema registry. Tables are sources:
// they carry no lineage.
func ProcessCreateTable(stmt *sqlast.CreateTableStmt, ctx *lineage.ParseContext) *core.ObjectInfo {
	resolved := ctx.Resolver.Resolve(stmt.Name, "table", ctx.CurrentDatabase, nil)
	if resolved.Database != "" {
		ctx.Resolver.LearnFromCreate("table", resolved.QualifiedName, resolved.Database)
	}

	cols := make([]core.ColumnSchema, len(stmt.Columns))
	for i, c := range stmt.Columns {
		cols[i] = core.ColumnSchema{
			Name:     c.Name,
			DataType: normalizeType(c.DataType),
			Nullable: columnNullable(c),
			Ordinal:  i,
		}
	}

	obj := core.NewObjectInfo(resolved.QualifiedName, core.ObjectTable)
	obj.Schema = core.TableSchema{Namespace: resolved.Namespace, QualifiedName: resolved.QualifiedName, Columns: cols}
	ctx.Schemas.Put(obj.Schema)
	return obj
}

// columnNullable defaults nullability: PRIMARY KEY implies NOT NULL unless
// the column definition carries an explicit NULL. The parser already
// applies this rule when it sets ColumnDef.Nullable.
func columnNullable(c sqlast.ColumnDef) bool {
	return c.Nullable
}

// normalizeType maps a raw DDL type token to the normalized label used in
// emitted schemas: VARCHAR-family types become nvarchar, INT stays int,
// DATE stays date, DECIMAL(p,s) is lowercased with whitespace stripped,
// anything else is just lowercased.
func normalizeType(raw string) string {
	if raw == "" {
		return "unknown"
	}
	upper := strings.ToUpper(raw)
	base := upper
	if idx := strings.IndexByte(base, '('); idx != -1 {
		base = base[:idx]
	}
	base = strings.TrimSpace(base)
	switch base {
	case "VARCHAR", "NVARCHAR", "CHAR", "NCHAR", "TEXT", "NTEXT":
		return "nvarchar"
	case "INT", "INTEGER":
		return "int"
	case "DATE":
		return "date"
	case "DECIMAL", "NUMERIC":
		return strings.ToLower(strings.ReplaceAll(raw, " ", ""))
	default:
		return strings.ToLower(strings.ReplaceAll(raw, " ", ""))
	}
}
