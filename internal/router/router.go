// Package router implements the object router: given a preprocessed
// file's parsed statements, it counts CREATE FUNCTION/PROC[EDURE]/TABLE
// occurrences and decides which handler owns the file.
package router

import (
	"regexp"
	"strings"

	"smf/internal/sqlast"
)

// Kind identifies which handler should process a file.
type Kind string

const (
	KindTable     Kind = "table"
	KindView      Kind = "view"
	KindFunction  Kind = "function"
	KindProcedure Kind = "procedure"
	KindScript    Kind = "script"
	KindDBT       Kind = "dbt"
)

// Decision is the router's output: which handler to run and, for the
// single-object kinds, the primary statement it should process.
type Decision struct {
	Kind    Kind
	Primary sqlast.Stmt
	// DBTModelName is set only when Kind == KindDBT.
	DBTModelName string
}

// dbtHeaderRe matches a leading "-- name: <model>" compiled-model comment,
// the convention original_source infers a dbt model name from when no
// other metadata is present.
var dbtHeaderRe = regexp.MustCompile(`(?im)^\s*--\s*name\s*:\s*(\S+)\s*$`)

// Route decides how to process a file's parsed statement list. fileStem is
// used as the dbt model name fallback when no header comment names one.
func Route(stmts []sqlast.Stmt, dbtMode bool, rawText, fileStem string) Decision {
	if dbtMode {
		name := fileStem
		if m := dbtHeaderRe.FindStringSubmatch(rawText); m != nil {
			name = m[1]
		}
		return Decision{Kind: KindDBT, DBTModelName: name}
	}

	var tables, views, functions, procedures []sqlast.Stmt
	for _, s := range stmts {
		switch s.(type) {
		case *sqlast.CreateTableStmt:
			tables = append(tables, s)
		case *sqlast.CreateViewStmt:
			views = append(views, s)
		case *sqlast.CreateFunctionStmt:
			functions = append(functions, s)
		case *sqlast.CreateProcedureStmt:
			procedures = append(procedures, s)
		}
	}

	switch {
	case len(tables) == 1 && len(functions) == 0 && len(procedures) == 0 && len(views) == 0:
		return Decision{Kind: KindTable, Primary: tables[0]}
	case len(views) == 1 && len(functions) == 0 && len(procedures) == 0 && len(tables) == 0:
		return Decision{Kind: KindView, Primary: views[0]}
	case len(functions) >= 1 && len(procedures) == 0:
		return Decision{Kind: KindFunction, Primary: functions[0]}
	case len(procedures) >= 1 && len(functions) == 0:
		return Decision{Kind: KindProcedure, Primary: procedures[0]}
	default:
		return Decision{Kind: KindScript}
	}
}

// FileStem derives a dbt model name fallback from a SQL file's base name.
func FileStem(path string) string {
	base := path
	if idx := strings.LastIndexAny(base, `/\`); idx != -1 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx != -1 {
		base = base[:idx]
	}
	return base
}
