package lineage

import (
	"strings"

	"smf/internal/core"
	"smf/internal/sqlast"
)

var aggregateFuncs = map[string]bool{
	"SUM": true, "COUNT": true, "COUNT_BIG": true, "AVG": true,
	"MIN": true, "MAX": true, "STDEV": true, "STDEVP": true,
	"VAR": true, "VARP": true, "GROUPING": true, "STRING_AGG": true,
}

var stringFuncs = map[string]bool{
	"SUBSTRING": true, "LEFT": true, "RIGHT": true, "REPLACE": true,
	"UPPER": true, "LOWER": true, "TRIM": true, "LTRIM": true, "RTRIM": true,
	"STUFF": true, "PARSENAME": true, "FORMAT": true, "CONVERT": true,
	"TRY_CONVERT": true, "CAST": true, "CHARINDEX": true, "LEN": true,
}

// ClassifyProjection determines an output column's lineage fragment: which
// base columns feed it, and by what kind of transformation.
func ClassifyProjection(expr sqlast.Expr, outputName string, m *AliasMap, ctx *ParseContext) core.ColumnLineage {
	lineage := core.ColumnLineage{OutputColumn: outputName}

	switch e := expr.(type) {
	case sqlast.ColumnRef:
		inputs := resolveColumn(e, m, ctx)
		lineage.Inputs = inputs
		if len(inputs) == 1 {
			lineage.Kind = core.Identity
			if !strings.EqualFold(inputs[0].ColumnName, outputName) && ctx.Renames.IsRename(inputs[0].ColumnName, outputName) {
				lineage.Kind = core.Rename
				lineage.Description = "renamed from " + inputs[0].ColumnName
			}
		} else if len(inputs) > 1 {
			lineage.Kind = core.Expression
		} else {
			lineage.Kind = core.Unknown
		}
		return lineage

	case sqlast.Literal:
		lineage.Kind = core.Constant
		return lineage

	case sqlast.VariableRef:
		lineage.Kind = core.Expression
		return lineage

	case *sqlast.CastExpr:
		lineage.Inputs = collectInputs(e.X, m, ctx)
		if bin, ok := e.X.(*sqlast.BinaryExpr); ok && isArithmeticOp(bin.Op) && !isStringOperand(bin.Left) && !isStringOperand(bin.Right) {
			lineage.Kind = core.Arithmetic
		} else {
			lineage.Kind = core.Cast
		}
		return lineage

	case *sqlast.CaseExpr:
		lineage.Inputs = collectInputs(e.Operand, m, ctx)
		for _, w := range e.Whens {
			addAll(&lineage, collectInputs(w.Cond, m, ctx))
			addAll(&lineage, collectInputs(w.Value, m, ctx))
		}
		addAll(&lineage, collectInputs(e.Else, m, ctx))
		lineage.Kind = core.Case
		return lineage

	case *sqlast.WindowExpr:
		for _, a := range e.Func.Args {
			addAll(&lineage, collectInputs(a, m, ctx))
		}
		for _, p := range e.PartitionBy {
			addAll(&lineage, collectInputs(p, m, ctx))
		}
		for _, o := range e.OrderBy {
			addAll(&lineage, collectInputs(o, m, ctx))
		}
		lineage.Kind = core.Window
		return lineage

	case *sqlast.FuncCall:
		for _, a := range e.Args {
			addAll(&lineage, collectInputs(a, m, ctx))
		}
		name := strings.ToUpper(e.Name)
		switch {
		case e.IsHash:
			lineage.Kind = core.Expression
		case name == "CONCAT":
			lineage.Kind = core.Concat
		case aggregateFuncs[name]:
			lineage.Kind = core.Aggregation
		case stringFuncs[name]:
			lineage.Kind = core.StringParse
		default:
			lineage.Kind = core.Expression
		}
		return lineage

	case *sqlast.BinaryExpr:
		left := collectInputs(e.Left, m, ctx)
		lineage.Inputs = append(left, collectInputsDedup(collectInputs(e.Right, m, ctx), left)...)
		if isArithmeticOp(e.Op) {
			if isStringOperand(e.Left) || isStringOperand(e.Right) {
				lineage.Kind = core.Concat
			} else {
				lineage.Kind = core.Arithmetic
			}
		} else {
			lineage.Kind = core.Expression
		}
		return lineage

	case *sqlast.UnaryExpr:
		lineage.Inputs = collectInputs(e.X, m, ctx)
		if e.Op == "-" || e.Op == "+" {
			lineage.Kind = core.Arithmetic
		} else {
			lineage.Kind = core.Expression
		}
		return lineage

	case *sqlast.Subquery:
		lineage.Inputs = scalarSubqueryInputs(e, ctx)
		lineage.Kind = core.Expression
		return lineage

	default:
		lineage.Kind = core.Expression
		return lineage
	}
}

// addAll appends every ref not already present via core.ColumnLineage's
// own dedup semantics.
func addAll(l *core.ColumnLineage, refs []core.ColumnReference) {
	for _, r := range refs {
		l.AddInput(r)
	}
}

func collectInputs(e sqlast.Expr, m *AliasMap, ctx *ParseContext) []core.ColumnReference {
	if e == nil {
		return nil
	}
	if sub, ok := e.(*sqlast.Subquery); ok {
		return scalarSubqueryInputs(sub, ctx)
	}
	var out []core.ColumnReference
	for _, ref := range sqlast.ColumnRefs(e) {
		for _, r := range resolveColumn(ref, m, ctx) {
			out = dedupAppend(out, r)
		}
	}
	return out
}

func collectInputsDedup(refs, existing []core.ColumnReference) []core.ColumnReference {
	var out []core.ColumnReference
	for _, r := range refs {
		dup := false
		for _, e := range existing {
			if e.Equal(r) {
				dup = true
				break
			}
		}
		if !dup {
			out = dedupAppend(out, r)
		}
	}
	return out
}

func dedupAppend(list []core.ColumnReference, r core.ColumnReference) []core.ColumnReference {
	for _, e := range list {
		if e.Equal(r) {
			return list
		}
	}
	return append(list, r)
}

func scalarSubqueryInputs(sub *sqlast.Subquery, ctx *ParseContext) []core.ColumnReference {
	if sub.Select == nil || len(sub.Select.Projections) == 0 {
		return nil
	}
	inner := BuildAliasMap(sub.Select.From, childContext(ctx))
	return collectInputs(sub.Select.Projections[0].Expr, inner, ctx)
}

func isArithmeticOp(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%":
		return true
	default:
		return false
	}
}

func isStringOperand(e sqlast.Expr) bool {
	lit, ok := e.(sqlast.Literal)
	return ok && lit.Kind == "string"
}
