package sqlast

// WalkExpr visits e and every expression reachable from it (depth-first,
// pre-order), calling visit on each node including e itself. Subquery
// bodies are NOT descended into — callers that need correlated-subquery
// input fields walk sq.Select explicitly, since a subquery's own column
// references belong to its own projection list, not the enclosing one.
func WalkExpr(e Expr, visit func(Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case *BinaryExpr:
		WalkExpr(n.Left, visit)
		WalkExpr(n.Right, visit)
	case *UnaryExpr:
		WalkExpr(n.X, visit)
	case *CastExpr:
		WalkExpr(n.X, visit)
	case *CaseExpr:
		WalkExpr(n.Operand, visit)
		for _, w := range n.Whens {
			WalkExpr(w.Cond, visit)
			WalkExpr(w.Value, visit)
		}
		WalkExpr(n.Else, visit)
	case *FuncCall:
		for _, a := range n.Args {
			WalkExpr(a, visit)
		}
	case *WindowExpr:
		WalkExpr(n.Func, visit)
		for _, pb := range n.PartitionBy {
			WalkExpr(pb, visit)
		}
		for _, ob := range n.OrderBy {
			WalkExpr(ob, visit)
		}
	}
}

// ColumnRefs returns every ColumnRef reachable from e, in first-seen order
// (duplicates included; callers deduplicate after resolving each ref).
func ColumnRefs(e Expr) []ColumnRef {
	var out []ColumnRef
	WalkExpr(e, func(n Expr) {
		if cr, ok := n.(ColumnRef); ok {
			out = append(out, cr)
		}
	})
	return out
}

// ContainsHash reports whether e or a descendant is a HASHBYTES call,
// tagged by the parser per the §4.2 AST rewrite ("tag HASHBYTES
// occurrences so the lineage engine classifies them as EXPRESSION").
func ContainsHash(e Expr) bool {
	found := false
	WalkExpr(e, func(n Expr) {
		if fc, ok := n.(*FuncCall); ok && fc.IsHash {
			found = true
		}
	})
	return found
}
