package lineage

import (
	"strings"

	"smf/internal/core"
	"smf/internal/registry"
	"smf/internal/resolver"
	"smf/internal/sqlast"
)

// AliasTarget is one resolved FROM/JOIN source: either a real dataset
// (table, view, or temp table) or a derived one (subquery or CTE), in
// which case DerivedLineage supplies the per-column lineage to splice in
// when a projection references one of its columns.
type AliasTarget struct {
	Namespace      string
	QualifiedName  string
	IsDerived      bool
	DerivedLineage map[string]core.ColumnLineage // lowercase output column -> lineage
	DerivedOrder   []string                      // derived column names in projection order, original casing
}

// AliasMap is the set of FROM/JOIN sources visible to one SELECT block,
// keyed by lowercased alias (or bare table name when unaliased).
type AliasMap struct {
	targets map[string]AliasTarget
	order   []string // keys in FROM/JOIN order, for unqualified-column resolution
}

func newAliasMap() *AliasMap {
	return &AliasMap{targets: make(map[string]AliasTarget)}
}

func (m *AliasMap) put(key string, t AliasTarget) {
	key = strings.ToLower(key)
	if _, exists := m.targets[key]; !exists {
		m.order = append(m.order, key)
	}
	m.targets[key] = t
}

func (m *AliasMap) get(key string) (AliasTarget, bool) {
	t, ok := m.targets[strings.ToLower(key)]
	return t, ok
}

// Has reports whether key names a FROM/JOIN source visible in this map,
// for callers outside the package that only need a membership check (e.g.
// OUTPUT clause alias resolution).
func (m *AliasMap) Has(key string) bool {
	_, ok := m.get(key)
	return ok
}

// BuildAliasMap walks the FROM/JOIN chain rooted at from, resolving every
// source to an AliasTarget. Derived tables (subqueries) and CTE
// references recurse into SelectLineage to obtain their own lineage so
// outer projections can splice straight through to base columns.
func BuildAliasMap(from *sqlast.TableRef, ctx *ParseContext) *AliasMap {
	m := newAliasMap()
	for t := from; t != nil; t = t.Next {
		key, target := resolveTableRef(t, ctx)
		if key == "" {
			continue
		}
		m.put(key, target)
	}
	return m
}

func resolveTableRef(t *sqlast.TableRef, ctx *ParseContext) (string, AliasTarget) {
	switch {
	case t.Sub != nil:
		key := t.Alias
		lineage, schema, _ := SelectLineage(&sqlast.UnionStmt{Branches: []*sqlast.SelectStmt{t.Sub}}, childContext(ctx))
		return key, derivedTarget(lineage, schema)
	case t.SubUnion != nil:
		key := t.Alias
		lineage, schema, _ := SelectLineage(t.SubUnion, childContext(ctx))
		return key, derivedTarget(lineage, schema)
	default:
		raw := t.Name
		key := t.Alias
		if key == "" {
			key = lastSegment(raw)
		}
		if cte, ok := ctx.CTELineage[strings.ToLower(raw)]; ok {
			return key, cte
		}
		if resolver.IsTemp(raw) {
			if ver, _, ok := ctx.Temps.Latest(raw); ok {
				return key, tempTarget(ver)
			}
		}
		resolved := ctx.Resolver.Resolve(raw, "", ctx.CurrentDatabase, nil)
		if resolved.Database != "" {
			ctx.Resolver.LearnFromReference(resolved.QualifiedName, resolved.Database)
		}
		return key, AliasTarget{Namespace: resolved.Namespace, QualifiedName: resolved.QualifiedName}
	}
}

func derivedTarget(lineage []core.ColumnLineage, schema []core.ColumnSchema) AliasTarget {
	dl := make(map[string]core.ColumnLineage, len(lineage))
	order := make([]string, 0, len(lineage))
	for i, l := range lineage {
		name := l.OutputColumn
		if i < len(schema) {
			name = schema[i].Name
		}
		dl[strings.ToLower(name)] = l
		order = append(order, name)
	}
	return AliasTarget{IsDerived: true, DerivedLineage: dl, DerivedOrder: order}
}

func tempTarget(ver registry.TempVersion) AliasTarget {
	dl := make(map[string]core.ColumnLineage, len(ver.Columns))
	for _, col := range ver.Columns {
		inputs := ver.ColumnInputs[col]
		kind := core.Identity
		if len(inputs) != 1 {
			kind = core.Expression
		}
		dl[strings.ToLower(col)] = core.ColumnLineage{OutputColumn: col, Inputs: inputs, Kind: kind}
	}
	return AliasTarget{IsDerived: true, DerivedLineage: dl, DerivedOrder: append([]string(nil), ver.Columns...)}
}

func childContext(ctx *ParseContext) *ParseContext {
	child := NewParseContext(ctx.Resolver, ctx.Schemas, ctx.Renames, ctx.CurrentDatabase)
	for k, v := range ctx.CTELineage {
		child.CTELineage[k] = v
	}
	child.Temps = ctx.Temps
	return child
}

func lastSegment(raw string) string {
	parts := strings.Split(raw, ".")
	return parts[len(parts)-1]
}

// resolveColumn finds the base ColumnReferences a bare or qualified column
// reference reduces to, given the visible alias map.
func resolveColumn(ref sqlast.ColumnRef, m *AliasMap, ctx *ParseContext) []core.ColumnReference {
	if ref.Table != "" {
		t, ok := m.get(ref.Table)
		if !ok {
			ctx.Warnf("unresolved table alias %q for column %q", ref.Table, ref.Column)
			return nil
		}
		return inputsFromTarget(t, ref.Column)
	}

	if len(m.order) == 1 {
		return inputsFromTarget(m.targets[m.order[0]], ref.Column)
	}

	var matches []string
	for _, key := range m.order {
		t := m.targets[key]
		if targetHasColumn(t, ref.Column, ctx) {
			matches = append(matches, key)
		}
	}
	switch len(matches) {
	case 1:
		return inputsFromTarget(m.targets[matches[0]], ref.Column)
	case 0:
		if len(m.order) == 0 {
			return nil
		}
		ctx.Warnf("column %q not found on any FROM source, defaulting to first", ref.Column)
		return inputsFromTarget(m.targets[m.order[0]], ref.Column)
	default:
		ctx.Warnf("column %q is ambiguous across %d sources, defaulting to first match", ref.Column, len(matches))
		return inputsFromTarget(m.targets[matches[0]], ref.Column)
	}
}

func inputsFromTarget(t AliasTarget, column string) []core.ColumnReference {
	if t.IsDerived {
		if l, ok := t.DerivedLineage[strings.ToLower(column)]; ok {
			return l.Inputs
		}
		return nil
	}
	if t.Namespace == "" && t.QualifiedName == "" {
		return nil
	}
	return []core.ColumnReference{core.NewColumnReference(t.Namespace, t.QualifiedName, column)}
}

func targetHasColumn(t AliasTarget, column string, ctx *ParseContext) bool {
	if t.IsDerived {
		_, ok := t.DerivedLineage[strings.ToLower(column)]
		return ok
	}
	if ctx.Schemas == nil {
		return false
	}
	schema, ok := ctx.Schemas.Get(t.Namespace, t.QualifiedName)
	if !ok {
		return false
	}
	for _, c := range schema.Columns {
		if strings.EqualFold(c.Name, column) {
			return true
		}
	}
	return false
}
