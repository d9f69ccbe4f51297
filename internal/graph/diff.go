package graph

import (
	"strings"

	"smf/internal/core"
)

// Severity is the breaking-ness classification of one schema change.
type Severity string

const (
	NonBreaking        Severity = "NON_BREAKING"
	PotentiallyBreaking Severity = "POTENTIALLY_BREAKING"
	Breaking           Severity = "BREAKING"
)

var severityRank = map[Severity]int{
	NonBreaking:         0,
	PotentiallyBreaking: 1,
	Breaking:            2,
}

// Change describes one detected difference for a single (table, column).
type Change struct {
	Table    string   `json:"table"`
	Column   string   `json:"column"`
	Kind     string   `json:"kind"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
}

// SchemaSnapshot is the minimal per-run state diff needs: every object's
// table schema, keyed by qualified name.
type SchemaSnapshot map[string]core.TableSchema

// Diff compares two schema snapshots and classifies every detected change.
// Tables present in head but not base are ignored (new objects carry no
// risk); tables present in base but not head are reported as BREAKING drops.
func Diff(base, head SchemaSnapshot) []Change {
	var changes []Change
	for name, baseSchema := range base {
		headSchema, ok := head[name]
		if !ok {
			changes = append(changes, Change{Table: name, Column: "*", Kind: "TABLE_DROPPED", Severity: Breaking, Detail: "table removed"})
			continue
		}
		changes = append(changes, diffColumns(name, baseSchema, headSchema)...)
	}
	return changes
}

func diffColumns(table string, base, head core.TableSchema) []Change {
	baseCols := indexColumns(base)
	headCols := indexColumns(head)

	var changes []Change
	for name, bc := range baseCols {
		hc, ok := headCols[strings.ToLower(name)]
		if !ok {
			changes = append(changes, Change{Table: table, Column: bc.Name, Kind: "COLUMN_DROPPED", Severity: Breaking, Detail: "column removed"})
			continue
		}
		changes = append(changes, diffColumn(table, bc, hc)...)
	}
	for name, hc := range headCols {
		if _, ok := baseCols[name]; !ok {
			changes = append(changes, Change{Table: table, Column: hc.Name, Kind: "COLUMN_ADDED", Severity: NonBreaking, Detail: "column added"})
		}
	}
	return changes
}

func indexColumns(s core.TableSchema) map[string]core.ColumnSchema {
	m := make(map[string]core.ColumnSchema, len(s.Columns))
	for _, c := range s.Columns {
		m[strings.ToLower(c.Name)] = c
	}
	return m
}

func diffColumn(table string, base, head core.ColumnSchema) []Change {
	var changes []Change
	if !strings.EqualFold(base.DataType, head.DataType) {
		if isWidening(base.DataType, head.DataType) {
			changes = append(changes, Change{Table: table, Column: base.Name, Kind: "TYPE_WIDENED", Severity: PotentiallyBreaking,
				Detail: base.DataType + " -> " + head.DataType})
		} else {
			changes = append(changes, Change{Table: table, Column: base.Name, Kind: "TYPE_CHANGED", Severity: Breaking,
				Detail: base.DataType + " -> " + head.DataType})
		}
	}
	if base.Nullable && !head.Nullable {
		changes = append(changes, Change{Table: table, Column: base.Name, Kind: "TIGHTENED_NOT_NULL", Severity: PotentiallyBreaking,
			Detail: "nullable -> not null"})
	}
	return changes
}

// isWidening reports whether a data type change only grows the representable
// value space for the same family (e.g. nvarchar(50) -> nvarchar(100),
// int -> bigint), the one type change severity classifies as tolerable.
func isWidening(from, to string) bool {
	fromFamily, fromSize := typeFamilyAndSize(from)
	toFamily, toSize := typeFamilyAndSize(to)
	if fromFamily != toFamily {
		return (fromFamily == "int" && toFamily == "bigint") || (fromFamily == "decimal" && toFamily == "decimal")
	}
	return toSize >= fromSize
}

func typeFamilyAndSize(t string) (family string, size int) {
	t = strings.ToLower(t)
	paren := strings.IndexByte(t, '(')
	base := t
	if paren != -1 {
		base = t[:paren]
		inner := strings.TrimSuffix(t[paren+1:], ")")
		size = 0
		for _, part := range strings.Split(inner, ",") {
			n := parseIntSafe(strings.TrimSpace(part))
			if n > size {
				size = n
			}
		}
	}
	return base, size
}

func parseIntSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// AtOrAbove filters changes to those at or above threshold, for
// --severity-threshold.
func AtOrAbove(changes []Change, threshold Severity) []Change {
	min, ok := severityRank[threshold]
	if !ok {
		return changes
	}
	var out []Change
	for _, c := range changes {
		if severityRank[c.Severity] >= min {
			out = append(out, c)
		}
	}
	return out
}

// ExitCode maps a change set to the CLI exit code: 0 none, 1 non-breaking
// only, 2 breaking (or potentially breaking) present.
func ExitCode(changes []Change) int {
	worst := -1
	for _, c := range changes {
		if r := severityRank[c.Severity]; r > worst {
			worst = r
		}
	}
	switch worst {
	case -1:
		return 0
	case severityRank[NonBreaking]:
		return 1
	default:
		return 2
	}
}
