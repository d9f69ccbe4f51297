package registry

import (
	"strings"

	"smf/internal/core"
)

// TempVersion is one immutable snapshot of a logical temp table. Reading a
// temp name always resolves to the highest version recorded for it; once
// committed a version is never mutated, and a subsequent SELECT...INTO (or
// INSERT...SELECT creating a new temp) appends version v+1.
type TempVersion struct {
	Columns      []string
	Dependencies map[string]struct{}
	ColumnInputs map[string][]core.ColumnReference
}

// TempRegistry is per-file, per-procedure state tracking the version chain
// of every "#temp" or "##temp" name encountered during a parse. It is an
// append-only log keyed by name, so the latest version is an O(1) index
// lookup and every earlier version stays inspectable for diagnostics.
type TempRegistry struct {
	versions map[string][]TempVersion
}

func NewTempRegistry() *TempRegistry {
	return &TempRegistry{versions: make(map[string][]TempVersion)}
}

func tempKey(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(name, "#"), "#"))
}

// Commit appends a new, immutable version for name and returns its version
// number (0-based).
func (r *TempRegistry) Commit(name string, columns []string, deps map[string]struct{}, colInputs map[string][]core.ColumnReference) int {
	k := tempKey(name)
	v := TempVersion{Columns: columns, Dependencies: deps, ColumnInputs: colInputs}
	r.versions[k] = append(r.versions[k], v)
	return len(r.versions[k]) - 1
}

// Latest returns the most recently committed version of name.
func (r *TempRegistry) Latest(name string) (TempVersion, int, bool) {
	k := tempKey(name)
	vs, ok := r.versions[k]
	if !ok || len(vs) == 0 {
		return TempVersion{}, -1, false
	}
	return vs[len(vs)-1], len(vs) - 1, true
}

// Has reports whether name has at least one committed version.
func (r *TempRegistry) Has(name string) bool {
	_, _, ok := r.Latest(name)
	return ok
}

// Version returns a specific historical version of name, for diagnostics.
func (r *TempRegistry) Version(name string, v int) (TempVersion, bool) {
	vs, ok := r.versions[tempKey(name)]
	if !ok || v < 0 || v >= len(vs) {
		return TempVersion{}, false
	}
	return vs[v], true
}
