package registry

import "strings"

// CteRegistry maps a CTE name to its projected column list for the
// duration of a single statement's parse. It is owned exclusively by that
// parse and discarded once the statement's ObjectInfo has been built.
type CteRegistry struct {
	columns map[string][]string
}

func NewCteRegistry() *CteRegistry {
	return &CteRegistry{columns: make(map[string][]string)}
}

// Define records the projected column list of a CTE under its name,
// overwriting any prior definition (a later WITH item of the same name in
// the same query shadows an earlier one, matching T-SQL scoping).
func (r *CteRegistry) Define(name string, columns []string) {
	r.columns[strings.ToLower(name)] = columns
}

// Columns returns the recorded column list for name, if any.
func (r *CteRegistry) Columns(name string) ([]string, bool) {
	c, ok := r.columns[strings.ToLower(name)]
	return c, ok
}

// Has reports whether name was defined as a CTE in this parse.
func (r *CteRegistry) Has(name string) bool {
	_, ok := r.columns[strings.ToLower(name)]
	return ok
}
