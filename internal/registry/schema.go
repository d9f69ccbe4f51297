// Package registry holds the symbol tables the lineage engine consults
// while walking a statement: the cross-run schema catalog, the per-parse
// CTE table, the per-procedure temp-table version chain, and the
// persistent object-to-database learner, each following its own lifecycle
// rules.
package registry

import (
	"strings"
	"sync"

	"smf/internal/core"
)

// SchemaRegistry maps (namespace, qualified name) to TableSchema with
// case-insensitive lookup. It is built incrementally during a run, seeded
// from catalog YAML, and shared across files within a run under a mutex.
type SchemaRegistry struct {
	mu    sync.RWMutex
	byKey map[string]core.TableSchema
}

func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{byKey: make(map[string]core.TableSchema)}
}

func schemaKey(namespace, qualifiedName string) string {
	return strings.ToLower(namespace) + "::" + strings.ToLower(qualifiedName)
}

// Put registers or overwrites a table's schema.
func (r *SchemaRegistry) Put(schema core.TableSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[schemaKey(schema.Namespace, schema.QualifiedName)] = schema
}

// Get looks up a table's schema by namespace and qualified name.
func (r *SchemaRegistry) Get(namespace, qualifiedName string) (core.TableSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byKey[schemaKey(namespace, qualifiedName)]
	return s, ok
}

// Has reports whether a schema has been registered for the given namespace
// and qualified name.
func (r *SchemaRegistry) Has(namespace, qualifiedName string) bool {
	_, ok := r.Get(namespace, qualifiedName)
	return ok
}

// Len returns the number of registered tables, mainly for diagnostics.
func (r *SchemaRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
