// Package resolver turns a raw identifier plus an object-kind hint into a
// fully-qualified (namespace, "schema.table") pair. It centralizes the
// "pseudo-catalog prefix" denylist in one place so every caller benefits
// from the same guard against treating "Table" or "View" as a database
// name.
package resolver

import (
	"strings"

	"smf/internal/config"
	"smf/internal/core"
	"smf/internal/registry"
)

// pseudoCatalogPrefixes are identifier prefixes that look like a database
// qualifier but are actually leftover object-kind noise from the source
// ("Table.Orders", "View.vw_Sales").
var pseudoCatalogPrefixes = []string{"View.", "Table.", "Procedure.", "StoredProcedure.", "Function."}

// Resolved is the output of resolving a raw identifier.
type Resolved struct {
	Namespace     string
	QualifiedName string // "schema.table"
	Database      string // "" when no explicit database was present
}

// Resolver carries the per-run collaborators a resolution needs: the
// adapter for namespace URIs, the persistent object->database learner,
// and the ambient context of the file currently being processed.
type Resolver struct {
	Adapter         config.Adapter
	ObjectDB        *registry.ObjectDbRegistry
	DefaultSchema   string
	DefaultDatabase string
	DBTMode         bool
}

// New builds a Resolver bound to the given adapter and object-db learner.
func New(adapter config.Adapter, objectDB *registry.ObjectDbRegistry, defaultSchema, defaultDatabase string, dbtMode bool) *Resolver {
	return &Resolver{
		Adapter:         adapter,
		ObjectDB:        objectDB,
		DefaultSchema:   defaultSchema,
		DefaultDatabase: defaultDatabase,
		DBTMode:         dbtMode,
	}
}

// StripPseudoCatalogPrefix removes a leading object-kind noise prefix from
// raw, if present.
func StripPseudoCatalogPrefix(raw string) string {
	for _, prefix := range pseudoCatalogPrefixes {
		if strings.HasPrefix(raw, prefix) {
			return raw[len(prefix):]
		}
	}
	return raw
}

// IsTemp reports whether raw names a temp table ("#foo", "##foo", or a
// "tempdb..#foo" qualified form).
func IsTemp(raw string) bool {
	return strings.HasPrefix(raw, "#") || strings.Contains(strings.ToLower(raw), "tempdb..#")
}

// Resolve walks the full namespace-resolution order: temp tables, then the
// DBT-mode shortcut, then explicit database qualification, then the
// ObjectDbRegistry, then a body-wide majority vote, then the USE-declared
// or configured default database. objType is the object-kind hint used
// for ObjectDbRegistry lookups ("table", "view",
// "procedure", "function", or "" when unknown). currentDatabase is the
// USE-declared database for the current file, if any. bodyCatalogVotes is
// an optional majority-vote tally over databases seen elsewhere in the
// same file's Table references and DML targets, used only when no other
// source resolves the database.
func (r *Resolver) Resolve(raw string, objType string, currentDatabase string, bodyCatalogVotes map[string]int) Resolved {
	if IsTemp(raw) {
		return Resolved{Namespace: core.TempNamespace, QualifiedName: normalizeTempName(raw)}
	}

	raw = StripPseudoCatalogPrefix(raw)

	if r.DBTMode {
		last := lastSegment(raw)
		schema := r.DefaultSchema
		qualified := schema + "." + last
		db := currentDatabase
		if db == "" {
			db = r.DefaultDatabase
		}
		return Resolved{Namespace: r.Adapter.NamespaceFor(db), QualifiedName: qualified}
	}

	parts := strings.Split(raw, ".")
	switch {
	case len(parts) >= 3:
		db := parts[0]
		qualified := strings.Join(parts[len(parts)-2:], ".")
		return Resolved{Namespace: r.Adapter.NamespaceFor(db), QualifiedName: qualified, Database: db}
	case len(parts) == 2:
		schemaTable := raw
		db := majorityVote(bodyCatalogVotes)
		if db == "" {
			db = currentDatabase
		}
		if db == "" {
			db = r.DefaultDatabase
		}
		if r.ObjectDB != nil {
			// the registry's own mappings win; db is only its fallback
			db = r.ObjectDB.Resolve(objType, schemaTable, db)
		}
		return Resolved{Namespace: r.Adapter.NamespaceFor(db), QualifiedName: schemaTable}
	default:
		qualified := r.DefaultSchema + "." + raw
		db := currentDatabase
		if db == "" {
			db = r.DefaultDatabase
		}
		return Resolved{Namespace: r.Adapter.NamespaceFor(db), QualifiedName: qualified}
	}
}

// LearnFromCreate records a hard mapping when a CREATE statement's raw
// name carried an explicit database.
func (r *Resolver) LearnFromCreate(objType, schemaTable, db string) {
	if r.ObjectDB != nil {
		r.ObjectDB.LearnFromCreate(objType, schemaTable, db)
	}
}

// LearnFromTarget records a strong vote when a DML write target carried an
// explicit database.
func (r *Resolver) LearnFromTarget(schemaTable, db string) {
	if r.ObjectDB != nil {
		r.ObjectDB.LearnFromTarget(schemaTable, db)
	}
}

// LearnFromReference records a weak vote when a mere read reference
// carried an explicit database.
func (r *Resolver) LearnFromReference(schemaTable, db string) {
	if r.ObjectDB != nil {
		r.ObjectDB.LearnFromReference(schemaTable, db)
	}
}

func lastSegment(raw string) string {
	parts := strings.Split(raw, ".")
	return parts[len(parts)-1]
}

func normalizeTempName(raw string) string {
	idx := strings.LastIndex(strings.ToLower(raw), "#")
	if idx == -1 {
		return raw
	}
	return raw[idx:]
}

func majorityVote(votes map[string]int) string {
	best, bestCount := "", 0
	tie := false
	for db, count := range votes {
		switch {
		case count > bestCount:
			best, bestCount, tie = db, count, false
		case count == bestCount && count > 0:
			tie = true
		}
	}
	if tie {
		return ""
	}
	return best
}
