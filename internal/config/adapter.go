package config

import "fmt"

// Adapter turns a bare database name into the namespace URI the lineage
// engine attaches to every ColumnReference. Only mssql is implemented; the
// interface exists so a future dialect can be added without touching
// callers.
type Adapter interface {
	NamespaceFor(db string) string
	Name() string
}

// MSSQLAdapter namespaces every database under a single logical SQL
// Server host, matching how the rest of the corpus was authored.
type MSSQLAdapter struct {
	Host string
}

// NewMSSQLAdapter returns the default adapter, defaulting Host to
// "localhost" when empty.
func NewMSSQLAdapter(host string) *MSSQLAdapter {
	if host == "" {
		host = "localhost"
	}
	return &MSSQLAdapter{Host: host}
}

func (a *MSSQLAdapter) NamespaceFor(db string) string {
	return fmt.Sprintf("mssql://%s/%s", a.Host, db)
}

func (a *MSSQLAdapter) Name() string { return "mssql" }

// AdapterFor resolves an adapter by name, defaulting to mssql.
func AdapterFor(name string) (Adapter, error) {
	switch name {
	case "", "mssql":
		return NewMSSQLAdapter(""), nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", name)
	}
}
