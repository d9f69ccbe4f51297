package lineage

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RenameTable is the curated mapping of "legacy column name" to "current
// column name" used to classify a pure-column projection as RENAME
// instead of IDENTITY. original_source hard-codes this as a small Python
// dict; we keep it as data loaded from an optional renames.yml beside the
// catalog, defaulting to empty when absent (DESIGN.md Open Questions).
type RenameTable struct {
	pairs map[string]string
}

// NewRenameTable returns an empty table.
func NewRenameTable() *RenameTable {
	return &RenameTable{pairs: make(map[string]string)}
}

type renameFile struct {
	Renames []struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	} `yaml:"renames"`
}

// LoadRenameTable parses renames.yml. A missing file yields an empty,
// valid table.
func LoadRenameTable(path string) (*RenameTable, error) {
	rt := NewRenameTable()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rt, nil
		}
		return nil, fmt.Errorf("reading rename table %s: %w", path, err)
	}
	var rf renameFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rename table %s: %w", path, err)
	}
	for _, r := range rf.Renames {
		rt.pairs[strings.ToLower(r.From)] = r.To
	}
	return rt, nil
}

// IsRename reports whether sourceColumn is a curated rename of
// outputName, and if so returns true.
func (rt *RenameTable) IsRename(sourceColumn, outputName string) bool {
	if rt == nil || len(rt.pairs) == 0 {
		return false
	}
	to, ok := rt.pairs[strings.ToLower(sourceColumn)]
	return ok && strings.EqualFold(to, outputName)
}
