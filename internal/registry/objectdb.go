package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ObjectDbRegistry is the persistent, cross-run learner that resolves which
// database a bare "schema.table" name belongs to: a hard map learned from
// explicit CREATE sites and DML targets, and a soft histogram learned from
// reference sites, consulted in that order at resolution time.
type ObjectDbRegistry struct {
	mu   sync.Mutex
	Hard map[string]string            `json:"hard"`
	Soft map[string]map[string]int    `json:"soft"`
	path string
}

func NewObjectDbRegistry() *ObjectDbRegistry {
	return &ObjectDbRegistry{
		Hard: make(map[string]string),
		Soft: make(map[string]map[string]int),
	}
}

func hardKey(objType, schemaTable string) string {
	return strings.ToLower(objType) + "::" + strings.ToLower(schemaTable)
}

func wildKey(schemaTable string) string {
	return "*::" + strings.ToLower(schemaTable)
}

// LoadObjectDbRegistry loads a registry from path, returning an empty one
// (remembering path for a later Save) if the file does not exist.
func LoadObjectDbRegistry(path string) (*ObjectDbRegistry, error) {
	r := NewObjectDbRegistry()
	r.path = path
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("loading object db registry %s: %w", path, err)
	}
	var wire struct {
		Hard map[string]string         `json:"hard"`
		Soft map[string]map[string]int `json:"soft"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parsing object db registry %s: %w", path, err)
	}
	if wire.Hard != nil {
		r.Hard = wire.Hard
	}
	if wire.Soft != nil {
		r.Soft = wire.Soft
	}
	return r, nil
}

// Save writes the registry to path (or the path it was loaded from) using
// a write-temp-then-rename sequence so a crash mid-write never leaves a
// truncated file for the next run to load.
func (r *ObjectDbRegistry) Save(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path == "" {
		path = r.path
	}
	if path == "" {
		path = filepath.Join("build", "object_db_map.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating object db registry dir: %w", err)
	}
	data, err := json.MarshalIndent(struct {
		Hard map[string]string         `json:"hard"`
		Soft map[string]map[string]int `json:"soft"`
	}{r.Hard, r.Soft}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding object db registry: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing object db registry temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming object db registry temp file: %w", err)
	}
	r.path = path
	return nil
}

// LearnFromCreate records a hard mapping from an explicit CREATE site.
func (r *ObjectDbRegistry) LearnFromCreate(objType, schemaTable, db string) {
	if schemaTable == "" || db == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Hard[hardKey(objType, schemaTable)] = db
}

// LearnFromTarget records a hard wildcard mapping plus a strong soft vote
// from a DML write target (INSERT/UPDATE/MERGE/SELECT...INTO target).
func (r *ObjectDbRegistry) LearnFromTarget(schemaTable, db string) {
	if schemaTable == "" || db == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Hard[wildKey(schemaTable)] = db
	r.bumpSoftLocked(wildKey(schemaTable), db, 10)
}

// LearnFromReference records a weak soft vote from a read-site reference.
func (r *ObjectDbRegistry) LearnFromReference(schemaTable, db string) {
	if schemaTable == "" || db == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bumpSoftLocked(wildKey(schemaTable), db, 1)
}

func (r *ObjectDbRegistry) bumpSoftLocked(key, db string, by int) {
	hist, ok := r.Soft[key]
	if !ok {
		hist = make(map[string]int)
		r.Soft[key] = hist
	}
	hist[db] += by
}

// Resolve returns the database schemaTable belongs to, checking the
// type-specific hard map, then the wildcard hard map, then the soft
// histogram (only when one database is strictly dominant), finally falling
// back to fallback or "InfoTrackerDW".
func (r *ObjectDbRegistry) Resolve(objType, schemaTable, fallback string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	k1 := hardKey(objType, schemaTable)
	if db, ok := r.Hard[k1]; ok {
		return db
	}
	k2 := wildKey(schemaTable)
	if db, ok := r.Hard[k2]; ok {
		return db
	}
	hist := r.Soft[k1]
	if hist == nil {
		hist = r.Soft[k2]
	}
	if len(hist) > 0 {
		if db, ok := strictlyDominant(hist); ok {
			return db
		}
	}
	if fallback != "" {
		return fallback
	}
	return "InfoTrackerDW"
}

func strictlyDominant(hist map[string]int) (string, bool) {
	type pair struct {
		db    string
		count int
	}
	pairs := make([]pair, 0, len(hist))
	for db, c := range hist {
		pairs = append(pairs, pair{db, c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].db < pairs[j].db
	})
	if len(pairs) == 1 {
		return pairs[0].db, true
	}
	if pairs[0].count > pairs[1].count {
		return pairs[0].db, true
	}
	return "", false
}
