// Package driver implements the per-corpus orchestrator: it schedules
// every SQL file's extraction in topological order (so a
// dependent file's temp/schema registries see its callees' output first),
// runs independent files within a level through a bounded worker pool,
// updates the shared SchemaRegistry/ObjectDbRegistry/ColumnGraph directly
// under their own locks (each level finishes before the next starts), and
// writes one OpenLineage JSON document per file.
package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"smf/internal/config"
	"smf/internal/core"
	"smf/internal/ddl"
	"smf/internal/dml"
	"smf/internal/emit"
	"smf/internal/fallback"
	"smf/internal/graph"
	"smf/internal/lineage"
	"smf/internal/objgraph"
	"smf/internal/preprocess"
	"smf/internal/registry"
	"smf/internal/resolver"
	"smf/internal/router"
	"smf/internal/sqlast"
)

// File is one input SQL file to extract.
type File struct {
	Path string
	Text string
}

// Result is one file's extraction outcome.
type Result struct {
	Path     string
	Document *emit.Document
	Object   *core.ObjectInfo
	Err      error
}

// defaultWorkers bounds level-local parallelism when the caller doesn't
// override it; parallelism within a level just needs to be bounded, not
// tied to a specific number.
const defaultWorkers = 4

// Run owns the shared, run-scoped collaborators every file's extraction
// reads and writes: the schema catalog, the persistent object-db learner,
// and the aggregated column graph. It is safe to reuse across AST and
// fallback extraction, and is the unit Driver.Extract operates on.
type Run struct {
	Cfg       *config.Config
	Adapter   config.Adapter
	Schemas   *registry.SchemaRegistry
	ObjectDB  *registry.ObjectDbRegistry
	Graph     *graph.Graph
	Renames   *lineage.RenameTable
	Workers   int
	EventTime string
}

// NewRun builds a Run from a resolved Config, loading the adapter and
// seeding the schema registry from the configured catalog if present.
func NewRun(cfg *config.Config) (*Run, error) {
	adapter, err := config.AdapterFor(cfg.DefaultAdapter)
	if err != nil {
		return nil, err
	}
	objDB, err := registry.LoadObjectDbRegistry(filepath.Join(cfg.OutDir, "object_db_map.json"))
	if err != nil {
		return nil, err
	}
	schemas := registry.NewSchemaRegistry()
	if cfg.Catalog != "" {
		tables, err := config.LoadCatalog(cfg.Catalog, adapter.NamespaceFor(cfg.DefaultDatabase))
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			schemas.Put(t)
		}
	}
	renameDir := "."
	if cfg.Catalog != "" {
		renameDir = filepath.Dir(cfg.Catalog)
	}
	renames, err := lineage.LoadRenameTable(filepath.Join(renameDir, "renames.yml"))
	if err != nil {
		return nil, err
	}
	return &Run{
		Cfg:      cfg,
		Adapter:  adapter,
		Schemas:  schemas,
		ObjectDB: objDB,
		Graph:    graph.New(),
		Renames:  renames,
		Workers:  defaultWorkers,
	}, nil
}

// fileStemRe is a cheap pre-scan for the object name a file is likely to
// declare, used only to seed the objgraph's node identity before the file
// is actually parsed.
var fileStemRe = regexp.MustCompile(`(?i)CREATE\s+(?:OR\s+ALTER\s+)?(?:TABLE|VIEW|FUNCTION|PROCEDURE|PROC)\s+([\w.\[\]#]+)`)
var refRe = regexp.MustCompile(`(?i)\b(?:FROM|JOIN|EXEC(?:UTE)?)\s+([\w.\[\]#]+)`)

// BuildObjectGraph runs a cheap textual pre-scan over every file to derive
// a topological schedule without fully parsing anything, so files are
// always processed dependencies-first.
func BuildObjectGraph(files []File) (*objgraph.Graph, map[string]string) {
	g := objgraph.New()
	nameByPath := map[string]string{}
	for _, f := range files {
		name := f.Path
		if m := fileStemRe.FindStringSubmatch(f.Text); m != nil {
			name = strings.Trim(m[1], "[]")
		}
		nameByPath[f.Path] = name
		g.AddNode(name)
	}
	for _, f := range files {
		name := nameByPath[f.Path]
		for _, m := range refRe.FindAllStringSubmatch(f.Text, -1) {
			g.AddDependency(name, strings.Trim(m[1], "[]"))
		}
	}
	return g, nameByPath
}

// Extract runs the full pipeline over files, honoring a cooperative
// cancellation context checked between levels. Results are returned in
// the same order files were given, regardless of the topological/parallel
// schedule used internally.
func (run *Run) Extract(ctx context.Context, files []File) []Result {
	objGraph, nameByPath := BuildObjectGraph(files)
	levels, err := objGraph.Levels()
	if err != nil {
		// a cycle means the cheap pre-scan over-linked files; fall back to
		// one big level and let per-file resolution sort itself out.
		levels = [][]string{objGraph.Nodes()}
	}

	byName := map[string]File{}
	for _, f := range files {
		byName[nameByPath[f.Path]] = f
	}

	results := make(map[string]Result, len(files))
	var mu sync.Mutex

	workers := run.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	for _, level := range levels {
		if ctx.Err() != nil {
			break
		}
		sem := make(chan struct{}, workers)
		var wg sync.WaitGroup
		for _, name := range level {
			f, ok := byName[name]
			if !ok {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(f File) {
				defer wg.Done()
				defer func() { <-sem }()
				res := run.extractOne(f)
				mu.Lock()
				results[f.Path] = res
				mu.Unlock()
			}(f)
		}
		wg.Wait()
	}

	out := make([]Result, 0, len(files))
	for _, f := range files {
		if r, ok := results[f.Path]; ok {
			out = append(out, r)
		} else {
			out = append(out, Result{Path: f.Path, Err: ctx.Err()})
		}
	}
	return out
}

// extractOne runs the full per-file pipeline: preprocess, AST parse, route,
// handle, emit. A panic anywhere in AST parsing or handling is recovered
// and downgraded to a NO_AST_PARSE fallback result, never crashing the
// whole run.
func (run *Run) extractOne(f File) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = run.fallbackExtract(f, fmt.Errorf("panic during extraction: %v\n%s", r, debug.Stack()))
		}
	}()

	pre := preprocess.Run(f.Text, run.Cfg.DefaultDatabase)
	stmts, err := sqlast.Parse(pre.Text)
	if err != nil || len(stmts) == 0 {
		return run.fallbackExtract(f, err)
	}

	stem := router.FileStem(f.Path)
	decision := router.Route(stmts, run.Cfg.DBTMode, f.Text, stem)

	res := resolver.New(run.Adapter, run.ObjectDB, run.Cfg.DefaultSchema, run.Cfg.DefaultDatabase, run.Cfg.DBTMode)
	pctx := lineage.NewParseContext(res, run.Schemas, run.Renames, pre.Database)

	var obj *core.ObjectInfo
	switch decision.Kind {
	case router.KindTable:
		obj = ddl.ProcessCreateTable(decision.Primary.(*sqlast.CreateTableStmt), pctx)
	case router.KindView:
		obj = ddl.ProcessCreateView(decision.Primary.(*sqlast.CreateViewStmt), pctx)
	case router.KindFunction:
		obj = ddl.ProcessCreateFunction(decision.Primary.(*sqlast.CreateFunctionStmt), pctx)
	case router.KindProcedure:
		obj = ddl.ProcessCreateProcedure(decision.Primary.(*sqlast.CreateProcedureStmt), pctx)
	case router.KindDBT:
		obj = run.processDBT(stmts, decision.DBTModelName, pctx)
	default:
		obj = run.processScript(stmts, stem, pctx)
	}
	if obj == nil {
		return run.fallbackExtract(f, fmt.Errorf("router produced no object for %s", f.Path))
	}
	obj.Warnings = pctx.Warnings

	run.Graph.AddObject(obj)
	doc := emit.Build(obj, emit.Options{EventTime: run.EventTime, DbtMode: run.Cfg.DBTMode})
	return Result{Path: f.Path, Document: doc, Object: obj}
}

// processDBT treats a dbt-compiled model's final top-level SELECT as its
// lineage source, per spec's dbt-mode carve-out: any DB/schema info on
// references is ignored and output is named after the model.
func (run *Run) processDBT(stmts []sqlast.Stmt, modelName string, ctx *lineage.ParseContext) *core.ObjectInfo {
	resolved := ctx.Resolver.Resolve(modelName, "view", ctx.CurrentDatabase, nil)
	obj := core.NewObjectInfo(resolved.QualifiedName, core.ObjectView)
	var last *sqlast.UnionStmt
	for _, s := range stmts {
		if u, ok := s.(*sqlast.UnionStmt); ok {
			last = u
		}
	}
	if last == nil {
		obj.Schema = core.TableSchema{Namespace: resolved.Namespace, QualifiedName: resolved.QualifiedName}
		obj.IsFallback = true
		obj.ReasonCode = core.ReasonDbtNoFinalSelect
		return obj
	}
	lineageList, schema, deps := lineage.SelectLineage(last, ctx)
	obj.Schema = core.TableSchema{Namespace: resolved.Namespace, QualifiedName: resolved.QualifiedName, Columns: schema}
	obj.Lineage = lineageList
	for d := range deps {
		obj.AddDependency(d)
	}
	ctx.Schemas.Put(obj.Schema)
	return obj
}

// processScript handles a file with no single dominant CREATE statement by
// running every top-level DML statement through the same handlers
// CREATE PROCEDURE uses, accumulating onto the last persistent target.
func (run *Run) processScript(stmts []sqlast.Stmt, stem string, ctx *lineage.ParseContext) *core.ObjectInfo {
	resolved := ctx.Resolver.Resolve(stem, "", ctx.CurrentDatabase, nil)
	obj := core.NewObjectInfo(resolved.QualifiedName, core.ObjectScript)
	acc := dml.NewColumnAccumulator()
	var targetNamespace, targetQualified string
	deps := map[string]struct{}{}

	record := func(f *dml.Fragment) {
		if f == nil || f.IsTemp {
			return
		}
		if f.QualifiedName != targetQualified || f.Namespace != targetNamespace {
			acc = dml.NewColumnAccumulator()
			targetNamespace, targetQualified = f.Namespace, f.QualifiedName
		}
		for _, l := range f.Lineage {
			acc.Add(l)
		}
		for d := range f.Deps {
			deps[d] = struct{}{}
		}
	}

	for _, s := range stmts {
		switch v := s.(type) {
		case *sqlast.CreateTableStmt:
			ddl.ProcessCreateTable(v, ctx)
		case *sqlast.CreateViewStmt:
			ddl.ProcessCreateView(v, ctx)
		case *sqlast.UnionStmt:
			if v.IsSingle() && v.Branches[0].Into != "" {
				record(dml.SelectInto(v.Branches[0], ctx))
			}
		case *sqlast.InsertStmt:
			if v.Exec != "" {
				record(dml.InsertExec(v, ctx))
			} else if v.Select != nil {
				record(dml.InsertSelect(v, ctx))
			}
		case *sqlast.MergeStmt:
			record(dml.Merge(v, ctx))
		case *sqlast.UpdateStmt:
			record(dml.UpdateFrom(v, ctx))
		case *sqlast.DeleteStmt:
			record(dml.DeleteWithOutput(v, ctx))
		}
	}

	if targetQualified == "" {
		obj.Schema = core.TableSchema{Namespace: resolved.Namespace, QualifiedName: resolved.QualifiedName}
		obj.IsFallback = true
		obj.ReasonCode = core.ReasonNoPersistentOutput
		return obj
	}
	lineageList := acc.Finalize()
	schemaCols := make([]core.ColumnSchema, len(lineageList))
	for i, l := range lineageList {
		schemaCols[i] = core.ColumnSchema{Name: l.OutputColumn, DataType: "unknown", Nullable: true, Ordinal: i}
	}
	obj.Schema = core.TableSchema{Namespace: targetNamespace, QualifiedName: targetQualified, Columns: schemaCols}
	obj.Lineage = lineageList
	obj.JobPathOverride = targetQualified
	for d := range deps {
		obj.AddDependency(d)
	}
	return obj
}

// fallbackExtract runs the string-based extractors (internal/fallback) over
// a file the AST layer could not parse, producing a best-effort ObjectInfo
// tagged NO_AST_PARSE.
func (run *Run) fallbackExtract(f File, cause error) Result {
	body := fallback.StripComments(f.Text)
	stem := router.FileStem(f.Path)

	target := fallback.MergeOrUpdateTarget(body)
	if target == "" {
		if t, _ := fallback.InsertColumnList(body); t != "" {
			target = t
		}
	}
	if target == "" {
		target = stem
	}

	selectText := fallback.LastSelect(body)
	if tvf := fallback.TVFReturnBody(body); tvf != "" {
		selectText = tvf
	}

	resolverInst := resolver.New(run.Adapter, run.ObjectDB, run.Cfg.DefaultSchema, run.Cfg.DefaultDatabase, run.Cfg.DBTMode)
	resolved := resolverInst.Resolve(target, "", run.Cfg.DefaultDatabase, nil)

	obj := core.NewObjectInfo(resolved.QualifiedName, core.ObjectUnknown)
	obj.IsFallback = true
	obj.ReasonCode = core.ReasonNoASTParse
	if cause != nil {
		obj.Warnings = append(obj.Warnings, cause.Error())
	}

	if selectText != "" {
		aliases := fallback.TableAliases(selectText)
		cols := fallback.BasicSelectColumns(selectText)
		resolveCol := func(rawTable, column string) (core.ColumnReference, bool) {
			r := resolverInst.Resolve(rawTable, "table", run.Cfg.DefaultDatabase, nil)
			return core.NewColumnReference(r.Namespace, r.QualifiedName, column), true
		}
		lineageList := fallback.BestEffortLineage(cols, aliases, resolveCol)
		schemaCols := make([]core.ColumnSchema, len(lineageList))
		for i, l := range lineageList {
			schemaCols[i] = core.ColumnSchema{Name: l.OutputColumn, DataType: "unknown", Nullable: true, Ordinal: i}
		}
		obj.Schema = core.TableSchema{Namespace: resolved.Namespace, QualifiedName: resolved.QualifiedName, Columns: schemaCols}
		obj.Lineage = lineageList
	} else {
		obj.Schema = core.TableSchema{Namespace: resolved.Namespace, QualifiedName: resolved.QualifiedName}
	}

	localTargets := map[string]struct{}{strings.ToLower(resolved.QualifiedName): {}}
	for _, d := range fallback.BasicDependencies(body, localTargets) {
		obj.AddDependency(d)
	}

	run.Graph.AddObject(obj)
	doc := emit.Build(obj, emit.Options{EventTime: run.EventTime, DbtMode: run.Cfg.DBTMode})
	return Result{Path: f.Path, Document: doc, Object: obj}
}

// WriteResults writes one indented JSON document per successful result
// under outDir, mirroring each file's base name, and atomically persists
// the object-db registry and column graph snapshot alongside them.
func WriteResults(outDir string, results []Result, run *Run) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	for _, r := range results {
		if r.Err != nil || r.Document == nil {
			continue
		}
		data, err := emit.Marshal(r.Document)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", r.Path, err)
		}
		base := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path))
		outPath := filepath.Join(outDir, base+".json")
		if err := writeAtomic(outPath, data); err != nil {
			return err
		}
	}
	if err := run.ObjectDB.Save(filepath.Join(outDir, "object_db_map.json")); err != nil {
		return fmt.Errorf("saving object db registry: %w", err)
	}
	snap, err := run.Graph.MarshalSnapshot()
	if err != nil {
		return fmt.Errorf("marshaling column graph: %w", err)
	}
	if err := writeAtomic(filepath.Join(outDir, "column_graph.json"), snap); err != nil {
		return err
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}

// SchemaSnapshotFromResults builds a graph.SchemaSnapshot (for diff) out of
// every successfully-extracted object's schema.
func SchemaSnapshotFromResults(results []Result) graph.SchemaSnapshot {
	snap := make(graph.SchemaSnapshot, len(results))
	for _, r := range results {
		if r.Object == nil {
			continue
		}
		snap[r.Object.QualifiedName] = r.Object.Schema
	}
	return snap
}

// SortResultsByPath returns results sorted by file path, for deterministic
// text-mode CLI output.
func SortResultsByPath(results []Result) []Result {
	out := append([]Result(nil), results...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
