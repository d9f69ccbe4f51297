// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"smf/internal/config"
	"smf/internal/core"
	"smf/internal/driver"
	"smf/internal/encoding"
	"smf/internal/graph"
	"smf/internal/output"
)

// version is overwritten at build time via -ldflags.
var version = "dev"

type globalFlags struct {
	configPath string
	logLevel   string
	format     string
}

type extractFlags struct {
	sqlDir       string
	outDir       string
	adapter      string
	catalog      string
	include      []string
	exclude      []string
	encodingHint string
	failOnWarn   bool
	dbtMode      bool
}

type impactFlags struct {
	graphPath string
	selector  string
	direction string
	maxDepth  int
}

type diffFlags struct {
	base              string
	head              string
	severityThreshold string
}

func main() {
	global := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:     "infotracker",
		Short:   "Column-level lineage extractor for T-SQL corpora",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&global.configPath, "config", "", "Path to infotracker.yml")
	rootCmd.PersistentFlags().StringVar(&global.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&global.format, "format", "", "Output format: text or json")

	rootCmd.AddCommand(extractCmd(global))
	rootCmd.AddCommand(impactCmd(global))
	rootCmd.AddCommand(diffCmd(global))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

func loadRunConfig(global *globalFlags) (*config.Config, *logrus.Logger, output.Format, error) {
	cfg, err := config.Load(global.configPath)
	if err != nil {
		return nil, nil, "", fmt.Errorf("loading config: %w", err)
	}

	log := logrus.New()
	level := cfg.LogLevel
	if global.logLevel != "" {
		level = global.logLevel
	}
	if parsed, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(parsed)
	}

	formatRaw := cfg.OutputFormat
	if global.format != "" {
		formatRaw = global.format
	}
	fmtOut, err := output.Parse(formatRaw)
	if err != nil {
		return nil, nil, "", err
	}
	return cfg, log, fmtOut, nil
}

func extractCmd(global *globalFlags) *cobra.Command {
	flags := &extractFlags{}
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract column-level lineage from a T-SQL corpus",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runExtract(global, flags)
		},
	}
	cmd.Flags().StringVar(&flags.sqlDir, "sql-dir", "", "Directory of SQL files to extract (overrides config)")
	cmd.Flags().StringVar(&flags.outDir, "out-dir", "", "Output directory for lineage JSON (overrides config)")
	cmd.Flags().StringVar(&flags.adapter, "adapter", "", "Namespace adapter (default: mssql)")
	cmd.Flags().StringVar(&flags.catalog, "catalog", "", "Path to catalog YAML seeding the schema registry")
	cmd.Flags().StringArrayVar(&flags.include, "include", nil, "Glob(s) of files to include")
	cmd.Flags().StringArrayVar(&flags.exclude, "exclude", nil, "Glob(s) of files to exclude")
	cmd.Flags().StringVar(&flags.encodingHint, "encoding", "auto", "File encoding: auto|utf-8|utf-8-sig|utf-16le|utf-16be|cp1250")
	cmd.Flags().BoolVar(&flags.failOnWarn, "fail-on-warn", false, "Exit 1 if any file produced a warning")
	cmd.Flags().BoolVar(&flags.dbtMode, "dbt", false, "Treat inputs as compiled dbt models")
	return cmd
}

func runExtract(global *globalFlags, flags *extractFlags) error {
	cfg, log, fmtOut, err := loadRunConfig(global)
	if err != nil {
		return err
	}
	applyExtractOverrides(cfg, flags)

	ignore, err := config.LoadIgnoreFile(filepath.Join(cfg.SQLDir, ".infotrackerignore"))
	if err != nil {
		return err
	}

	paths, err := discoverSQLFiles(cfg.SQLDir, cfg.Include, cfg.Exclude, cfg.Ignore, ignore)
	if err != nil {
		return fmt.Errorf("discovering SQL files: %w", err)
	}
	log.Infof("discovered %d SQL file(s) under %s", len(paths), cfg.SQLDir)

	files, warnings, err := readSQLFiles(paths, encoding.Name(flags.encodingHint))
	if err != nil {
		return err
	}

	run, err := driver.NewRun(cfg)
	if err != nil {
		return fmt.Errorf("initializing run: %w", err)
	}

	results := run.Extract(context.Background(), files)
	if err := driver.WriteResults(cfg.OutDir, results, run); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	rows := make([]output.ExtractSummary, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			warnings++
			log.Warnf("%s: %v", r.Path, r.Err)
			continue
		}
		if r.Object.IsFallback {
			warnings++
		}
		rows = append(rows, output.ExtractSummary{
			Path:       r.Path,
			Qualified:  r.Object.QualifiedName,
			ObjectType: r.Object.ObjectType,
			IsFallback: r.Object.IsFallback,
			ReasonCode: r.Object.ReasonCode,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })

	if err := output.WriteExtractSummary(os.Stdout, fmtOut, rows); err != nil {
		return err
	}

	if flags.failOnWarn && warnings > 0 {
		os.Exit(1)
	}
	return nil
}

func applyExtractOverrides(cfg *config.Config, flags *extractFlags) {
	if flags.sqlDir != "" {
		cfg.SQLDir = flags.sqlDir
	}
	if flags.outDir != "" {
		cfg.OutDir = flags.outDir
	}
	if flags.adapter != "" {
		cfg.DefaultAdapter = flags.adapter
	}
	if flags.catalog != "" {
		cfg.Catalog = flags.catalog
	}
	if len(flags.include) > 0 {
		cfg.Include = flags.include
	}
	if len(flags.exclude) > 0 {
		cfg.Exclude = flags.exclude
	}
	cfg.DBTMode = cfg.DBTMode || flags.dbtMode
}

func discoverSQLFiles(root string, include, exclude, configIgnore []string, ignore *config.IgnoreFile) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".sql") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if ignore.Matches(rel) {
			return nil
		}
		if len(configIgnore) > 0 && config.MatchAny(configIgnore, rel) {
			return nil
		}
		if len(include) > 0 && !config.MatchAny(include, rel) {
			return nil
		}
		if len(exclude) > 0 && config.MatchAny(exclude, rel) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	sort.Strings(out)
	return out, err
}

func readSQLFiles(paths []string, hint encoding.Name) ([]driver.File, int, error) {
	files := make([]driver.File, 0, len(paths))
	warnings := 0
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, warnings, fmt.Errorf("reading %s: %w", p, err)
		}
		text, _, err := encoding.Decode(raw, hint)
		if err != nil {
			warnings++
			continue
		}
		files = append(files, driver.File{Path: p, Text: text})
	}
	return files, warnings, nil
}

func impactCmd(global *globalFlags) *cobra.Command {
	flags := &impactFlags{}
	cmd := &cobra.Command{
		Use:   "impact",
		Short: "Find columns impacted by a selector",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runImpact(global, flags)
		},
	}
	cmd.Flags().StringVar(&flags.graphPath, "graph", "", "Path to column_graph.json (default: <out-dir>/column_graph.json)")
	cmd.Flags().StringVarP(&flags.selector, "selector", "s", "", "Column selector, e.g. dbo.Orders.OrderID (required)")
	cmd.Flags().StringVar(&flags.direction, "direction", "both", "upstream|downstream|both")
	cmd.Flags().IntVar(&flags.maxDepth, "max-depth", 0, "Maximum traversal depth (0 = unbounded)")
	return cmd
}

func runImpact(global *globalFlags, flags *impactFlags) error {
	cfg, _, fmtOut, err := loadRunConfig(global)
	if err != nil {
		return err
	}
	if flags.selector == "" {
		return fmt.Errorf("--selector is required")
	}

	graphPath := flags.graphPath
	if graphPath == "" {
		graphPath = filepath.Join(cfg.OutDir, "column_graph.json")
	}
	data, err := os.ReadFile(graphPath)
	if err != nil {
		return fmt.Errorf("reading column graph %s: %w", graphPath, err)
	}
	g, err := graph.UnmarshalSnapshot(data)
	if err != nil {
		return fmt.Errorf("parsing column graph: %w", err)
	}

	dir, err := parseDirection(flags.direction)
	if err != nil {
		return err
	}
	sel := graph.ParseSelector(flags.selector)
	results := g.Impact(sel, dir, flags.maxDepth)
	return output.WriteImpact(os.Stdout, fmtOut, results)
}

func parseDirection(raw string) (graph.Direction, error) {
	switch graph.Direction(strings.ToLower(strings.TrimSpace(raw))) {
	case "", graph.Both:
		return graph.Both, nil
	case graph.Upstream:
		return graph.Upstream, nil
	case graph.Downstream:
		return graph.Downstream, nil
	default:
		return "", fmt.Errorf("unsupported direction: %s; use 'upstream', 'downstream', or 'both'", raw)
	}
}

func diffCmd(global *globalFlags) *cobra.Command {
	flags := &diffFlags{}
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Diff two corpus snapshots' schemas",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDiff(global, flags)
		},
	}
	cmd.Flags().StringVar(&flags.base, "base", "", "Path to base snapshot directory (required)")
	cmd.Flags().StringVar(&flags.head, "head", "", "Path to head snapshot directory (required)")
	cmd.Flags().StringVar(&flags.severityThreshold, "severity-threshold", "", "NON_BREAKING|POTENTIALLY_BREAKING|BREAKING")
	return cmd
}

func runDiff(global *globalFlags, flags *diffFlags) error {
	_, _, fmtOut, err := loadRunConfig(global)
	if err != nil {
		return err
	}
	if flags.base == "" || flags.head == "" {
		return fmt.Errorf("--base and --head are required")
	}

	base, err := loadSchemaSnapshot(flags.base)
	if err != nil {
		return fmt.Errorf("loading base snapshot: %w", err)
	}
	head, err := loadSchemaSnapshot(flags.head)
	if err != nil {
		return fmt.Errorf("loading head snapshot: %w", err)
	}

	changes := graph.Diff(base, head)
	if flags.severityThreshold != "" {
		changes = graph.AtOrAbove(changes, graph.Severity(strings.ToUpper(flags.severityThreshold)))
	}
	if err := output.WriteDiff(os.Stdout, fmtOut, changes); err != nil {
		return err
	}

	exitCode := graph.ExitCode(changes)
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

// loadSchemaSnapshot reads every *.json lineage document under dir and
// rebuilds the schema each one describes, keyed by qualified name.
func loadSchemaSnapshot(dir string) (graph.SchemaSnapshot, error) {
	snap := graph.SchemaSnapshot{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if e.Name() == "column_graph.json" || e.Name() == "object_db_map.json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var doc struct {
			Outputs []struct {
				Namespace string `json:"namespace"`
				Name      string `json:"name"`
				Facets    struct {
					Schema struct {
						Fields []struct {
							Name     string `json:"name"`
							Type     string `json:"type"`
							Nullable bool   `json:"nullable"`
						} `json:"fields"`
					} `json:"schema"`
				} `json:"facets"`
			} `json:"outputs"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", e.Name(), err)
		}
		for _, out := range doc.Outputs {
			cols := make([]core.ColumnSchema, len(out.Facets.Schema.Fields))
			for i, f := range out.Facets.Schema.Fields {
				cols[i] = core.ColumnSchema{Name: f.Name, DataType: f.Type, Nullable: f.Nullable, Ordinal: i}
			}
			snap[out.Name] = core.TableSchema{Namespace: out.Namespace, QualifiedName: out.Name, Columns: cols}
		}
	}
	return snap, nil
}
