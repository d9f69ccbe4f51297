// Package fallback implements string-based extractors used when the AST
// layer fails to parse a procedure body, TVF body, or ornate DDL. Every
// extractor here is comment-stripped and syntax-tolerant, following the
// same regex-driven style as internal/preprocess.
package fallback

import (
	"regexp"
	"strings"

	"smf/internal/core"
)

var (
	lineCommentRe  = regexp.MustCompile(`--[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)

	selectKeywordRe = regexp.MustCompile(`(?i)\bSELECT\b`)
	insertSelectRe  = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE)\b[^;]*?\bSELECT\b`)
	endKeywordRe    = regexp.MustCompile(`(?i)\bEND\b`)

	tvfReturnRe = []*regexp.Regexp{
		regexp.MustCompile(`(?is)RETURNS\s+TABLE\s+AS\s+RETURN\s*\((.*)\)\s*;?\s*$`),
		regexp.MustCompile(`(?is)RETURNS\s+TABLE\s+AS\s+RETURN\s+(SELECT.*)$`),
	}

	tableVarColRe = regexp.MustCompile(`(?i)(\w+)\s+((?:N?VARCHAR|NVARCHAR|VARCHAR|CHAR|NCHAR|INT|INTEGER|BIGINT|DECIMAL|NUMERIC|DATE|DATETIME|BIT|FLOAT|MONEY)(?:\s*\([^)]*\))?)`)
	tableVarDeclRe = regexp.MustCompile(`(?is)(@\w+)\s+TABLE\s*\(([^;]*)\)`)

	insertColsRe = regexp.MustCompile(`(?is)INSERT\s+INTO\s+([\w.#\[\]]+)\s*\(([^)]*)\)`)

	// fromJoinRe deliberately captures only the table, not a trailing
	// alias: RE2 has no negative lookahead, so an alias group here would
	// happily swallow an adjacent JOIN/ON keyword as a fake alias and
	// skip the next clause entirely. Aliases are recovered separately by
	// aliasAfterRe, filtered against sqlKeywords.
	fromJoinRe   = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([\w.#\[\]]+)`)
	aliasAfterRe = regexp.MustCompile(`(?i)^\s+(?:AS\s+)?(\w+)`)
	intoRe       = regexp.MustCompile(`(?i)\bINTO\s+([\w.#\[\]]+)`)
	insertIntoRe = regexp.MustCompile(`(?i)\bINSERT\s+INTO\s+([\w.#\[\]]+)`)
	execRe      = regexp.MustCompile(`(?i)\bEXEC(?:UTE)?\s+([\w.#\[\]]+)`)
	selectIntoRe = regexp.MustCompile(`(?i)\bSELECT\b.*?\bINTO\s+([\w.#\[\]]+)`)

	mergeTargetRe = regexp.MustCompile(`(?i)\bMERGE\s+(?:INTO\s+)?([\w.#\[\]]+)`)
	updateTargetRe = regexp.MustCompile(`(?i)\bUPDATE\s+([\w.#\[\]]+)`)
	outputIntoRe  = regexp.MustCompile(`(?i)\bOUTPUT\b.*?\bINTO\s+([\w.#\[\]]+)`)

	reservedWords = map[string]struct{}{
		"SELECT": {}, "FROM": {}, "WHERE": {}, "JOIN": {}, "INNER": {}, "LEFT": {}, "RIGHT": {},
		"OUTER": {}, "ON": {}, "GROUP": {}, "ORDER": {}, "BY": {}, "HAVING": {}, "AS": {}, "INTO": {},
		"INSERT": {}, "UPDATE": {}, "DELETE": {}, "MERGE": {}, "EXEC": {}, "EXECUTE": {}, "CREATE": {},
		"TABLE": {}, "VIEW": {}, "PROCEDURE": {}, "FUNCTION": {}, "AND": {}, "OR": {}, "NOT": {}, "NULL": {},
	}

	builtinFuncs = map[string]struct{}{
		"COUNT": {}, "SUM": {}, "AVG": {}, "MIN": {}, "MAX": {}, "CAST": {}, "CONVERT": {},
		"COALESCE": {}, "ISNULL": {}, "SUBSTRING": {}, "LEFT": {}, "RIGHT": {}, "REPLACE": {},
		"GETDATE": {}, "ROW_NUMBER": {}, "RANK": {}, "DENSE_RANK": {},
	}
)

// StripComments removes line and block comments ahead of every fallback
// extractor, matching the preprocessor's comment-stripped convention.
func StripComments(body string) string {
	t := blockCommentRe.ReplaceAllString(body, "")
	t = lineCommentRe.ReplaceAllString(t, "")
	return t
}

// LastSelect walks through every SELECT keyword in the body and returns the
// text of the last one that is not a sub-clause of INSERT/UPDATE/DELETE,
// collecting tokens up to the first END.
func LastSelect(body string) string {
	clean := StripComments(body)
	locs := selectKeywordRe.FindAllStringIndex(clean, -1)
	if len(locs) == 0 {
		return ""
	}
	subClauseStarts := map[int]struct{}{}
	for _, m := range insertSelectRe.FindAllStringSubmatchIndex(clean, -1) {
		// m[0]/m[1] is the whole match span; find the SELECT keyword
		// location nested inside it and mark it as a sub-clause.
		span := clean[m[0]:m[1]]
		if idx := selectKeywordRe.FindStringIndex(span); idx != nil {
			subClauseStarts[m[0]+idx[0]] = struct{}{}
		}
	}
	var last int = -1
	for _, loc := range locs {
		if _, isSub := subClauseStarts[loc[0]]; isSub {
			continue
		}
		last = loc[0]
	}
	if last == -1 {
		return ""
	}
	rest := clean[last:]
	if end := endKeywordRe.FindStringIndex(rest); end != nil {
		return strings.TrimSpace(rest[:end[0]])
	}
	return strings.TrimSpace(rest)
}

// TVFReturnBody tries the known "RETURNS TABLE AS RETURN (SELECT ...)"
// variants and returns the inner SELECT text, or "" if none match.
func TVFReturnBody(body string) string {
	clean := StripComments(body)
	for _, re := range tvfReturnRe {
		if m := re.FindStringSubmatch(clean); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// TableVarColumn is one column parsed out of a "@var TABLE (...)" schema.
type TableVarColumn struct {
	Name     string
	DataType string
}

// TableVarSchema extracts the @var name and column list from a table
// variable declaration "@var TABLE ( col type, col type, ... )".
func TableVarSchema(body string) (varName string, cols []TableVarColumn) {
	clean := StripComments(body)
	m := tableVarDeclRe.FindStringSubmatch(clean)
	if m == nil {
		return "", nil
	}
	varName = m[1]
	for _, part := range splitTopLevel(m[2], ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if cm := tableVarColRe.FindStringSubmatch(part); cm != nil {
			cols = append(cols, TableVarColumn{Name: cm[1], DataType: strings.ToLower(strings.ReplaceAll(cm[2], " ", ""))})
		}
	}
	return varName, cols
}

// InsertColumnList captures the parenthesized column list of
// "INSERT INTO <t> (...)" for the first such statement in body.
func InsertColumnList(body string) (target string, cols []string) {
	clean := StripComments(body)
	m := insertColsRe.FindStringSubmatch(clean)
	if m == nil {
		return "", nil
	}
	target = strings.Trim(m[1], "[]")
	for _, c := range strings.Split(m[2], ",") {
		c = strings.TrimSpace(strings.Trim(strings.TrimSpace(c), "[]"))
		if c != "" {
			cols = append(cols, c)
		}
	}
	return target, cols
}

// BasicColumn is a best-effort projection parsed from a raw SELECT list.
type BasicColumn struct {
	Raw        string
	Alias      string
	SourceHint string // "table.col" or "alias.col" when detectable, else ""
}

// BasicSelectColumns splits the SELECT list of selectText by comma at
// paren-depth 0 and extracts an alias ("AS x" or trailing bare identifier)
// plus a source hint ("alias.col") when the expression is a bare qualified
// column reference.
func BasicSelectColumns(selectText string) []BasicColumn {
	body := selectKeywordRe.ReplaceAllString(selectText, "")
	if idx := strings.Index(strings.ToUpper(selectText), "FROM"); idx != -1 {
		body = selectText[len(selectKeywordRe.FindString(selectText)):idx]
	}
	parts := splitTopLevel(body, ',')
	cols := make([]BasicColumn, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		cols = append(cols, parseBasicColumn(p))
	}
	return cols
}

func parseBasicColumn(expr string) BasicColumn {
	col := BasicColumn{Raw: expr}
	fields := strings.Fields(expr)
	if len(fields) >= 2 && strings.EqualFold(fields[len(fields)-2], "AS") {
		col.Alias = strings.Trim(fields[len(fields)-1], "[]")
		expr = strings.TrimSpace(strings.Join(fields[:len(fields)-2], " "))
	} else if len(fields) >= 2 && !strings.ContainsAny(fields[len(fields)-1], "()+-*/") {
		col.Alias = strings.Trim(fields[len(fields)-1], "[]")
		expr = strings.TrimSpace(strings.Join(fields[:len(fields)-1], " "))
	}
	if isQualifiedIdent(expr) {
		col.SourceHint = expr
		if col.Alias == "" {
			if dot := strings.LastIndex(expr, "."); dot != -1 {
				col.Alias = expr[dot+1:]
			} else {
				col.Alias = expr
			}
		}
	}
	return col
}

func isQualifiedIdent(s string) bool {
	if s == "" || strings.ContainsAny(s, "()+-*/ ") {
		return false
	}
	return true
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// TableAliases maps an alias (or bare table name used as its own alias) to a
// raw table reference, detected from every FROM/JOIN clause in body.
func TableAliases(body string) map[string]string {
	clean := StripComments(body)
	aliases := map[string]string{}
	for _, m := range fromJoinRe.FindAllStringSubmatchIndex(clean, -1) {
		raw := strings.Trim(clean[m[2]:m[3]], "[]")
		alias := aliasFollowing(clean[m[1]:])
		if alias == "" {
			alias = lastSegment(raw)
		}
		aliases[strings.ToLower(alias)] = raw
	}
	return aliases
}

// aliasFollowing inspects the text right after a FROM/JOIN table reference
// for a trailing "[AS] alias", rejecting anything that is itself a SQL
// keyword (a sure sign it's the start of the next clause, not an alias).
func aliasFollowing(rest string) string {
	m := aliasAfterRe.FindStringSubmatch(rest)
	if m == nil {
		return ""
	}
	if _, isKeyword := reservedWords[strings.ToUpper(m[1])]; isKeyword {
		return ""
	}
	return m[1]
}

func lastSegment(raw string) string {
	if idx := strings.LastIndex(raw, "."); idx != -1 {
		return raw[idx+1:]
	}
	return raw
}

// BasicDependencies scans body for FROM/JOIN/INSERT INTO/SELECT...INTO/EXEC
// targets, subtracts the statement's own write targets, and drops reserved
// words, built-in function names, and temp table names. Every other name is
// returned as written in body, with square brackets trimmed; names are not
// rewritten to schema.table form.
func BasicDependencies(body string, localTargets map[string]struct{}) []string {
	clean := StripComments(body)
	seen := map[string]struct{}{}
	var deps []string
	add := func(raw string) {
		raw = strings.Trim(raw, "[]")
		if raw == "" {
			return
		}
		upper := strings.ToUpper(lastSegment(raw))
		if _, isReserved := reservedWords[upper]; isReserved {
			return
		}
		if _, isBuiltin := builtinFuncs[upper]; isBuiltin {
			return
		}
		if strings.HasPrefix(raw, "#") {
			return
		}
		if _, isLocal := localTargets[strings.ToLower(raw)]; isLocal {
			return
		}
		key := strings.ToLower(raw)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		deps = append(deps, raw)
	}
	for _, m := range fromJoinRe.FindAllStringSubmatch(clean, -1) {
		add(m[1])
	}
	for _, m := range insertIntoRe.FindAllStringSubmatch(clean, -1) {
		add(m[1])
	}
	for _, m := range selectIntoRe.FindAllStringSubmatch(clean, -1) {
		add(m[1])
	}
	for _, m := range execRe.FindAllStringSubmatch(clean, -1) {
		add(m[1])
	}
	return deps
}

// MergeOrUpdateTarget locates an OUTPUT...INTO, MERGE, or UPDATE target in
// body, in that priority order, returning "" if none is found.
func MergeOrUpdateTarget(body string) string {
	clean := StripComments(body)
	if m := outputIntoRe.FindStringSubmatch(clean); m != nil {
		return strings.Trim(m[1], "[]")
	}
	if m := mergeTargetRe.FindStringSubmatch(clean); m != nil {
		return strings.Trim(m[1], "[]")
	}
	if m := updateTargetRe.FindStringSubmatch(clean); m != nil {
		return strings.Trim(m[1], "[]")
	}
	return ""
}

// BestEffortLineage builds one lineage entry per detected basic column, used
// as the last resort when no AST could be built at all. A column whose
// source hint resolves against aliases gets IDENTITY (same column name) or
// RENAME (different name); every other column is UNKNOWN with no inputs.
func BestEffortLineage(cols []BasicColumn, aliases map[string]string, resolve func(rawTable, column string) (core.ColumnReference, bool)) []core.ColumnLineage {
	lineageList := make([]core.ColumnLineage, 0, len(cols))
	for _, c := range cols {
		l := core.ColumnLineage{OutputColumn: c.Alias, Kind: core.Unknown}
		if c.SourceHint != "" {
			qualifier, column := splitQualified(c.SourceHint)
			raw := qualifier
			if t, ok := aliases[strings.ToLower(qualifier)]; ok {
				raw = t
			}
			if raw != "" && column != "" {
				if ref, ok := resolve(raw, column); ok {
					l.AddInput(ref)
					if strings.EqualFold(column, c.Alias) {
						l.Kind = core.Identity
					} else {
						l.Kind = core.Rename
					}
				}
			}
		}
		if l.Kind == core.Unknown && l.OutputColumn == "" {
			l.OutputColumn = c.Raw
		}
		lineageList = append(lineageList, l)
	}
	return lineageList
}

func splitQualified(s string) (qualifier, column string) {
	if idx := strings.LastIndex(s, "."); idx != -1 {
		return s[:idx], s[idx+1:]
	}
	return "", s
}
