// Package preprocess normalizes raw T-SQL source into the reduced form the
// AST layer can parse, and surfaces the database context declared by a
// leading USE statement. It never panics on malformed input; a degenerate
// empty result is an acceptable output for pathological input.
package preprocess

import (
	"regexp"
	"strings"
)

var (
	ansiEscapeRe    = regexp.MustCompile("\x1b\\[[0-9;]*[A-Za-z]")
	bidiRe          = regexp.MustCompile(`[\x{200E}\x{200F}\x{202A}-\x{202E}\x{2066}-\x{2069}]`)
	zeroWidthRe     = regexp.MustCompile(`[\x{200B}-\x{200D}\x{00A0}]`)
	setAnsiRe       = regexp.MustCompile(`(?im)^\s*SET\s+(ANSI_NULLS|QUOTED_IDENTIFIER)\s+(ON|OFF)\s*;?\s*$`)
	goLineRe        = regexp.MustCompile(`(?im)^\s*GO\s*;?\s*$`)
	collateRe       = regexp.MustCompile(`(?i)\s+COLLATE\s+[A-Za-z0-9_]+`)
	isnullRe        = regexp.MustCompile(`(?i)\bISNULL\s*\(`)
	xmlNamespacesRe = regexp.MustCompile(`(?is)\bWITH\s+XMLNAMESPACES\s*\([^)]*\)\s*`)

	declareSetPrintRe = regexp.MustCompile(`(?i)^(DECLARE|SET|PRINT)\b`)
	objectIDTempRe    = regexp.MustCompile(`(?i)^IF\s+OBJECT_ID\('tempdb\.\.#`)
	dropTempRe        = regexp.MustCompile(`(?i)^DROP\s+TABLE\s+#\w+`)
	objectIDDropRe    = regexp.MustCompile(`(?i)^IF\s+OBJECT_ID.*IS\s+NOT\s+NULL\s+DROP\s+TABLE`)
	goAloneRe         = regexp.MustCompile(`(?im)^\s*GO\s*$`)
	useLineRe         = regexp.MustCompile(`(?i)^\s*USE\b`)

	insertExecJoinRe = regexp.MustCompile(`(?i)(INSERT\s+INTO\s+#\w+)\s*\n\s*(EXEC\b)`)

	useStatementRe = regexp.MustCompile(`(?i)^USE\s+(?::([^:]+):|(?:\[([^\]]+)\]|(\w+)))`)

	cutToFirstRe = regexp.MustCompile(`(?is)(?:CREATE\s+(?:OR\s+ALTER\s+)?(?:VIEW|TABLE|FUNCTION|PROCEDURE)\b|ALTER\s+(?:VIEW|TABLE|FUNCTION|PROCEDURE)\b|SELECT\b.*?\bINTO\b|INSERT\s+INTO\b.*?\bEXEC\b)`)

	tvfOptionsRe    = regexp.MustCompile(`(?is)(\bRETURNS\b\s+TABLE)(.*?)\bAS\b`)
	scalarOptionsRe = regexp.MustCompile(`(?is)(\bRETURNS\b\s+(?:(?i:TABLE)\b)?[\w\[\]]*(?:\s*\([^)]*\))?)\s+(WITH\b[\s\S]*?)\bAS\b`)

	caseCommasParenRe = regexp.MustCompile(`(?is)CASE\s+WHEN\s+([^,()]+(?:\([^)]*\)[^,()]*)*)\s*,\s*([^,()]+(?:\([^)]*\)[^,()]*)*)\s*,\s*([^)]+?)\s*\)`)
	caseCommasEndRe   = regexp.MustCompile(`(?is)CASE\s+WHEN\s+([^,()]+(?:\([^)]*\)[^,()]*)*)\s*,\s*([^,()]+(?:\([^)]*\)[^,()]*)*)\s*,\s*([^)]+?)\s*END`)
	thenRe            = regexp.MustCompile(`(?i)\bTHEN\b`)
)

// Result is the output of preprocessing one file's source.
type Result struct {
	Text     string
	Database string // "" if no leading USE was found
}

// Run applies the full preprocessing pipeline.
func Run(text string, defaultDatabase string) Result {
	t := normalize(text)
	db := detectUse(t)
	if db == "" {
		db = defaultDatabase
	}
	t = stripControlLines(t)
	t = joinInsertExec(t)
	t = cutToFirstMeaningful(t)
	t = stripUDFOptionsBetweenReturnsAndAs(t)
	t = rewriteNonstandardCase(t)
	return Result{Text: t, Database: db}
}

// normalize strips BOM/BiDi/zero-width noise, unifies line endings, drops
// ANSI SET options and standalone GO, removes column COLLATE clauses,
// rewrites ISNULL( -> COALESCE(, and strips WITH XMLNAMESPACES(...).
func normalize(text string) string {
	t := strings.TrimPrefix(text, string(rune(0xFEFF)))
	t = strings.ReplaceAll(t, "\r\n", "\n")
	t = ansiEscapeRe.ReplaceAllString(t, "")
	t = bidiRe.ReplaceAllString(t, "")
	t = setAnsiRe.ReplaceAllString(t, "")
	t = goLineRe.ReplaceAllString(t, "")
	t = collateRe.ReplaceAllString(t, "")
	t = isnullRe.ReplaceAllString(t, "COALESCE(")
	t = zeroWidthRe.ReplaceAllString(t, " ")
	t = xmlNamespacesRe.ReplaceAllString(t, "")
	return t
}

// detectUse scans only the first ~10 non-comment lines for a leading USE,
// halting at the first line that is not USE/DECLARE/SET/PRINT.
func detectUse(text string) string {
	lines := strings.Split(text, "\n")
	scanned := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		scanned++
		if scanned > 10 {
			break
		}
		if m := useStatementRe.FindStringSubmatch(trimmed); m != nil {
			for _, g := range m[1:] {
				if g != "" {
					return g
				}
			}
		}
		upper := strings.ToUpper(trimmed)
		if !strings.HasPrefix(upper, "USE") && !strings.HasPrefix(upper, "DECLARE") &&
			!strings.HasPrefix(upper, "SET") && !strings.HasPrefix(upper, "PRINT") {
			break
		}
	}
	return ""
}

// stripControlLines drops DECLARE/SET/PRINT lines, tempdb drop/guard
// patterns, standalone GO, and USE lines (the DB context was already
// captured by detectUse).
func stripControlLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case declareSetPrintRe.MatchString(trimmed):
			continue
		case objectIDTempRe.MatchString(trimmed):
			continue
		case dropTempRe.MatchString(trimmed):
			continue
		case objectIDDropRe.MatchString(trimmed):
			continue
		case goAloneRe.MatchString(trimmed):
			continue
		case useLineRe.MatchString(trimmed):
			continue
		default:
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// joinInsertExec joins a newline-separated "INSERT INTO #t" + "EXEC ...".
func joinInsertExec(text string) string {
	return insertExecJoinRe.ReplaceAllString(text, "$1 $2")
}

// cutToFirstMeaningful trims everything before the first CREATE [OR ALTER]
// {TABLE|VIEW|FUNCTION|PROCEDURE}, ALTER ..., SELECT ... INTO, or
// INSERT ... EXEC.
func cutToFirstMeaningful(text string) string {
	loc := cutToFirstRe.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[loc[0]:]
}

// stripUDFOptionsBetweenReturnsAndAs removes WITH ... options for scalar
// UDFs and trailing options for TVFs that break parsing.
func stripUDFOptionsBetweenReturnsAndAs(text string) string {
	t := tvfOptionsRe.ReplaceAllString(text, "${1}\nAS")
	t = scalarOptionsRe.ReplaceAllString(t, "${1}\nAS")
	return t
}

// rewriteNonstandardCase rewrites only the illegal
// "CASE WHEN cond, t, f END/)" form to IIF(cond,t,f); standard
// CASE...THEN...END is left untouched (guarded by thenRe).
func rewriteNonstandardCase(text string) string {
	repl := func(whole string, groups []string) string {
		if thenRe.MatchString(whole) {
			return whole
		}
		cond := strings.TrimSpace(groups[0])
		tVal := strings.TrimSpace(groups[1])
		fVal := strings.TrimSpace(groups[2])
		return "IIF(" + cond + ", " + tVal + ", " + fVal + ")"
	}
	t := replaceWithGroups(text, caseCommasParenRe, repl)
	t = replaceWithGroups(t, caseCommasEndRe, repl)
	return t
}

func replaceWithGroups(text string, re *regexp.Regexp, repl func(whole string, groups []string) string) string {
	return re.ReplaceAllStringFunc(text, func(match string) string {
		sub := re.FindStringSubmatch(match)
		return repl(sub[0], sub[1:])
	})
}
