package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFile is the parsed form of ".infotrackerignore": one glob per
// line, blank lines and "#" comments skipped.
type IgnoreFile struct {
	patterns []string
}

// LoadIgnoreFile reads an ignore file. A missing file yields an empty,
// valid IgnoreFile rather than an error, since the file is optional.
func LoadIgnoreFile(path string) (*IgnoreFile, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &IgnoreFile{}, nil
		}
		return nil, fmt.Errorf("reading ignore file %s: %w", path, err)
	}
	defer f.Close()

	ig := &IgnoreFile{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ig.patterns = append(ig.patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning ignore file %s: %w", path, err)
	}
	return ig, nil
}

// Matches reports whether relPath matches any pattern in the ignore file.
func (ig *IgnoreFile) Matches(relPath string) bool {
	relPath = filepathToSlash(relPath)
	for _, pattern := range ig.patterns {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// MatchAny reports whether relPath matches any of the given doublestar
// patterns (used for --include/--exclude flag lists).
func MatchAny(patterns []string, relPath string) bool {
	relPath = filepathToSlash(relPath)
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}
