package ingest

import (
	"fmt"
	"strings"

	"github.com/repodigest/repodigest/internal/utils"
)

// PatternMode selects which pattern set drives filtering. A query activates
// exactly one of the two sets.
type PatternMode int

const (
	// ModeExclude accepts everything not matched by the exclusion set.
	ModeExclude PatternMode = iota
	// ModeInclude accepts only files matched by the inclusion set.
	ModeInclude
)

// rootSubpath is the canonical subpath naming the repository root.
const rootSubpath = "/"

// Query describes one ingestion request. Construct values through NewQuery;
// a normalized Query is immutable for the rest of the request.
type Query struct {
	// Source is a local directory path or a repository location such as
	// "https://github.com/owner/repo" or the short form "owner/repo".
	Source string
	// Branch optionally names the branch to clone. Empty means the remote
	// default.
	Branch string
	// Subpath optionally narrows a cloned repository to one subdirectory.
	// Defaults to the repository root.
	Subpath string
	// MaxFileSize is the inclusion threshold in bytes. Zero means the
	// engine default applies.
	MaxFileSize int64
	// IncludePatterns and ExcludePatterns hold glob patterns. At most one
	// of the two sets may be non-empty.
	IncludePatterns []string
	ExcludePatterns []string
}

// Mode reports which pattern set is active for the query.
func (query Query) Mode() PatternMode {
	if len(query.IncludePatterns) > 0 {
		return ModeInclude
	}
	return ModeExclude
}

// NewQuery validates raw request parameters and returns a normalized Query.
// Pattern strings are split on commas and whitespace, cleaned, and
// de-duplicated; every resulting glob is compile-checked so pattern failures
// surface before any filesystem or network work starts.
func NewQuery(raw Query) (Query, error) {
	normalized := Query{
		Source:      strings.TrimSpace(raw.Source),
		Branch:      strings.TrimSpace(raw.Branch),
		Subpath:     normalizeSubpath(raw.Subpath),
		MaxFileSize: raw.MaxFileSize,
	}
	if normalized.Source == "" {
		return Query{}, fmt.Errorf("%w: source must not be empty", ErrInvalidQuery)
	}
	if normalized.MaxFileSize < 0 {
		return Query{}, fmt.Errorf("%w: max file size must not be negative", ErrInvalidQuery)
	}
	if strings.Contains(normalized.Subpath, "..") {
		return Query{}, fmt.Errorf("%w: subpath must not contain parent references", ErrInvalidQuery)
	}

	normalized.IncludePatterns = normalizePatterns(raw.IncludePatterns)
	normalized.ExcludePatterns = normalizePatterns(raw.ExcludePatterns)
	if len(normalized.IncludePatterns) > 0 && len(normalized.ExcludePatterns) > 0 {
		return Query{}, fmt.Errorf("%w: include and exclude patterns are mutually exclusive", ErrInvalidQuery)
	}

	if _, compileError := CompileMatcher(normalized.IncludePatterns, normalized.ExcludePatterns); compileError != nil {
		return Query{}, compileError
	}
	return normalized, nil
}

// SplitPatterns breaks a raw pattern argument on commas and whitespace and
// discards empty fields. "*.go, *.md docs/" yields three patterns.
func SplitPatterns(rawValue string) []string {
	fields := strings.FieldsFunc(rawValue, func(character rune) bool {
		return character == ',' || character == ' ' || character == '\t' || character == '\n'
	})
	patterns := make([]string, 0, len(fields))
	for _, field := range fields {
		cleaned := cleanPattern(field)
		if cleaned != "" {
			patterns = append(patterns, cleaned)
		}
	}
	return patterns
}

// normalizePatterns splits, cleans, and de-duplicates every element of raw.
func normalizePatterns(raw []string) []string {
	var patterns []string
	for _, rawValue := range raw {
		patterns = append(patterns, SplitPatterns(rawValue)...)
	}
	return utils.DeduplicatePatterns(patterns)
}

// cleanPattern strips redundant leading markers so "./cmd/" and "cmd/" are
// the same pattern.
func cleanPattern(pattern string) string {
	cleaned := strings.TrimSpace(pattern)
	cleaned = strings.TrimPrefix(cleaned, "./")
	return strings.TrimPrefix(cleaned, "/")
}

// normalizeSubpath reduces a subpath to its slash-trimmed form with the root
// represented as "/".
func normalizeSubpath(subpath string) string {
	trimmed := strings.Trim(strings.TrimSpace(subpath), "/")
	if trimmed == "" || trimmed == "." {
		return rootSubpath
	}
	return trimmed
}
