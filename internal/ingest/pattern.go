package ingest

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/repodigest/repodigest/internal/utils"
)

// baselineExclusions lists entries filtered out of every digest unless an
// include pattern names them explicitly: version control metadata, dependency
// and build output directories, editor droppings, lockfiles, and extensions
// that are binary in practice. Trailing slashes mark directory-only patterns.
var baselineExclusions = []string{
	// version control metadata
	".git/", ".svn/", ".hg/", ".bzr/",
	".gitignore", ".gitattributes", ".gitmodules",
	// dependency directories
	"node_modules/", "bower_components/", "vendor/",
	"venv/", ".venv/", "virtualenv/",
	// build output
	"dist/", "build/", "target/", "out/",
	"__pycache__/", ".gradle/", ".eggs/", "*.egg-info/",
	// caches
	".cache/", ".pytest_cache/", ".mypy_cache/", ".ruff_cache/", ".tox/",
	".sass-cache/", ".terraform/",
	// editor and OS droppings
	".idea/", ".vscode/", ".DS_Store", "Thumbs.db", "desktop.ini",
	"*.swp", "*.swo", "*.bak", "*~",
	// lockfiles
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	"poetry.lock", "Pipfile.lock", "Cargo.lock", "composer.lock",
	// compiled and binary-ish extensions
	"*.pyc", "*.pyo", "*.pyd",
	"*.class", "*.jar", "*.war",
	"*.o", "*.obj", "*.a", "*.lib",
	"*.so", "*.dll", "*.dylib", "*.exe",
	"*.min.js", "*.min.css", "*.map",
	"*.tfstate",
}

// Matcher is the compiled inclusion predicate for one query. It is a pure
// function of its pattern sets and safe for concurrent use.
type Matcher struct {
	mode     PatternMode
	includes []string
	excludes []string
}

// CompileMatcher turns raw include/exclude pattern sets into a Matcher. At
// most one set may be non-empty; the active mode follows from which one is.
// In exclude mode the baseline exclusions and user patterns are unioned. In
// include mode the baseline stays in force except for patterns the include
// set names verbatim. Any unparsable glob aborts compilation with a
// *PatternError.
func CompileMatcher(includePatterns, excludePatterns []string) (*Matcher, error) {
	if len(includePatterns) > 0 && len(excludePatterns) > 0 {
		return nil, fmt.Errorf("%w: include and exclude patterns are mutually exclusive", ErrInvalidQuery)
	}
	if validationError := validatePatterns(includePatterns); validationError != nil {
		return nil, validationError
	}
	if validationError := validatePatterns(excludePatterns); validationError != nil {
		return nil, validationError
	}

	if len(includePatterns) > 0 {
		return &Matcher{
			mode:     ModeInclude,
			includes: utils.DeduplicatePatterns(includePatterns),
			excludes: baselineWithout(includePatterns),
		}, nil
	}
	combined := make([]string, 0, len(baselineExclusions)+len(excludePatterns))
	combined = append(combined, baselineExclusions...)
	combined = append(combined, excludePatterns...)
	return &Matcher{
		mode:     ModeExclude,
		excludes: utils.DeduplicatePatterns(combined),
	}, nil
}

// Mode reports whether the matcher runs in include or exclude mode.
func (matcher *Matcher) Mode() PatternMode {
	return matcher.mode
}

// Accepts decides whether the entry at relPath belongs in the digest.
// Directories in include mode are accepted provisionally whenever they are
// not excluded outright; the walker prunes those that end up with no
// included descendants.
func (matcher *Matcher) Accepts(relPath string, isDir bool) bool {
	if matchesAny(matcher.excludes, relPath, isDir) {
		return false
	}
	if matcher.mode == ModeExclude || isDir {
		return true
	}
	return matchesAny(matcher.includes, relPath, isDir)
}

// validatePatterns compile-checks every pattern, directory markers stripped.
func validatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		trimmed := strings.TrimSuffix(pattern, "/")
		if trimmed == "" || !doublestar.ValidatePattern(trimmed) {
			return &PatternError{Pattern: pattern, Err: doublestar.ErrBadPattern}
		}
	}
	return nil
}

// baselineWithout returns the baseline exclusions minus entries the include
// set overrides verbatim, with or without the directory marker.
func baselineWithout(includePatterns []string) []string {
	kept := make([]string, 0, len(baselineExclusions))
	for _, baselinePattern := range baselineExclusions {
		trimmedBaseline := strings.TrimSuffix(baselinePattern, "/")
		if utils.ContainsString(includePatterns, baselinePattern) || utils.ContainsString(includePatterns, trimmedBaseline) {
			continue
		}
		kept = append(kept, baselinePattern)
	}
	return kept
}

// matchesAny reports whether any pattern matches the slash-relative path.
// A single-segment pattern matches the path's base name at any depth, the
// way ignore files behave; multi-segment patterns match the whole relative
// path with doublestar semantics. Patterns with a trailing slash match
// directories only.
func matchesAny(patterns []string, relPath string, isDir bool) bool {
	baseName := path.Base(relPath)
	for _, pattern := range patterns {
		trimmed := strings.TrimSuffix(pattern, "/")
		if trimmed != pattern && !isDir {
			continue
		}
		if matched, _ := doublestar.Match(trimmed, relPath); matched {
			return true
		}
		if !strings.Contains(trimmed, "/") {
			if matched, _ := doublestar.Match(trimmed, baseName); matched {
				return true
			}
		}
	}
	return false
}
