package config

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/repodigest/repodigest/internal/utils"
)

// LoadIgnoreFilePatterns reads one ignore file and returns its patterns.
// Blank lines and comments are dropped, and so are negations, which cannot
// be expressed as plain exclusions. A missing file yields no patterns.
//
// #nosec G304
func LoadIgnoreFilePatterns(ignoreFilePath string) ([]string, error) {
	fileHandle, openFileError := os.Open(ignoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer func() {
		closeError := fileHandle.Close()
		if closeError != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", ignoreFilePath, closeError)
		}
	}()

	var patterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, "#") {
			continue
		}
		if strings.HasPrefix(trimmedLine, "!") {
			continue
		}
		patterns = append(patterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return patterns, nil
}

// LoadSourceIgnorePatterns walks rootDirectoryPath and aggregates exclusion
// patterns from every utils.GitIgnoreFileName and utils.DigestIgnoreFileName
// it finds. Patterns from nested directories are prefixed with the directory's
// path relative to the root so they keep their scope. The directory named
// utils.GitDirectoryName is never entered.
func LoadSourceIgnorePatterns(rootDirectoryPath string, useGitignore bool, useIgnoreFile bool) ([]string, error) {
	var aggregatedPatterns []string

	walkFunction := func(currentDirectoryPath string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			return walkError
		}
		if !directoryEntry.IsDir() {
			return nil
		}
		if directoryEntry.Name() == utils.GitDirectoryName {
			return filepath.SkipDir
		}

		prefix := ""
		if relativeDirectory, relativeError := filepath.Rel(rootDirectoryPath, currentDirectoryPath); relativeError == nil && relativeDirectory != "." {
			prefix = filepath.ToSlash(relativeDirectory) + "/"
		}

		if useIgnoreFile {
			ignoreFilePath := filepath.Join(currentDirectoryPath, utils.DigestIgnoreFileName)
			ignorePatterns, loadError := LoadIgnoreFilePatterns(ignoreFilePath)
			if loadError != nil {
				return fmt.Errorf("loading %s from %s: %w", utils.DigestIgnoreFileName, currentDirectoryPath, loadError)
			}
			for _, pattern := range ignorePatterns {
				aggregatedPatterns = append(aggregatedPatterns, prefix+pattern)
			}
		}

		if useGitignore {
			gitIgnoreFilePath := filepath.Join(currentDirectoryPath, utils.GitIgnoreFileName)
			gitIgnorePatterns, loadError := LoadIgnoreFilePatterns(gitIgnoreFilePath)
			if loadError != nil {
				return fmt.Errorf("loading %s from %s: %w", utils.GitIgnoreFileName, currentDirectoryPath, loadError)
			}
			for _, pattern := range gitIgnorePatterns {
				aggregatedPatterns = append(aggregatedPatterns, prefix+pattern)
			}
		}

		return nil
	}

	if walkError := filepath.WalkDir(rootDirectoryPath, walkFunction); walkError != nil {
		return nil, walkError
	}

	return utils.DeduplicatePatterns(aggregatedPatterns), nil
}
