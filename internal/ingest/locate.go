package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// workspacePrefix names the temporary directories backing remote clones.
const workspacePrefix = "repodigest-"

// CloneRequest describes one repository clone delegated to a transport.
type CloneRequest struct {
	URL       string
	Branch    string
	Shallow   bool
	TargetDir string
}

// CloneTransport performs repository clones on behalf of the engine. The
// engine consumes only success or failure; any retry policy lives inside the
// transport.
type CloneTransport interface {
	Clone(ctx context.Context, request CloneRequest) error
}

var remoteSchemes = []string{"http://", "https://", "git://", "ssh://"}

// shortFormPattern matches "owner/repo" shorthand for a hosted repository.
var shortFormPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+/[A-Za-z0-9._-]+$`)

// RemoteSourceURL reports whether source names a remote repository and, if
// so, the URL to clone. Explicit schemes and scp-style git addresses pass
// through unchanged. The "owner/repo" short form expands to a GitHub URL
// unless a local path of that name exists, in which case the local tree wins.
func RemoteSourceURL(source string) (string, bool) {
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(source, scheme) {
			return source, true
		}
	}
	if strings.HasPrefix(source, "git@") {
		return source, true
	}
	if shortFormPattern.MatchString(source) {
		if _, statError := os.Stat(source); statError == nil {
			return "", false
		}
		return "https://github.com/" + source, true
	}
	return "", false
}

// resolveSource turns the query's source into a traversal root. Local paths
// are canonicalized in place; remote sources are cloned into an exclusively
// owned temporary workspace. On success the returned cleanup releases the
// workspace and is safe to call more than once; on failure the workspace is
// already gone and no cleanup is returned.
func (engine *Engine) resolveSource(ctx context.Context, query Query) (string, string, func(), error) {
	remoteURL, isRemote := RemoteSourceURL(query.Source)
	if !isRemote {
		rootPath, label, localError := resolveLocalSource(query)
		return rootPath, label, func() {}, localError
	}

	if engine.transport == nil {
		return "", "", nil, &EngineError{Stage: "clone", Err: errors.New("no clone transport configured")}
	}

	workspaceDir, workspaceError := os.MkdirTemp("", workspacePrefix)
	if workspaceError != nil {
		return "", "", nil, &EngineError{Stage: "workspace", Err: workspaceError}
	}
	releaseOnce := sync.Once{}
	release := func() {
		releaseOnce.Do(func() { os.RemoveAll(workspaceDir) })
	}

	cloneCtx, cancelClone := context.WithTimeout(ctx, engine.cloneTimeout)
	defer cancelClone()
	cloneError := engine.transport.Clone(cloneCtx, CloneRequest{
		URL:       remoteURL,
		Branch:    query.Branch,
		Shallow:   true,
		TargetDir: workspaceDir,
	})
	if cloneError != nil {
		release()
		if contextError := ctx.Err(); contextError != nil {
			return "", "", nil, contextError
		}
		if errors.Is(cloneCtx.Err(), context.DeadlineExceeded) {
			return "", "", nil, &CloneError{URL: remoteURL, Timeout: true, Err: cloneError}
		}
		return "", "", nil, &CloneError{URL: remoteURL, Err: cloneError}
	}

	rootPath, subpathError := applySubpath(workspaceDir, query.Subpath)
	if subpathError != nil {
		release()
		return "", "", nil, subpathError
	}
	label := repositoryLabel(remoteURL)
	if query.Subpath != rootSubpath {
		label = path.Base(query.Subpath)
	}
	return rootPath, label, release, nil
}

// resolveLocalSource canonicalizes a local source path and checks that it is
// a readable directory.
func resolveLocalSource(query Query) (string, string, error) {
	absolutePath, absoluteError := filepath.Abs(query.Source)
	if absoluteError != nil {
		return "", "", &SourceNotFoundError{Source: query.Source, Err: absoluteError}
	}
	canonicalPath, canonicalError := filepath.EvalSymlinks(absolutePath)
	if canonicalError != nil {
		return "", "", &SourceNotFoundError{Source: query.Source, Err: canonicalError}
	}
	pathInfo, statError := os.Stat(canonicalPath)
	if statError != nil {
		return "", "", &SourceNotFoundError{Source: query.Source, Err: statError}
	}
	if !pathInfo.IsDir() {
		return "", "", &SourceNotFoundError{Source: query.Source, Err: fmt.Errorf("%s is not a directory", canonicalPath)}
	}

	rootPath, subpathError := applySubpath(canonicalPath, query.Subpath)
	if subpathError != nil {
		return "", "", subpathError
	}
	label := filepath.Base(rootPath)
	return rootPath, label, nil
}

// applySubpath narrows root to the query's subpath, which must exist and be
// a directory inside it.
func applySubpath(root, subpath string) (string, error) {
	if subpath == rootSubpath {
		return root, nil
	}
	resolved := filepath.Join(root, filepath.FromSlash(subpath))
	pathInfo, statError := os.Stat(resolved)
	if statError != nil {
		return "", &SourceNotFoundError{Source: subpath, Err: statError}
	}
	if !pathInfo.IsDir() {
		return "", &SourceNotFoundError{Source: subpath, Err: fmt.Errorf("%s is not a directory", resolved)}
	}
	return resolved, nil
}

// repositoryLabel derives a display name for a cloned repository from its
// URL: the last path segment with any ".git" suffix removed.
func repositoryLabel(remoteURL string) string {
	cleaned := strings.TrimSuffix(remoteURL, "/")
	cleaned = strings.TrimSuffix(cleaned, ".git")
	if slashIndex := strings.LastIndex(cleaned, "/"); slashIndex >= 0 {
		cleaned = cleaned[slashIndex+1:]
	}
	if colonIndex := strings.LastIndex(cleaned, ":"); colonIndex >= 0 {
		cleaned = cleaned[colonIndex+1:]
	}
	return cleaned
}
