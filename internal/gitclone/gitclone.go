// Package gitclone implements the engine's clone transport with go-git.
package gitclone

import (
	"context"
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/repodigest/repodigest/internal/ingest"
)

// Transport clones repositories into engine-owned workspaces.
type Transport struct {
	logger *zap.Logger
}

// New returns a Transport logging through logger, which may be nil.
func New(logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{logger: logger}
}

// Clone performs the requested clone. Cancellation and deadlines arrive
// through ctx; the caller classifies failures.
func (transport *Transport) Clone(ctx context.Context, request ingest.CloneRequest) error {
	transport.logger.Debug("cloning repository",
		zap.String("url", request.URL),
		zap.String("branch", request.Branch),
		zap.Bool("shallow", request.Shallow),
	)
	_, cloneError := git.PlainCloneContext(ctx, request.TargetDir, false, cloneOptions(request))
	if cloneError != nil {
		return fmt.Errorf("git clone: %w", cloneError)
	}
	return nil
}

// cloneOptions maps a CloneRequest onto go-git options: single branch, no
// tags, depth one when shallow.
func cloneOptions(request ingest.CloneRequest) *git.CloneOptions {
	options := &git.CloneOptions{
		URL:          request.URL,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if request.Shallow {
		options.Depth = 1
	}
	if request.Branch != "" {
		options.ReferenceName = plumbing.NewBranchReferenceName(request.Branch)
	}
	return options
}
