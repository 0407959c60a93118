// Package ingest converts a source tree, local or cloned, into a
// deterministic LLM-consumable text digest: a summary block, a rendered
// directory tree, and concatenated file contents, filtered by glob patterns
// and size limits.
package ingest

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/repodigest/repodigest/internal/tokenizer"
	"github.com/repodigest/repodigest/internal/utils"
)

// Engine defaults, applied by NewEngine for any zero Config field.
const (
	DefaultMaxFileSize   = int64(10 * 1024 * 1024)
	DefaultMaxFiles      = 10_000
	DefaultMaxTotalBytes = int64(500 * 1024 * 1024)
	DefaultMaxDepth      = 50
	DefaultCloneTimeout  = 60 * time.Second
)

// Config assembles an Engine. Transport is required for remote sources;
// Counter defaults to the tiktoken cl100k encoding with the word-ratio
// estimator as a fallback when encoding data is unavailable.
type Config struct {
	Transport     CloneTransport
	Counter       tokenizer.Counter
	Logger        *zap.Logger
	MaxFileSize   int64
	MaxFiles      int
	MaxTotalBytes int64
	MaxDepth      int
	CloneTimeout  time.Duration
}

// Engine runs ingestion requests. Requests share no mutable state, so one
// Engine serves any number of concurrent callers.
type Engine struct {
	transport     CloneTransport
	counter       tokenizer.Counter
	logger        *zap.Logger
	maxFileSize   int64
	maxFiles      int
	maxTotalBytes int64
	maxDepth      int
	cloneTimeout  time.Duration
}

// NewEngine builds an Engine, filling unset configuration with defaults.
func NewEngine(config Config) *Engine {
	engine := &Engine{
		transport:     config.Transport,
		counter:       config.Counter,
		logger:        config.Logger,
		maxFileSize:   config.MaxFileSize,
		maxFiles:      config.MaxFiles,
		maxTotalBytes: config.MaxTotalBytes,
		maxDepth:      config.MaxDepth,
		cloneTimeout:  config.CloneTimeout,
	}
	if engine.logger == nil {
		engine.logger = zap.NewNop()
	}
	if engine.counter == nil {
		counter, counterName, counterError := tokenizer.NewCounter(tokenizer.Config{})
		if counterError != nil {
			engine.logger.Warn("tokenizer unavailable, falling back to word estimate", zap.Error(counterError))
			counter = tokenizer.WordCounter{}
		} else {
			engine.logger.Debug("tokenizer selected", zap.String("encoding", counterName))
		}
		engine.counter = counter
	}
	if engine.maxFileSize <= 0 {
		engine.maxFileSize = DefaultMaxFileSize
	}
	if engine.maxFiles <= 0 {
		engine.maxFiles = DefaultMaxFiles
	}
	if engine.maxTotalBytes <= 0 {
		engine.maxTotalBytes = DefaultMaxTotalBytes
	}
	if engine.maxDepth <= 0 {
		engine.maxDepth = DefaultMaxDepth
	}
	if engine.cloneTimeout <= 0 {
		engine.cloneTimeout = DefaultCloneTimeout
	}
	return engine
}

// Ingest runs one request end to end: validate the query, compile its
// matcher, resolve the source, walk, extract, and assemble. The workspace
// behind a remote source is released when the request ends, success or
// failure, and every blocking step observes ctx.
func (engine *Engine) Ingest(ctx context.Context, rawQuery Query) (Digest, error) {
	startTime := time.Now()

	query, queryError := NewQuery(rawQuery)
	if queryError != nil {
		return Digest{}, queryError
	}
	matcher, matcherError := CompileMatcher(query.IncludePatterns, query.ExcludePatterns)
	if matcherError != nil {
		return Digest{}, matcherError
	}

	rootPath, rootLabel, cleanup, resolveError := engine.resolveSource(ctx, query)
	if resolveError != nil {
		return Digest{}, resolveError
	}
	defer cleanup()

	limits := walkLimits{
		maxFileSize:   query.MaxFileSize,
		maxFiles:      engine.maxFiles,
		maxTotalBytes: engine.maxTotalBytes,
		maxDepth:      engine.maxDepth,
	}
	if limits.maxFileSize == 0 {
		limits.maxFileSize = engine.maxFileSize
	}

	tree, stats, walkError := walkTree(ctx, rootPath, matcher, limits)
	if walkError != nil {
		return Digest{}, walkError
	}
	files, fileTokens, extractError := extractFiles(ctx, rootPath, tree, engine.counter)
	if extractError != nil {
		return Digest{}, extractError
	}
	stats.EstimatedTokens = fileTokens + framingTokenOverhead

	digest := assembleDigest(query, rootLabel, tree, stats, files)
	engine.logger.Info("digest assembled",
		zap.String("source", query.Source),
		zap.Int("files", stats.FileCount),
		zap.Int("directories", stats.DirCount),
		zap.String("size", humanize.IBytes(uint64(stats.TotalSizeBytes))),
		zap.String("tokens", utils.FormatTokenCount(stats.EstimatedTokens)),
		zap.Bool("truncated", stats.Truncated),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	return digest, nil
}
