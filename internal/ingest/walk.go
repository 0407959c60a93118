package ingest

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// Node type names used in tree structures.
const (
	NodeTypeFile      = "file"
	NodeTypeDirectory = "directory"
)

// SkipReason explains why an entry was left out of extraction. Skips are
// per-node conditions, never request-level errors.
type SkipReason string

const (
	// SkipNone marks fully included nodes.
	SkipNone SkipReason = ""
	// SkipTooLarge marks files above the query's size threshold.
	SkipTooLarge SkipReason = "too-large"
	// SkipPatternExcluded marks entries rejected by the matcher.
	SkipPatternExcluded SkipReason = "pattern-excluded"
	// SkipSymlink marks symbolic links, which are never followed.
	SkipSymlink SkipReason = "symlink-skipped"
	// SkipDepthExceeded marks directories below the traversal depth cap.
	SkipDepthExceeded SkipReason = "depth-exceeded"
	// SkipTruncated marks the file whose inclusion would overflow the file
	// count or total byte cap, ending the walk.
	SkipTruncated SkipReason = "truncated"
	// SkipBinary marks files whose content failed the text heuristic.
	SkipBinary SkipReason = "binary"
	// SkipReadError marks entries that could not be read mid-walk.
	SkipReadError SkipReason = "read-error"
)

// Node is one filesystem entry in the traversal result tree. A directory's
// SizeBytes aggregates every visited descendant file regardless of inclusion;
// the included-only total lives in Stats.
type Node struct {
	RelPath   string
	Type      string
	SizeBytes int64
	Children  []*Node
	Included  bool
	Reason    SkipReason
}

// Stats aggregates one traversal. FileCount and DirCount cover included
// nodes only; Truncated reports that a count, byte, or depth cap stopped the
// walk before the tree was exhausted.
type Stats struct {
	FileCount       int
	DirCount        int
	TotalSizeBytes  int64
	EstimatedTokens int
	Truncated       bool
}

// walkLimits carries the traversal caps resolved from engine configuration
// and the query.
type walkLimits struct {
	maxFileSize   int64
	maxFiles      int
	maxTotalBytes int64
	maxDepth      int
}

// walkFrame tracks one directory being traversed on the explicit stack.
type walkFrame struct {
	node      *Node
	path      string
	depth     int
	entries   []os.DirEntry
	nextEntry int
}

// walkTree traverses rootPath depth-first with an explicit stack, recording
// every visited entry as a Node. Child order within a directory is fixed as
// directories first, then files, each lexicographic, which makes traversal
// order equal final output order and keeps truncation deterministic.
func walkTree(ctx context.Context, rootPath string, matcher *Matcher, limits walkLimits) (*Node, Stats, error) {
	rootEntries, rootReadError := os.ReadDir(rootPath)
	if rootReadError != nil {
		return nil, Stats{}, &EngineError{Stage: "traversal", Err: rootReadError}
	}

	rootNode := &Node{RelPath: "", Type: NodeTypeDirectory, Included: true}
	stats := Stats{}
	includeMode := matcher.Mode() == ModeInclude

	stack := []*walkFrame{{node: rootNode, path: rootPath, depth: 0, entries: sortEntries(rootEntries)}}
	truncated := false

	for len(stack) > 0 && !truncated {
		if contextError := ctx.Err(); contextError != nil {
			return nil, Stats{}, contextError
		}

		frame := stack[len(stack)-1]
		if frame.nextEntry >= len(frame.entries) {
			stack = popFrame(stack, &stats, includeMode)
			continue
		}
		entry := frame.entries[frame.nextEntry]
		frame.nextEntry++

		childRelPath := joinRelPath(frame.node.RelPath, entry.Name())

		if entry.Type()&fs.ModeSymlink != 0 {
			frame.node.Children = append(frame.node.Children, &Node{
				RelPath: childRelPath,
				Type:    NodeTypeFile,
				Reason:  SkipSymlink,
			})
			continue
		}

		if entry.IsDir() {
			childNode := &Node{RelPath: childRelPath, Type: NodeTypeDirectory}
			frame.node.Children = append(frame.node.Children, childNode)

			if !matcher.Accepts(childRelPath, true) {
				childNode.Reason = SkipPatternExcluded
				continue
			}
			childDepth := frame.depth + 1
			if childDepth > limits.maxDepth {
				childNode.Reason = SkipDepthExceeded
				stats.Truncated = true
				continue
			}
			childEntries, childReadError := os.ReadDir(filepath.Join(frame.path, entry.Name()))
			if childReadError != nil {
				childNode.Reason = SkipReadError
				continue
			}
			// In exclude mode an accepted directory is final; in include
			// mode inclusion is settled when the frame pops.
			childNode.Included = !includeMode
			stack = append(stack, &walkFrame{
				node:    childNode,
				path:    filepath.Join(frame.path, entry.Name()),
				depth:   childDepth,
				entries: sortEntries(childEntries),
			})
			continue
		}

		childNode := &Node{RelPath: childRelPath, Type: NodeTypeFile}
		frame.node.Children = append(frame.node.Children, childNode)

		entryInfo, infoError := entry.Info()
		if infoError != nil {
			childNode.Reason = SkipReadError
			continue
		}
		// FIFOs, sockets, and devices are unreadable as files; opening a
		// FIFO with no writer blocks indefinitely.
		if !entryInfo.Mode().IsRegular() {
			childNode.Reason = SkipReadError
			continue
		}
		childNode.SizeBytes = entryInfo.Size()
		frame.node.SizeBytes += childNode.SizeBytes

		if !matcher.Accepts(childRelPath, false) {
			childNode.Reason = SkipPatternExcluded
			continue
		}
		if childNode.SizeBytes > limits.maxFileSize {
			childNode.Reason = SkipTooLarge
			continue
		}
		if stats.FileCount+1 > limits.maxFiles || stats.TotalSizeBytes+childNode.SizeBytes > limits.maxTotalBytes {
			childNode.Reason = SkipTruncated
			stats.Truncated = true
			truncated = true
			continue
		}
		childNode.Included = true
		stats.FileCount++
		stats.TotalSizeBytes += childNode.SizeBytes
	}

	for len(stack) > 0 {
		stack = popFrame(stack, &stats, includeMode)
	}
	return rootNode, stats, nil
}

// popFrame finishes a directory: include-mode directories are pruned when no
// descendant made it in, included directories are counted, and raw sizes
// roll up to the parent.
func popFrame(stack []*walkFrame, stats *Stats, includeMode bool) []*walkFrame {
	frame := stack[len(stack)-1]
	remaining := stack[:len(stack)-1]
	if len(remaining) == 0 {
		return remaining
	}
	if includeMode {
		frame.node.Included = hasIncludedChild(frame.node)
	}
	if frame.node.Included {
		stats.DirCount++
	}
	parentFrame := remaining[len(remaining)-1]
	parentFrame.node.SizeBytes += frame.node.SizeBytes
	return remaining
}

// hasIncludedChild reports whether any direct child of node is included.
// Directory children have already settled their own inclusion by the time
// their parent pops, so one level suffices.
func hasIncludedChild(node *Node) bool {
	for _, childNode := range node.Children {
		if childNode.Included {
			return true
		}
	}
	return false
}

// sortEntries orders directory entries as directories first, then files,
// each group lexicographic by name. Symbolic links order as files.
func sortEntries(entries []os.DirEntry) []os.DirEntry {
	sort.SliceStable(entries, func(left, right int) bool {
		leftIsDir := entries[left].IsDir()
		rightIsDir := entries[right].IsDir()
		if leftIsDir != rightIsDir {
			return leftIsDir
		}
		return entries[left].Name() < entries[right].Name()
	})
	return entries
}

// joinRelPath extends a slash-relative path with one more segment.
func joinRelPath(parentRelPath, name string) string {
	if parentRelPath == "" {
		return name
	}
	return path.Join(parentRelPath, name)
}
