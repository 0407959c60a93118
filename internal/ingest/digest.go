package ingest

import (
	"path"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/repodigest/repodigest/internal/utils"
)

// Digest is the three-part text output of one ingestion request, plus the
// stats it was assembled from. Values are immutable once produced.
type Digest struct {
	Summary string
	Tree    string
	Content string
	Stats   Stats
}

// Text concatenates the three digest sections in their canonical order.
func (digest Digest) Text() string {
	return digest.Summary + "\n" + digest.Tree + "\n" + digest.Content
}

// Rendering fragments for the tree section.
const (
	treeHeader      = "Directory structure:"
	branchConnector = "├── "
	lastConnector   = "└── "
	pipeIndent      = "│   "
	blankIndent     = "    "
)

// contentSeparator frames each file header in the content section.
var contentSeparator = strings.Repeat("=", 48)

// assembleDigest renders the traversal result into the canonical three-part
// digest. It is a pure function of its inputs: identical trees, stats, and
// extracted files produce byte-identical output.
func assembleDigest(query Query, rootLabel string, tree *Node, stats Stats, files []FileContent) Digest {
	return Digest{
		Summary: renderSummary(query, stats),
		Tree:    renderTree(rootLabel, tree),
		Content: renderContent(files),
		Stats:   stats,
	}
}

// renderSummary produces the fixed-format header block.
func renderSummary(query Query, stats Stats) string {
	var builder strings.Builder
	builder.WriteString("Source: " + query.Source + "\n")
	if query.Branch != "" {
		builder.WriteString("Branch: " + query.Branch + "\n")
	}
	if query.Subpath != rootSubpath {
		builder.WriteString("Subpath: " + query.Subpath + "\n")
	}
	builder.WriteString("Files analyzed: " + strconv.Itoa(stats.FileCount) + "\n")
	builder.WriteString("Directories: " + strconv.Itoa(stats.DirCount) + "\n")
	builder.WriteString("Total size: " + humanize.IBytes(uint64(stats.TotalSizeBytes)) + "\n")
	builder.WriteString("Estimated tokens: " + utils.FormatTokenCount(stats.EstimatedTokens) + "\n")
	if stats.Truncated {
		builder.WriteString("Note: traversal stopped early after reaching configured limits\n")
	}
	return builder.String()
}

// renderTree draws the included portion of the tree with box connectors,
// directories suffixed with a slash. Non-included nodes never appear.
func renderTree(rootLabel string, tree *Node) string {
	var builder strings.Builder
	builder.WriteString(treeHeader + "\n")
	builder.WriteString(lastConnector + rootLabel + "/\n")
	renderChildren(&builder, tree, blankIndent)
	return builder.String()
}

// renderChildren renders the included children of node, one line each, and
// recurses into directories. Depth is bounded by the walk's depth cap.
func renderChildren(builder *strings.Builder, node *Node, prefix string) {
	included := includedChildren(node)
	for childIndex, childNode := range included {
		connector := branchConnector
		childPrefix := prefix + pipeIndent
		if childIndex == len(included)-1 {
			connector = lastConnector
			childPrefix = prefix + blankIndent
		}
		displayName := path.Base(childNode.RelPath)
		if childNode.Type == NodeTypeDirectory {
			displayName += "/"
		}
		builder.WriteString(prefix + connector + displayName + "\n")
		if childNode.Type == NodeTypeDirectory {
			renderChildren(builder, childNode, childPrefix)
		}
	}
}

// includedChildren filters a directory's children down to included nodes,
// preserving their deterministic order.
func includedChildren(node *Node) []*Node {
	included := make([]*Node, 0, len(node.Children))
	for _, childNode := range node.Children {
		if childNode.Included {
			included = append(included, childNode)
		}
	}
	return included
}

// renderContent concatenates every extracted file behind a separator header,
// ordered lexicographically by relative path. Skipped files leave no gaps.
func renderContent(files []FileContent) string {
	var builder strings.Builder
	for _, file := range files {
		builder.WriteString(contentSeparator + "\n")
		builder.WriteString("File: " + file.RelPath + "\n")
		builder.WriteString(contentSeparator + "\n")
		builder.WriteString(file.Text)
		builder.WriteString("\n\n")
	}
	return builder.String()
}
