package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/repodigest/repodigest/internal/tokenizer"
	"github.com/repodigest/repodigest/internal/utils"
)

// framingTokenOverhead is the fixed allowance for the summary and tree
// sections on top of the per-file token counts.
const framingTokenOverhead = 128

// FileContent is one included text file ready for digest assembly.
type FileContent struct {
	RelPath string
	Text    string
	Tokens  int
}

// extractFiles reads every included file leaf, skipping binary or unreadable
// content, and returns the extracted texts with their summed token estimate.
// Files are ordered lexicographically by relative path, the order the content
// section presents them in. A failure on one file degrades that file to a
// skip recorded on its node; only cancellation aborts extraction.
func extractFiles(ctx context.Context, rootPath string, tree *Node, counter tokenizer.Counter) ([]FileContent, int, error) {
	fileNodes := collectIncludedFiles(tree)
	sort.Slice(fileNodes, func(left, right int) bool {
		return fileNodes[left].RelPath < fileNodes[right].RelPath
	})

	var extracted []FileContent
	totalTokens := 0
	for _, fileNode := range fileNodes {
		if contextError := ctx.Err(); contextError != nil {
			return nil, 0, contextError
		}

		data, readReason := readFileContent(filepath.Join(rootPath, filepath.FromSlash(fileNode.RelPath)))
		if readReason != SkipNone {
			fileNode.Reason = readReason
			continue
		}
		countResult, countError := tokenizer.CountBytes(counter, data)
		if countError != nil {
			// Estimation trouble does not cost us the content.
			countResult = tokenizer.CountResult{Counted: true}
		}
		if !countResult.Counted {
			fileNode.Reason = SkipBinary
			continue
		}

		extracted = append(extracted, FileContent{
			RelPath: fileNode.RelPath,
			Text:    string(data),
			Tokens:  countResult.Tokens,
		})
		totalTokens += countResult.Tokens
	}
	return extracted, totalTokens, nil
}

// collectIncludedFiles flattens the tree into its included file leaves using
// an explicit stack.
func collectIncludedFiles(tree *Node) []*Node {
	var fileNodes []*Node
	stack := []*Node{tree}
	for len(stack) > 0 {
		currentNode := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if currentNode.Type == NodeTypeDirectory {
			for childIndex := len(currentNode.Children) - 1; childIndex >= 0; childIndex-- {
				stack = append(stack, currentNode.Children[childIndex])
			}
			continue
		}
		if currentNode.Included && currentNode.Reason == SkipNone {
			fileNodes = append(fileNodes, currentNode)
		}
	}
	return fileNodes
}

// readFileContent reads one file, sniffing a leading sample first so binary
// blobs are rejected without reading them whole. The returned reason is
// SkipNone on success.
func readFileContent(filePath string) ([]byte, SkipReason) {
	fileHandle, openError := os.Open(filePath)
	if openError != nil {
		return nil, SkipReadError
	}
	defer fileHandle.Close()

	sample := make([]byte, utils.BinarySniffLength)
	sampleLength, sampleError := io.ReadFull(fileHandle, sample)
	if sampleError != nil && sampleError != io.EOF && sampleError != io.ErrUnexpectedEOF {
		return nil, SkipReadError
	}
	sample = sample[:sampleLength]
	if utils.IsBinary(trimPartialRune(sample, sampleLength == utils.BinarySniffLength)) {
		return nil, SkipBinary
	}

	rest, restError := io.ReadAll(fileHandle)
	if restError != nil {
		return nil, SkipReadError
	}
	return append(sample, rest...), SkipNone
}

// trimPartialRune drops a trailing incomplete UTF-8 sequence from a sample
// cut off at the sniff boundary so the split rune does not read as binary.
func trimPartialRune(sample []byte, sampleFull bool) []byte {
	if !sampleFull {
		return sample
	}
	trimmed := sample
	for dropped := 0; dropped < utf8.UTFMax && len(trimmed) > 0; dropped++ {
		lastRune, _ := utf8.DecodeLastRune(trimmed)
		if lastRune != utf8.RuneError {
			break
		}
		trimmed = trimmed[:len(trimmed)-1]
	}
	return trimmed
}
