package ingest

import (
	"strings"
	"testing"
)

func TestRenderTree(t *testing.T) {
	tree := &Node{Type: NodeTypeDirectory, Included: true, Children: []*Node{
		{RelPath: "sub", Type: NodeTypeDirectory, Included: true, Children: []*Node{
			{RelPath: "sub/c.py", Type: NodeTypeFile, Included: true},
		}},
		{RelPath: "a.py", Type: NodeTypeFile, Included: true},
		{RelPath: "b.txt", Type: NodeTypeFile, Included: false, Reason: SkipPatternExcluded},
	}}
	expected := "Directory structure:\n" +
		"└── proj/\n" +
		"    ├── sub/\n" +
		"    │   └── c.py\n" +
		"    └── a.py\n"
	actual := renderTree("proj", tree)
	if actual != expected {
		t.Fatalf("unexpected tree rendering:\n%s\nwant:\n%s", actual, expected)
	}
	if strings.Contains(actual, "b.txt") {
		t.Fatalf("expected excluded entries to be omitted from the tree")
	}
}

func TestRenderContent(t *testing.T) {
	files := []FileContent{
		{RelPath: "a.py", Text: "alpha\n"},
		{RelPath: "sub/c.py", Text: "gamma\n"},
	}
	separator := strings.Repeat("=", 48)
	expected := separator + "\nFile: a.py\n" + separator + "\nalpha\n\n\n" +
		separator + "\nFile: sub/c.py\n" + separator + "\ngamma\n\n\n"
	actual := renderContent(files)
	if actual != expected {
		t.Fatalf("unexpected content rendering:\n%q\nwant:\n%q", actual, expected)
	}
}

func TestRenderSummary(t *testing.T) {
	query := Query{Source: "owner/project", Branch: "main", Subpath: rootSubpath}
	stats := Stats{FileCount: 2, DirCount: 1, TotalSizeBytes: 1536, EstimatedTokens: 1200}
	expected := "Source: owner/project\n" +
		"Branch: main\n" +
		"Files analyzed: 2\n" +
		"Directories: 1\n" +
		"Total size: 1.5 KiB\n" +
		"Estimated tokens: 1.2k\n"
	actual := renderSummary(query, stats)
	if actual != expected {
		t.Fatalf("unexpected summary:\n%s\nwant:\n%s", actual, expected)
	}
}

func TestRenderSummaryTruncationNote(t *testing.T) {
	summary := renderSummary(Query{Source: "x", Subpath: rootSubpath}, Stats{Truncated: true})
	if !strings.Contains(summary, "Note:") {
		t.Fatalf("expected truncation note, got:\n%s", summary)
	}
}

func TestDigestTextConcatenatesSections(t *testing.T) {
	digest := Digest{Summary: "s\n", Tree: "t\n", Content: "c\n"}
	if digest.Text() != "s\n\nt\n\nc\n" {
		t.Fatalf("unexpected concatenation: %q", digest.Text())
	}
}
