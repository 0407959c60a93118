package utils_test

import (
	"testing"

	"github.com/repodigest/repodigest/internal/utils"
)

// TestDeduplicatePatterns verifies that DeduplicatePatterns removes duplicate patterns.
func TestDeduplicatePatterns(testingInstance *testing.T) {
	testCases := []struct {
		testName string
		patterns []string
		expected []string
	}{
		{
			testName: "removes duplicates",
			patterns: []string{"a", "b", "a"},
			expected: []string{"a", "b"},
		},
		{
			testName: "keeps unique",
			patterns: []string{"a", "b"},
			expected: []string{"a", "b"},
		},
	}
	for index, testCase := range testCases {
		actual := utils.DeduplicatePatterns(testCase.patterns)
		if len(actual) != len(testCase.expected) {
			testingInstance.Errorf("case %d (%s): expected length %d, got %d", index, testCase.testName, len(testCase.expected), len(actual))
			continue
		}
		for position, value := range actual {
			if value != testCase.expected[position] {
				testingInstance.Errorf("case %d (%s): expected %s at position %d, got %s", index, testCase.testName, testCase.expected[position], position, value)
			}
		}
	}
}

// TestContainsString verifies that ContainsString locates strings in a slice.
func TestContainsString(testingInstance *testing.T) {
	testCases := []struct {
		testName string
		slice    []string
		target   string
		expected bool
	}{
		{
			testName: "contains target",
			slice:    []string{"alpha", "beta"},
			target:   "beta",
			expected: true,
		},
		{
			testName: "missing target",
			slice:    []string{"alpha", "beta"},
			target:   "gamma",
			expected: false,
		},
	}
	for index, testCase := range testCases {
		actual := utils.ContainsString(testCase.slice, testCase.target)
		if actual != testCase.expected {
			testingInstance.Errorf("case %d (%s): expected %t, got %t", index, testCase.testName, testCase.expected, actual)
		}
	}
}

// TestIsBinary verifies detection of binary data in byte slices.
func TestIsBinary(testingInstance *testing.T) {
	testCases := []struct {
		testName string
		data     []byte
		expected bool
	}{
		{
			testName: "utf8 text",
			data:     []byte("hello"),
			expected: false,
		},
		{
			testName: "null byte",
			data:     []byte{0x00, 0x01},
			expected: true,
		},
		{
			testName: "invalid utf8",
			data:     []byte{0xff},
			expected: true,
		},
		{
			testName: "empty slice",
			data:     []byte{},
			expected: false,
		},
	}
	for index, testCase := range testCases {
		actual := utils.IsBinary(testCase.data)
		if actual != testCase.expected {
			testingInstance.Errorf("case %d (%s): expected %t, got %t", index, testCase.testName, testCase.expected, actual)
		}
	}
}

// TestFormatTokenCount verifies compact token count rendering.
func TestFormatTokenCount(testingInstance *testing.T) {
	testCases := []struct {
		testName string
		count    int
		expected string
	}{
		{
			testName: "small count verbatim",
			count:    999,
			expected: "999",
		},
		{
			testName: "thousands shorthand",
			count:    1200,
			expected: "1.2k",
		},
		{
			testName: "exact thousand",
			count:    1000,
			expected: "1.0k",
		},
		{
			testName: "millions shorthand",
			count:    1_234_567,
			expected: "1.2M",
		},
		{
			testName: "zero",
			count:    0,
			expected: "0",
		},
	}
	for index, testCase := range testCases {
		actual := utils.FormatTokenCount(testCase.count)
		if actual != testCase.expected {
			testingInstance.Errorf("case %d (%s): expected %s, got %s", index, testCase.testName, testCase.expected, actual)
		}
	}
}
