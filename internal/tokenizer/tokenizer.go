// Package tokenizer estimates token counts for text destined for language models.
package tokenizer

import "strings"

// Counter estimates token counts for text content. Implementations must be
// deterministic: the same input always yields the same count.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

// Config captures tokenizer selection parameters.
type Config struct {
	Model string
}

const (
	defaultModel        = "gpt-4o"
	defaultEncodingName = "cl100k_base"
	// WordModel selects the offline word-ratio estimator instead of a BPE encoding.
	WordModel = "words"
)

// NewCounter returns a Counter implementation for the requested model along
// with the resolved model or encoding name.
//
// OpenAI model names resolve to their tiktoken encoding. The WordModel name
// selects a heuristic estimator that needs no encoding data. Anything else
// falls back to the cl100k_base encoding.
func NewCounter(cfg Config) (Counter, string, error) {
	model := strings.ToLower(strings.TrimSpace(cfg.Model))
	if model == "" {
		model = defaultModel
	}
	if model == WordModel {
		return WordCounter{}, WordModel, nil
	}
	return newOpenAICounter(model)
}
