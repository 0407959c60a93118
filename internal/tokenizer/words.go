package tokenizer

import "strings"

// wordsPerTokenNumerator and wordsPerTokenDenominator encode the common
// heuristic of roughly four tokens per three words.
const (
	wordsPerTokenNumerator   = 4
	wordsPerTokenDenominator = 3
)

// WordCounter estimates tokens from whitespace-separated word counts. It
// needs no encoding data, making it suitable for offline use and tests.
type WordCounter struct{}

// Name identifies the estimator.
func (WordCounter) Name() string {
	return WordModel
}

// CountString estimates the token count of input. Appending text to the
// input never lowers the estimate.
func (WordCounter) CountString(input string) (int, error) {
	wordCount := len(strings.Fields(input))
	if wordCount == 0 {
		return 0, nil
	}
	return (wordCount*wordsPerTokenNumerator + wordsPerTokenDenominator - 1) / wordsPerTokenDenominator, nil
}
