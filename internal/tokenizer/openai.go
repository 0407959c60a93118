package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// openAIModelPrefixes identify model names resolvable to a tiktoken encoding.
var openAIModelPrefixes = []string{
	"gpt-",
	"o1",
	"o3",
	"text-embedding",
	"davinci",
	"curie",
	"babbage",
	"ada",
	"code-",
}

// openAICounter counts tokens with a tiktoken BPE encoding.
type openAICounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// newOpenAICounter resolves model to its tiktoken encoding. Names tiktoken
// does not know fall back to the cl100k_base encoding. The returned string is
// the resolved model or encoding name.
func newOpenAICounter(model string) (Counter, string, error) {
	if isOpenAIModel(model) {
		encoding, encodingError := tiktoken.EncodingForModel(model)
		if encodingError == nil && encoding != nil {
			return openAICounter{encoding: encoding, name: model}, model, nil
		}
	}
	encoding, encodingError := tiktoken.GetEncoding(defaultEncodingName)
	if encodingError != nil {
		return nil, "", fmt.Errorf("initialize default tokenizer: %w", encodingError)
	}
	return openAICounter{encoding: encoding, name: defaultEncodingName}, defaultEncodingName, nil
}

func isOpenAIModel(model string) bool {
	for _, prefix := range openAIModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// Name identifies the encoding backing the counter.
func (counter openAICounter) Name() string {
	return counter.name
}

// CountString counts the BPE tokens of input.
func (counter openAICounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, errors.New("nil tiktoken encoder")
	}
	tokenIDs := counter.encoding.Encode(input, nil, nil)
	return len(tokenIDs), nil
}
