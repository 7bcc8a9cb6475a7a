package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// MaxEmbeddingTokens is the input limit of the OpenAI embedding models
const MaxEmbeddingTokens = 8191

// maxEmbeddingChars caps input when no tokenizer is available
const maxEmbeddingChars = 8000

var (
	encodings   = map[string]*tiktoken.Tiktoken{}
	encodingsMu sync.Mutex
)

func encodingFor(model string) *tiktoken.Tiktoken {
	encodingsMu.Lock()
	defer encodingsMu.Unlock()

	if enc, ok := encodings[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}
	encodings[model] = enc
	return enc
}

// CountTokens returns the token count of text for model, or -1 when no
// encoding could be loaded
func CountTokens(model, text string) int {
	enc := encodingFor(model)
	if enc == nil {
		return -1
	}
	return len(enc.Encode(text, nil, nil))
}

// TruncateTokens shortens text to at most limit tokens. Without an encoding
// it falls back to a character cap.
func TruncateTokens(model, text string, limit int) string {
	enc := encodingFor(model)
	if enc == nil {
		r := []rune(text)
		if len(r) > maxEmbeddingChars {
			return string(r[:maxEmbeddingChars])
		}
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= limit {
		return text
	}
	return enc.Decode(tokens[:limit])
}
