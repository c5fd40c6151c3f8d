// Package tokenizer wraps the tiktoken BPE encodings used by the CLI
// to turn prompts into id tensors.
package tokenizer

import (
	"github.com/pkg/errors"
	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer encodes text to token ids and back.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// New loads a tiktoken encoding by name, such as "r50k_base" or
// "cl100k_base".
func New(encodingName string) (*Tokenizer, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, errors.Wrapf(err, "load tiktoken encoding %q", encodingName)
	}
	return &Tokenizer{encoding: encoding, name: encodingName}, nil
}

// Name returns the encoding name.
func (t *Tokenizer) Name() string { return t.name }

// Encode converts text to token ids.
func (t *Tokenizer) Encode(text string) []int32 {
	tokens := t.encoding.Encode(text, nil, nil)
	ids := make([]int32, len(tokens))
	for i, tok := range tokens {
		ids[i] = int32(tok)
	}
	return ids
}

// Decode converts token ids back to text. Ids are passed to the
// encoding as-is; callers are responsible for supplying ids the
// encoding knows.
func (t *Tokenizer) Decode(ids []int32) string {
	tokens := make([]int, 0, len(ids))
	for _, id := range ids {
		tokens = append(tokens, int(id))
	}
	return t.encoding.Decode(tokens)
}
