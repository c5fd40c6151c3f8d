// Copyright 2025 The Grafomer Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer exposes the tiktoken BPE encodings used to turn
// prompts into token ids.
package tokenizer

import "github.com/graft-ml/grafomer/internal/tokenizer"

// Tokenizer encodes text to token ids and back.
type Tokenizer = tokenizer.Tokenizer

// New loads a tiktoken encoding by name, such as "r50k_base" or
// "cl100k_base".
func New(encodingName string) (*Tokenizer, error) {
	return tokenizer.New(encodingName)
}
