// Copyright 2026 Handrail Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package engine

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/handrail-labs/handrail/pkg/session"
)

// DefaultHistoryTokenBudget bounds how much conversation history is carried
// into each prompt. Older messages beyond the budget are dropped from the
// prompt only; the persisted session keeps the full transcript.
const DefaultHistoryTokenBudget = 4096

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// countTokens estimates the token count of text using the cl100k_base
// encoding. If the encoding cannot be loaded (offline, first run), it falls
// back to a bytes/4 heuristic rather than failing the turn.
func countTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	if encoding == nil {
		return len(text)/4 + 1
	}
	return len(encoding.Encode(text, nil, nil))
}

// trimHistory returns the most recent suffix of history that fits within
// budget tokens. At least the last message is always kept.
func trimHistory(history []session.Message, budget int) []session.Message {
	if len(history) == 0 {
		return history
	}
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		n := countTokens(history[i].Content) + 4
		if total+n > budget && start < len(history) {
			break
		}
		total += n
		start = i
	}
	return history[start:]
}
