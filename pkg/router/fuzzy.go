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
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/handrail-labs/handrail/pkg/workflow"
)

// DefaultMinConfidence is the score below which FuzzyRouter refuses to
// route. Tuned so that a query sharing no meaningful word with any workflow
// falls through to ErrNoMatch instead of a bad guess.
const DefaultMinConfidence = 0.25

// FuzzyRouter matches the query against workflow titles and keywords using
// fuzzy string matching. Confidence is the fraction of meaningful query
// tokens that land on the workflow's vocabulary.
type FuzzyRouter struct {
	workflows     workflow.Store
	logger        *zap.Logger
	minConfidence float64
}

// FuzzyOption configures a FuzzyRouter.
type FuzzyOption func(*FuzzyRouter)

// WithMinConfidence overrides the routing cutoff.
func WithMinConfidence(min float64) FuzzyOption {
	return func(r *FuzzyRouter) { r.minConfidence = min }
}

// WithFuzzyLogger sets the logger.
func WithFuzzyLogger(logger *zap.Logger) FuzzyOption {
	return func(r *FuzzyRouter) { r.logger = logger }
}

// NewFuzzy creates a fuzzy router over the workflow store.
func NewFuzzy(workflows workflow.Store, opts ...FuzzyOption) *FuzzyRouter {
	r := &FuzzyRouter{
		workflows:     workflows,
		logger:        zap.NewNop(),
		minConfidence: DefaultMinConfidence,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindBest scores every stored workflow against the query and returns the
// highest-confidence one above the cutoff.
func (r *FuzzyRouter) FindBest(ctx context.Context, query string) (*Match, error) {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return nil, ErrNoMatch
	}

	workflows, err := r.workflows.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	var best *Match
	bestScore := -1
	for _, wf := range workflows {
		vocab := workflowVocabulary(wf)
		hits, score := scoreTokens(tokens, vocab)
		confidence := float64(hits) / float64(len(tokens))
		if confidence < r.minConfidence {
			continue
		}
		if best == nil || confidence > best.Confidence ||
			(confidence == best.Confidence && score > bestScore) {
			best = &Match{WorkflowID: wf.Name, Confidence: confidence}
			bestScore = score
		}
	}

	if best == nil {
		r.logger.Debug("no workflow matched query", zap.String("query", query))
		return nil, ErrNoMatch
	}
	r.logger.Debug("routed query",
		zap.String("query", query),
		zap.String("workflow", best.WorkflowID),
		zap.Float64("confidence", best.Confidence))
	return best, nil
}

// queryTokens lowercases and splits the query, dropping short filler words
// that fuzzy-match almost anything.
func queryTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:'\"")
		if len(f) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// workflowVocabulary collects the searchable strings of a workflow: its
// title, its name with separators spaced out, and every keyword.
func workflowVocabulary(wf *workflow.Workflow) []string {
	vocab := make([]string, 0, len(wf.Keywords)+2)
	if wf.Title != "" {
		vocab = append(vocab, strings.ToLower(wf.Title))
	}
	name := strings.NewReplacer("_", " ", "-", " ").Replace(wf.Name)
	vocab = append(vocab, strings.ToLower(name))
	for _, k := range wf.Keywords {
		vocab = append(vocab, strings.ToLower(k))
	}
	return vocab
}

// scoreTokens counts how many tokens fuzzy-match the vocabulary and sums
// the best match score per token for tie-breaking.
func scoreTokens(tokens, vocab []string) (hits, total int) {
	for _, tok := range tokens {
		matches := fuzzy.Find(tok, vocab)
		if len(matches) == 0 {
			continue
		}
		hits++
		total += matches[0].Score
	}
	return hits, total
}

// Compile-time interface check
var _ Router = (*FuzzyRouter)(nil)
