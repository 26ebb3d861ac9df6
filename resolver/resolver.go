// Package resolver turns a topic into a spoken script, grounding it in a
// fetched web page when the topic needs current information.
//
// Resolve is stateless: every call starts from a fresh candidate list and
// nothing fetched is kept after it returns.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/drewmudry/scriptcast/fetch"
	"github.com/drewmudry/scriptcast/llm"
	"github.com/drewmudry/scriptcast/prompts"
	"github.com/drewmudry/scriptcast/search"
	"go.uber.org/zap"
)

// FallbackMessage is what callers show when a topic could not be grounded.
const FallbackMessage = "Could not generate a response for your query."

// Outcome is the terminal state of a resolution.
type Outcome int

const (
	// OutcomeDirect means no search was needed and the script came from the
	// topic alone.
	OutcomeDirect Outcome = iota
	// OutcomeGrounded means a fetched page was verified and used as context.
	OutcomeGrounded
	// OutcomeNoContext means search was needed but no candidate held the
	// data. Callers substitute a fallback or move to another topic.
	OutcomeNoContext
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDirect:
		return "direct"
	case OutcomeGrounded:
		return "grounded"
	case OutcomeNoContext:
		return "no_context"
	default:
		return "unknown"
	}
}

// StepKind names what happened to the candidate list in one loop iteration.
type StepKind string

const (
	// StepSelectUnparsable: the selection answer was not an integer; the
	// first remaining candidate was dropped.
	StepSelectUnparsable StepKind = "select_unparsable"
	// StepSelectOutOfRange: the selection index was outside the list; the
	// first remaining candidate was dropped.
	StepSelectOutOfRange StepKind = "select_out_of_range"
	// StepFetchFailed: the chosen page could not be fetched or was empty; it
	// was dropped.
	StepFetchFailed StepKind = "fetch_failed"
	// StepRejected: verification said the page lacks the data; it was dropped.
	StepRejected StepKind = "rejected"
	// StepAccepted: verification passed; the loop ended.
	StepAccepted StepKind = "accepted"
)

// Step records one iteration of the resolution loop.
type Step struct {
	Kind      StepKind         `json:"kind"`
	Answer    string           `json:"answer,omitempty"` // raw selection answer
	Candidate search.Candidate `json:"candidate"`
	Remaining int              `json:"remaining"` // candidates left after this step
}

// Result is what Resolve produces. Script is empty for OutcomeNoContext.
type Result struct {
	Outcome     Outcome
	Script      string
	SearchQuery string
	Source      *search.Candidate
	Trace       []Step
}

// Resolver wires the collaborators used to resolve a topic. The composing
// application owns their lifecycle.
type Resolver struct {
	llm        llm.Generator
	searcher   search.Searcher
	fetcher    fetch.Fetcher
	maxResults int
	log        *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxResults caps the number of search candidates considered.
func WithMaxResults(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxResults = n
		}
	}
}

// WithLogger sets the logger. Decisions are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

func New(gen llm.Generator, searcher search.Searcher, fetcher fetch.Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		llm:        gen,
		searcher:   searcher,
		fetcher:    fetcher,
		maxResults: search.DefaultLimit,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve produces a script for topic. Search and fetch failures only shrink
// the candidate list; language-model failures are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, topic string) (Result, error) {
	needed, err := r.needsSearch(ctx, topic)
	if err != nil {
		return Result{}, err
	}

	if !needed {
		r.log.Debug("no search needed", zap.String("topic", topic))
		script, err := r.llm.Generate(ctx, prompts.ScriptWithoutContext(topic))
		if err != nil {
			return Result{}, fmt.Errorf("failed to generate script: %w", err)
		}
		return Result{Outcome: OutcomeDirect, Script: script}, nil
	}

	return r.searchAndGenerate(ctx, topic)
}

func (r *Resolver) needsSearch(ctx context.Context, topic string) (bool, error) {
	answer, err := r.ask(ctx, prompts.NeedsSearch(topic))
	if err != nil {
		return false, fmt.Errorf("failed to classify topic: %w", err)
	}
	r.log.Debug("search or not", zap.String("answer", answer))
	return isAffirmative(answer, "yes"), nil
}

func (r *Resolver) searchQuery(ctx context.Context, topic string) (string, error) {
	answer, err := r.llm.Generate(ctx, prompts.SearchQuery(topic))
	if err != nil {
		return "", fmt.Errorf("failed to generate search query: %w", err)
	}
	return StripQuotes(strings.TrimSpace(answer)), nil
}

func (r *Resolver) searchAndGenerate(ctx context.Context, topic string) (Result, error) {
	query, err := r.searchQuery(ctx, topic)
	if err != nil {
		return Result{}, err
	}
	res := Result{SearchQuery: query}

	candidates, err := r.searcher.Search(ctx, query, r.maxResults)
	if err != nil {
		r.log.Warn("search failed", zap.String("query", query), zap.Error(err))
		candidates = nil
	}
	if len(candidates) > r.maxResults {
		candidates = candidates[:r.maxResults]
	}
	r.log.Debug("search results", zap.String("query", query), zap.Int("count", len(candidates)))

	for len(candidates) > 0 {
		answer, err := r.ask(ctx, prompts.SelectResult(search.FormatCandidates(candidates), topic, query))
		if err != nil {
			return Result{}, fmt.Errorf("failed to select search result: %w", err)
		}

		idx, parseErr := strconv.Atoi(strings.TrimSpace(answer))
		if parseErr != nil || idx < 0 || idx >= len(candidates) {
			// The first candidate is dropped, not the one the model meant.
			kind := StepSelectOutOfRange
			if parseErr != nil {
				kind = StepSelectUnparsable
			}
			dropped := candidates[0]
			candidates = removeAt(candidates, 0)
			res.Trace = append(res.Trace, Step{Kind: kind, Answer: answer, Candidate: dropped, Remaining: len(candidates)})
			r.log.Debug("invalid selection, dropping first result", zap.String("answer", answer))
			continue
		}

		chosen := candidates[idx]
		page, err := r.fetcher.Fetch(ctx, chosen.URL)
		if err != nil || strings.TrimSpace(page) == "" {
			candidates = removeAt(candidates, idx)
			res.Trace = append(res.Trace, Step{Kind: StepFetchFailed, Answer: answer, Candidate: chosen, Remaining: len(candidates)})
			r.log.Debug("fetch failed", zap.String("url", chosen.URL), zap.Error(err))
			continue
		}

		ok, err := r.containsDataNeeded(ctx, page, topic, query)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			candidates = removeAt(candidates, idx)
			res.Trace = append(res.Trace, Step{Kind: StepRejected, Answer: answer, Candidate: chosen, Remaining: len(candidates)})
			r.log.Debug("page lacks needed data", zap.String("url", chosen.URL))
			continue
		}

		res.Trace = append(res.Trace, Step{Kind: StepAccepted, Answer: answer, Candidate: chosen, Remaining: len(candidates)})
		script, err := r.llm.Generate(ctx, prompts.ScriptWithContext(topic, page))
		if err != nil {
			return Result{}, fmt.Errorf("failed to generate grounded script: %w", err)
		}
		res.Outcome = OutcomeGrounded
		res.Script = script
		res.Source = &chosen
		return res, nil
	}

	r.log.Debug("no relevant context found", zap.String("topic", topic))
	res.Outcome = OutcomeNoContext
	return res, nil
}

func (r *Resolver) containsDataNeeded(ctx context.Context, page, topic, query string) (bool, error) {
	answer, err := r.ask(ctx, prompts.VerifyContent(page, topic, query))
	if err != nil {
		return false, fmt.Errorf("failed to verify page content: %w", err)
	}
	r.log.Debug("contains data needed", zap.String("answer", answer))
	return isAffirmative(answer, "true"), nil
}

// ask runs a yes/no, index or true/false prompt. An empty reply is an
// unclear answer, not a failure.
func (r *Resolver) ask(ctx context.Context, prompt string) (string, error) {
	answer, err := r.llm.Generate(ctx, prompt)
	if errors.Is(err, llm.ErrEmptyResponse) {
		r.log.Debug("empty answer", zap.Error(err))
		return "", nil
	}
	return answer, err
}

// StripQuotes removes one pair of enclosing double quotes.
func StripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func isAffirmative(answer, token string) bool {
	return strings.Contains(strings.ToLower(answer), token)
}

// removeAt returns a new slice without element i; the input is not modified.
func removeAt(cands []search.Candidate, i int) []search.Candidate {
	out := make([]search.Candidate, 0, len(cands)-1)
	out = append(out, cands[:i]...)
	return append(out, cands[i+1:]...)
}
