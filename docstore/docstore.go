// Package docstore provides the document backends the tool server queries.
package docstore

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Kind names a query strategy.
type Kind string

const (
	KindKeyword    Kind = "keyword"
	KindSimilarity Kind = "similarity"
	KindRelations  Kind = "relations"
)

// Backend answers the three query kinds with an ordered list of snippets.
type Backend interface {
	FindByKeyword(ctx context.Context, text string) ([]string, error)
	FindBySimilarity(ctx context.Context, text string) ([]string, error)
	FindByRelations(ctx context.Context, text string) ([]string, error)
}

// Find dispatches text to the query of the given kind.
func Find(ctx context.Context, b Backend, kind Kind, text string) ([]string, error) {
	switch kind {
	case KindKeyword:
		return b.FindByKeyword(ctx, text)
	case KindSimilarity:
		return b.FindBySimilarity(ctx, text)
	case KindRelations:
		return b.FindByRelations(ctx, text)
	default:
		return nil, fmt.Errorf("unknown query kind %q", kind)
	}
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "by": true, "for": true,
	"how": true, "in": true, "is": true, "of": true, "on": true, "the": true,
	"to": true, "what": true, "who": true, "with": true, "which": true,
}

// terms splits text into lowercase search terms, dropping stopwords and
// duplicates while keeping first-seen order.
func terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
