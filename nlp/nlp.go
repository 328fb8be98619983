// Package nlp suggests how a question should be searched.
package nlp

import (
	"context"
	"strings"

	"github.com/loopwork-ai/docagent/docstore"
)

// Classifier picks the query kind best suited to a question.
type Classifier interface {
	Analyze(ctx context.Context, question string) (docstore.Kind, error)
}

// KeywordClassifier matches cue words. Questions about people or connections
// go to relations, questions about likeness go to similarity, everything else
// is a keyword search.
type KeywordClassifier struct{}

var _ Classifier = KeywordClassifier{}

var (
	relationCues   = []string{"who", "connect"}
	similarityCues = []string{"like", "similar"}
)

func (KeywordClassifier) Analyze(_ context.Context, question string) (docstore.Kind, error) {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, relationCues):
		return docstore.KindRelations, nil
	case containsAny(q, similarityCues):
		return docstore.KindSimilarity, nil
	default:
		return docstore.KindKeyword, nil
	}
}

func containsAny(s string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}
