package docstore

import (
	"context"
	"fmt"
)

// MockStore returns fixed snippets that quote the query.
type MockStore struct{}

var _ Backend = MockStore{}

func NewMockStore() MockStore {
	return MockStore{}
}

func (MockStore) FindByKeyword(_ context.Context, text string) ([]string, error) {
	return []string{
		fmt.Sprintf("Keyword result for '%s': Document A", text),
		fmt.Sprintf("Keyword result for '%s': Document B", text),
	}, nil
}

func (MockStore) FindBySimilarity(_ context.Context, text string) ([]string, error) {
	return []string{
		fmt.Sprintf("Similarity result for '%s': Document C", text),
		fmt.Sprintf("Similarity result for '%s': Document D", text),
	}, nil
}

func (MockStore) FindByRelations(_ context.Context, text string) ([]string, error) {
	return []string{
		fmt.Sprintf("Relation result for '%s': Document E", text),
		fmt.Sprintf("Relation result for '%s': Document F", text),
	}, nil
}
