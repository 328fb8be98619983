package docstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore(t *testing.T) {
	ctx := context.Background()
	store := NewMockStore()

	tests := []struct {
		kind Kind
		want []string
	}{
		{KindKeyword, []string{"Keyword result for 'q': Document A", "Keyword result for 'q': Document B"}},
		{KindSimilarity, []string{"Similarity result for 'q': Document C", "Similarity result for 'q': Document D"}},
		{KindRelations, []string{"Relation result for 'q': Document E", "Relation result for 'q': Document F"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := Find(ctx, store, tt.kind, "q")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Find(ctx, store, Kind("fuzzy"), "q")
	assert.Error(t, err)
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"connected", "x"}, terms("Who is connected to X?"))
	assert.Equal(t, []string{"cats", "dogs"}, terms("cats, CATS and dogs"))
	assert.Empty(t, terms("who is the"))
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_FindByKeyword(t *testing.T) {
	store := newTestSQLiteStore(t)

	got, err := store.FindByKeyword(context.Background(), "Who is connected to X?")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Document F: Z is connected to X through the research lab.", got[0])
	assert.Equal(t, "Document A: X founded the research lab together with Y in 2019.", got[1])

	got, err = store.FindByKeyword(context.Background(), "the who")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStore_FindBySimilarity(t *testing.T) {
	store := newTestSQLiteStore(t)

	got, err := store.FindBySimilarity(context.Background(), "cats")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "Document D")
	assert.Contains(t, got[1], "Document C")
}

func TestSQLiteStore_FindByRelations(t *testing.T) {
	store := newTestSQLiteStore(t)

	got, err := store.FindByRelations(context.Background(), "Who is connected to X?")
	require.NoError(t, err)
	assert.Equal(t, []string{"X founded research lab", "Z is connected to X"}, got)
}

func TestSQLiteStore_LimitAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.db")
	ctx := context.Background()

	first := NewSQLiteStore(path)
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.Close())

	// A second open must not seed twice.
	store := NewSQLiteStore(path, WithLimit(1))
	t.Cleanup(func() { _ = store.Close() })

	got, err := store.FindByKeyword(ctx, "research lab")
	require.NoError(t, err)
	assert.Equal(t, []string{"Document A: X founded the research lab together with Y in 2019."}, got)

	var count int
	db, err := store.ensureDB(ctx)
	require.NoError(t, err)
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count))
	assert.Equal(t, len(SeedDocuments), count)
}
