package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

const defaultLimit = 5

// Document is a stored document.
type Document struct {
	Title string
	Body  string
}

// Relation is a labelled edge between two named entities.
type Relation struct {
	Source string
	Label  string
	Target string
}

// SeedDocuments and SeedRelations populate an empty store.
var (
	SeedDocuments = []Document{
		{Title: "Document A", Body: "X founded the research lab together with Y in 2019."},
		{Title: "Document B", Body: "The research lab publishes papers on graph retrieval."},
		{Title: "Document C", Body: "Cats are small carnivores that like warm, quiet places."},
		{Title: "Document D", Body: "Cats and dogs are the most common household pets."},
		{Title: "Document E", Body: "Y collaborates with Z on document retrieval systems."},
		{Title: "Document F", Body: "Z is connected to X through the research lab."},
	}
	SeedRelations = []Relation{
		{Source: "X", Label: "founded", Target: "research lab"},
		{Source: "Y", Label: "co-founded", Target: "research lab"},
		{Source: "Y", Label: "collaborates with", Target: "Z"},
		{Source: "Z", Label: "is connected to", Target: "X"},
	}
)

// SQLiteStore is a Backend over a SQLite database.
type SQLiteStore struct {
	path  string
	limit int

	mu sync.Mutex
	db *sql.DB
}

var _ Backend = (*SQLiteStore)(nil)

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithLimit caps the number of snippets per query.
func WithLimit(n int) SQLiteOption {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.limit = n
		}
	}
}

func NewSQLiteStore(path string, opts ...SQLiteOption) *SQLiteStore {
	s := &SQLiteStore{path: path, limit: defaultLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init opens the database, creates the schema, and seeds it when empty.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	schema := `
CREATE TABLE IF NOT EXISTS documents (
  doc_id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL UNIQUE,
  body TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS relations (
  source TEXT NOT NULL,
  label TEXT NOT NULL,
  target TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target COLLATE NOCASE);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return err
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		_ = db.Close()
		return err
	}
	if count == 0 {
		if err := seed(ctx, db, SeedDocuments, SeedRelations); err != nil {
			_ = db.Close()
			return fmt.Errorf("seed: %w", err)
		}
	}

	s.db = db
	return nil
}

func seed(ctx context.Context, db *sql.DB, docs []Document, rels []Relation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range docs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO documents(title, body) VALUES(?, ?)`, d.Title, d.Body); err != nil {
			return err
		}
	}
	for _, r := range rels {
		if _, err := tx.ExecContext(ctx, `INSERT INTO relations(source, label, target) VALUES(?, ?, ?)`, r.Source, r.Label, r.Target); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) ensureDB(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db != nil {
		return db, nil
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("sqlite store closed")
	}
	return s.db, nil
}

// FindByKeyword returns documents containing any query term, most matches first.
func (s *SQLiteStore) FindByKeyword(ctx context.Context, text string) ([]string, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}

	queryTerms := terms(text)
	if len(queryTerms) == 0 {
		return []string{}, nil
	}

	clauses := make([]string, len(queryTerms))
	args := make([]interface{}, len(queryTerms))
	for i, term := range queryTerms {
		clauses[i] = `(CASE WHEN lower(body) LIKE ? THEN 1 ELSE 0 END)`
		args[i] = "%" + term + "%"
	}
	score := strings.Join(clauses, " + ")
	query := fmt.Sprintf(
		`SELECT title, body FROM (SELECT doc_id, title, body, %s AS score FROM documents)
		 WHERE score > 0 ORDER BY score DESC, doc_id ASC LIMIT ?`, score)
	args = append(args, s.limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.Title, &d.Body); err != nil {
			return nil, err
		}
		out = append(out, fmt.Sprintf("%s: %s", d.Title, d.Body))
	}
	return out, rows.Err()
}

// FindBySimilarity ranks documents by term overlap (Jaccard) with the query.
func (s *SQLiteStore) FindBySimilarity(ctx context.Context, text string) ([]string, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}

	queryTerms := terms(text)
	if len(queryTerms) == 0 {
		return []string{}, nil
	}

	rows, err := db.QueryContext(ctx, `SELECT title, body FROM documents ORDER BY doc_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type scored struct {
		doc   Document
		score float64
	}
	var ranked []scored
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.Title, &d.Body); err != nil {
			return nil, err
		}
		if score := jaccard(queryTerms, terms(d.Body)); score > 0 {
			ranked = append(ranked, scored{doc: d, score: score})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	out := []string{}
	for i, r := range ranked {
		if i == s.limit {
			break
		}
		out = append(out, fmt.Sprintf("%s (%.2f): %s", r.doc.Title, r.score, r.doc.Body))
	}
	return out, nil
}

// FindByRelations returns relations whose source or target is a query term.
func (s *SQLiteStore) FindByRelations(ctx context.Context, text string) ([]string, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}

	queryTerms := terms(text)
	if len(queryTerms) == 0 {
		return []string{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(queryTerms)), ",")
	args := make([]interface{}, 0, 2*len(queryTerms)+1)
	for _, t := range queryTerms {
		args = append(args, t)
	}
	for _, t := range queryTerms {
		args = append(args, t)
	}
	args = append(args, s.limit)

	query := fmt.Sprintf(
		`SELECT source, label, target FROM relations
		 WHERE lower(source) IN (%[1]s) OR lower(target) IN (%[1]s)
		 ORDER BY rowid LIMIT ?`, placeholders)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.Source, &r.Label, &r.Target); err != nil {
			return nil, err
		}
		out = append(out, fmt.Sprintf("%s %s %s", r.Source, r.Label, r.Target))
	}
	return out, rows.Err()
}

func jaccard(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	union := len(set)
	inter := 0
	seen := make(map[string]bool, len(b))
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
