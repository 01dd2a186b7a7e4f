package rag

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"github.com/evolutia/examgen/internal/material"
)

// SQLiteIndex is a term-frequency retrieval index persisted in SQLite.
// It stands in for an external embedding store: same query surface,
// cosine scoring over bag-of-words vectors instead of embeddings. Course
// corpora are small enough that brute-force scoring is fine.
type SQLiteIndex struct {
	db *sql.DB
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	doc_type   TEXT NOT NULL,
	label      TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	topic      TEXT NOT NULL DEFAULT '',
	complexity REAL NOT NULL DEFAULT 0,
	content    TEXT NOT NULL,
	terms      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(doc_type);
CREATE INDEX IF NOT EXISTS idx_documents_complexity ON documents(complexity);
`

// OpenSQLiteIndex opens (creating if needed) the index database at dsn.
func OpenSQLiteIndex(dsn string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}
	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

// Close closes the underlying database.
func (x *SQLiteIndex) Close() error { return x.db.Close() }

func (x *SQLiteIndex) IndexMaterials(ctx context.Context, exercises []material.Exercise, readings []material.Reading, analyzer material.Analyzer, clearExisting bool) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index transaction: %w", err)
	}
	defer tx.Rollback()

	if clearExisting {
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
	}

	insert, err := tx.PrepareContext(ctx,
		"INSERT INTO documents (doc_type, label, source, topic, complexity, content, terms) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	for _, ex := range exercises {
		complexity := 0.0
		if analyzer != nil {
			complexity = analyzer.Analyze(ex).MathComplexity
		}
		terms := strings.Join(tokenize(ex.Content), " ")
		if _, err := insert.ExecContext(ctx, "exercise", ex.Label, ex.SourceFile, ex.Topic, complexity, ex.Content, terms); err != nil {
			return fmt.Errorf("index exercise %q: %w", ex.Label, err)
		}
	}
	for _, rd := range readings {
		terms := strings.Join(tokenize(rd.Content+" "+strings.Join(rd.Keywords, " ")), " ")
		if _, err := insert.ExecContext(ctx, "reading", "", rd.SourceFile, rd.Topic, 0, rd.Content, terms); err != nil {
			return fmt.Errorf("index reading %s: %w", rd.SourceFile, err)
		}
	}

	return tx.Commit()
}

func (x *SQLiteIndex) IsIndexed(ctx context.Context) (bool, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return false, fmt.Errorf("count documents: %w", err)
	}
	return n > 0, nil
}

func (x *SQLiteIndex) SimilarExercises(ctx context.Context, text, excludeLabel string, topK int) ([]Hit, error) {
	return x.rank(ctx, text, "doc_type = 'exercise'", excludeLabel, topK)
}

func (x *SQLiteIndex) RelatedConcepts(ctx context.Context, concepts []string, topK int) ([]Hit, error) {
	return x.rank(ctx, strings.Join(concepts, " "), "", "", topK)
}

func (x *SQLiteIndex) ReadingContext(ctx context.Context, topic string, topK int) ([]Hit, error) {
	hits, err := x.rank(ctx, topic, "doc_type = 'reading'", "", topK)
	if err != nil {
		return nil, err
	}
	if len(hits) > 0 {
		return hits, nil
	}
	// Term overlap with a bare topic name can legitimately be zero;
	// fall back to exact topic matching.
	return x.byTopic(ctx, topic, topK)
}

func (x *SQLiteIndex) ByComplexity(ctx context.Context, score, tolerance float64, topK int) ([]Hit, error) {
	lo := score * (1 - tolerance)
	hi := score * (1 + tolerance)
	rows, err := x.db.QueryContext(ctx,
		`SELECT label, source, topic, complexity, content FROM documents
		 WHERE doc_type = 'exercise' AND complexity BETWEEN ? AND ?
		 ORDER BY ABS(complexity - ?) LIMIT ?`, lo, hi, score, topK)
	if err != nil {
		return nil, fmt.Errorf("query by complexity: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var label, source, topic, content string
		var complexity float64
		if err := rows.Scan(&label, &source, &topic, &complexity, &content); err != nil {
			return nil, err
		}
		sim := 1.0
		if score > 0 {
			sim = 1 - math.Abs(complexity-score)/(score*tolerance+1e-9)
			sim = math.Max(0, math.Min(1, sim))
		}
		hits = append(hits, Hit{
			Content:    content,
			Similarity: sim,
			Metadata:   docMeta("exercise", label, source, topic, complexity),
		})
	}
	return hits, rows.Err()
}

func (x *SQLiteIndex) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	return x.rank(ctx, query, "", "", topK)
}

// rank loads candidate rows and scores them by cosine similarity between
// the query's and the document's term-frequency vectors.
func (x *SQLiteIndex) rank(ctx context.Context, query, where, excludeLabel string, topK int) ([]Hit, error) {
	qvec := termFreq(tokenize(query))
	if len(qvec) == 0 {
		return nil, nil
	}

	q := "SELECT doc_type, label, source, topic, complexity, content, terms FROM documents"
	var args []any
	if where != "" {
		q += " WHERE " + where
		if excludeLabel != "" {
			q += " AND label != ?"
			args = append(args, excludeLabel)
		}
	} else if excludeLabel != "" {
		q += " WHERE label != ?"
		args = append(args, excludeLabel)
	}

	rows, err := x.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var docType, label, source, topic, content, terms string
		var complexity float64
		if err := rows.Scan(&docType, &label, &source, &topic, &complexity, &content, &terms); err != nil {
			return nil, err
		}
		sim := cosine(qvec, termFreq(strings.Fields(terms)))
		if sim <= 0 {
			continue
		}
		hits = append(hits, Hit{
			Content:    content,
			Similarity: sim,
			Metadata:   docMeta(docType, label, source, topic, complexity),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (x *SQLiteIndex) byTopic(ctx context.Context, topic string, topK int) ([]Hit, error) {
	rows, err := x.db.QueryContext(ctx,
		"SELECT label, source, topic, content FROM documents WHERE doc_type = 'reading' AND topic = ? LIMIT ?",
		topic, topK)
	if err != nil {
		return nil, fmt.Errorf("query by topic: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var label, source, tp, content string
		if err := rows.Scan(&label, &source, &tp, &content); err != nil {
			return nil, err
		}
		hits = append(hits, Hit{
			Content:    content,
			Similarity: 0.5,
			Metadata:   docMeta("reading", label, source, tp, 0),
		})
	}
	return hits, rows.Err()
}

func docMeta(docType, label, source, topic string, complexity float64) map[string]string {
	m := map[string]string{
		"type":   docType,
		"source": source,
		"topic":  topic,
	}
	if label != "" {
		m["label"] = label
	}
	if complexity > 0 {
		m["complexity"] = strconv.FormatFloat(complexity, 'f', 2, 64)
	}
	return m
}

var tokenRe = regexp.MustCompile(`[a-záéíóúñü]{3,}`)

// stopwords common to the Spanish and English course materials.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "with": true,
	"this": true, "los": true, "las": true, "del": true, "que": true,
	"con": true, "por": true, "para": true, "una": true, "uno": true,
	"donde": true, "como": true, "sea": true, "ser": true, "sus": true,
	"mas": true, "más": true, "este": true, "esta": true,
}

func tokenize(s string) []string {
	var out []string
	for _, t := range tokenRe.FindAllString(strings.ToLower(s), -1) {
		if !stopwords[t] {
			out = append(out, t)
		}
	}
	return out
}

func termFreq(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for k, va := range a {
		na += va * va
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		nb += vb * vb
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
