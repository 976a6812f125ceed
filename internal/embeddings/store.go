package embeddings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"tellmemore/internal/config"
)

// Record is one durable embedding: the only artifact that survives cleanup.
type Record struct {
	SimplifiedID    string
	Topic           string
	Title           string
	ShowName        string
	AudioURL        string
	DurationSeconds float64
	Model           string
	Vector          []float64
	CreatedAt       time.Time
}

// Match pairs a record with its similarity against a query vector.
type Match struct {
	Record     Record
	Similarity float64
}

// Store persists embedding records in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS embedding_records (
    simplified_id TEXT PRIMARY KEY,
    topic TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    show_name TEXT NOT NULL DEFAULT '',
    audio_url TEXT NOT NULL DEFAULT '',
    duration_seconds REAL,
    model TEXT NOT NULL DEFAULT '',
    vector BLOB NOT NULL,
    created_at TEXT NOT NULL
);
`

// Open connects to the embedding store inside the shared state database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply embedding schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append inserts or replaces a record by simplified id; last write wins when
// an episode is reprocessed.
func (s *Store) Append(ctx context.Context, record Record) error {
	if record.SimplifiedID == "" {
		return errors.New("record simplified id is required")
	}
	if len(record.Vector) == 0 {
		return errors.New("record vector is required")
	}
	blob, err := msgpack.Marshal(record.Vector)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO embedding_records (
            simplified_id, topic, title, show_name, audio_url,
            duration_seconds, model, vector, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(simplified_id) DO UPDATE SET
            topic = excluded.topic,
            title = excluded.title,
            show_name = excluded.show_name,
            audio_url = excluded.audio_url,
            duration_seconds = excluded.duration_seconds,
            model = excluded.model,
            vector = excluded.vector,
            created_at = excluded.created_at`,
		record.SimplifiedID,
		record.Topic,
		record.Title,
		record.ShowName,
		record.AudioURL,
		nullableFloat(record.DurationSeconds),
		record.Model,
		blob,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append embedding record: %w", err)
	}
	return nil
}

// Get fetches a record by simplified id.
func (s *Store) Get(ctx context.Context, simplifiedID string) (*Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM embedding_records WHERE simplified_id = ?`,
		simplifiedID,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding record: %w", err)
	}
	return record, nil
}

// List returns all records in insertion order.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM embedding_records ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list embedding records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM embedding_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count embedding records: %w", err)
	}
	return count, nil
}

// RankBySimilarity scores every stored vector against the query vector and
// returns the topK matches in descending similarity. Ties keep insertion
// order (stable sort over the rowid-ordered listing).
func (s *Store) RankBySimilarity(ctx context.Context, queryVector []float64, topK int) ([]Match, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(records))
	for _, record := range records {
		matches = append(matches, Match{
			Record:     record,
			Similarity: CosineSimilarity(queryVector, record.Vector),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

const recordColumns = "simplified_id, topic, title, show_name, audio_url, duration_seconds, model, vector, created_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		simplifiedID string
		topic        string
		title        string
		showName     string
		audioURL     string
		duration     sql.NullFloat64
		model        string
		blob         []byte
		createdRaw   string
	)
	if err := scanner.Scan(&simplifiedID, &topic, &title, &showName, &audioURL, &duration, &model, &blob, &createdRaw); err != nil {
		return nil, err
	}

	record := &Record{
		SimplifiedID: simplifiedID,
		Topic:        topic,
		Title:        title,
		ShowName:     showName,
		AudioURL:     audioURL,
		Model:        model,
	}
	if duration.Valid {
		record.DurationSeconds = duration.Float64
	}
	if err := msgpack.Unmarshal(blob, &record.Vector); err != nil {
		return nil, fmt.Errorf("decode vector for %s: %w", simplifiedID, err)
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		record.CreatedAt = created
	}
	return record, nil
}

func nullableFloat(value float64) any {
	if value <= 0 {
		return nil
	}
	return value
}
