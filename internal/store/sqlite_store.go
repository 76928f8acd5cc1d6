package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// schema defines the two-table knowledge base. Creation is idempotent;
// re-running the pipeline against an existing file appends new rows.
const schema = `
CREATE TABLE IF NOT EXISTS topic (
    id INTEGER PRIMARY KEY,
    title   TEXT,
    summary TEXT
);

CREATE TABLE IF NOT EXISTS message (
    id INTEGER PRIMARY KEY,
    topic_id INTEGER,
    conv   TEXT,
    role   TEXT,
    ts     TEXT,
    text   TEXT
);

CREATE INDEX IF NOT EXISTS idx_message_topic ON message(topic_id);
`

// SQLiteStore is the SQLite-backed knowledge base writer.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates a store at the given path, creating the file and schema if
// absent. Use ":memory:" for tests.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Persist writes all topic batches in a single transaction: one topic row
// per batch, one message row per record, and — when vectors are supplied —
// one embedding row per message in the vec0 side table. The whole corpus
// commits or rolls back as a unit. With reset, the prior corpus is deleted
// inside the same transaction, so a replace run either swaps the corpus
// completely or leaves the old one untouched.
func (s *SQLiteStore) Persist(batches []TopicBatch, reset bool) error {
	if len(batches) == 0 && !reset {
		return nil
	}

	dim := 0
	for _, batch := range batches {
		if len(batch.Vectors) > 0 {
			dim = len(batch.Vectors[0])
			break
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if reset {
		if err := truncate(tx); err != nil {
			return err
		}
	}
	if dim > 0 {
		if err := ensureEmbeddingTable(tx, dim); err != nil {
			return err
		}
	}

	for _, batch := range batches {
		res, err := tx.Exec(
			`INSERT INTO topic (title, summary) VALUES (?, ?)`,
			batch.Title, nullable(batch.Summary),
		)
		if err != nil {
			return fmt.Errorf("insert topic %q: %w", batch.Title, err)
		}
		topicID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("topic id for %q: %w", batch.Title, err)
		}

		if batch.Vectors != nil && len(batch.Vectors) != len(batch.Messages) {
			return fmt.Errorf("topic %q: %d vectors for %d messages",
				batch.Title, len(batch.Vectors), len(batch.Messages))
		}

		for i, msg := range batch.Messages {
			res, err := tx.Exec(
				`INSERT INTO message (topic_id, conv, role, ts, text) VALUES (?, ?, ?, ?, ?)`,
				topicID, msg.Conv, msg.Role, nullable(msg.Timestamp), msg.Text,
			)
			if err != nil {
				return fmt.Errorf("insert message: %w", err)
			}

			if batch.Vectors != nil {
				msgID, err := res.LastInsertId()
				if err != nil {
					return fmt.Errorf("message id: %w", err)
				}
				blob, err := vectorToBlob(batch.Vectors[i], dim)
				if err != nil {
					return fmt.Errorf("topic %q: %w", batch.Title, err)
				}
				if _, err := tx.Exec(
					`INSERT INTO message_embedding (rowid, embedding) VALUES (?, ?)`,
					msgID, blob,
				); err != nil {
					return fmt.Errorf("insert embedding: %w", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Reset truncates all tables immediately. Replace runs with a fresh corpus
// should pass reset to Persist instead, which truncates transactionally.
func (s *SQLiteStore) Reset() error {
	return truncate(s.db)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func truncate(db execer) error {
	for _, stmt := range []string{
		"DELETE FROM message",
		"DELETE FROM topic",
		"DROP TABLE IF EXISTS message_embedding",
	} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return nil
}

// Topics returns all topic rows in insertion order.
func (s *SQLiteStore) Topics() ([]Topic, error) {
	rows, err := s.db.Query(`SELECT id, title, summary FROM topic ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		var t Topic
		var summary sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &summary); err != nil {
			return nil, err
		}
		if summary.Valid {
			t.Summary = summary.String
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// MessagesForTopic returns a topic's messages in insertion order.
func (s *SQLiteStore) MessagesForTopic(topicID int64) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT id, topic_id, conv, role, ts, text
		FROM message WHERE topic_id = ? ORDER BY id
	`, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var ts sql.NullString
		if err := rows.Scan(&m.ID, &m.TopicID, &m.Conv, &m.Role, &ts, &m.Text); err != nil {
			return nil, err
		}
		if ts.Valid {
			m.Timestamp = ts.String
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CountTopics returns the number of topic rows.
func (s *SQLiteStore) CountTopics() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM topic`).Scan(&count)
	return count, err
}

// CountMessages returns the number of message rows.
func (s *SQLiteStore) CountMessages() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM message`).Scan(&count)
	return count, err
}

// CountEmbeddings returns the number of stored embedding vectors, or 0 when
// the side table was never created.
func (s *SQLiteStore) CountEmbeddings() (int, error) {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'message_embedding'`,
	).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}

	var count int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM message_embedding`).Scan(&count)
	return count, err
}

// ensureEmbeddingTable creates the vec0 virtual table. The dimension is only
// known once the first corpus is embedded, so creation is deferred to the
// first persist that carries vectors.
func ensureEmbeddingTable(db execer, dim int) error {
	stmt := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS message_embedding USING vec0(embedding float[%d])`, dim,
	)
	if _, err := db.Exec(stmt); err != nil {
		return fmt.Errorf("create embedding table: %w", err)
	}
	return nil
}

// vectorToBlob serializes a vector as the little-endian float32 BLOB format
// sqlite-vec expects.
func vectorToBlob(vec []float32, dim int) ([]byte, error) {
	if len(vec) != dim {
		return nil, fmt.Errorf("invalid vector dimension: got %d, want %d", len(vec), dim)
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf, nil
}

// nullable maps "" onto NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
