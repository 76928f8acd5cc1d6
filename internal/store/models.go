// Package store provides SQLite-backed persistence for the knowledge base.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface,
// with the sqlite-vec extension registered for embedding storage.
package store

// Topic is one persisted topic group. Title is derived from the group's
// first message; Summary is a keyword digest and may be empty (NULL).
type Topic struct {
	ID      int64
	Title   string
	Summary string
}

// Message is one persisted message row, owned by exactly one topic.
// Timestamp is an ISO-8601 string, or "" for untimed messages (NULL).
type Message struct {
	ID        int64
	TopicID   int64
	Conv      string
	Role      string
	Timestamp string
	Text      string
}

// TopicBatch is one topic plus its messages, ready to persist. Vectors, when
// present, align one-to-one with Messages and are written to the sqlite-vec
// side table.
type TopicBatch struct {
	Title    string
	Summary  string
	Messages []Message
	Vectors  [][]float32
}

// Storer defines the interface for knowledge-base persistence.
// SQLiteStore is the sole implementation.
type Storer interface {
	Persist(batches []TopicBatch, reset bool) error
	Reset() error

	Topics() ([]Topic, error)
	MessagesForTopic(topicID int64) ([]Message, error)
	CountTopics() (int, error)
	CountMessages() (int, error)

	Close() error
}
