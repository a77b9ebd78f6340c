package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/streamermode/dbopen"
	"github.com/hazyhaar/streamermode/domwatch/event"
)

// JournalSchema is the domain_events table.
const JournalSchema = `
CREATE TABLE IF NOT EXISTS domain_events (
	id        TEXT PRIMARY KEY,
	seq       INTEGER NOT NULL,
	topic     TEXT NOT NULL,
	page_id   TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	data      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_domain_events_topic ON domain_events(topic, seq);
`

// Journal appends every envelope to a SQLite table.
type Journal struct {
	db    *sql.DB
	owned bool
}

// OpenJournal opens (or creates) the journal database at path.
func OpenJournal(path string) (*Journal, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(JournalSchema))
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &Journal{db: db, owned: true}, nil
}

// NewJournal uses an already open database, creating the table if needed.
// The caller keeps ownership of db.
func NewJournal(db *sql.DB) (*Journal, error) {
	if _, err := db.Exec(JournalSchema); err != nil {
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Send(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env.Data)
	if err != nil {
		return fmt.Errorf("journal: marshal: %w", err)
	}
	_, err = dbopen.Exec(ctx, j.db,
		`INSERT INTO domain_events (id, seq, topic, page_id, timestamp, data) VALUES (?, ?, ?, ?, ?, ?)`,
		env.ID, env.Seq, string(env.Topic), env.PageID, env.Timestamp, string(data))
	if err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// Entry is a journaled event; Data is left encoded.
type Entry struct {
	ID        string
	Seq       uint64
	Topic     event.Topic
	PageID    string
	Timestamp int64
	Data      json.RawMessage
}

// Recent returns the last limit entries of topic (every topic when empty),
// oldest first.
func (j *Journal) Recent(ctx context.Context, topic event.Topic, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, seq, topic, page_id, timestamp, data FROM (
			SELECT * FROM domain_events
			WHERE ? = '' OR topic = ?
			ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, string(topic), string(topic), limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var topicStr, data string
		if err := rows.Scan(&e.ID, &e.Seq, &topicStr, &e.PageID, &e.Timestamp, &data); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Topic = event.Topic(topicStr)
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	if j.owned {
		return j.db.Close()
	}
	return nil
}
