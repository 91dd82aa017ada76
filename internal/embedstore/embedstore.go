// Package embedstore implements the derived embeddings database
// (spec.md §4.6): a chunks table keyed by conversation/source ids with
// packed float32 vectors, and an index_meta table recording the
// embedding backend/model/dimension the index was built with so an
// incremental update can refuse to mix incompatible vector spaces.
// Schema/opening-semantics style mirrors internal/store: apply once on
// a fresh file, WAL, single writer.
package embedstore

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	_ "modernc.org/sqlite"

	"github.com/kgruel/siftd-sub000/internal/idgen"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	chunk_type TEXT NOT NULL,
	text TEXT NOT NULL,
	embedding BLOB NOT NULL,
	token_count INTEGER NOT NULL DEFAULT 0,
	source_ids TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_conversation ON chunks(conversation_id);

CREATE TABLE IF NOT EXISTS index_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store wraps the embeddings database connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the embeddings store at path.
func Open(path string) (*Store, error) {
	isNew := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		isNew = true
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening embeddings store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		return nil, fmt.Errorf("enabling WAL on embeddings store: %w", err)
	}
	if isNew {
		if _, err := db.Exec(schemaSQL); err != nil {
			return nil, fmt.Errorf("applying embeddings schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }
func (s *Store) DB() *sql.DB  { return s.db }

// EncodeVector packs a float32 vector into big-endian bytes (spec.md
// §4.6.1 "Vector encoding").
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.BigEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks a big-endian float32 vector.
func DecodeVector(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(buf[i*4:]))
	}
	return out
}

// Chunk is one row of the chunks table.
type Chunk struct {
	ID             string
	ConversationID string
	ChunkType      string
	Text           string
	Embedding      []float32
	TokenCount     int
	SourceIDs      []string
	CreatedAt      string
}

// InsertChunk writes one chunk row, assigning an id if absent.
func (s *Store) InsertChunk(c *Chunk) error {
	if c.ID == "" {
		c.ID = idgen.New("chunk")
	}
	sourceJSON, err := json.Marshal(c.SourceIDs)
	if err != nil {
		return fmt.Errorf("encoding chunk source_ids: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO chunks (id, conversation_id, chunk_type, text, embedding, token_count, source_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ConversationID, c.ChunkType, c.Text, EncodeVector(c.Embedding), c.TokenCount, string(sourceJSON), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting chunk: %w", err)
	}
	return nil
}

// DeleteChunksForConversation removes every chunk belonging to
// conversationID, used when re-indexing a conversation from scratch.
func (s *Store) DeleteChunksForConversation(conversationID string) error {
	_, err := s.db.Exec(`DELETE FROM chunks WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("deleting chunks for conversation %s: %w", conversationID, err)
	}
	return nil
}

// AllChunks returns every chunk in the store, for Stage D's in-memory
// cosine scan (spec.md §4.6.2: no ANN index, a full linear scan over
// the embeddings database is the documented design).
func (s *Store) AllChunks() ([]Chunk, error) {
	rows, err := s.db.Query(`SELECT id, conversation_id, chunk_type, text, embedding, token_count, source_ids, created_at FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		var embedding []byte
		var sourceJSON string
		if err := rows.Scan(&c.ID, &c.ConversationID, &c.ChunkType, &c.Text, &embedding, &c.TokenCount, &sourceJSON, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Embedding = DecodeVector(embedding)
		_ = json.Unmarshal([]byte(sourceJSON), &c.SourceIDs)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Meta reads an index_meta value, returning "" if unset.
func (s *Store) Meta(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM index_meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading index_meta %q: %w", key, err)
	}
	return value, nil
}

// SetMeta upserts an index_meta value.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO index_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("writing index_meta %q: %w", key, err)
	}
	return nil
}

// CheckCompatible implements spec.md §3.7's invariant: an incremental
// index run must refuse to mix embedding backends/models/dimensions.
// A store with no recorded meta is compatible with anything (first
// run); otherwise backend, model, and dimension must all match.
func (s *Store) CheckCompatible(backend, model string, dimension int) error {
	existingBackend, err := s.Meta("backend")
	if err != nil {
		return err
	}
	if existingBackend == "" {
		return nil
	}
	existingModel, err := s.Meta("model")
	if err != nil {
		return err
	}
	existingDim, err := s.Meta("dimension")
	if err != nil {
		return err
	}
	if existingBackend != backend || existingModel != model || existingDim != fmt.Sprint(dimension) {
		return fmt.Errorf("embeddings index was built with backend=%s model=%s dimension=%s, incompatible with backend=%s model=%s dimension=%d; run `siftd index --rebuild` to switch",
			existingBackend, existingModel, existingDim, backend, model, dimension)
	}
	return nil
}
