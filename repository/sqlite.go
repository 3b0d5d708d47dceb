package repository

import (
	"context"
	"database/sql"
	"dreamreel/entities"
	"encoding/json"
	"fmt"
	"github.com/google/uuid"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS dreams (
	id TEXT PRIMARY KEY,
	user_title TEXT,
	ai_title TEXT NOT NULL,
	ai_description TEXT NOT NULL DEFAULT '',
	transcript_raw TEXT NOT NULL,
	transcript_json TEXT NOT NULL DEFAULT '{}',
	video_url TEXT NOT NULL,
	video_thumbnail TEXT,
	created_at INTEGER NOT NULL,
	emojis TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_dreams_created_at ON dreams (created_at DESC);
`

// SQLiteDreamStore keeps dreams in a local SQLite table. created_at is stored
// as unix nanoseconds so ordering is exact.
type SQLiteDreamStore struct {
	path string
	db   *sql.DB
}

func NewSQLiteDreamStore(path string) *SQLiteDreamStore {
	return &SQLiteDreamStore{path: path}
}

func (s *SQLiteDreamStore) Open(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", s.path))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return fmt.Errorf("migrate database: %w", err)
	}
	s.db = db
	return nil
}

func (s *SQLiteDreamStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteDreamStore) List(ctx context.Context) ([]entities.Dream, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_title, ai_title, ai_description, transcript_raw, transcript_json,
		       video_url, video_thumbnail, created_at, emojis
		FROM dreams
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query dreams: %w", err)
	}
	defer rows.Close()

	dreams := []entities.Dream{}
	for rows.Next() {
		var (
			d           entities.Dream
			id          string
			userTitle   sql.NullString
			thumbnail   sql.NullString
			structured  string
			emojis      string
			createdAtNs int64
		)
		if err := rows.Scan(&id, &userTitle, &d.AITitle, &d.AIDescription, &d.TranscriptRaw, &structured,
			&d.VideoURL, &thumbnail, &createdAtNs, &emojis); err != nil {
			return nil, fmt.Errorf("scan dream: %w", err)
		}
		if d.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse dream id %q: %w", id, err)
		}
		if userTitle.Valid {
			d.UserTitle = &userTitle.String
		}
		if thumbnail.Valid {
			d.VideoThumbnail = &thumbnail.String
		}
		if err := json.Unmarshal([]byte(structured), &d.TranscriptJSON); err != nil {
			return nil, fmt.Errorf("decode transcript_json: %w", err)
		}
		if err := json.Unmarshal([]byte(emojis), &d.Emojis); err != nil {
			return nil, fmt.Errorf("decode emojis: %w", err)
		}
		d.CreatedAt = time.Unix(0, createdAtNs).UTC()
		dreams = append(dreams, d)
	}
	return dreams, rows.Err()
}

func (s *SQLiteDreamStore) Insert(ctx context.Context, d entities.Dream) error {
	structured, err := json.Marshal(d.TranscriptJSON)
	if err != nil {
		return err
	}
	emojis, err := json.Marshal(d.Emojis)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dreams (id, user_title, ai_title, ai_description, transcript_raw, transcript_json,
		                    video_url, video_thumbnail, created_at, emojis)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID.String(), nullString(d.UserTitle), d.AITitle, d.AIDescription, d.TranscriptRaw, string(structured),
		d.VideoURL, nullString(d.VideoThumbnail), d.CreatedAt.UnixNano(), string(emojis))
	if err != nil {
		return fmt.Errorf("insert dream: %w", err)
	}
	return nil
}

func (s *SQLiteDreamStore) Update(ctx context.Context, id uuid.UUID, patch entities.DreamPatch) error {
	if patch.UserTitle == nil {
		return s.exists(ctx, id)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE dreams SET user_title = ? WHERE id = ?`, *patch.UserTitle, id.String())
	if err != nil {
		return fmt.Errorf("update dream: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteDreamStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dreams WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete dream: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteDreamStore) exists(ctx context.Context, id uuid.UUID) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM dreams WHERE id = ?`, id.String()).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
