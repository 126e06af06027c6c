// Package store persists analysis records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register the pure-Go sqlite driver

	"github.com/ppiankov/cvtriage/internal/model"
)

// MaxTextChars caps the document text kept per candidate
const MaxTextChars = 15000

// Fixed-width so created_at sorts as text
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS candidates (
	id               TEXT PRIMARY KEY,
	source           TEXT NOT NULL DEFAULT '',
	role             TEXT NOT NULL DEFAULT '',
	nombre           TEXT NOT NULL DEFAULT '',
	email            TEXT NOT NULL DEFAULT '',
	perfil           TEXT NOT NULL DEFAULT '',
	skills           TEXT NOT NULL DEFAULT '',
	experiencia      TEXT NOT NULL DEFAULT '',
	seniority        TEXT NOT NULL DEFAULT '',
	area_profesional TEXT NOT NULL DEFAULT '',
	"match"          REAL NOT NULL DEFAULT 0,
	error            TEXT NOT NULL DEFAULT '',
	raw              TEXT NOT NULL DEFAULT '',
	cv_text          TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_candidates_email ON candidates(email);
`

// Candidate is a stored record together with its document text
type Candidate struct {
	Record    *model.Record
	CVText    string
	CreatedAt time.Time
}

// SQLiteStore is a candidate store backed by a single SQLite file
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (or creates) the database at dsn and applies the schema
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("store DSN is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; batch workers share it
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Debug("store.open", "dsn", dsn)
	return &SQLiteStore{db: db, logger: logger, now: time.Now}, nil
}

// Save inserts rec, replacing any row with the same ID. A record without an
// ID gets a new one.
func (s *SQLiteStore) Save(ctx context.Context, rec *model.Record, text string) error {
	if rec == nil {
		return errors.New("nil record")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	createdAt := rec.AnalyzedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	const query = `
INSERT OR REPLACE INTO candidates (
	id, source, role, nombre, email, perfil, skills, experiencia, seniority,
	area_profesional, "match", error, raw, cv_text, created_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Source,
		rec.Role,
		rec.Nombre,
		rec.Email,
		rec.Perfil,
		strings.Join(rec.Skills, ", "),
		rec.Experiencia,
		rec.Seniority,
		rec.AreaProfesional,
		rec.Match,
		rec.Error,
		rec.Raw,
		capRunes(text, MaxTextChars),
		createdAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("save candidate %s: %w", rec.ID, err)
	}

	s.logger.Debug("store.save", "id", rec.ID, "source", rec.Source, "failed", rec.Failed())
	return nil
}

// List returns every stored candidate, newest first
func (s *SQLiteStore) List(ctx context.Context) ([]*Candidate, error) {
	const query = `
SELECT id, source, role, nombre, email, perfil, skills, experiencia, seniority,
       area_profesional, "match", error, raw, cv_text, created_at
FROM candidates
ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []*Candidate
	for rows.Next() {
		var (
			rec       model.Record
			skills    string
			text      string
			createdAt string
		)
		if err := rows.Scan(
			&rec.ID, &rec.Source, &rec.Role, &rec.Nombre, &rec.Email, &rec.Perfil,
			&skills, &rec.Experiencia, &rec.Seniority, &rec.AreaProfesional,
			&rec.Match, &rec.Error, &rec.Raw, &text, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		rec.Skills = splitSkills(skills)
		ts, err := time.Parse(timeFormat, createdAt)
		if err != nil {
			s.logger.Warn("store.list.bad_timestamp", "id", rec.ID, "value", createdAt)
		}
		rec.AnalyzedAt = ts

		out = append(out, &Candidate{Record: &rec, CVText: text, CreatedAt: ts})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return out, nil
}

// Clear deletes every candidate and returns how many were removed
func (s *SQLiteStore) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM candidates`)
	if err != nil {
		return 0, fmt.Errorf("clear candidates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear candidates: %w", err)
	}
	s.logger.Info("store.clear", "deleted", n)
	return n, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func splitSkills(s string) []string {
	skills := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			skills = append(skills, part)
		}
	}
	return skills
}

func capRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
