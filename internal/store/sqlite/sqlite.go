// Package sqlite persists messages and downloads with the pure-Go SQLite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/xob0t/ProfileStencil/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	text       TEXT NOT NULL,
	active     INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS downloads (
	id         TEXT PRIMARY KEY,
	message_id TEXT,
	text       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS downloads_text ON downloads (text);
`

type store struct {
	db  *sql.DB
	log *zap.Logger
}

// New opens dsn and creates the tables if needed.
func New(ctx context.Context, dsn string, log *zap.Logger) (core.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &store{db: db, log: log}, nil
}

func (s *store) List(ctx context.Context, activeOnly bool) ([]core.Message, error) {
	q := "SELECT id, label, text, active, created_at, updated_at FROM messages"
	if activeOnly {
		q += " WHERE active = 1"
	}
	q += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.log.Warn("close message rows", zap.Error(cerr))
		}
	}()

	out := []core.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

func (s *store) Get(ctx context.Context, id string) (core.Message, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, label, text, active, created_at, updated_at FROM messages WHERE id = ?", id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Message{}, fmt.Errorf("message %s: %w", id, core.ErrNotFound)
	}
	return m, err
}

func (s *store) Create(ctx context.Context, m core.Message) (core.Message, error) {
	m, err := m.Normalize()
	if err != nil {
		return core.Message{}, err
	}
	m.ID = ulid.Make().String()
	m.CreatedAt = core.Now()
	m.UpdatedAt = m.CreatedAt

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO messages (id, label, text, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		m.ID, m.Label, m.Text, m.Active, m.CreatedAt.UnixMilli(), m.UpdatedAt.UnixMilli())
	if err != nil {
		s.log.Error("create message", zap.Error(err))
		return core.Message{}, fmt.Errorf("create message: %w", err)
	}

	s.log.Debug("message created", zap.String("message_id", m.ID))
	return m, nil
}

func (s *store) Update(ctx context.Context, m core.Message) (core.Message, error) {
	m, err := m.Normalize()
	if err != nil {
		return core.Message{}, err
	}
	m.UpdatedAt = core.Now()

	res, err := s.db.ExecContext(ctx,
		"UPDATE messages SET label = ?, text = ?, active = ?, updated_at = ? WHERE id = ?",
		m.Label, m.Text, m.Active, m.UpdatedAt.UnixMilli(), m.ID)
	if err != nil {
		return core.Message{}, fmt.Errorf("update message: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Message{}, fmt.Errorf("update message: %w", err)
	} else if n == 0 {
		return core.Message{}, fmt.Errorf("message %s: %w", m.ID, core.ErrNotFound)
	}

	s.log.Debug("message updated", zap.String("message_id", m.ID))
	return s.Get(ctx, m.ID)
}

func (s *store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("message %s: %w", id, core.ErrNotFound)
	}

	s.log.Debug("message deleted", zap.String("message_id", id))
	return nil
}

func (s *store) Record(ctx context.Context, d core.Download) (core.Download, error) {
	d.ID = ulid.Make().String()
	d.CreatedAt = core.Now()

	var messageID sql.NullString
	if d.MessageID != "" {
		messageID = sql.NullString{String: d.MessageID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO downloads (id, message_id, text, created_at) VALUES (?, ?, ?, ?)",
		d.ID, messageID, d.Text, d.CreatedAt.UnixMilli())
	if err != nil {
		return core.Download{}, fmt.Errorf("record download: %w", err)
	}
	return d, nil
}

func (s *store) Stats(ctx context.Context) ([]core.DownloadStat, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT text, COUNT(*) AS n FROM downloads GROUP BY text ORDER BY n DESC, text ASC")
	if err != nil {
		return nil, fmt.Errorf("download stats: %w", err)
	}
	defer rows.Close()

	out := []core.DownloadStat{}
	for rows.Next() {
		var st core.DownloadStat
		if err := rows.Scan(&st.Text, &st.Count); err != nil {
			return nil, fmt.Errorf("scan download stat: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (core.Message, error) {
	var (
		m                core.Message
		created, updated int64
	)
	if err := row.Scan(&m.ID, &m.Label, &m.Text, &m.Active, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, err
		}
		return m, fmt.Errorf("scan message: %w", err)
	}
	m.CreatedAt = time.UnixMilli(created).UTC()
	m.UpdatedAt = time.UnixMilli(updated).UTC()
	return m, nil
}
