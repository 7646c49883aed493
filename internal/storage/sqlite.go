//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tgforward/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendForward(ctx context.Context, e ForwardEntry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO forwards(at, job, category, chat_id, message_id, payload, destinations, failed)
		 VALUES(?,?,?,?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), e.Job, e.Category, e.ChatID, e.MessageID,
		e.Payload, e.Destinations, e.Failed,
	)
	return err
}

func (s *sqliteStore) UpsertChats(ctx context.Context, chats []ChatEntry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if len(chats) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, c := range chats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chats(id, title, username, seen_at) VALUES(?,?,?,?)
			 ON CONFLICT(id) DO UPDATE SET title=excluded.title, username=excluded.username, seen_at=excluded.seen_at`,
			c.ID, c.Title, c.Username, c.SeenAt.Format(time.RFC3339Nano),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) ListChats(ctx context.Context) ([]ChatEntry, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, username, seen_at FROM chats ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatEntry
	for rows.Next() {
		var c ChatEntry
		var seen string
		if err := rows.Scan(&c.ID, &c.Title, &c.Username, &seen); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(time.RFC3339Nano, seen); perr == nil {
			c.SeenAt = t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
