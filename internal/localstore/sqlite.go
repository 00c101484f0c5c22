package localstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"Tempo/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// SQLite implements Store and Meta on a single SQLite file.
type SQLite struct {
	db *sql.DB
}

// Open creates or opens the store at path. The parent directory is created
// when missing. The database runs in WAL mode with a single writer.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("localstore: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("localstore: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore: connect: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("localstore: %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore: schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const rowColumns = `id, owner_id, state, dirty, parent_id, task_id, project_id, sort_order, updated_at, data`

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (Row, error) {
	var (
		r       Row
		state   string
		dirty   int
		updated int64
		data    string
	)
	if err := sc.Scan(&r.ID, &r.OwnerID, &state, &dirty, &r.ParentID, &r.TaskID, &r.ProjectID,
		&r.Order, &updated, &data); err != nil {
		return Row{}, err
	}
	r.State = domain.LifecycleState(state)
	r.Dirty = dirty != 0
	if updated != 0 {
		r.UpdatedAt = time.UnixMilli(updated).UTC()
	}
	r.Data = []byte(data)
	return r, nil
}

func (s *SQLite) Get(ctx context.Context, c Collection, id string) (Row, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+rowColumns+` FROM records WHERE collection = ? AND id = ?`, string(c), id)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, fmt.Errorf("%s/%s: %w", c, id, domain.ErrNotFound)
	}
	if err != nil {
		return Row{}, fmt.Errorf("localstore: get %s/%s: %w", c, id, err)
	}
	return r, nil
}

func whereClause(c Collection, f Filter) (string, []any) {
	conds := []string{"collection = ?"}
	args := []any{string(c)}
	if f.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.State != "" {
		conds = append(conds, "state = ?")
		args = append(args, string(f.State))
	}
	if f.Dirty != nil {
		conds = append(conds, "dirty = ?")
		args = append(args, boolInt(*f.Dirty))
	}
	if f.ParentID != "" {
		conds = append(conds, "parent_id = ?")
		args = append(args, f.ParentID)
	}
	if f.TaskID != "" {
		conds = append(conds, "task_id = ?")
		args = append(args, f.TaskID)
	}
	if f.ProjectID != "" {
		conds = append(conds, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *SQLite) GetAll(ctx context.Context, c Collection, f Filter) ([]Row, error) {
	where, args := whereClause(c, f)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+rowColumns+` FROM records`+where+` ORDER BY sort_order, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("localstore: list %s: %w", c, err)
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("localstore: scan %s: %w", c, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Count(ctx context.Context, c Collection, f Filter) (int, error) {
	where, args := whereClause(c, f)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("localstore: count %s: %w", c, err)
	}
	return n, nil
}

const upsertRow = `
INSERT INTO records
  (collection, id, owner_id, state, dirty, parent_id, task_id, project_id, sort_order, updated_at, data)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(collection, id) DO UPDATE SET
  owner_id=excluded.owner_id,
  state=excluded.state,
  dirty=excluded.dirty,
  parent_id=excluded.parent_id,
  task_id=excluded.task_id,
  project_id=excluded.project_id,
  sort_order=excluded.sort_order,
  updated_at=excluded.updated_at,
  data=excluded.data
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putRow(ctx context.Context, db execer, c Collection, r Row) error {
	if r.ID == "" {
		return fmt.Errorf("localstore: put %s: empty id", c)
	}
	state := r.State
	if state == "" {
		state = domain.StateActive
	}
	var updated int64
	if !r.UpdatedAt.IsZero() {
		updated = r.UpdatedAt.UnixMilli()
	}
	_, err := db.ExecContext(ctx, upsertRow,
		string(c), r.ID, r.OwnerID, string(state), boolInt(r.Dirty),
		r.ParentID, r.TaskID, r.ProjectID, r.Order, updated, string(r.Data))
	if err != nil {
		return fmt.Errorf("localstore: put %s/%s: %w", c, r.ID, err)
	}
	return nil
}

func (s *SQLite) Put(ctx context.Context, c Collection, r Row) error {
	return putRow(ctx, s.db, c, r)
}

func (s *SQLite) PutAll(ctx context.Context, c Collection, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("localstore: begin: %w", err)
	}
	defer tx.Rollback()
	for _, r := range rows {
		if err := putRow(ctx, tx, c, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) Delete(ctx context.Context, c Collection, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, string(c), id); err != nil {
		return fmt.Errorf("localstore: delete %s/%s: %w", c, id, err)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context, c Collection) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, string(c)); err != nil {
		return fmt.Errorf("localstore: clear %s: %w", c, err)
	}
	return nil
}

func (s *SQLite) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("localstore: meta %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLite) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("localstore: set meta %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) DeleteMeta(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM meta WHERE key = ?`, key); err != nil {
		return fmt.Errorf("localstore: delete meta %s: %w", key, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
