package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/port"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const memoryDSN = ":memory:"

// Store keeps the session transcript and the action run history.
type Store struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA foreign_keys = ON",
			}
			if dsn != memoryDSN {
				pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

// NewStore opens the store at path. The default ":memory:" keeps everything
// for the lifetime of the process only.
func NewStore(path string) (*Store, error) {
	registerHook()

	dsn := path
	if dsn == "" {
		dsn = memoryDSN
	} else if dsn != memoryDSN {
		dsn = filepath.Clean(dsn)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: an in-memory database exists per connection, and
	// SQLite allows a single writer anyway.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetLogger(goose.NopLogger())
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) AppendLog(message string) (domain.LogLine, error) {
	ctx := context.Background()
	at := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `INSERT INTO transcript (at, message) VALUES (?, ?)`, at, message)
	if err != nil {
		return domain.LogLine{}, err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return domain.LogLine{}, err
	}
	return domain.LogLine{Seq: seq, At: at, Message: message}, nil
}

func (s *Store) ListLogs(afterSeq int64) ([]domain.LogLine, error) {
	ctx := context.Background()
	rows, err := s.db.QueryContext(ctx, `SELECT seq, at, message FROM transcript WHERE seq > ? ORDER BY seq`, afterSeq)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var lines []domain.LogLine
	for rows.Next() {
		var l domain.LogLine
		if err := rows.Scan(&l.Seq, &l.At, &l.Message); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) CountLogs() (int64, error) {
	var n int64
	err := s.db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM transcript`).Scan(&n)
	return n, err
}

func (s *Store) SaveRun(r *domain.Run) error {
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, action, namespace, input_name, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Action), r.Namespace, r.InputName, string(r.Status), r.StartedAt.UTC(),
	)
	return err
}

func (s *Store) UpdateRun(r *domain.Run) error {
	ctx := context.Background()
	var finished sql.NullTime
	if !r.FinishedAt.IsZero() {
		finished = sql.NullTime{Time: r.FinishedAt.UTC(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, failure_kind = ?, error_message = ?, output_size = ?, output_digest = ?, finished_at = ?
		WHERE id = ?`,
		string(r.Status), string(r.FailureKind), r.ErrorMessage, r.OutputSize, r.OutputDigest, finished, r.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const runColumns = `id, action, namespace, input_name, status, failure_kind, error_message, output_size, output_digest, started_at, finished_at`

func (s *Store) GetRun(id string) (*domain.Run, error) {
	row := s.db.QueryRowContext(context.Background(), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *Store) ListRuns() ([]*domain.Run, error) {
	rows, err := s.db.QueryContext(context.Background(), `SELECT `+runColumns+` FROM runs ORDER BY rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var runs []*domain.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.Run, error) {
	var (
		r        domain.Run
		action   string
		status   string
		kind     string
		finished sql.NullTime
	)
	err := sc.Scan(&r.ID, &action, &r.Namespace, &r.InputName, &status, &kind,
		&r.ErrorMessage, &r.OutputSize, &r.OutputDigest, &r.StartedAt, &finished)
	if err != nil {
		return nil, err
	}
	r.Action = domain.Action(action)
	r.Status = domain.RunStatus(status)
	r.FailureKind = domain.FailureKind(kind)
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return &r, nil
}

var _ port.SessionStore = (*Store)(nil)
