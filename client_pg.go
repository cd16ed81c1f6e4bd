package pgextdemo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgconn/ctxwatch"
	"github.com/jackc/pgx/v5/stdlib"
)

const applicationName = "pg_extension_demo"

// cancelDeadlineDelay bounds how long an interrupted statement may take to
// acknowledge the server-side cancel before the connection is dropped.
const cancelDeadlineDelay = 10 * time.Second

// runner is satisfied by both *sql.Conn and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PostgresSession implements Session on a single pinned connection opened
// through the pgx database/sql driver.
type PostgresSession struct {
	db         *sql.DB
	conn       *sql.Conn
	tx         *sql.Tx
	autocommit bool
	info       ConnInfo
	log        *slog.Logger
}

// OpenPostgres returns an Opener producing PostgresSessions that log
// statements to log.
func OpenPostgres(log *slog.Logger) Opener {
	return func(ctx context.Context, connURL string) (Session, error) {
		return NewPostgresSession(ctx, connURL, log)
	}
}

// NewPostgresSession connects to connURL and pins one connection.
func NewPostgresSession(ctx context.Context, connURL string, log *slog.Logger) (*PostgresSession, error) {
	cfg, err := pgx.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection url: %w", err)
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = map[string]string{}
	}
	if _, ok := cfg.RuntimeParams["application_name"]; !ok {
		cfg.RuntimeParams["application_name"] = applicationName
	}
	// A cancelled context cancels the running statement on the server and
	// keeps the connection, so teardown can still use it after an interrupt.
	cfg.BuildContextWatcherHandler = func(pgConn *pgconn.PgConn) ctxwatch.Handler {
		return &pgconn.CancelRequestContextWatcherHandler{
			Conn:          pgConn,
			DeadlineDelay: cancelDeadlineDelay,
		}
	}

	db := stdlib.OpenDB(*cfg)
	db.SetMaxOpenConns(1)
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &PostgresSession{
		db:   db,
		conn: conn,
		info: ConnInfo{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Database: cfg.Database,
			User:     cfg.User,
		},
		log: log,
	}, nil
}

func (s *PostgresSession) runner(ctx context.Context) (runner, error) {
	if s.autocommit {
		return s.conn, nil
	}
	if s.tx == nil {
		// The transaction outlives cancellation of ctx; it is resolved only
		// by Commit or Rollback.
		tx, err := s.conn.BeginTx(context.WithoutCancel(ctx), nil)
		if err != nil {
			return nil, fmt.Errorf("begin: %w", err)
		}
		s.tx = tx
	}
	return s.tx, nil
}

// Exec runs a statement that returns no rows.
func (s *PostgresSession) Exec(ctx context.Context, query string, args ...any) error {
	s.logStatement(ctx, query, args)
	r, err := s.runner(ctx)
	if err != nil {
		return err
	}
	_, err = r.ExecContext(ctx, query, args...)
	return interrupted(ctx, err)
}

// Query runs a statement and collects every row.
func (s *PostgresSession) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	s.logStatement(ctx, query, args)
	r, err := s.runner(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, interrupted(ctx, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, Row{Columns: cols, Values: vals})
	}
	return out, interrupted(ctx, rows.Err())
}

// Commit commits the open transaction, if any.
func (s *PostgresSession) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	return tx.Commit()
}

// Rollback rolls back the open transaction, if any.
func (s *PostgresSession) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// SetAutocommit toggles autocommit. It fails while a transaction is open.
func (s *PostgresSession) SetAutocommit(ctx context.Context, on bool) error {
	if s.tx != nil {
		return errors.New("autocommit cannot change while a transaction is open")
	}
	s.autocommit = on
	return nil
}

// CopyFrom bulk loads rows using the COPY protocol.
func (s *PostgresSession) CopyFrom(ctx context.Context, table []string, columns []string, rows [][]any) (int64, error) {
	if s.tx != nil {
		return 0, errors.New("copy cannot run while a transaction is open")
	}
	s.log.DebugContext(ctx, "Copying rows", "table", strings.Join(table, "."), "rows", len(rows))
	var n int64
	err := s.conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		var err error
		n, err = c.Conn().CopyFrom(ctx, pgx.Identifier(table), columns, pgx.CopyFromRows(rows))
		return err
	})
	return n, interrupted(ctx, err)
}

// interrupted ties a statement error to the cancellation that caused it. The
// server reports a cancelled statement as an ordinary error.
func interrupted(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil || errors.Is(err, ctx.Err()) {
		return err
	}
	return fmt.Errorf("%w: %w", ctx.Err(), err)
}

// Info reports where the session is connected.
func (s *PostgresSession) Info() ConnInfo {
	return s.info
}

// Close rolls back any open transaction and releases the connection.
func (s *PostgresSession) Close() error {
	var errs []error
	if s.tx != nil {
		if err := s.Rollback(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *PostgresSession) logStatement(ctx context.Context, query string, args []any) {
	if !s.log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	msg := "Executing SQL:\n" + FormatSQL(query)
	if len(args) > 0 {
		s.log.DebugContext(ctx, msg, "params", args)
		return
	}
	s.log.DebugContext(ctx, msg)
}

// quoteIdent quotes a single SQL identifier.
func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// quoteLiteral quotes a string constant for statements that do not accept
// bind parameters, such as CREATE ROLE. Backslashes force an E'' literal so
// the result does not depend on standard_conforming_strings.
func quoteLiteral(s string) string {
	s = strings.ReplaceAll(s, "'", "''")
	if strings.Contains(s, `\`) {
		return "E'" + strings.ReplaceAll(s, `\`, `\\`) + "'"
	}
	return "'" + s + "'"
}
