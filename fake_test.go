package pgextdemo_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strings"
	"sync"

	"github.com/bcomnes/pgextdemo"
)

// dbState is the part of the database the lifecycle changes.
type dbState struct {
	schema     bool
	role       bool
	extensions map[string]bool
	addrRows   int
}

func (s dbState) clone() dbState {
	s.extensions = maps.Clone(s.extensions)
	return s
}

// fakeDB emulates the statements the demo issues, with transactions that
// only become visible on commit.
type fakeDB struct {
	mu        sync.Mutex
	preload   string
	state     dbState
	failOn    map[string]error
	stmts     []string
	openURLs  []string
	sessions  []*fakeSession
	failOpens map[string]error
}

func newFakeDB(preload string, extensions ...string) *fakeDB {
	db := &fakeDB{
		preload:   preload,
		state:     dbState{extensions: map[string]bool{}},
		failOn:    map[string]error{},
		failOpens: map[string]error{},
	}
	for _, e := range extensions {
		db.state.extensions[e] = true
	}
	return db
}

// fail makes every statement containing substr return an error.
func (db *fakeDB) fail(substr string) {
	db.failOn[substr] = fmt.Errorf("forced failure on %q", substr)
}

func (db *fakeDB) open(ctx context.Context, url string) (pgextdemo.Session, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.openURLs = append(db.openURLs, url)
	for substr, err := range db.failOpens {
		if strings.Contains(url, substr) {
			return nil, err
		}
	}
	user := "postgres"
	if strings.Contains(url, pgextdemo.MonitorRole+":") {
		user = pgextdemo.MonitorRole
	}
	s := &fakeSession{db: db, user: user}
	db.sessions = append(db.sessions, s)
	return s, nil
}

// count returns how many executed statements contain substr.
func (db *fakeDB) count(substr string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, s := range db.stmts {
		if strings.Contains(s, substr) {
			n++
		}
	}
	return n
}

func (db *fakeDB) snapshot() dbState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.clone()
}

type fakeSession struct {
	db         *fakeDB
	user       string
	working    *dbState
	autocommit bool
	closed     bool
}

var extNameRE = regexp.MustCompile(`extension (?:if exists )?"?([a-z_]+)"?`)

func (s *fakeSession) begin() *dbState {
	if s.autocommit {
		return &s.db.state
	}
	if s.working == nil {
		w := s.db.state.clone()
		s.working = &w
	}
	return s.working
}

func (s *fakeSession) check(ctx context.Context, query string) error {
	if s.closed {
		return errors.New("session closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.stmts = append(s.db.stmts, query)
	for substr, err := range s.db.failOn {
		if strings.Contains(query, substr) {
			return err
		}
	}
	return nil
}

func (s *fakeSession) Exec(ctx context.Context, query string, args ...any) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.check(ctx, query); err != nil {
		return err
	}
	st := s.begin()
	q := strings.TrimSpace(query)
	switch {
	case strings.HasPrefix(q, "create schema"):
		if st.schema {
			return errors.New("schema \"__demo\" already exists")
		}
		st.schema = true
	case strings.HasPrefix(q, "drop schema if exists"):
		st.schema = false
		st.addrRows = 0
	case strings.HasPrefix(q, "create user"):
		if st.role {
			return errors.New("role \"__monitor\" already exists")
		}
		st.role = true
	case strings.HasPrefix(q, "drop role if exists"):
		st.role = false
	case strings.HasPrefix(q, "revoke"):
		if !st.role {
			return errors.New("role \"__monitor\" does not exist")
		}
		if strings.Contains(q, "function") || strings.Contains(q, "schema") {
			if !st.schema {
				return errors.New("schema \"__demo\" does not exist")
			}
		}
	case strings.HasPrefix(q, "create extension"):
		name := extNameRE.FindStringSubmatch(q)[1]
		if st.extensions[name] {
			return fmt.Errorf("extension %q already exists", name)
		}
		st.extensions[name] = true
	case strings.HasPrefix(q, "drop extension if exists"):
		delete(st.extensions, extNameRE.FindStringSubmatch(q)[1])
	}
	return nil
}

func (s *fakeSession) Query(ctx context.Context, query string, args ...any) ([]pgextdemo.Row, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.check(ctx, query); err != nil {
		return nil, err
	}
	st := s.begin()
	switch {
	case strings.Contains(query, "shared_preload_libraries"):
		return []pgextdemo.Row{{Columns: []string{"setting"}, Values: []any{s.db.preload}}}, nil
	case strings.Contains(query, "pg_catalog.pg_extension"):
		var rows []pgextdemo.Row
		for name := range st.extensions {
			if strings.Contains(query, "where extname in") && !strings.Contains(query, "'"+name+"'") {
				continue
			}
			rows = append(rows, pgextdemo.Row{Columns: []string{"extname"}, Values: []any{name}})
		}
		return rows, nil
	case strings.HasPrefix(query, "explain analyze"):
		return []pgextdemo.Row{{Columns: []string{"QUERY PLAN"}, Values: []any{"Seq Scan on addr"}}}, nil
	case strings.Contains(query, "current_user"):
		return []pgextdemo.Row{{Columns: []string{"current_user"}, Values: []any{s.user}}}, nil
	case strings.Contains(query, "pg_stat_statements"):
		text := "-- QUERY1 select street, count(*) from __demo.addr"
		if s.user == pgextdemo.MonitorRole && !strings.Contains(query, "__demo.pg_stat_statements()") {
			text = "<insufficient privilege>"
		}
		return []pgextdemo.Row{{Columns: []string{"calls", "query"}, Values: []any{int64(5), text}}}, nil
	}
	return nil, nil
}

func (s *fakeSession) Commit(ctx context.Context) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.working != nil {
		s.db.state = *s.working
		s.working = nil
	}
	return nil
}

func (s *fakeSession) Rollback(ctx context.Context) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.working = nil
	return nil
}

func (s *fakeSession) SetAutocommit(ctx context.Context, on bool) error {
	if s.working != nil {
		return errors.New("autocommit cannot change while a transaction is open")
	}
	s.autocommit = on
	return nil
}

func (s *fakeSession) CopyFrom(ctx context.Context, table []string, columns []string, rows [][]any) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.working != nil {
		return 0, errors.New("copy cannot run while a transaction is open")
	}
	if err := s.check(ctx, "copy "+strings.Join(table, ".")); err != nil {
		return 0, err
	}
	s.db.state.addrRows += len(rows)
	return int64(len(rows)), nil
}

func (s *fakeSession) Info() pgextdemo.ConnInfo {
	return pgextdemo.ConnInfo{Host: "localhost", Port: 5432, Database: "postgres", User: s.user}
}

func (s *fakeSession) Close() error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.closed = true
	return nil
}

// memLedger is an in-memory pgextdemo.Ledger.
type memLedger struct {
	owned map[string]map[string]bool
}

func newMemLedger() *memLedger {
	return &memLedger{owned: map[string]map[string]bool{}}
}

func (l *memLedger) Owned(ctx context.Context, target string) ([]string, error) {
	var out []string
	for name := range l.owned[target] {
		out = append(out, name)
	}
	return out, nil
}

func (l *memLedger) Record(ctx context.Context, target string, extensions []string) error {
	if l.owned[target] == nil {
		l.owned[target] = map[string]bool{}
	}
	for _, e := range extensions {
		l.owned[target][e] = true
	}
	return nil
}

func (l *memLedger) Forget(ctx context.Context, target string, extensions []string) error {
	for _, e := range extensions {
		delete(l.owned[target], e)
	}
	return nil
}
