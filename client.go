package pgextdemo

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Session is a single transactional connection to the target database.
//
// While autocommit is off, the first statement opens a transaction that stays
// open until Commit or Rollback. Commit and Rollback are no-ops when no
// transaction is open.
type Session interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	SetAutocommit(ctx context.Context, on bool) error

	// CopyFrom bulk loads rows into table. It runs in its own implicit
	// transaction, so callers resolve the current one first.
	CopyFrom(ctx context.Context, table []string, columns []string, rows [][]any) (int64, error)

	Info() ConnInfo
	Close() error
}

// Opener opens a Session for a connection URL.
type Opener func(ctx context.Context, url string) (Session, error)

// ConnInfo describes where a Session is connected.
type ConnInfo struct {
	Host     string
	Port     uint16
	Database string
	User     string
}

// Target returns host:port/database, used to key ledger entries.
func (ci ConnInfo) Target() string {
	return fmt.Sprintf("%s:%d/%s", ci.Host, ci.Port, ci.Database)
}

// URLFor builds a connection URL for another identity on the same database.
func (ci ConnInfo) URLFor(user, password string) string {
	port := strconv.Itoa(int(ci.Port))
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(user, password),
		Host:   net.JoinHostPort(ci.Host, port),
		Path:   "/" + ci.Database,
	}
	if strings.HasPrefix(ci.Host, "/") {
		// Unix socket directories go in the query string.
		u.Host = ""
		u.RawQuery = url.Values{"host": {ci.Host}, "port": {port}}.Encode()
	}
	return u.String()
}

// Row is one result row with its column names in select order.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column, or nil when it is absent.
func (r Row) Get(name string) any {
	for i, col := range r.Columns {
		if col == name {
			return r.Values[i]
		}
	}
	return nil
}

// String returns the named column formatted as text. NULL becomes "".
func (r Row) String(name string) string {
	return valueString(r.Get(name))
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
