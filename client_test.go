package pgextdemo

import (
	"net/url"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestConnInfoTarget(t *testing.T) {
	ci := ConnInfo{Host: "db.internal", Port: 5433, Database: "app", User: "admin"}
	if got, want := ci.Target(), "db.internal:5433/app"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestConnInfoURLFor(t *testing.T) {
	ci := ConnInfo{Host: "localhost", Port: 5432, Database: "postgres", User: "postgres"}
	got := ci.URLFor(MonitorRole, "p@ss word")

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse %q: %v", got, err)
	}
	if u.User.Username() != MonitorRole {
		t.Errorf("expected user %s, got %s", MonitorRole, u.User.Username())
	}
	if pw, _ := u.User.Password(); pw != "p@ss word" {
		t.Errorf("expected password to round-trip, got %q", pw)
	}
	if u.Host != "localhost:5432" || u.Path != "/postgres" {
		t.Errorf("unexpected host or path in %q", got)
	}
}

func TestConnInfoURLForIPv6(t *testing.T) {
	primary, err := pgx.ParseConfig("postgres://postgres@[::1]:5433/app")
	if err != nil {
		t.Fatalf("parse primary: %v", err)
	}
	ci := ConnInfo{Host: primary.Host, Port: primary.Port, Database: primary.Database}

	got := ci.URLFor(MonitorRole, "pw")
	cfg, err := pgx.ParseConfig(got)
	if err != nil {
		t.Fatalf("parse %q: %v", got, err)
	}
	if cfg.Host != "::1" || cfg.Port != 5433 {
		t.Errorf("expected host ::1 port 5433, got host %q port %d from %q", cfg.Host, cfg.Port, got)
	}
	if cfg.User != MonitorRole || cfg.Database != "app" {
		t.Errorf("expected %s on app, got %s on %s", MonitorRole, cfg.User, cfg.Database)
	}
}

func TestConnInfoURLForUnixSocket(t *testing.T) {
	ci := ConnInfo{Host: "/var/run/postgresql", Port: 5432, Database: "postgres"}
	u, err := url.Parse(ci.URLFor(MonitorRole, "pw"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "" {
		t.Errorf("expected no host authority, got %q", u.Host)
	}
	if got := u.Query().Get("host"); got != "/var/run/postgresql" {
		t.Errorf("expected socket directory in query, got %q", got)
	}
}

func TestRowAccessors(t *testing.T) {
	row := Row{Columns: []string{"extname", "calls", "raw", "missing"}, Values: []any{"pg_trgm", int64(4), []byte("x"), nil}}
	if got := row.String("extname"); got != "pg_trgm" {
		t.Errorf("expected pg_trgm, got %q", got)
	}
	if got := row.String("calls"); got != "4" {
		t.Errorf("expected 4, got %q", got)
	}
	if got := row.String("raw"); got != "x" {
		t.Errorf("expected x, got %q", got)
	}
	if got := row.String("missing"); got != "" {
		t.Errorf("expected empty string for NULL, got %q", got)
	}
	if got := row.Get("nope"); got != nil {
		t.Errorf("expected nil for an unknown column, got %v", got)
	}
}

func TestQuoting(t *testing.T) {
	if got, want := quoteIdent("pg_trgm"), `"pg_trgm"`; got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if got, want := quoteIdent(`we"ird`), `"we""ird"`; got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if got, want := quoteLiteral("it's"), `'it''s'`; got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	// Backslashes must not depend on standard_conforming_strings.
	if got, want := quoteLiteral(`pw\'x`), `E'pw\\''x'`; got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
