// SPDX-License-Identifier: MIT

// Package pgextdemo runs a guided, interactive demonstration of the
// PostgreSQL extensions pg_trgm and pg_stat_statements against a database
// you point it at.  It creates its own schema, role and extensions, runs
// illustrative queries, prints query plans and statistics, and removes
// everything it created afterwards.
//
// The companion CLI lives in the *pg* sub-package; the lifecycle logic is
// here.
//
// # Install
//
//	go install github.com/bcomnes/pgextdemo/pg@latest
//
// # Quick start
//
//	import (
//	    "context"
//	    "log/slog"
//	    "os"
//
//	    "github.com/bcomnes/pgextdemo"
//	)
//
//	func main() {
//	    log := slog.New(slog.NewTextHandler(os.Stderr, nil))
//	    cfg := pgextdemo.Config{URL: os.Getenv("DATABASE_URL")}
//
//	    d, _ := pgextdemo.NewDemo(cfg, pgextdemo.OpenPostgres(log),
//	        pgextdemo.WithConsole(pgextdemo.NewConsole(os.Stdout, os.Stdin, true)))
//	    d.Run(context.Background())
//	}
//
// # Lifecycle
//
// A run moves through these phases on a single connection:
//
//   - validate: pg_stat_statements must be in shared_preload_libraries;
//     the installed extensions are recorded.
//   - setup: schema __demo, missing extensions, search_path (one
//     transaction; skipped with NoInit).
//   - pg_trgm: address table, btree and trigram GIN indexes, plans.
//   - pg_stat_statements: statistics, masked and unmasked access through
//     the restricted role __monitor.
//   - teardown: revokes (best effort), drop schema and role, drop the
//     extensions the demo installed.
//
// Teardown runs after any failure or interrupt once validation has
// succeeded, unless NoTeardown is set.  Every teardown statement tolerates
// missing objects, so it can be repeated safely.  Extensions that existed
// before the run are never dropped.
//
// # Configuration
//
//   - URL: PostgreSQL connection URL
//   - NoInit: skip setup; objects must already exist
//   - NoTeardown: keep the demo objects
//   - OnlyTeardown: run cleanup only
//   - TeardownPolicy: "stop" at the first failing drop, or "continue"
//   - StatePath: extension ledger file; see package ledger
//
// Every field can also be set through a PGEXTDEMO_* environment variable.
//
// # Versioning
//
// A semantic version string is exposed as:
//
//	var Version = "vX.Y.Z"
package pgextdemo
