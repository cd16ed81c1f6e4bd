// SPDX-License-Identifier: MIT

// Package main provides pgextdemo‑pg, an interactive command‑line
// demonstration of the PostgreSQL extensions pg_trgm and
// pg_stat_statements.
//
// # Install
//
//	go install github.com/bcomnes/pgextdemo/pg@latest
//
// # Synopsis
//
//	pgextdemo-pg [options]
//
// # Flags
//
//	-url string              PostgreSQL connection URL. Overrides $PGEXTDEMO_URL,
//	                         $DATABASE_URL and the "url" field in -config.
//	-config string           Optional JSON file that mirrors pgextdemo.Config.
//	-no-init                 Skip setup; the demo objects must already exist.
//	-no-teardown             Keep the demo objects afterwards.
//	-only-teardown           Run only the cleanup phase.
//	-teardown-policy string  "stop" (default) or "continue" on a failing drop.
//	-no-pause                Don't wait for enter at prompts.
//	-state string            Extension ledger file, "off" to disable.
//	-log-level string        debug, info (default), warn, error.
//	-batches int             Address batches to load (default 10).
//	-batch-size int          Addresses per batch (default 100000).
//	-help                    Show built‑in help.
//	-version                 Print pgextdemo‑pg version.
//
// -no-teardown and -only-teardown are mutually exclusive.
//
// *Precedence:* flags ➜ environment ➜ -config file ➜ defaults
//
// # Environment
//
//	PGEXTDEMO_URL            Connection URL.
//	DATABASE_URL             Connection URL when PGEXTDEMO_URL is unset.
//	PGEXTDEMO_OTEL_ENDPOINT  OTLP/HTTP endpoint; enables tracing when set.
//
// Every other option has a PGEXTDEMO_* counterpart, e.g.
// PGEXTDEMO_NO_PAUSE=true.
//
// # Requirements
//
// The server must load pg_stat_statements through shared_preload_libraries
// and the connecting user must be allowed to create schemas, roles and
// extensions.  When the library is not loaded the demo reports it and exits
// without changing anything.
//
// # Examples
//
//	# Full demo, pausing at every step
//	pgextdemo-pg -url postgres://postgres@localhost:5432/postgres
//
//	# Leave everything in place for a second look
//	pgextdemo-pg -no-teardown
//
//	# Clean up after the previous command
//	pgextdemo-pg -only-teardown
//
// # Exit status
//
// 0 on success or when the precondition is not met, 1 on error, 130 when
// interrupted.  Teardown still runs after an error or interrupt unless
// -no-teardown is given.
package main
