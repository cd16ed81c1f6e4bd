package pgextdemo

import (
	"context"
	"strings"
)

const preloadLibrariesSQL = `
select setting
  from pg_catalog.pg_settings
 where name = 'shared_preload_libraries';
`

// checkPreloadLibrary reports whether lib is listed in
// shared_preload_libraries. The read is rolled back.
func checkPreloadLibrary(ctx context.Context, s Session, lib string) (bool, error) {
	rows, err := s.Query(ctx, preloadLibrariesSQL)
	if err != nil {
		return false, err
	}
	if err := s.Rollback(ctx); err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	for _, name := range strings.Split(rows[0].String("setting"), ",") {
		if strings.Trim(strings.TrimSpace(name), `"`) == lib {
			return true, nil
		}
	}
	return false, nil
}

// validate checks the demo precondition and snapshots the installed
// extensions. ok is false when the precondition is not met; the registry is
// still loaded in that case for a teardown-only run.
func (d *Demo) validate(ctx context.Context, s Session, flags Flags) (reg Registry, ok bool, err error) {
	ok, err = checkPreloadLibrary(ctx, s, ExtStatStatements)
	if err != nil {
		return Registry{}, false, err
	}
	if !ok {
		d.log.WarnContext(ctx, "The shared library is not loaded.", "library", ExtStatStatements)
		d.log.ErrorContext(ctx, "The \"pg_stat_statements\" shared preload library is not present. This demo cannot run. Please restart the database engine with this library loaded.")
		if !flags.TeardownOnly {
			return Registry{}, false, nil
		}
	}
	reg, err = loadRegistry(ctx, s)
	if err != nil {
		return Registry{}, false, err
	}
	d.log.DebugContext(ctx, "Existing extensions", "extensions", reg.Names())
	return reg, ok, nil
}
