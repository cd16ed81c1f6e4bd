package pgextdemo

import (
	"context"
	"errors"
	"sort"
)

// Extensions the demo installs.
const (
	ExtTrgm           = "pg_trgm"
	ExtStatStatements = "pg_stat_statements"
)

// DemoExtensions lists the extensions setup installs, in install order.
var DemoExtensions = []string{ExtTrgm, ExtStatStatements}

// Registry is the set of extensions installed before the run began.
// It is built once during validation and never changed afterwards.
type Registry struct {
	names map[string]struct{}
}

// NewRegistry builds a Registry from extension names.
func NewRegistry(names ...string) Registry {
	r := Registry{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		r.names[n] = struct{}{}
	}
	return r
}

// Has reports whether name was installed before the run.
func (r Registry) Has(name string) bool {
	_, ok := r.names[name]
	return ok
}

// Names returns the registered extensions in sorted order.
func (r Registry) Names() []string {
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Without returns a copy of r with the given names removed.
func (r Registry) Without(names ...string) Registry {
	out := NewRegistry(r.Names()...)
	for _, n := range names {
		delete(out.names, n)
	}
	return out
}

const installedExtensionsSQL = `
select extname
  from pg_catalog.pg_extension;
`

// loadRegistry reads every installed extension and rolls back the read.
func loadRegistry(ctx context.Context, s Session) (Registry, error) {
	rows, err := s.Query(ctx, installedExtensionsSQL)
	if err != nil {
		return Registry{}, errors.Join(err, s.Rollback(ctx))
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.String("extname"))
	}
	return NewRegistry(names...), s.Rollback(ctx)
}
