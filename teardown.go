package pgextdemo

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// demoExtensionsSQL lists which demo extensions are currently installed.
var demoExtensionsSQL = fmt.Sprintf(`
select extname
  from pg_catalog.pg_extension
 where extname in (%s);
`, quotedList(DemoExtensions))

func quotedList(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = quoteLiteral(n)
	}
	return strings.Join(q, ", ")
}

// revokeSteps returns the best-effort revokes from the restricted role. Any
// of their targets may be missing.
func (d *Demo) revokeSteps(s Session) []Step {
	db := quoteIdent(s.Info().Database)
	return []Step{
		execStep(s, "revoke function", fmt.Sprintf("revoke all on function %s.pg_stat_statements() from %s;", DemoSchema, MonitorRole)),
		execStep(s, "revoke schema", fmt.Sprintf("revoke all on schema %s from %s;", DemoSchema, MonitorRole)),
		execStep(s, "revoke database", fmt.Sprintf("revoke all on database %s from %s;", db, MonitorRole)),
	}
}

// teardown removes every object the demo creates. Extensions in reg were
// installed before the run and are kept, unless the ledger shows the demo
// installed them in an earlier run.
func (d *Demo) teardown(ctx context.Context, s Session, reg Registry) error {
	d.log.InfoContext(ctx, "TEARDOWN START")
	target := s.Info().Target()
	keep := reg.Without(d.ownedExtensions(ctx, target)...)

	d.log.InfoContext(ctx, fmt.Sprintf("Revoking permissions from %s user", MonitorRole))
	for _, err := range runBestEffort(ctx, s, d.log, d.revokeSteps(s)) {
		d.log.DebugContext(ctx, "Ignored revoke failure", "err", err)
	}

	dropSchema := Step{Name: "drop schema", Run: func(ctx context.Context) error {
		d.log.InfoContext(ctx, "Dropping the __demo schema and all contained objects.")
		return s.Exec(ctx, fmt.Sprintf("drop schema if exists %s cascade;", DemoSchema))
	}}
	dropRole := Step{Name: "drop role", Run: func(ctx context.Context) error {
		d.log.InfoContext(ctx, fmt.Sprintf("Drop user %s", MonitorRole))
		return s.Exec(ctx, fmt.Sprintf("drop role if exists %s;", MonitorRole))
	}}
	dropExtensions := Step{Name: "drop extensions", Run: func(ctx context.Context) error {
		dropped, err := d.dropExtensions(ctx, s, keep)
		if err != nil {
			return err
		}
		if err := s.Commit(ctx); err != nil {
			return err
		}
		d.forgetExtensions(ctx, target, dropped)
		return nil
	}}

	if d.cfg.TeardownPolicy == TeardownContinue {
		errs := runBestEffort(ctx, s, d.log, []Step{dropSchema, dropRole, dropExtensions})
		return errors.Join(errs...)
	}

	for _, step := range []Step{dropSchema, dropRole} {
		if err := step.Run(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
	}
	if err := s.Commit(ctx); err != nil {
		return err
	}
	if err := dropExtensions.Run(ctx); err != nil {
		return fmt.Errorf("%s: %w", dropExtensions.Name, err)
	}
	return nil
}

// dropExtensions drops installed demo extensions that are not in keep and
// returns their names. The caller commits.
func (d *Demo) dropExtensions(ctx context.Context, s Session, keep Registry) ([]string, error) {
	rows, err := s.Query(ctx, demoExtensionsSQL)
	if err != nil {
		return nil, err
	}
	var dropped []string
	for _, row := range rows {
		ext := row.String("extname")
		if keep.Has(ext) {
			d.log.InfoContext(ctx, "Keeping extension installed before the demo", "extension", ext)
			continue
		}
		d.log.InfoContext(ctx, fmt.Sprintf("Dropping extension %s", ext))
		if err := s.Exec(ctx, fmt.Sprintf("drop extension if exists %s;", quoteIdent(ext))); err != nil {
			return nil, err
		}
		dropped = append(dropped, ext)
	}
	return dropped, nil
}

func (d *Demo) forgetExtensions(ctx context.Context, target string, dropped []string) {
	if d.ledger == nil || len(dropped) == 0 {
		return
	}
	if err := d.ledger.Forget(ctx, target, dropped); err != nil {
		d.log.WarnContext(ctx, "Could not update extension ledger", "err", err)
	}
}

// ownedExtensions returns the extensions the ledger says the demo installed.
func (d *Demo) ownedExtensions(ctx context.Context, target string) []string {
	if d.ledger == nil {
		return nil
	}
	owned, err := d.ledger.Owned(ctx, target)
	if err != nil {
		d.log.WarnContext(ctx, "Could not read extension ledger", "err", err)
		return nil
	}
	return owned
}
