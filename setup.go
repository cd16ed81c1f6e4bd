package pgextdemo

import (
	"context"
	"fmt"
)

// createExtensionSQL returns the install statement for a demo extension.
// pg_trgm goes into public so its operator classes resolve for every user.
func createExtensionSQL(ext string) string {
	if ext == ExtTrgm {
		return fmt.Sprintf("create extension %s schema public;", quoteIdent(ext))
	}
	return fmt.Sprintf("create extension %s;", quoteIdent(ext))
}

// setup creates the demo schema, installs the demo extensions that are not
// already present and narrows the search path. Everything runs in one
// transaction; the caller rolls it back on error.
func (d *Demo) setup(ctx context.Context, s Session, reg Registry) error {
	d.log.InfoContext(ctx, "Creating a new schema __demo for this demonstration")
	createSchema := fmt.Sprintf("create schema %s authorization %s;", DemoSchema, quoteIdent(s.Info().User))
	if err := s.Exec(ctx, createSchema); err != nil {
		return err
	}

	d.log.InfoContext(ctx, "Enabling extensions for demonstration")
	var installed []string
	for _, ext := range DemoExtensions {
		if reg.Has(ext) {
			d.log.InfoContext(ctx, fmt.Sprintf("Extension %q already exists", ext))
			continue
		}
		d.log.InfoContext(ctx, "Installing extension", "extension", ext)
		if err := s.Exec(ctx, createExtensionSQL(ext)); err != nil {
			return err
		}
		installed = append(installed, ext)
	}

	d.log.InfoContext(ctx, "Setting schema search path for demonstration")
	if err := s.Exec(ctx, fmt.Sprintf("set search_path = %s, public;", DemoSchema)); err != nil {
		return err
	}
	if err := s.Commit(ctx); err != nil {
		return err
	}

	if d.ledger != nil && len(installed) > 0 {
		if err := d.ledger.Record(ctx, s.Info().Target(), installed); err != nil {
			d.log.WarnContext(ctx, "Could not record installed extensions", "err", err)
		}
	}
	return nil
}
