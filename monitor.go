package pgextdemo

import (
	"context"
	"fmt"
)

const securityDefinerSQL = `
create or replace function __demo.pg_stat_statements() returns setof public.pg_stat_statements as $$
begin
    return query select *
                   from public.pg_stat_statements;
end;
$$ language plpgsql security definer;
`

// createMonitorRole creates the restricted login role and commits.
func (d *Demo) createMonitorRole(ctx context.Context, s Session) error {
	d.log.InfoContext(ctx, fmt.Sprintf("Creating unprivileged user %s", MonitorRole))
	stmts := []string{
		fmt.Sprintf("create user %s with login nosuperuser nocreatedb nocreaterole noreplication encrypted password %s;",
			MonitorRole, quoteLiteral(d.cfg.MonitorPassword)),
		fmt.Sprintf("grant connect on database %s to %s;", quoteIdent(s.Info().Database), MonitorRole),
		fmt.Sprintf("grant usage on schema %s to %s;", DemoSchema, MonitorRole),
		fmt.Sprintf("alter user %s set search_path = %s, public;", MonitorRole, DemoSchema),
	}
	for _, stmt := range stmts {
		if err := s.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return s.Commit(ctx)
}

// demoMonitorRole shows that a restricted role sees masked query text until
// it is given a security definer function to read the statistics through.
func (d *Demo) demoMonitorRole(ctx context.Context, s Session, flags Flags) error {
	d.console.Paragraph(
		"Up until now, these queries have been executed by the superuser for this database.",
		"This will show what happens when an unprivileged user tries to get data from the table",
	)
	if err := d.console.Prompt(ctx, "Press enter to continue. "); err != nil {
		return err
	}

	if flags.Init {
		if err := d.createMonitorRole(ctx, s); err != nil {
			return err
		}
	}

	monitorURL := s.Info().URLFor(MonitorRole, d.cfg.MonitorPassword)
	us, err := d.open(ctx, monitorURL)
	if err != nil {
		return fmt.Errorf("open %s session: %w", MonitorRole, err)
	}
	err = d.monitorSequence(ctx, s, us)
	d.release(ctx, us, MonitorRole)
	if err != nil {
		return err
	}
	return s.Rollback(ctx)
}

// monitorSequence runs the statements that alternate between the primary
// session s and the restricted session us.
func (d *Demo) monitorSequence(ctx context.Context, s, us Session) error {
	rows, err := us.Query(ctx, "select * from pg_stat_statements;")
	if err != nil {
		return err
	}
	d.printRecords(rows)

	d.console.Paragraph(
		"Note that the queries are masked. This is because of security that PostgreSQL imposes.",
		"We can get past this with a function call that will query the pg_stat_statements table",
		"with superuser privileges when executed by any user. ",
		"This function must be defined by a superuser or this will fail.",
	)
	if err := d.console.Prompt(ctx, "Press enter to continue. "); err != nil {
		return err
	}

	d.log.InfoContext(ctx, "Creating __demo.pg_stat_statements() function")
	err = d.verbose(func() error {
		if err := s.Exec(ctx, securityDefinerSQL); err != nil {
			return err
		}
		d.log.InfoContext(ctx, "Granting execute", "role", MonitorRole)
		grant := fmt.Sprintf("grant execute on function %s.pg_stat_statements() to %s;", DemoSchema, MonitorRole)
		if err := s.Exec(ctx, grant); err != nil {
			return err
		}
		if err := s.Commit(ctx); err != nil {
			return err
		}

		d.console.Paragraph("Note that we are using the unprivileged user's connection here.")
		who, err := us.Query(ctx, "select current_user;")
		if err != nil {
			return err
		}
		if len(who) > 0 {
			d.log.InfoContext(ctx, fmt.Sprintf("Connection user is %s", who[0].String("current_user")))
		}
		d.console.Paragraph("Now let's utilize the pg_stat_statements() function call as this user.")
		if err := d.console.Prompt(ctx, "Press enter to continue. "); err != nil {
			return err
		}

		rows, err = us.Query(ctx, "select * from __demo.pg_stat_statements();")
		return err
	})
	if err != nil {
		return err
	}
	d.printRecords(rows)

	d.console.Paragraph("Note that we can now see queries since the function is executing with the privileges of the definer.")
	return d.console.Prompt(ctx, "Press enter to continue. ")
}
