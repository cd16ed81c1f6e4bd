package pgextdemo

import (
	"context"
	"fmt"
)

const (
	query1SQL = `
-- QUERY1
select street, count(*)
  from __demo.addr
 where street like '%ain%'
 group
    by street;
`
	query2SQL = `
-- QUERY2
select city, state, count(*) as "ct"
  from __demo.addr
 where city like '%PO'
   and (state is null or state != $1)
 group
    by city, state
having count(*) > $2
 order
    by "ct" desc,
       state,
       city;
`
	query3SQL = `
-- QUERY3
with house_numbers as (
select split_part(street, ' ', 1)::int as hseno
  from __demo.addr
 where street ~ '^[0-9]+ '
)
select distinct hseno
  from house_numbers
 where hseno between 200 and 500;
`
	demoStatementsSQL = `
select *
  from public.pg_stat_statements
 where query ~ '^-- QUERY[0-9]+'
 order
    by query;
`
)

func (d *Demo) introStatStatements(ctx context.Context) error {
	d.console.Banner("DEMO OF EXTENSION pg_stat_statements")
	d.console.Paragraph(
		"This extension provides extra information beyond the runtime of a query.",
		"It also provides information on the min_time, max_time, mean_time, ",
		"total_time, and stddev_time (in milliseconds) for the statement.",
		"It also provides information on the hit count, read count, write count ",
		"and dirtied count for shared blocks, local blocks, and temp blocks. ",
		"On top of that it has the block read time and the block write time and ",
		"the number of times that a distinct query was called.",
	)
	d.console.Paragraph(
		"So there's a lot of information that can be gathered about performance ",
		"at the query level. This information could help resolve query performance ",
		"issues across all applications that utilize the PostgreSQL engine.",
	)
	d.console.Paragraph(
		"The data in the table can be periodically reset by means of a function",
		"\"pg_stat_statements_reset()\"",
	)
	d.console.Paragraph("More information on pg_stat_statements can be found here: https://www.postgresql.org/docs/current/pgstatstatements.html")
	return d.console.Prompt(ctx, "Press enter to continue.")
}

// runDemoQueries issues the statements whose statistics are shown afterwards.
func (d *Demo) runDemoQueries(ctx context.Context, s Session) error {
	return d.verbose(func() error {
		for range 5 {
			if err := s.Exec(ctx, query1SQL); err != nil {
				return err
			}
		}
		if err := s.Exec(ctx, query2SQL, "EEK", 2); err != nil {
			return err
		}
		for range 3 {
			if err := s.Exec(ctx, query3SQL); err != nil {
				return err
			}
		}
		return nil
	})
}

// printRecords prints rows as numbered records.
func (d *Demo) printRecords(rows []Row) {
	for i, row := range rows {
		printRecord(d.console.Writer(), i+1, row)
	}
	if len(rows) == 0 {
		fmt.Fprintln(d.console.Writer(), "(no records)")
	}
}

// demoStatementsTable resets the statistics, runs the demo queries and shows
// what pg_stat_statements recorded for them.
func (d *Demo) demoStatementsTable(ctx context.Context, s Session) error {
	d.log.InfoContext(ctx, "Resetting pg_stat_statements")
	if err := s.Exec(ctx, "select pg_stat_statements_reset();"); err != nil {
		return err
	}
	if err := s.Commit(ctx); err != nil {
		return err
	}

	d.console.Paragraph("Let's run some queries now...")
	if err := d.console.Prompt(ctx, "Press enter to continue. "); err != nil {
		return err
	}
	if err := d.runDemoQueries(ctx, s); err != nil {
		return err
	}

	d.console.Paragraph("OK, the queries have run, let's see what pg_stat_statements has to say...")
	if err := d.console.Prompt(ctx, "Press enter to continue. "); err != nil {
		return err
	}
	rows, err := s.Query(ctx, demoStatementsSQL)
	if err != nil {
		return err
	}
	d.printRecords(rows)
	if err := s.Rollback(ctx); err != nil {
		return err
	}

	d.console.Paragraph(
		"Note that we did execute \"QUERY1\" 5 times and \"QUERY3\" 3 times after the reset and that the counts and aggregates are cumulative.",
		"Also note that the queries are parameterized whether variables are used or values directly in the statements",
	)
	return d.console.Prompt(ctx, "Press enter to continue. ")
}

// demoStatStatements runs the pg_stat_statements narrative.
func (d *Demo) demoStatStatements(ctx context.Context, s Session, flags Flags) error {
	if err := d.introStatStatements(ctx); err != nil {
		return err
	}
	if err := d.demoStatementsTable(ctx, s); err != nil {
		return err
	}
	return d.demoMonitorRole(ctx, s, flags)
}
