package pgextdemo

import (
	"context"
	"fmt"
)

const (
	prefixLikeSQL = `
select street, count(*)
  from __demo.addr
 where street like '10%'
 group
    by street;
`
	infixLikeSQL = `
select street, count(*)
  from __demo.addr
 where street like '%ain%'
 group
    by street;
`
	btreeIndexSQL = `
create index if not exists ix_addr_street on __demo.addr (street text_pattern_ops);
`
	ginIndexSQL = `
create index if not exists ix_addr_street_gin on __demo.addr using gin (street gin_trgm_ops);
`
)

func (d *Demo) introTrgm(ctx context.Context) error {
	d.console.Paragraph(
		"pg_trgm is an extension that will break up text into a series of trigrams.",
		"The extension has operators for GIN or GIST indexes that will allow LIKE ",
		"operators to utilize indexes.",
		"See https://www.postgresql.org/docs/current/pgtrgm.html",
		"for more information.",
	)
	return d.console.Prompt(ctx, "Press enter to continue.")
}

// createIndex builds an index, commits and refreshes statistics.
func (d *Demo) createIndex(ctx context.Context, s Session, name, ddl string) error {
	d.log.InfoContext(ctx, "Creating index", "index", name)
	err := d.verbose(func() error {
		return s.Exec(ctx, ddl)
	})
	if err != nil {
		return err
	}
	if err := s.Commit(ctx); err != nil {
		return err
	}
	return d.analyzeAddrTable(ctx, s)
}

// explain prints the EXPLAIN ANALYZE plan of query.
func (d *Demo) explain(ctx context.Context, s Session, lead, query string) error {
	d.log.InfoContext(ctx, lead)
	fmt.Fprintln(d.console.Writer(), FormatSQL(query))
	rows, err := s.Query(ctx, "explain analyze "+query)
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Fprintln(d.console.Writer(), "  "+row.String("QUERY PLAN"))
	}
	return nil
}

// compareLikeQueries explains a prefix and an infix LIKE search, then rolls
// back.
func (d *Demo) compareLikeQueries(ctx context.Context, s Session, prefixNote, infixNote string) error {
	if err := d.explain(ctx, s, "Let's run this query:", prefixLikeSQL); err != nil {
		return err
	}
	d.console.Note(prefixNote)
	if err := d.console.Prompt(ctx, "Press enter to continue. "); err != nil {
		return err
	}
	if err := d.explain(ctx, s, "Now, let's run this query:", infixLikeSQL); err != nil {
		return err
	}
	if err := s.Rollback(ctx); err != nil {
		return err
	}
	d.console.Note(infixNote)
	return d.console.Prompt(ctx, "Press enter to continue. ")
}

// demoTrgm shows that LIKE with a leading wildcard only uses an index once a
// trigram GIN index exists.
func (d *Demo) demoTrgm(ctx context.Context, s Session, flags Flags) error {
	d.console.Banner("DEMO OF EXTENSION pg_trgm")
	if err := d.introTrgm(ctx); err != nil {
		return err
	}
	if flags.Init {
		if err := d.initTrgm(ctx, s); err != nil {
			return err
		}
	}

	d.console.Paragraph(
		"Use of the operator \"LIKE\" will not use an index without a special index type with special operations",
		"Even a btree index with text_pattern_ops will not handle all LIKE cases. In fact, this will be utilized only with a startswith search (col LIKE 'ABCD%')",
		"This can be helped with GIN indexes using pg_trgm_ops",
		"With our addr table loaded with data, lets set a btree index on the street column.",
	)
	if err := d.console.Prompt(ctx, "Press enter to continue. "); err != nil {
		return err
	}

	if err := d.createIndex(ctx, s, "ix_addr_street", btreeIndexSQL); err != nil {
		return err
	}
	err := d.compareLikeQueries(ctx, s,
		"You should see that the \"ix_addr_street\" index was utilized.",
		"You should see that the \"ix_addr_street\" index was NOT utilized.")
	if err != nil {
		return err
	}

	d.console.Paragraph("Now let's try the same query but first, we'll create a GIN index with pg_trgm_ops")
	if err := d.console.Prompt(ctx, "Press enter to continue. "); err != nil {
		return err
	}

	if err := d.createIndex(ctx, s, "ix_addr_street_gin", ginIndexSQL); err != nil {
		return err
	}
	err = d.compareLikeQueries(ctx, s,
		"Note the index usage and execution time.",
		"You should see that the \"ix_addr_street_gin\" index was utilized.")
	if err != nil {
		return err
	}

	d.console.Paragraph(
		"The caveat here is that this only works with search terms of at least three bytes.",
		"This is a more simplistic way of partial matching with (col LIKE '%adsf%') without the expensive full-text search operations.",
		"Further context can be found here: https://www.2ndquadrant.com/en/blog/text-search-strategies-in-postgresql/",
	)
	return d.console.Prompt(ctx, "Press enter to continue. ")
}
