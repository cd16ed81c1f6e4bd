package pgextdemo

import (
	"context"
	"fmt"

	"github.com/go-faker/faker/v4"
)

var (
	addrTable   = []string{DemoSchema, "addr"}
	addrColumns = []string{"street", "city", "state", "zipcode"}
)

const createAddrTableSQL = `
create table __demo.addr (
    addr_id serial primary key,
    street text not null,
    city text not null,
    state text not null,
    zipcode text not null
);
`

// Address is one row of the demo address table.
type Address struct {
	Street  string
	City    string
	State   string
	Zipcode string
}

// fakeAddress returns a generated address.
func fakeAddress() Address {
	a := faker.GetRealAddress()
	return Address{
		Street:  a.Address,
		City:    a.City,
		State:   a.State,
		Zipcode: a.PostalCode,
	}
}

// addressRows generates n rows in addrColumns order.
func addressRows(n int) [][]any {
	rows := make([][]any, 0, n)
	for range n {
		a := fakeAddress()
		rows = append(rows, []any{a.Street, a.City, a.State, a.Zipcode})
	}
	return rows
}

// createAddrTable creates the demo table and commits.
func (d *Demo) createAddrTable(ctx context.Context, s Session) error {
	d.log.InfoContext(ctx, "Creating a simple address table:")
	err := d.verbose(func() error {
		return s.Exec(ctx, createAddrTableSQL)
	})
	if err != nil {
		return err
	}
	return s.Commit(ctx)
}

// loadAddresses copies cfg.Batches batches of generated addresses into the
// demo table. Each batch is its own COPY.
func (d *Demo) loadAddresses(ctx context.Context, s Session) error {
	total := d.cfg.Batches * d.cfg.BatchSize
	d.log.InfoContext(ctx, fmt.Sprintf("Populating table with %s records...", d.console.Count(total)))
	if err := s.Commit(ctx); err != nil {
		return err
	}
	for batch := 1; batch <= d.cfg.Batches; batch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.log.InfoContext(ctx, "Creating address data...", "batch", batch)
		rows := addressRows(d.cfg.BatchSize)
		d.log.InfoContext(ctx, "Copy data to addr table...", "batch", batch)
		n, err := s.CopyFrom(ctx, addrTable, addrColumns, rows)
		if err != nil {
			return fmt.Errorf("copy batch %d: %w", batch, err)
		}
		d.log.DebugContext(ctx, "Copied rows", "batch", batch, "rows", n)
	}
	return nil
}

// analyzeAddrTable refreshes planner statistics. ANALYZE is issued outside
// a transaction block.
func (d *Demo) analyzeAddrTable(ctx context.Context, s Session) error {
	if err := s.Commit(ctx); err != nil {
		return err
	}
	if err := s.SetAutocommit(ctx, true); err != nil {
		return err
	}
	err := s.Exec(ctx, "analyze __demo.addr;")
	if aerr := s.SetAutocommit(ctx, false); err == nil {
		err = aerr
	}
	return err
}

// initTrgm creates and loads the address table.
func (d *Demo) initTrgm(ctx context.Context, s Session) error {
	if err := d.createAddrTable(ctx, s); err != nil {
		return err
	}
	if err := d.loadAddresses(ctx, s); err != nil {
		return err
	}
	if err := d.analyzeAddrTable(ctx, s); err != nil {
		return err
	}
	return d.console.Prompt(ctx, "Initialization complete. Press enter to continue. ")
}
