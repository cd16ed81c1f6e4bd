package pgextdemo

import "testing"

func TestAddressRows(t *testing.T) {
	rows := addressRows(25)
	if len(rows) != 25 {
		t.Fatalf("expected 25 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != len(addrColumns) {
			t.Fatalf("row %d: expected %d values, got %d", i, len(addrColumns), len(row))
		}
		for j, v := range row {
			if s, ok := v.(string); !ok || s == "" {
				t.Errorf("row %d: expected a non-empty %s, got %#v", i, addrColumns[j], v)
			}
		}
	}
}

func TestCreateExtensionSQL(t *testing.T) {
	if got, want := createExtensionSQL(ExtTrgm), `create extension "pg_trgm" schema public;`; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if got, want := createExtensionSQL(ExtStatStatements), `create extension "pg_stat_statements";`; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
