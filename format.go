package pgextdemo

import (
	"fmt"
	"io"
	"strings"
	"unicode"
)

var sqlKeywords = map[string]struct{}{
	"all": {}, "alter": {}, "analyze": {}, "and": {}, "as": {}, "authorization": {},
	"begin": {}, "between": {}, "by": {}, "cascade": {}, "count": {}, "create": {},
	"database": {}, "definer": {}, "desc": {}, "distinct": {}, "drop": {}, "end": {},
	"execute": {}, "exists": {}, "explain": {}, "extension": {}, "for": {}, "from": {},
	"function": {}, "gin": {}, "grant": {}, "group": {}, "having": {}, "if": {},
	"in": {}, "index": {}, "int": {}, "is": {}, "key": {}, "language": {}, "like": {},
	"not": {}, "null": {}, "on": {}, "or": {}, "order": {}, "primary": {}, "query": {},
	"replace": {}, "return": {}, "returns": {}, "revoke": {}, "role": {}, "schema": {},
	"security": {}, "select": {}, "serial": {}, "set": {}, "setof": {}, "table": {},
	"text": {}, "to": {}, "using": {}, "where": {}, "with": {},
}

// FormatSQL normalises a statement for display: blank lines and common
// indentation are removed and keywords outside quotes are upper-cased.
func FormatSQL(sql string) string {
	lines := strings.Split(strings.ReplaceAll(sql, "\r\n", "\n"), "\n")
	var kept []string
	minIndent := -1
	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
		kept = append(kept, line)
	}
	for i, line := range kept {
		line = line[minIndent:]
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			line = upperKeywords(line)
		}
		kept[i] = line
	}
	return strings.Join(kept, "\n")
}

func upperKeywords(line string) string {
	var b strings.Builder
	var word strings.Builder
	var quote rune
	flush := func() {
		w := word.String()
		if _, ok := sqlKeywords[strings.ToLower(w)]; ok {
			w = strings.ToUpper(w)
		}
		b.WriteString(w)
		word.Reset()
	}
	for _, r := range line {
		switch {
		case quote != 0:
			b.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			flush()
			quote = r
			b.WriteRune(r)
		case unicode.IsLetter(r) || r == '_' || (word.Len() > 0 && unicode.IsDigit(r)):
			word.WriteRune(r)
		default:
			flush()
			b.WriteRune(r)
		}
	}
	flush()
	return b.String()
}

// indent prefixes every line after the first with n spaces.
func indent(text string, n int) string {
	pad := strings.Repeat(" ", n)
	return strings.ReplaceAll(text, "\n", "\n"+pad)
}

// formatRecord renders a row as "column : value" lines. The query column is
// reformatted and aligned under its value.
func formatRecord(row Row) string {
	lines := make([]string, 0, len(row.Columns))
	for i, col := range row.Columns {
		val := valueString(row.Values[i])
		if col == "query" {
			val = indent(FormatSQL(val), 22)
		}
		lines = append(lines, fmt.Sprintf("%-19s : %s", col, val))
	}
	return strings.Join(lines, "\n")
}

// printRecord writes one numbered record preceded by a separator.
func printRecord(w io.Writer, num int, row Row) {
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "%-19s : [%4d]\n", "RECORD", num)
	fmt.Fprintln(w, formatRecord(row))
}
