package sql

import (
	"strconv"
	"strings"

	"github.com/exograph/exo-core/dialect"
)

// Builder is the low-level SQL string builder compile.go builds every
// statement on top of. It accumulates SQL text and bound arguments, and
// knows how to quote identifiers and number placeholders for the active
// dialect.
//
// Builder state (in particular the placeholder counter) always starts
// fresh for a new top-level statement — compiling the same abstract select
// twice produces byte-identical output.
type Builder struct {
	sb      strings.Builder
	args    []any
	dialect string
	total   *int // shared placeholder counter across a statement and its subqueries
}

// SetDialect sets the Builder's dialect. Defaults to Postgres.
func (b *Builder) SetDialect(name string) *Builder {
	b.dialect = name
	return b
}

// Query returns the accumulated SQL string and its bound arguments.
func (b *Builder) Query() (string, []any) {
	return b.sb.String(), b.args
}

// String returns the accumulated SQL text without its arguments.
func (b *Builder) String() string {
	return b.sb.String()
}

// Total returns the number of placeholders written so far.
func (b *Builder) Total() int {
	if b.total == nil {
		return 0
	}
	return *b.total
}

func (b *Builder) nextPlaceholder() int {
	if b.total == nil {
		n := 0
		b.total = &n
	}
	*b.total++
	return *b.total
}

// Quote quotes an identifier for the active dialect.
func (b *Builder) Quote(ident string) string {
	switch b.dialect {
	case dialect.MySQL:
		return "`" + ident + "`"
	default:
		return `"` + ident + `"`
	}
}

func (b *Builder) writeByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

func (b *Builder) writeString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Arg appends a bound argument and writes its placeholder
// ("$N" for Postgres, "?" for MySQL/SQLite).
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	switch b.dialect {
	case dialect.MySQL, dialect.SQLite:
		b.sb.WriteByte('?')
	default:
		n := b.nextPlaceholder()
		b.sb.WriteByte('$')
		b.sb.WriteString(strconv.Itoa(n))
	}
	return b
}
