package database

import (
	"strconv"
	"strings"
)

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Dialect adapts portable SQL written with '?' placeholders to a driver
type Dialect struct {
	driver string
}

// NewDialect returns the dialect for a driver name
func NewDialect(driver string) Dialect {
	return Dialect{driver: driver}
}

// Driver returns the database/sql driver name
func (d Dialect) Driver() string {
	return d.driver
}

// IsPostgres reports whether queries run against Postgres
func (d Dialect) IsPostgres() bool {
	return d.driver == DriverPostgres
}

// Rebind rewrites '?' placeholders to '$n' for Postgres. Placeholders inside
// single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if !d.IsPostgres() || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IsUniqueViolation reports whether err is a unique constraint failure
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value")
}
