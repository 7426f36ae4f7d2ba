package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"profiles-api/internal/database"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// executor is satisfied by both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// withTx returns a context that routes repository statements through tx
func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// baseRepository provides common functionality for all SQL repositories
type baseRepository struct {
	db      *sql.DB
	dialect database.Dialect
	table   string
	logger  *logrus.Logger
}

func newBaseRepository(db *sql.DB, dialect database.Dialect, table string, logger *logrus.Logger) baseRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return baseRepository{
		db:      db,
		dialect: dialect,
		table:   table,
		logger:  logger,
	}
}

// conn returns the transaction bound to ctx, or the pool
func (r *baseRepository) conn(ctx context.Context) executor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return r.db
}

// logQuery logs a query with its execution time
func (r *baseRepository) logQuery(operation string, query string, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": operation,
		"table":     r.table,
		"query":     query,
		"duration":  duration,
	}

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		fields["error"] = err.Error()
		r.logger.WithFields(fields).Error("Query failed")
	} else {
		r.logger.WithFields(fields).Debug("Query executed")
	}
}

// executeQuery executes a query and logs the result
func (r *baseRepository) executeQuery(ctx context.Context, operation, query string, args ...interface{}) (*sql.Rows, error) {
	query = r.dialect.Rebind(query)

	start := time.Now()
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	r.logQuery(operation, query, time.Since(start), err)

	if err != nil {
		return nil, repositories.NewRepositoryError(operation, r.table, "", err)
	}

	return rows, nil
}

// executeQueryRow executes a single-row query and logs the result
func (r *baseRepository) executeQueryRow(ctx context.Context, operation, query string, args ...interface{}) *sql.Row {
	query = r.dialect.Rebind(query)

	start := time.Now()
	row := r.conn(ctx).QueryRowContext(ctx, query, args...)
	r.logQuery(operation, query, time.Since(start), row.Err())

	return row
}

// executeExec executes a non-query statement and logs the result
func (r *baseRepository) executeExec(ctx context.Context, operation, query string, args ...interface{}) (sql.Result, error) {
	query = r.dialect.Rebind(query)

	start := time.Now()
	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	r.logQuery(operation, query, time.Since(start), err)

	if err != nil {
		return nil, r.wrapError(operation, "", err)
	}

	return result, nil
}

// insertReturningID runs an INSERT ... RETURNING id statement
func (r *baseRepository) insertReturningID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := r.executeQueryRow(ctx, "create", query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, r.wrapError("create", "", err)
	}
	return id, nil
}

// checkRowsAffected checks if the expected number of rows were affected
func (r *baseRepository) checkRowsAffected(result sql.Result, operation string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError(operation, r.table, formatID(id), err)
	}

	if rowsAffected == 0 {
		return repositories.NotFoundError(r.table, formatID(id))
	}

	return nil
}

// scanError converts a single-row scan failure into a repository error
func (r *baseRepository) scanError(operation string, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repositories.NotFoundError(r.table, id)
	}
	return repositories.NewRepositoryError(operation, r.table, id, err)
}

// wrapError maps driver errors onto repository sentinels
func (r *baseRepository) wrapError(operation, id string, err error) error {
	if r.dialect.IsUniqueViolation(err) {
		return repositories.NewRepositoryError(operation, r.table, id, repositories.ErrDuplicateEntry)
	}
	return repositories.NewRepositoryError(operation, r.table, id, err)
}

// validateID validates that an internal ID is positive
func (r *baseRepository) validateID(id int64) error {
	if id <= 0 {
		return repositories.NewRepositoryError("validate", r.table, formatID(id), repositories.ErrInvalidID)
	}
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
