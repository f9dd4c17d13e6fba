package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fireproof/internal/apperrors"
)

// DBTX is the subset of *pgxpool.Pool used by repositories. pgxmock pools
// satisfy it as well.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapError turns driver errors into application errors. entity names the
// record for not found and conflict messages.
func mapError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound(entity)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperrors.Conflict(fmt.Sprintf("%s already exists", entity))
		case pgForeignKeyViolation:
			return apperrors.Validation("", fmt.Sprintf("%s references a record that does not exist", entity))
		}
	}
	return err
}

// requireAffected returns a not found error when an update touched no rows.
func requireAffected(tag pgconn.CommandTag, entity string) error {
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(entity)
	}
	return nil
}

// whereBuilder accumulates AND conditions with positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

func newWhere(base string, args ...any) *whereBuilder {
	return &whereBuilder{conds: []string{base}, args: args}
}

// add appends cond, replacing each ? with the next positional parameter.
func (w *whereBuilder) add(cond string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) sql() string {
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT and OFFSET parameters and returns the clause.
func (w *whereBuilder) page(limit, offset int) string {
	w.args = append(w.args, limit, offset)
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", len(w.args)-1, len(w.args))
}
