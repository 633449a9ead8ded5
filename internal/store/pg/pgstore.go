package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/samber/oops"

	"github.com/polyclinic/scheduler/internal/clinic"
)

// Store is the PostgreSQL implementation of clinic.Store.
type Store struct {
	db *sql.DB
}

var _ clinic.Store = (*Store)(nil)

// Open connects through the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "open database").Wrap(err)
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return oops.Code("DB_UNAVAILABLE").With("operation", "ping").Wrap(err)
	}
	return nil
}

// classify maps driver errors onto the clinic error set using SQLSTATE codes.
// Anything unrecognized is wrapped with the failing operation.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return clinic.ErrNotFound
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return oops.Code("DUPLICATE_ENTRY").With("operation", op).With("constraint", pgErr.ConstraintName).Wrap(clinic.ErrConflict)
		case pgerrcode.ForeignKeyViolation:
			return oops.Code("INVALID_REFERENCE").With("operation", op).With("constraint", pgErr.ConstraintName).Wrap(clinic.ErrInvalidReference)
		case pgerrcode.CheckViolation:
			return oops.Code("CHECK_VIOLATION").With("operation", op).With("constraint", pgErr.ConstraintName).Wrap(clinic.ErrInvalidInput)
		}
	}
	return oops.Code("DB_QUERY_FAILED").With("operation", op).Wrap(err)
}

// affected turns a zero-row write into ErrNotFound.
func affected(op string, res sql.Result, err error) error {
	if err != nil {
		return classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return clinic.ErrNotFound
	}
	return nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}
