// Package store is the Postgres catalog behind the service. Every row handed back
// to callers has passed its model's Validate method.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/farellandr/sahmticket/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func New(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Ping checks the database connection.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// duplicate turns a unique violation into models.ErrDuplicate and reports the
// constraint that fired.
func duplicate(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}
	return "", false
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := duplicate(err); ok {
		return fmt.Errorf("%w: %s", models.ErrDuplicate, constraint)
	}
	return err
}

// classifyIssue separates a second ticket for the same order from a ticket
// code collision.
func classifyIssue(err error) error {
	constraint, ok := duplicate(err)
	if !ok {
		return err
	}
	if strings.Contains(constraint, "code") {
		return fmt.Errorf("%w: %s", models.ErrTicketCodeTaken, constraint)
	}
	return fmt.Errorf("%w: %s", models.ErrTicketExists, constraint)
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
