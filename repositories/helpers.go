package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

// mapConstraintError translates constraint violations into repository errors.
// byConstraint maps a constraint name to the error returned for it.
func mapConstraintError(err error, byConstraint map[string]error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	if mapped, ok := byConstraint[pqErr.Constraint]; ok {
		return fmt.Errorf("%w: %s", mapped, pqErr.Message)
	}
	switch string(pqErr.Code) {
	case pqUniqueViolation, pqForeignKeyViolation:
		return fmt.Errorf("constraint %s violated: %w", pqErr.Constraint, err)
	}
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
