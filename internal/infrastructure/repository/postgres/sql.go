package postgres

import (
	"database/sql"
	"errors"
	"strings"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}

// Transaction-mode poolers can route a statement to a backend that never saw
// its prepare step. Both errors are safe to retry once on a fresh backend.
func isBindParameterMismatch(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "bind message supplies") && strings.Contains(text, "requires")
}

func isUnnamedPreparedStatementMissing(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "unnamed prepared statement does not exist") ||
		(strings.Contains(text, "prepared statement") && strings.Contains(text, "26000"))
}

func retryOnPoolerMismatch(run func() error) error {
	err := run()
	if isBindParameterMismatch(err) || isUnnamedPreparedStatementMissing(err) {
		return run()
	}
	return err
}
