package postgres

import (
	"database/sql"
	"strings"
)

func isNotFound(err error) bool {
	return err == sql.ErrNoRows
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}
