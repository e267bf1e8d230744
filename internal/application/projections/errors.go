package projections

import (
	"database/sql"
	"errors"
)

// isNoRows reports whether err is a missing-row error from a store.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
