package dbx

import (
	"database/sql"
	"fmt"
)

// ExpectRows verifies that res affected exactly want rows. Repositories use
// it after guarded UPDATEs where the row count is the success signal (e.g.
// version-checked writes).
func ExpectRows(res sql.Result, want int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != want {
		return fmt.Errorf("wrong rows affected count: %d", n)
	}
	return nil
}
