package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

const requisitionCodePrefix = "REQ"

// NextRequisitionCodeInTx reserves the next requisition code for the given
// day (YYYYMMDD) inside the caller's transaction. Each day has its own
// counter row in code_sequences, created on first use; because the counter
// is advanced under the transaction's write lock, two concurrent creations
// can never observe the same sequence number.
func NextRequisitionCodeInTx(tx *sqlx.Tx, day string) (string, error) {
	name := requisitionCodePrefix + "-" + day

	if _, err := tx.Exec(`INSERT OR IGNORE INTO code_sequences (name, last_no) VALUES (?, 0)`, name); err != nil {
		return "", fmt.Errorf("failed to ensure sequence '%s': %w", name, err)
	}
	if _, err := tx.Exec(`UPDATE code_sequences SET last_no = last_no + 1 WHERE name = ?`, name); err != nil {
		return "", fmt.Errorf("failed to advance sequence '%s': %w", name, err)
	}

	var lastNo int
	if err := tx.Get(&lastNo, `SELECT last_no FROM code_sequences WHERE name = ?`, name); err != nil {
		return "", fmt.Errorf("failed to read sequence '%s': %w", name, err)
	}

	return fmt.Sprintf("%s-%s-%04d", requisitionCodePrefix, day, lastNo), nil
}
