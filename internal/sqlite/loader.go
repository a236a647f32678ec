package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
)

// loadPersonsJSONL inserts every record of persons.jsonl in one transaction.
// Records that do not decode, lack an ID or name, or collide with an earlier
// record are skipped. Unknown fields are ignored.
func loadPersonsJSONL(db *sql.DB, dataDir string) error {
	records, err := readJSONL(filepath.Join(dataDir, personsJSONL))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT INTO persons (person_id, seq, name, email, age, created_at) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, raw := range records {
		var rec personRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if rec.PersonID == "" || rec.Name == "" {
			continue
		}
		if _, err := stmt.Exec(rec.PersonID, rec.Seq, rec.Name, rec.Email, nullableAge(rec.Age), rec.CreatedAt); err != nil {
			continue
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

func nullableAge(age *int) any {
	if age == nil {
		return nil
	}
	return *age
}
