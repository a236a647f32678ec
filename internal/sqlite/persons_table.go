package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/roster/pkg/types"
)

const selectPersons = "SELECT person_id, seq, name, email, age, created_at FROM persons"

// List returns all persons ordered by insertion.
func (s *Store) List(ctx context.Context) ([]types.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return nil, types.ErrStoreDetached
	}

	records, err := s.queryRecords(ctx, s.db)
	if err != nil {
		return nil, err
	}
	persons := make([]types.Person, 0, len(records))
	for _, rec := range records {
		persons = append(persons, rec.person())
	}
	return persons, nil
}

// Create validates every input first, then inserts them in one transaction.
// The transaction commits only once persons.jsonl has been rewritten.
func (s *Store) Create(ctx context.Context, in []types.PersonInput) ([]types.Person, error) {
	if len(in) == 0 {
		return nil, types.ErrInvalidData
	}
	for _, p := range in {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return nil, types.ErrStoreDetached
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM persons").Scan(&seq); err != nil {
		return nil, fmt.Errorf("reading sequence: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	created := make([]types.Person, 0, len(in))
	for _, p := range in {
		seq++
		rec := personRecord{
			PersonID:  string(generateID()),
			Seq:       seq,
			Name:      p.Name,
			Email:     p.Email,
			Age:       p.Age,
			CreatedAt: now,
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO persons (person_id, seq, name, email, age, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			rec.PersonID, rec.Seq, rec.Name, rec.Email, nullableAge(rec.Age), rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("inserting person: %w", err)
		}
		created = append(created, rec.person())
	}

	if err := s.persistJSONL(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing persons: %w", err)
	}
	return created, nil
}

// Update replaces name, email, and age of an existing person.
func (s *Store) Update(ctx context.Context, id types.PersonID, in types.PersonInput) (types.Person, error) {
	if id == "" {
		return types.Person{}, types.ErrInvalidID
	}
	if err := in.Validate(); err != nil {
		return types.Person{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return types.Person{}, types.ErrStoreDetached
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Person{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE persons SET name = ?, email = ?, age = ? WHERE person_id = ?",
		in.Name, in.Email, nullableAge(in.Age), string(id),
	)
	if err != nil {
		return types.Person{}, fmt.Errorf("updating person %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return types.Person{}, types.ErrNotFound
	}

	row := tx.QueryRowContext(ctx, selectPersons+" WHERE person_id = ?", string(id))
	rec, err := scanRecord(row)
	if err != nil {
		return types.Person{}, fmt.Errorf("reading person %s: %w", id, err)
	}
	if err := s.persistJSONL(ctx, tx); err != nil {
		return types.Person{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.Person{}, fmt.Errorf("committing person %s: %w", id, err)
	}
	return rec.person(), nil
}

// Delete removes the person with the given ID.
func (s *Store) Delete(ctx context.Context, id types.PersonID) error {
	if id == "" {
		return types.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return types.ErrStoreDetached
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM persons WHERE person_id = ?", string(id))
	if err != nil {
		return fmt.Errorf("deleting person %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return types.ErrNotFound
	}
	if err := s.persistJSONL(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete of %s: %w", id, err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// persistJSONL rewrites persons.jsonl from the table contents seen by q.
// Caller holds s.mu and commits only after this succeeds.
func (s *Store) persistJSONL(ctx context.Context, q querier) error {
	records, err := s.queryRecords(ctx, q)
	if err != nil {
		return err
	}
	if err := writeJSONL(s.jsonlPath(), records); err != nil {
		return fmt.Errorf("persisting %s: %w", personsJSONL, err)
	}
	return nil
}

func (s *Store) queryRecords(ctx context.Context, q querier) ([]personRecord, error) {
	rows, err := q.QueryContext(ctx, selectPersons+" ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying persons: %w", err)
	}
	defer rows.Close()

	var records []personRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (personRecord, error) {
	var (
		rec personRecord
		age sql.NullInt64
	)
	if err := row.Scan(&rec.PersonID, &rec.Seq, &rec.Name, &rec.Email, &age, &rec.CreatedAt); err != nil {
		return personRecord{}, err
	}
	if age.Valid {
		v := int(age.Int64)
		rec.Age = &v
	}
	return rec, nil
}

func (r personRecord) person() types.Person {
	return types.Person{
		ID:        types.PersonID(r.PersonID),
		Name:      r.Name,
		Email:     r.Email,
		Age:       r.Age,
		CreatedAt: r.CreatedAt,
	}
}
