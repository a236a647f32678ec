// Unit tests for JSONL loading with forward compatibility.
package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// attachWith writes content to persons.jsonl, attaches a store, and returns
// its database handle.
func attachWith(t *testing.T, content string) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, personsJSONL), []byte(content), 0o644))
	s := NewStore()
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { s.Detach() })
	return s.db
}

func TestLoadJSONLUnknownFields(t *testing.T) {
	tests := []struct {
		name     string
		jsonl    string
		wantRows int
		checkSQL string
		checkVal string
	}{
		{
			name: "persons with unknown fields load successfully",
			jsonl: `{"person_id":"aaa-001","seq":1,"name":"Ada","email":"ada@example.com","age":36,"created_at":"2025-01-15T10:30:00Z","nickname":"countess"}
`,
			wantRows: 1,
			checkSQL: "SELECT name FROM persons WHERE person_id = 'aaa-001'",
			checkVal: "Ada",
		},
		{
			name: "multiple persons with varying unknown fields",
			jsonl: `{"person_id":"aaa-001","seq":1,"name":"Ada","email":"ada@example.com","future_a":"val"}
{"person_id":"aaa-002","seq":2,"name":"Grace","email":"grace@navy.mil","future_b":true,"future_c":99}
{"person_id":"aaa-003","seq":3,"name":"Alan","email":"alan@bletchley.uk"}
`,
			wantRows: 3,
			checkSQL: "SELECT email FROM persons WHERE person_id = 'aaa-002'",
			checkVal: "grace@navy.mil",
		},
		{
			name: "nested unknown object fields",
			jsonl: `{"person_id":"aaa-001","seq":1,"name":"Nested","email":"n@example.com","profile":{"deep":{"level":2}}}
`,
			wantRows: 1,
			checkSQL: "SELECT name FROM persons WHERE person_id = 'aaa-001'",
			checkVal: "Nested",
		},
		{
			name: "unknown array fields",
			jsonl: `{"person_id":"aaa-001","seq":1,"name":"Array","email":"a@example.com","tags":["alpha","beta"]}
`,
			wantRows: 1,
			checkSQL: "SELECT name FROM persons WHERE person_id = 'aaa-001'",
			checkVal: "Array",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := attachWith(t, tt.jsonl)

			var count int
			require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM persons").Scan(&count))
			assert.Equal(t, tt.wantRows, count)

			var got string
			require.NoError(t, db.QueryRow(tt.checkSQL).Scan(&got))
			assert.Equal(t, tt.checkVal, got)
		})
	}
}

func TestLoadJSONLSkipsUnusableRecords(t *testing.T) {
	tests := []struct {
		name     string
		jsonl    string
		wantRows int
	}{
		{"empty file", "", 0},
		{"blank lines", "\n\n", 0},
		{"malformed json", "{not json}\n", 0},
		{"missing id", `{"seq":1,"name":"Ada","email":"ada@example.com"}` + "\n", 0},
		{"missing name", `{"person_id":"a","seq":1,"email":"ada@example.com"}` + "\n", 0},
		{"wrong field type", `{"person_id":"a","seq":"one","name":"Ada"}` + "\n", 0},
		{
			name: "duplicate id keeps the first",
			jsonl: `{"person_id":"a","seq":1,"name":"First","email":"a@example.com"}
{"person_id":"a","seq":2,"name":"Second","email":"a@example.com"}
`,
			wantRows: 1,
		},
		{
			name: "good records around bad ones",
			jsonl: `{"person_id":"a","seq":1,"name":"Ada","email":"ada@example.com"}
garbage
{"person_id":"b","seq":2,"name":"Grace","email":"grace@navy.mil","age":null}
`,
			wantRows: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := attachWith(t, tt.jsonl)
			var count int
			require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM persons").Scan(&count))
			assert.Equal(t, tt.wantRows, count)
		})
	}
}

func TestLoadJSONLPreservesAge(t *testing.T) {
	db := attachWith(t, `{"person_id":"a","seq":1,"name":"Ada","email":"ada@example.com","age":0}
{"person_id":"b","seq":2,"name":"Grace","email":"grace@navy.mil"}
`)
	var age sql.NullInt64
	require.NoError(t, db.QueryRow("SELECT age FROM persons WHERE person_id = 'a'").Scan(&age))
	assert.True(t, age.Valid)
	assert.Equal(t, int64(0), age.Int64)

	require.NoError(t, db.QueryRow("SELECT age FROM persons WHERE person_id = 'b'").Scan(&age))
	assert.False(t, age.Valid)
}
