package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// setupStore attaches a Store to a fresh temp dir and detaches on cleanup.
func setupStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s := NewStore()
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { s.Detach() })
	return s, dir
}

func age(n int) *int { return &n }

func TestStoreLifecycle(t *testing.T) {
	s, _ := setupStore(t)

	assert.ErrorIs(t, s.Attach(types.Config{Backend: types.BackendSQLite}), types.ErrAlreadyAttached)
	require.NoError(t, s.Detach())
	require.NoError(t, s.Detach())

	_, err := s.List(context.Background())
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestAttachRejectsInvalidConfig(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.Attach(types.Config{}), types.ErrBackendEmpty)
}

func TestCreateListOrder(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, []types.PersonInput{
		{Name: "Ada", Email: "ada@example.com", Age: age(36)},
		{Name: "Grace", Email: "grace@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotEmpty(t, created[0].ID)
	assert.NotEqual(t, created[0].ID, created[1].ID)
	assert.NotEmpty(t, created[0].CreatedAt)

	more, err := s.Create(ctx, []types.PersonInput{{Name: "Linus", Email: "linus@example.com"}})
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Ada", "Grace", "Linus"}, []string{list[0].Name, list[1].Name, list[2].Name})
	assert.Equal(t, 36, *list[0].Age)
	assert.Nil(t, list[1].Age)
	assert.Equal(t, more[0].ID, list[2].ID)
}

func TestCreateIsAllOrNothing(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, []types.PersonInput{
		{Name: "Ada", Email: "ada@example.com"},
		{Name: "Bad", Email: "not-an-email"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrValidation)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.Create(ctx, nil)
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestUpdate(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, []types.PersonInput{{Name: "Ada", Email: "ada@example.com", Age: age(36)}})
	require.NoError(t, err)
	id := created[0].ID

	got, err := s.Update(ctx, id, types.PersonInput{Name: "Ada Lovelace", Email: "ada@lovelace.org"})
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Nil(t, got.Age)

	_, err = s.Update(ctx, "missing", types.PersonInput{Name: "X", Email: "x@y.zz"})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = s.Update(ctx, "", types.PersonInput{Name: "X", Email: "x@y.zz"})
	assert.ErrorIs(t, err, types.ErrInvalidID)

	_, err = s.Update(ctx, id, types.PersonInput{Name: "", Email: "x@y.zz"})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestDelete(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, []types.PersonInput{
		{Name: "Ada", Email: "ada@example.com"},
		{Name: "Grace", Email: "grace@example.com"},
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created[0].ID))
	assert.ErrorIs(t, s.Delete(ctx, created[0].ID), types.ErrNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created[1].ID, list[0].ID)
}

func TestJSONLSurvivesReattach(t *testing.T) {
	s, dir := setupStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, []types.PersonInput{
		{Name: "Ada", Email: "ada@example.com", Age: age(36)},
		{Name: "Grace", Email: "grace@example.com"},
	})
	require.NoError(t, err)
	require.NoError(t, s.Detach())

	data, err := os.ReadFile(filepath.Join(dir, personsJSONL))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	s2 := NewStore()
	require.NoError(t, s2.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	defer s2.Detach()

	list, err := s2.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ada", list[0].Name)

	// New inserts continue the sequence after loaded records.
	_, err = s2.Create(ctx, []types.PersonInput{{Name: "Linus", Email: "linus@example.com"}})
	require.NoError(t, err)
	list, err = s2.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Linus", list[2].Name)
}

func TestLoaderSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		`{"person_id":"a","seq":1,"name":"Ada","email":"ada@example.com","age":null,"created_at":"2026-01-01T00:00:00Z"}`,
		`not json`,
		`{"person_id":"","seq":2,"name":"NoID","email":"x@y.zz"}`,
		`{"person_id":"a","seq":3,"name":"Duplicate","email":"d@y.zz"}`,
		`{"person_id":"b","seq":4,"name":"Grace","email":"grace@example.com","age":40,"extra":"ignored"}`,
		``,
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, personsJSONL), []byte(content), 0o644))

	s := NewStore()
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	defer s.Detach()

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, types.PersonID("a"), list[0].ID)
	assert.Equal(t, "Grace", list[1].Name)
	assert.Equal(t, 40, *list[1].Age)
}

// A mutation whose persons.jsonl rewrite fails must leave the table as it
// was, so the next Attach agrees with what List showed.
func TestFailedPersistRollsBack(t *testing.T) {
	s, dir := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, []types.PersonInput{{Name: "Ada", Email: "ada@example.com", Age: age(36)}})
	require.NoError(t, err)
	id := created[0].ID

	// A directory in place of the file makes the final rename fail.
	path := filepath.Join(dir, personsJSONL)
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0o755))

	_, err = s.Update(ctx, id, types.PersonInput{Name: "Ada Lovelace", Email: "ada@lovelace.org"})
	require.Error(t, err)
	assert.Error(t, s.Delete(ctx, id))
	_, err = s.Create(ctx, []types.PersonInput{{Name: "Grace", Email: "grace@example.com"}})
	require.Error(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ada", list[0].Name)
	assert.Equal(t, "ada@example.com", list[0].Email)
	require.NotNil(t, list[0].Age)

	// Once the file can be written again, mutations go through.
	require.NoError(t, os.RemoveAll(path))
	require.NoError(t, s.Delete(ctx, id))
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
