package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/roster/pkg/types"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewStore()
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendRedis, RedisAddr: mr.Addr()}))
	t.Cleanup(func() { s.Detach() })
	return s, mr
}

func age(n int) *int { return &n }

func TestAttach(t *testing.T) {
	s, mr := setupStore(t)
	assert.ErrorIs(t, s.Attach(types.Config{Backend: types.BackendRedis, RedisAddr: mr.Addr()}), types.ErrAlreadyAttached)

	require.NoError(t, s.Detach())
	require.NoError(t, s.Detach())
	_, err := s.List(context.Background())
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestAttachUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	s := NewStore()
	assert.Error(t, s.Attach(types.Config{Backend: types.BackendRedis, RedisAddr: addr}))
}

func TestCreateAndList(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, []types.PersonInput{
		{Name: "Ada", Email: "ada@example.com", Age: age(36)},
		{Name: "Grace", Email: "grace@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.True(t, mr.Exists(PersonKey(created[0].ID)))
	assert.Equal(t, "36", mr.HGet(PersonKey(created[0].ID), "age"))

	_, err = s.Create(ctx, []types.PersonInput{{Name: "Linus", Email: "linus@example.com"}})
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Ada", list[0].Name)
	assert.Equal(t, 36, *list[0].Age)
	assert.Nil(t, list[1].Age)
	assert.Equal(t, "Linus", list[2].Name)
}

func TestCreateRejectsInvalidBatch(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, []types.PersonInput{
		{Name: "Ada", Email: "ada@example.com"},
		{Name: "", Email: "x@y.zz"},
	})
	assert.ErrorIs(t, err, types.ErrValidation)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdate(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, []types.PersonInput{{Name: "Ada", Email: "ada@example.com", Age: age(36)}})
	require.NoError(t, err)
	id := created[0].ID

	got, err := s.Update(ctx, id, types.PersonInput{Name: "Ada L.", Email: "ada@lovelace.org"})
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, created[0].CreatedAt, got.CreatedAt)
	assert.Nil(t, got.Age)
	assert.Equal(t, "", mr.HGet(PersonKey(id), "age"))

	_, err = s.Update(ctx, "nope", types.PersonInput{Name: "X", Email: "x@y.zz"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, []types.PersonInput{
		{Name: "Ada", Email: "ada@example.com"},
		{Name: "Grace", Email: "grace@example.com"},
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created[0].ID))
	assert.False(t, mr.Exists(PersonKey(created[0].ID)))
	assert.ErrorIs(t, s.Delete(ctx, created[0].ID), types.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, ""), types.ErrInvalidID)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created[1].ID, list[0].ID)
}
