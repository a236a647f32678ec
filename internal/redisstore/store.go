// Package redisstore implements the Redis PersonStore behind the reference
// upstream service. Each person is a hash at roster:person:{id}; the sorted
// set roster:persons orders IDs by insertion sequence.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mesh-intelligence/roster/pkg/types"
)

const (
	keyPrefix = "roster"
	indexKey  = keyPrefix + ":persons"
	seqKey    = keyPrefix + ":persons:seq"
)

// PersonKey returns the hash key for a person.
func PersonKey(id types.PersonID) string {
	return fmt.Sprintf("%s:person:%s", keyPrefix, id)
}

// Compile-time interface check.
var _ types.PersonStore = (*Store)(nil)

// Store implements types.PersonStore over Redis. Safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	rdb *redis.Client
}

// NewStore creates a detached store. Call Attach before use.
func NewStore() *Store {
	return &Store{}
}

// Attach connects to cfg.RedisAddr and verifies connectivity.
func (s *Store) Attach(cfg types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rdb != nil {
		return types.ErrAlreadyAttached
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	s.rdb = rdb
	return nil
}

// Detach closes the connection. Idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rdb == nil {
		return nil
	}
	err := s.rdb.Close()
	s.rdb = nil
	return err
}

func (s *Store) client() (*redis.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rdb == nil {
		return nil, types.ErrStoreDetached
	}
	return s.rdb, nil
}

// List returns all persons in insertion order.
func (s *Store) List(ctx context.Context) ([]types.Person, error) {
	rdb, err := s.client()
	if err != nil {
		return nil, err
	}

	ids, err := rdb.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading person index: %w", err)
	}

	pipe := rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, PersonKey(types.PersonID(id)))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("reading persons: %w", err)
		}
	}

	persons := make([]types.Person, 0, len(ids))
	for i, cmd := range cmds {
		hash := cmd.Val()
		if len(hash) == 0 {
			// Index entry without a hash; skipped until the next delete cleans it.
			continue
		}
		persons = append(persons, hashToPerson(types.PersonID(ids[i]), hash))
	}
	return persons, nil
}

// Create validates all inputs, reserves a block of sequence numbers, and
// writes every person in one MULTI/EXEC.
func (s *Store) Create(ctx context.Context, in []types.PersonInput) ([]types.Person, error) {
	if len(in) == 0 {
		return nil, types.ErrInvalidData
	}
	for _, p := range in {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	rdb, err := s.client()
	if err != nil {
		return nil, err
	}

	last, err := rdb.IncrBy(ctx, seqKey, int64(len(in))).Result()
	if err != nil {
		return nil, fmt.Errorf("reserving sequence: %w", err)
	}
	first := last - int64(len(in)) + 1

	now := time.Now().UTC().Format(time.RFC3339)
	created := make([]types.Person, 0, len(in))
	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, p := range in {
			person := types.Person{
				ID:        generateID(),
				Name:      p.Name,
				Email:     p.Email,
				Age:       p.Age,
				CreatedAt: now,
			}
			pipe.HSet(ctx, PersonKey(person.ID), personToHash(person))
			pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(first + int64(i)), Member: string(person.ID)})
			created = append(created, person)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing persons: %w", err)
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
	rdb, err := s.client()
	if err != nil {
		return types.Person{}, err
	}

	key := PersonKey(id)
	var updated types.Person
	err = rdb.Watch(ctx, func(tx *redis.Tx) error {
		hash, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(hash) == 0 {
			return types.ErrNotFound
		}
		updated = hashToPerson(id, hash)
		updated.Name, updated.Email, updated.Age = in.Name, in.Email, in.Age

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, personToHash(updated))
			if updated.Age == nil {
				pipe.HDel(ctx, key, "age")
			}
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.Person{}, err
		}
		return types.Person{}, fmt.Errorf("updating person %s: %w", id, err)
	}
	return updated, nil
}

// Delete removes the person and its index entry.
func (s *Store) Delete(ctx context.Context, id types.PersonID) error {
	if id == "" {
		return types.ErrInvalidID
	}
	rdb, err := s.client()
	if err != nil {
		return err
	}

	var removed *redis.IntCmd
	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.ZRem(ctx, indexKey, string(id))
		pipe.Del(ctx, PersonKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting person %s: %w", id, err)
	}
	if removed.Val() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func personToHash(p types.Person) map[string]any {
	h := map[string]any{
		"name":       p.Name,
		"email":      p.Email,
		"created_at": p.CreatedAt,
	}
	if p.Age != nil {
		h["age"] = strconv.Itoa(*p.Age)
	}
	return h
}

func hashToPerson(id types.PersonID, h map[string]string) types.Person {
	p := types.Person{
		ID:        id,
		Name:      h["name"],
		Email:     h["email"],
		CreatedAt: h["created_at"],
	}
	if raw, ok := h["age"]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			p.Age = &n
		}
	}
	return p
}

func generateID() types.PersonID {
	id, err := uuid.NewV7()
	if err != nil {
		return types.PersonID(uuid.New().String())
	}
	return types.PersonID(id.String())
}
