package answers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"pgregory.net/rapid"

	"github.com/BaSui01/voiceweb/internal/cache"
	"github.com/BaSui01/voiceweb/internal/database"
)

func newSQLiteStore(t *testing.T, namespace string) *GormStore {
	t.Helper()
	pool, err := database.Open("sqlite", ":memory:", database.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	s := NewGormStore(pool, namespace, nil)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	m, err := cache.NewManager(cache.Config{Addr: mr.Addr(), DefaultTTL: time.Hour}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return NewRedisStore(m, "test", nil), mr
}

func storeBackends(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"gorm":   newSQLiteStore(t, "test"),
		"redis":  rs,
	}
}

func TestStore_AppendAndAll(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			n, err := s.Append(ctx, "What is your name?", "Ada")
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			n, err = s.Append(ctx, "Favorite color?", "blue")
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			n, err = s.Append(ctx, "  Favorite color?  ", "green")
			require.NoError(t, err)
			assert.Equal(t, 2, n, "repeated question must not add an entry")

			entries, err := s.All(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, "What is your name?", entries[0].Question)
			assert.Equal(t, "Ada", entries[0].Answer)
			assert.Equal(t, "Favorite color?", entries[1].Question)
			assert.Equal(t, "blue; green", entries[1].Answer)
			assert.False(t, entries[1].UpdatedAt.IsZero())
		})
	}
}

func TestStore_EmptyQuestion(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Append(context.Background(), "   ", "x")
			assert.ErrorIs(t, err, ErrEmptyQuestion)
		})
	}
}

func TestStore_Reset(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Append(ctx, "q", "a")
			require.NoError(t, err)

			require.NoError(t, s.Reset(ctx))
			entries, err := s.All(ctx)
			require.NoError(t, err)
			assert.Empty(t, entries)

			n, err := s.Append(ctx, "q", "b")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestGormStore_NamespacesAreIsolated(t *testing.T) {
	pool, err := database.Open("sqlite", ":memory:", database.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	ctx := context.Background()

	a := NewGormStore(pool, "a", nil)
	b := NewGormStore(pool, "b", nil)
	require.NoError(t, a.Migrate(ctx))

	_, err = a.Append(ctx, "q", "from a")
	require.NoError(t, err)
	n, err := b.Append(ctx, "q", "from b")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, a.Reset(ctx))
	entries, err := b.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "from b", entries[0].Answer)
}

func TestGormStore_QueryErrorRollsBack(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)
	pool, err := database.NewPoolManager(gormDB, database.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}, nil)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "question_answers"`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = NewGormStore(pool, "x", nil).Append(context.Background(), "q", "a")
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_KeysExpire(t *testing.T) {
	s, mr := newRedisStore(t)
	_, err := s.Append(context.Background(), "q", "a")
	require.NoError(t, err)

	assert.Equal(t, time.Hour, mr.TTL("voiceweb:test:answers"))
	assert.Equal(t, time.Hour, mr.TTL("voiceweb:test:order"))

	mr.FastForward(2 * time.Hour)
	entries, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryStore_AppendProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewMemoryStore()
		ctx := context.Background()
		questions := []string{"a", "b", "c", "d"}
		want := map[string][]string{}
		var order []string

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			q := rapid.SampledFrom(questions).Draw(rt, "question")
			a := rapid.StringMatching(`[a-z]{1,6}`).Draw(rt, "answer")
			if _, ok := want[q]; !ok {
				order = append(order, q)
			}
			want[q] = append(want[q], a)

			n, err := s.Append(ctx, q, a)
			if err != nil {
				rt.Fatalf("append: %v", err)
			}
			if n != len(want) {
				rt.Fatalf("count %d, want %d", n, len(want))
			}
		}

		entries, _ := s.All(ctx)
		for i, e := range entries {
			if e.Question != order[i] {
				rt.Fatalf("order: got %q at %d, want %q", e.Question, i, order[i])
			}
			if e.Answer != strings.Join(want[e.Question], Separator) {
				rt.Fatalf("answer for %q: %q", e.Question, e.Answer)
			}
		}
	})
}
