package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoterra/logcap/pkg/core"
)

func openTemp(t *testing.T, mode Mode) *SQLite {
	t.Helper()
	opts := Options{Mode: mode}
	if mode == ModeDurable {
		opts.Path = filepath.Join(t.TempDir(), "logs.db")
	}
	s, err := Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertThenQueryAll(t *testing.T) {
	for _, mode := range []Mode{ModeDurable, ModeEphemeral} {
		t.Run(string(mode), func(t *testing.T) {
			s := openTemp(t, mode)
			ctx := context.Background()
			ts := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

			id1, err := s.Insert(ctx, "first", ts)
			require.NoError(t, err)
			id2, err := s.Insert(ctx, "ERROR: second", ts.Add(time.Second))
			require.NoError(t, err)
			assert.Greater(t, id2, id1)

			recs, err := s.QueryAll(ctx)
			require.NoError(t, err)
			require.Len(t, recs, 2)

			assert.Equal(t, id2, recs[0].ID)
			assert.Equal(t, "ERROR: second", recs[0].Message)
			assert.Equal(t, "2024-01-02T03:04:06.006Z", recs[0].Timestamp)
			assert.Equal(t, id1, recs[1].ID)
			assert.Equal(t, "first", recs[1].Message)
		})
	}
}

func TestQueryAllEmpty(t *testing.T) {
	s := openTemp(t, ModeEphemeral)
	recs, err := s.QueryAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestIDsStrictlyDecreasing(t *testing.T) {
	s := openTemp(t, ModeDurable)
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		_, err := s.Insert(ctx, fmt.Sprintf("line %d", i), time.Now())
		require.NoError(t, err)
	}
	recs, err := s.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 50)
	for i := 1; i < len(recs); i++ {
		assert.Less(t, recs[i].ID, recs[i-1].ID)
	}
}

func TestConcurrentReadsDuringInserts(t *testing.T) {
	for _, mode := range []Mode{ModeDurable, ModeEphemeral} {
		t.Run(string(mode), func(t *testing.T) {
			s := openTemp(t, mode)
			ctx := context.Background()
			const n = 200

			done := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-done:
						return
					default:
					}
					recs, err := s.QueryAll(ctx)
					if !assert.NoError(t, err) {
						return
					}
					seen := make(map[int64]bool, len(recs))
					for _, r := range recs {
						assert.False(t, seen[r.ID], "duplicate id %d", r.ID)
						seen[r.ID] = true
						assert.NotEmpty(t, r.Timestamp)
					}
				}
			}()

			for i := 0; i < n; i++ {
				_, err := s.Insert(ctx, fmt.Sprintf("msg-%d", i), time.Now())
				require.NoError(t, err)
			}
			close(done)
			wg.Wait()

			recs, err := s.QueryAll(ctx)
			require.NoError(t, err)
			assert.Len(t, recs, n)
		})
	}
}

func TestDurableSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs.db")
	ctx := context.Background()

	s, err := Open(ctx, Options{Mode: ModeDurable, Path: path})
	require.NoError(t, err)
	_, err = s.Insert(ctx, "persisted", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(ctx, Options{Mode: ModeDurable, Path: path})
	require.NoError(t, err)
	defer s2.Close()

	recs, err := s2.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "persisted", recs[0].Message)

	id, err := s2.Insert(ctx, "next", time.Now())
	require.NoError(t, err)
	assert.Greater(t, id, recs[0].ID)
}

func TestEphemeralResetsOnReopen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{Mode: ModeEphemeral})
	require.NoError(t, err)
	_, err = s.Insert(ctx, "gone", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(ctx, Options{Mode: ModeEphemeral})
	require.NoError(t, err)
	defer s2.Close()
	recs, err := s2.QueryAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, "", s2.Path())
}

func TestClosedStore(t *testing.T) {
	s, err := Open(context.Background(), Options{Mode: ModeEphemeral})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Insert(context.Background(), "late", time.Now())
	assert.ErrorIs(t, err, core.ErrStoreClosed)
	assert.ErrorIs(t, err, core.ErrStorageWriteError)

	_, err = s.QueryAll(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreClosed)
	assert.ErrorIs(t, err, core.ErrStorageReadError)

	assert.ErrorIs(t, s.Close(), core.ErrStoreClosed)
}

func TestOpenUnavailable(t *testing.T) {
	// A regular file where a directory is expected.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Open(context.Background(), Options{Mode: ModeDurable, Path: filepath.Join(blocker, "logs.db")})
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)

	_, err = Open(context.Background(), Options{Mode: "tape"})
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")
	for i := 0; i < 3; i++ {
		s, err := Open(context.Background(), Options{Path: path})
		require.NoError(t, err)
		assert.Equal(t, ModeDurable, s.Mode())
		require.NoError(t, s.Close())
	}
}

func TestDurablePathWithURISyntax(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "odd#dir")
	path := filepath.Join(dir, "logs?v=1 100%.db")

	st, err := Open(ctx, Options{Mode: ModeDurable, Path: path})
	require.NoError(t, err)
	_, err = st.Insert(ctx, "kept", time.Now())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = os.Stat(path)
	require.NoError(t, err, "database must be created at the literal path")

	st, err = Open(ctx, Options{Mode: ModeDurable, Path: path})
	require.NoError(t, err)
	defer st.Close()
	records, err := st.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Message)
}

func TestEscapePath(t *testing.T) {
	tests := map[string]string{
		"logs.db":            "logs.db",
		"/var/lib/logs.db":   "/var/lib/logs.db",
		"/tmp/a?b#c.db":      "/tmp/a%3Fb%23c.db",
		"/tmp/100%/logs.db":  "/tmp/100%25/logs.db",
		"/tmp/with space.db": "/tmp/with%20space.db",
	}
	for in, want := range tests {
		assert.Equal(t, want, escapePath(in), in)
	}
}
