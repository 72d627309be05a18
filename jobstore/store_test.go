package jobstore

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newDirStore(t *testing.T, clock *fakeClock) Store {
	t.Helper()
	s, err := NewDirStore(t.TempDir(), WithClock(clock.now))
	require.NoError(t, err)
	return s
}

func newSQLStore(t *testing.T, clock *fakeClock) Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "objects.db")
	s, err := OpenSQL(context.Background(), "sqlite", dsn, WithClock(clock.now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store, clock *fakeClock)) {
	stores := map[string]func(*testing.T, *fakeClock) Store{
		"dir": newDirStore,
		"sql": newSQLStore,
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
			fn(t, open(t, clock), clock)
		})
	}
}

func TestStore_PutOpen(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()
		obj, err := s.Put(ctx, KindUpload, "sales.xlsx", strings.NewReader("payload"))
		require.NoError(t, err)

		assert.NotEmpty(t, obj.ID)
		assert.Equal(t, KindUpload, obj.Kind)
		assert.Equal(t, "sales.xlsx", obj.Filename)
		assert.Equal(t, int64(7), obj.Size)
		assert.True(t, obj.ExpiresAt.Equal(clock.t.Add(24*time.Hour)))

		rc, got, err := s.Open(ctx, KindUpload, obj.ID)
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
		assert.Equal(t, obj.ID, got.ID)
		assert.Equal(t, "sales.xlsx", got.Filename)
	})
}

func TestStore_KindsAreSeparate(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		obj, err := s.Put(ctx, KindOutput, "out.xlsx", strings.NewReader("x"))
		require.NoError(t, err)

		_, err = s.Stat(ctx, KindUpload, obj.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := s.Stat(ctx, KindOutput, obj.ID)
		require.NoError(t, err)
		assert.Equal(t, KindOutput, got.Kind)
	})
}

func TestStore_NotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		_, _, err := s.Open(ctx, KindUpload, "5b8f7c62-5c5d-4f47-9a54-0c7b1b1b2b10")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.Stat(ctx, KindUpload, "../../etc/passwd")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_FilenameIsBaseName(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		obj, err := s.Put(context.Background(), KindUpload, `C:\Users\me\book.xlsx`, strings.NewReader("x"))
		require.NoError(t, err)
		assert.Equal(t, "book.xlsx", obj.Filename)
	})
}

func TestStore_SweepRetention(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()
		start := clock.t
		upload, err := s.Put(ctx, KindUpload, "in.xlsx", strings.NewReader("in"))
		require.NoError(t, err)
		output, err := s.Put(ctx, KindOutput, "out.xlsx", strings.NewReader("out"))
		require.NoError(t, err)

		n, err := s.Sweep(ctx, start.Add(23*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		n, err = s.Sweep(ctx, start.Add(25*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, err = s.Stat(ctx, KindUpload, upload.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Stat(ctx, KindOutput, output.ID)
		assert.NoError(t, err, "outputs are kept for 48h")

		n, err = s.Sweep(ctx, start.Add(49*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, err = s.Stat(ctx, KindOutput, output.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_UnknownKind(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		_, err := s.Put(context.Background(), Kind("temp"), "x.xlsx", strings.NewReader("x"))
		assert.Error(t, err)
	})
}

func TestRetention_For(t *testing.T) {
	r := Retention{Upload: time.Hour, Output: 2 * time.Hour}
	assert.Equal(t, time.Hour, r.For(KindUpload))
	assert.Equal(t, 2*time.Hour, r.For(KindOutput))
	assert.Equal(t, 24*time.Hour, DefaultRetention.For(KindUpload))
	assert.Equal(t, 48*time.Hour, DefaultRetention.For(KindOutput))
}
