package scriptstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/codalotl/linediff/internal/applypatch"
	"github.com/codalotl/linediff/internal/diff"
	"github.com/stretchr/testify/require"
)

func TestKeyFor(t *testing.T) {
	k1 := KeyFor("a\n", "b\n")
	k2 := KeyFor("a\n", "b\n")
	k3 := KeyFor("b\n", "a\n")

	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)
	require.Len(t, string(k1), 64)
	require.NoError(t, validateKey(k1))
	require.Equal(t, string(k1[:12]), k1.Short())
}

func TestStore_PutGetApply(t *testing.T) {
	root := t.TempDir()
	st := &Store{AbsRoot: root}

	oldText := "a\nb\nc\n"
	newText := "a\nx\nc\nd\n"

	key, err := st.Put(oldText, newText)
	require.NoError(t, err)
	require.Equal(t, KeyFor(oldText, newText), key)

	// Assert it stored at AbsRoot/scripts-v1/<key[0:2]>/<key[2:]>.
	_, err = os.Stat(filepath.Join(root, "scripts-v1", string(key[:2]), string(key[2:])))
	require.NoError(t, err)

	rec, found, err := st.Get(key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "linediff-script-v1", rec.Kind)
	require.Equal(t, applypatch.HashText(oldText), rec.OldHash)
	require.Equal(t, applypatch.HashText(newText), rec.NewHash)
	require.Equal(t, Stats{Equal: 2, Deleted: 1, Inserted: 2}, rec.Stats)
	require.NotZero(t, rec.UnixTimestamp)

	got, err := st.Apply(key, oldText)
	require.NoError(t, err)
	require.Equal(t, newText, got)
}

func TestStore_ApplyMismatch(t *testing.T) {
	st := &Store{AbsRoot: t.TempDir()}
	key, err := st.Put("a\nb\n", "a\nc\n")
	require.NoError(t, err)

	_, err = st.Apply(key, "a\nB\n")
	require.Error(t, err)
	require.True(t, diff.IsScriptMismatch(err))
}

func TestStore_PutIsIdempotent(t *testing.T) {
	root := t.TempDir()
	st := &Store{AbsRoot: root}

	key, err := st.Put("x\n", "y\n")
	require.NoError(t, err)
	path := st.recordPath(key)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	key2, err := st.Put("x\n", "y\n")
	require.NoError(t, err)
	require.Equal(t, key, key2)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestStore_GetMissing(t *testing.T) {
	st := &Store{AbsRoot: t.TempDir()}

	_, found, err := st.Get(KeyFor("nope", "nope"))
	require.NoError(t, err)
	require.False(t, found)

	_, err = st.Apply(KeyFor("nope", "nope"), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListAndResolve(t *testing.T) {
	st := &Store{AbsRoot: t.TempDir()}

	keys, err := st.List()
	require.NoError(t, err)
	require.Empty(t, keys)

	k1, err := st.Put("1\n", "2\n")
	require.NoError(t, err)
	k2, err := st.Put("2\n", "3\n")
	require.NoError(t, err)

	// Strays in the store directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(st.AbsRoot, "scripts-v1", string(k1[:2]), "tmp-123"), []byte("x"), 0o644))

	keys, err = st.List()
	require.NoError(t, err)
	want := []Key{k1, k2}
	if k2 < k1 {
		want = []Key{k2, k1}
	}
	require.Equal(t, want, keys)

	got, err := st.Resolve(string(k1[:10]))
	require.NoError(t, err)
	require.Equal(t, k1, got)

	_, err = st.Resolve("abc")
	require.ErrorContains(t, err, "too short")

	_, err = st.Resolve("zzzzzz")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ConcurrentPut(t *testing.T) {
	st := &Store{AbsRoot: t.TempDir()}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.Put("same\n", "other\n")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	keys, err := st.List()
	require.NoError(t, err)
	require.Len(t, keys, 1)
}

func TestStore_Validates(t *testing.T) {
	_, err := (&Store{}).Put("a", "b")
	require.Error(t, err)

	_, err = (&Store{AbsRoot: "relative"}).List()
	require.Error(t, err)

	st := &Store{AbsRoot: t.TempDir()}
	_, _, err = st.Get(Key("../../etc"))
	require.Error(t, err)
}

func TestStore_UnknownKind(t *testing.T) {
	st := &Store{AbsRoot: t.TempDir()}
	key := KeyFor("a", "b")
	path := st.recordPath(key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	b, err := json.Marshal(Record{Kind: "something-else"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))

	_, _, err = st.Get(key)
	require.ErrorContains(t, err, "unknown record kind")
}
