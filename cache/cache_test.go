package cache

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chTempDir(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func TestCacheRoundTrip(t *testing.T) {
	chTempDir(t)

	require.NoError(t, WriteCache("ana", 42, "<html>entry</html>"))

	content, found := ReadCache("ana", 42, time.Minute)
	require.True(t, found)
	assert.Equal(t, "<html>entry</html>", content)
}

func TestReadCache_Expired(t *testing.T) {
	chTempDir(t)

	require.NoError(t, WriteCache("ana", 42, "stale"))

	_, found := ReadCache("ana", 42, 0)
	assert.False(t, found)
}

func TestClearCache(t *testing.T) {
	chTempDir(t)

	require.NoError(t, WriteCache("ana", 42, "content"))
	require.NoError(t, ClearCache("ana", 42))

	_, found := ReadCache("ana", 42, time.Minute)
	assert.False(t, found)

	// clearing an entry that was never cached is fine
	assert.NoError(t, ClearCache("ana", 99))
}

func TestClearUserCache(t *testing.T) {
	chTempDir(t)

	require.NoError(t, WriteCache("ana", 1, "one"))
	require.NoError(t, WriteCache("ana", 2, "two"))
	require.NoError(t, WriteCache("bruno", 3, "three"))

	require.NoError(t, ClearUserCache("ana"))

	_, found := ReadCache("ana", 1, time.Minute)
	assert.False(t, found)
	_, found = ReadCache("bruno", 3, time.Minute)
	assert.True(t, found)
}

func TestGetCachePath_DistinctPerEntry(t *testing.T) {
	a := GetCachePath("ana", 1)
	b := GetCachePath("ana", 2)
	c := GetCachePath("bruno", 1)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestEntryPath(t *testing.T) {
	username, pageID, ok := entryPath("/u/ana/pages/42")
	require.True(t, ok)
	assert.Equal(t, "ana", username)
	assert.Equal(t, uint(42), pageID)

	_, _, ok = entryPath("/u/ana")
	assert.False(t, ok)

	_, _, ok = entryPath("/u/ana/pages/notanumber")
	assert.False(t, ok)

	_, _, ok = entryPath("/account/pages/42/edit")
	assert.False(t, ok)
}
