package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := New(func(key string) string {
		if key == "" {
			return root
		}
		return key
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func waitForKey(t *testing.T, w *Watcher, want string) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case key := <-w.Changes():
			if key == want {
				return
			}
		case <-timeout:
			t.Fatalf("no change reported for %q", want)
		}
	}
}

func TestWatcher_ReportsCreatedFile(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)
	require.NoError(t, w.Watch(""))

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.txt"), []byte("x"), 0644))
	waitForKey(t, w, "")
}

func TestWatcher_ReportsNestedKey(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))

	w := newTestWatcher(t, root)
	require.NoError(t, w.Watch(sub))
	require.NoError(t, w.Watch(sub), "watching twice is allowed")

	require.NoError(t, os.WriteFile(filepath.Join(sub, "f"), []byte("x"), 0644))
	waitForKey(t, w, sub)
}

func TestWatcher_UnwatchAndClose(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	require.NoError(t, w.Watch(""))
	require.NoError(t, w.Unwatch(""))
	require.NoError(t, w.Unwatch(""), "unwatching twice is allowed")

	assert.Error(t, w.Watch(filepath.Join(root, "missing")))

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	_, open := <-w.Changes()
	assert.False(t, open)
}
