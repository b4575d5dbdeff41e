package cli

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsInputChange(t *testing.T) {
	path := filepath.Join("data", "opinions.json")
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: path, Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: path, Op: fsnotify.Create}, true},
		{"write and chmod", fsnotify.Event{Name: path, Op: fsnotify.Write | fsnotify.Chmod}, true},
		{"remove", fsnotify.Event{Name: path, Op: fsnotify.Remove}, false},
		{"rename", fsnotify.Event{Name: path, Op: fsnotify.Rename}, false},
		{"chmod", fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: filepath.Join("data", "other.json"), Op: fsnotify.Write}, false},
		{"unclean name", fsnotify.Event{Name: "data/./opinions.json", Op: fsnotify.Write}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isInputChange(tt.event, path))
		})
	}
}

func TestWatchFile_RunsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opinions.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, 20*time.Millisecond, func(context.Context) error {
			calls.Add(1)
			return nil
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a"}]`), 0o600))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatchFile_MissingDirectory(t *testing.T) {
	err := watchFile(context.Background(), filepath.Join(t.TempDir(), "missing", "c.json"),
		time.Millisecond, func(context.Context) error { return nil })
	assert.Error(t, err)
}
