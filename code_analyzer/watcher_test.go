package code_analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_RefreshesOnSourceChange(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "Foo.cs", "class Foo { }")

	analyzer := newTestAnalyzer(t, root)
	_, err := analyzer.Refresh(context.Background())
	require.NoError(t, err)

	refreshed := make(chan *models.Snapshot, 4)
	watcher, err := NewWatcher(analyzer, 50*time.Millisecond, func(_ *models.Snapshot, current *models.Snapshot) {
		refreshed <- current
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	writeSource(t, root, "Bar.cs", "class Bar { public int v; }")

	select {
	case snapshot := <-refreshed:
		assert.Equal(t, 2, snapshot.TypeCount)
		assert.Contains(t, snapshot.Flat, "File: Assets/Scripts/Bar.cs")
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not refresh after a change")
	}
}

func TestWatcher_MissingRoot(t *testing.T) {
	analyzer := newTestAnalyzer(t, t.TempDir()+"/missing")

	_, err := NewWatcher(analyzer, 0, nil)
	assert.Error(t, err)
}

func TestWatcher_RelevantEvents(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "Foo.cs", "")
	writeSource(t, root, "notes.txt", "")

	analyzer := newTestAnalyzer(t, root)
	w := &Watcher{analyzer: analyzer}

	assert.True(t, w.relevant(fsnotify.Event{Name: root + "/Foo.cs", Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: root + "/Foo.cs", Op: fsnotify.Chmod}))
	assert.False(t, w.relevant(fsnotify.Event{Name: root + "/notes.txt", Op: fsnotify.Write}))
	assert.True(t, w.relevant(fsnotify.Event{Name: root + "/Gone", Op: fsnotify.Remove}))
	assert.False(t, w.relevant(fsnotify.Event{Name: root + "/.git/Temp.cs", Op: fsnotify.Create}))
}
