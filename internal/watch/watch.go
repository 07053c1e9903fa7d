// Package watch follows the cache file and emits a fresh projection line
// whenever another process updates it.
package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JillVernus/cc-usageline/internal/cachestore"
	"github.com/JillVernus/cc-usageline/internal/project"
)

// debounceWindow absorbs the write bursts some editors and atomic-rename
// writers produce for a single logical update.
const debounceWindow = 200 * time.Millisecond

// Run watches the cache file until done is closed, writing one JSON
// projection line to out per observed update. The current state is emitted
// once on startup.
func Run(done <-chan struct{}, store *cachestore.Store, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: the cache may not exist yet, and
	// whole-file overwrites can replace the inode.
	dir := filepath.Dir(store.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	emit := func() {
		_, raw := store.Read()
		line, err := json.Marshal(project.Project(raw, time.Now()))
		if err != nil {
			return
		}
		fmt.Fprintln(out, string(line))
	}

	emit()

	var debounce *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != store.Path() {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			emit()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("⚠️ Cache watch error: %v", err)
		case <-done:
			return nil
		}
	}
}
