// Copyright 2025 Benny Powers. Adapted under the GNU General Public
// License, version 3 or later; see <http://www.gnu.org/licenses/>.

// Package watch implements continuous mode (spec.md §4.8): a recursive
// fsnotify watch over the tree rooted at basedir, debounced into wakeups
// for the scheduler, with a suppression set so events on the files whose
// digests the scheduler is re-reading do not re-trigger the loop they came
// from. Only paths passed to Add are suppressed.
package watch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nwillc/tracebuild/internal/logging"
)

// DefaultDebounce is the window spec.md §6 gives continuously_wait.
const DefaultDebounce = 250 * time.Millisecond

// Watcher recursively watches a directory tree and wakes callers blocked
// in Wait whenever a file changes that is not currently suppressed. It
// satisfies sched.Suppressor.
type Watcher struct {
	watcher  *fsnotify.Watcher
	basedir  string
	debounce time.Duration

	mu          sync.Mutex
	cond        *sync.Cond
	woken       bool
	suppressed  map[string]struct{}
	done        chan struct{}
	closeOnce   sync.Once
}

// New starts watching every directory under basedir, recursively.
func New(basedir string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		watcher:    fw,
		basedir:    basedir,
		debounce:   debounce,
		suppressed: map[string]struct{}{},
		done:       make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)

	if err := w.addTree(basedir); err != nil {
		fw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

// addTree adds basedir and every subdirectory beneath it to the
// underlying watch set. fsnotify only watches the directories it is
// explicitly told about, not their descendants, so new directories are
// picked up as CREATE events arrive and are added on the fly in run.
func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		return w.watcher.Add(p)
	})
}

// IsSuppressed reports whether path was marked via Add. The scheduler
// calls Add just before re-reading a FileNode's digest, so the write that
// digest observes never re-enters as a change. Querying does not change
// the set; the event loop in run removes a path once an event for it
// arrives, so a later, genuine edit to the same path is not suppressed
// indefinitely.
func (w *Watcher) IsSuppressed(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.suppressed[filepath.Clean(path)]
	return ok
}

// Add marks path as suppressed for the remainder of the current window.
func (w *Watcher) Add(path string) {
	w.mu.Lock()
	w.suppressed[filepath.Clean(path)] = struct{}{}
	w.mu.Unlock()
}

// Wait blocks until a non-suppressed change has been observed, or the
// watcher is closed (in which case it returns false).
func (w *Watcher) Wait() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for !w.woken {
		w.cond.Wait()
	}
	w.woken = false

	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// Close stops the underlying fsnotify watcher and releases Wait.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.mu.Lock()
		w.woken = true
		w.cond.Broadcast()
		w.mu.Unlock()
	})
	return err
}

// run pumps fsnotify events, grows the watch set as new directories
// appear, and debounces non-suppressed changes into a single wakeup.
func (w *Watcher) run() {
	var timer *time.Timer

	fire := func() {
		w.mu.Lock()
		// The suppression set only protects the write that just happened;
		// once the debounce window elapses it is stale and must not mask
		// the next real edit to the same path.
		w.suppressed = map[string]struct{}{}
		w.woken = true
		w.cond.Broadcast()
		w.mu.Unlock()
	}

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						logging.Warning("watch: adding %q: %v", ev.Name, err)
					}
				}
			}
			w.mu.Lock()
			name := filepath.Clean(ev.Name)
			_, suppressed := w.suppressed[name]
			delete(w.suppressed, name)
			w.mu.Unlock()
			if suppressed {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, fire)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warning("watch: %v", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
