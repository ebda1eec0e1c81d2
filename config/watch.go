package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"ghosttext/logger"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the event bursts editors produce on save
const debounceDelay = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands the
// freshly validated config to a callback. A reload that fails to parse or
// validate keeps the previous config in effect.
type Watcher struct {
	path      string
	watcher   *fsnotify.Watcher
	onReload  func(*Config)
	done      chan struct{}
	closeOnce sync.Once
}

// Watch starts watching the config file at path. The watch is registered on
// the parent directory because editors typically replace files by rename,
// which silently drops a watch held on the file itself.
func Watch(path string, onReload func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:     abs,
		watcher:  fw,
		onReload: onReload,
		done:     make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

// Close stops the watcher
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

func (w *Watcher) watchLoop() {
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = true
			debounce.Reset(debounceDelay)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("config: watch error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logger.Warn("config: reload failed, keeping previous config: %v", err)
		return
	}
	logger.Info("config: reloaded from %s", w.path)
	w.onReload(cfg)
}
