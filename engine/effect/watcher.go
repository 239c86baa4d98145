package effect

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// SourceWatcher watches shader source files and reports modified classes by name
// (the file name without its extension).
type SourceWatcher struct {
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	onChange func(name string)

	mu      sync.Mutex
	tracked map[string]struct{}
	done    chan struct{}
}

// NewSourceWatcher starts a watcher goroutine calling onChange for every modified source.
func NewSourceWatcher(logger zerolog.Logger, onChange func(name string)) (*SourceWatcher, error) {
	if onChange == nil {
		panic("effect: source watcher requires a change callback")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("effect: failed to create source watcher: %w", err)
	}
	sw := &SourceWatcher{
		watcher:  w,
		logger:   logger.With().Str("component", "source_watcher").Logger(),
		onChange: onChange,
		tracked:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	go sw.loop()
	return sw, nil
}

// Track adds a source file to the watch list. Tracking the same file twice is a no-op.
func (sw *SourceWatcher) Track(path string) error {
	path = filepath.Clean(path)
	sw.mu.Lock()
	if _, ok := sw.tracked[path]; ok {
		sw.mu.Unlock()
		return nil
	}
	sw.tracked[path] = struct{}{}
	sw.mu.Unlock()

	if err := sw.watcher.Add(path); err != nil {
		sw.mu.Lock()
		delete(sw.tracked, path)
		sw.mu.Unlock()
		return fmt.Errorf("effect: failed to watch %q: %w", path, err)
	}
	return nil
}

// Close stops the watcher goroutine.
func (sw *SourceWatcher) Close() error {
	err := sw.watcher.Close()
	<-sw.done
	return err
}

func (sw *SourceWatcher) loop() {
	defer close(sw.done)
	for {
		select {
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name := SourceName(ev.Name)
			sw.logger.Debug().Str("file", ev.Name).Str("source", name).Msg("shader source modified")
			sw.onChange(name)
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warn().Err(err).Msg("source watcher error")
		}
	}
}

// SourceName returns the shader class name of a source file path.
func SourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
