// Package cmlreload watches a wheel.Config file on disk and applies
// changes to a live wheel via Wheel.Reconfigure, the way
// reload_orchestrator.go in the wider ecosystem watches and re-applies
// configuration without restarting the process.
package cmlreload

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/cml-go/cml/wheel"
)

// Logger is the minimal seam this package logs through; cml.Logger
// satisfies it (wheel.Logger, which has only Error, does not).
type Logger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}

// Watcher reloads a wheel.Config from path whenever the file changes
// and applies it to w.
type Watcher struct {
	path   string
	w      *wheel.Wheel
	logger Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	stopCh  chan struct{}
	stopped bool
}

// New builds a Watcher over path, targeting w. It does not start
// watching until Start is called.
func New(path string, w *wheel.Wheel, logger Logger) *Watcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Watcher{path: path, w: w, logger: logger, stopCh: make(chan struct{})}
}

// Start begins watching path for writes, applying each successfully
// parsed config. Malformed files are logged and otherwise ignored: the
// wheel keeps running on its last-good configuration.
func (rw *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(rw.path); err != nil {
		fsw.Close()
		return err
	}
	rw.mu.Lock()
	rw.fsw = fsw
	rw.mu.Unlock()

	go rw.loop(fsw)
	return nil
}

func (rw *Watcher) loop(fsw *fsnotify.Watcher) {
	for {
		select {
		case <-rw.stopCh:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			rw.reload()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			rw.logger.Error("cmlreload: watcher error", "error", err)
		}
	}
}

func (rw *Watcher) reload() {
	data, err := os.ReadFile(rw.path)
	if err != nil {
		rw.logger.Error("cmlreload: read config", "path", rw.path, "error", err)
		return
	}
	// Decode into a generic map first, same as wheel.LoadConfigFile:
	// yaml.v3 has no notion of a duration string against a time.Duration
	// (int64-kind) field, so a direct Unmarshal into wheel.Config would
	// reject "1ms"-style values. LoadConfig's castDuration gives the
	// tickDuration/sleepCap fields the loose-typing tolerance a
	// hand-edited override file needs.
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		rw.logger.Error("cmlreload: parse config", "path", rw.path, "error", err)
		return
	}
	cfg, err := wheel.LoadConfig(raw)
	if err != nil {
		rw.logger.Error("cmlreload: decode config", "path", rw.path, "error", err)
		return
	}
	if err := rw.w.Reconfigure(cfg); err != nil {
		rw.logger.Error("cmlreload: apply config", "path", rw.path, "error", err)
		return
	}
	rw.logger.Info("cmlreload: applied wheel config", "path", rw.path)
}

// Stop halts the watch loop and closes the underlying fsnotify watcher.
func (rw *Watcher) Stop() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.stopped {
		return nil
	}
	rw.stopped = true
	close(rw.stopCh)
	if rw.fsw != nil {
		return rw.fsw.Close()
	}
	return nil
}
