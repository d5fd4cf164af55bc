// Package watcher reports file changes under a set of directories.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

type Service struct {
	roots      []string
	extensions map[string]struct{}
	debounce   time.Duration
	logger     *slog.Logger
	onChange   func(context.Context, string)
	watcher    *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
}

type Option func(*Service)

// WithDebounce sets how long a path must stay quiet before onChange runs.
// Zero reports every event immediately.
func WithDebounce(delay time.Duration) Option {
	return func(s *Service) {
		if delay < 0 {
			delay = 0
		}
		s.debounce = delay
	}
}

// New watches roots recursively and calls onChange for files whose extension
// is in extensions. An empty extension list matches every file.
func New(roots, extensions []string, logger *slog.Logger, onChange func(context.Context, string), opts ...Option) (*Service, error) {
	fileWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	allowed := map[string]struct{}{}
	for _, extension := range extensions {
		extension = strings.ToLower(strings.TrimSpace(extension))
		if extension == "" {
			continue
		}
		if !strings.HasPrefix(extension, ".") {
			extension = "." + extension
		}
		allowed[extension] = struct{}{}
	}
	service := &Service{
		roots:      roots,
		extensions: allowed,
		debounce:   defaultDebounce,
		logger:     logger,
		onChange:   onChange,
		watcher:    fileWatcher,
		pending:    map[string]*time.Timer{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

func (s *Service) Start(ctx context.Context) error {
	defer s.watcher.Close()
	defer s.stopPending()

	for _, root := range s.roots {
		if err := s.addRecursive(root); err != nil {
			return err
		}
	}
	s.logger.Info("file watcher started", "roots", strings.Join(s.roots, ","))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("file watcher stopped")
			return nil
		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, event)
		case err := <-s.watcher.Errors:
			if err != nil {
				s.logger.Error("file watcher error", "error", err)
			}
		}
	}
}

func (s *Service) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			return fmt.Errorf("watch path %s: %w", path, err)
		}
		return nil
	})
}

func (s *Service) matches(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	_, ok := s.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (s *Service) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := s.addRecursive(event.Name); err != nil {
				s.logger.Error("failed to add new directory to watcher", "path", event.Name, "error", err)
			}
			return
		}
	}
	if !s.matches(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	s.logger.Debug("watched file changed", "path", event.Name, "op", event.Op.String())
	s.schedule(ctx, event.Name)
}

// schedule coalesces bursts of events on one path, such as a large index
// written in several chunks, into a single onChange call.
func (s *Service) schedule(ctx context.Context, path string) {
	if s.debounce <= 0 {
		s.onChange(ctx, path)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.pending[path]; ok {
		timer.Reset(s.debounce)
		return
	}
	s.pending[path] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.pending, path)
		s.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		s.logger.Info("watched file settled", "path", path)
		s.onChange(ctx, path)
	})
}

func (s *Service) stopPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, timer := range s.pending {
		timer.Stop()
		delete(s.pending, path)
	}
}
