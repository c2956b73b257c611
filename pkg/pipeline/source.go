package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// debounce collapses the burst of events editors emit on save.
const debounce = 100 * time.Millisecond

// FileSource re-reads a pipeline file on every call.
// It implements ports.DescriptorSource and ports.Watchable.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// SourceOption configures a FileSource.
type SourceOption func(*FileSource)

// WithLogger configures the structured logger for the watcher.
func WithLogger(logger *slog.Logger) SourceOption {
	return func(s *FileSource) {
		s.logger = logger
	}
}

// NewFileSource creates a source for the pipeline at path.
func NewFileSource(path string, opts ...SourceOption) *FileSource {
	s := &FileSource{path: path, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the watched file.
func (s *FileSource) Path() string { return s.path }

// Pipeline loads the current document.
func (s *FileSource) Pipeline() (*Pipeline, error) {
	return Load(s.path)
}

func (s *FileSource) Descriptors(ctx context.Context) ([]domain.TaskDescriptor, error) {
	p, err := s.Pipeline()
	if err != nil {
		return nil, err
	}
	return p.Descriptors(ctx)
}

// Watch signals on the returned channel whenever the file is written, created
// or renamed into place. The channel is closed when ctx is done.
func (s *FileSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	// Watch the directory: editors often replace the file instead of writing it.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer watcher.Close()

		var timer <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
					continue
				}
				s.logger.Debug("pipeline file changed", "path", evt.Name, "op", evt.Op.String())
				timer = time.After(debounce)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watcher error", "error", err)
			case <-timer:
				timer = nil
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}
