package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"sonaris/internal/logging"
)

// Handler receives the path of a settled recording.
type Handler func(ctx context.Context, path string)

// Options configures a directory watcher.
type Options struct {
	// Dir is the directory to watch. Subdirectories are not followed.
	Dir string
	// Pattern is a glob matched against base names. Empty matches everything.
	Pattern string
	// Settle is how long a file's size must hold steady before it is handed
	// to the handler.
	Settle time.Duration
	// Handler is invoked once per settled file, from the watch loop.
	Handler Handler
	// Logger receives watch events. Nil means no logging.
	Logger *slog.Logger
}

// Watcher hands off files in a directory once they stop growing.
type Watcher struct {
	opts   Options
	logger *slog.Logger
}

// New validates the options and builds a watcher.
func New(opts Options) (*Watcher, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("watch: directory is required")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("watch: handler is required")
	}
	if opts.Settle <= 0 {
		opts.Settle = 2 * time.Second
	}
	if opts.Pattern != "" {
		if _, err := filepath.Match(opts.Pattern, "probe"); err != nil {
			return nil, fmt.Errorf("watch: invalid pattern %q", opts.Pattern)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{opts: opts, logger: logging.WithComponent(logger, "watch")}, nil
}

type pendingFile struct {
	size        int64
	stableSince time.Time
}

// Run watches until the context is canceled. The handler runs on the watch
// goroutine, so a long conversion delays pickup of later files but never
// loses them.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("watch %q: %w", w.opts.Dir, err)
	}
	w.logger.Info("watching directory",
		"dir", w.opts.Dir,
		"pattern", w.opts.Pattern,
		logging.Duration("settle", w.opts.Settle))

	// the handler and anything it runs inherit the watch logger
	handlerCtx := logging.WithLogger(ctx, w.logger)

	pending := make(map[string]*pendingFile)
	poll := w.opts.Settle / 2
	if poll < 10*time.Millisecond {
		poll = 10 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				delete(pending, event.Name)
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			if _, tracked := pending[event.Name]; !tracked {
				w.logger.Debug("tracking new file", logging.FieldFile, event.Name)
			}
			pending[event.Name] = &pendingFile{size: -1}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Error(err))

		case now := <-ticker.C:
			w.sweep(handlerCtx, pending, now)
		}
	}
}

// sweep re-stats every pending file and hands off the ones whose size has
// held steady for the settle window.
func (w *Watcher) sweep(ctx context.Context, pending map[string]*pendingFile, now time.Time) {
	for path, state := range pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(pending, path)
			continue
		}
		if info.Size() != state.size {
			state.size = info.Size()
			state.stableSince = now
			continue
		}
		if now.Sub(state.stableSince) < w.opts.Settle {
			continue
		}
		delete(pending, path)
		w.logger.Info("file settled", logging.FieldFile, path, "bytes", info.Size())
		w.opts.Handler(ctx, path)
	}
}

func (w *Watcher) matches(path string) bool {
	if w.opts.Pattern == "" {
		return true
	}
	ok, err := filepath.Match(w.opts.Pattern, filepath.Base(path))
	return err == nil && ok
}
