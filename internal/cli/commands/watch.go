package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leaplayout/internal/state"
	"github.com/leapstack-labs/leaplayout/pkg/core"
	"github.com/leapstack-labs/leaplayout/pkg/extract"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <source>...",
		Short: "Rebuild contracts when their sources change",
		Long: `Extract every source once, then watch them and rebuild the contract of a
source each time it is written. Cached contracts of a changed source are
dropped before the rebuild. Stop with Ctrl-C.`,
		Example: `  leaplayout watch IDP470RA.pli
  leaplayout watch src/*.cpy --engine cobol --debounce 500ms`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, NewCommandContext(cmd), args, debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "Quiet period before a rebuild")
	return cmd
}

// sourceWatcher rebuilds contracts of watched sources.
type sourceWatcher struct {
	cc        *CommandContext
	store     *state.SQLiteStore
	extractor *extract.Extractor
	// sources maps cleaned absolute paths to the paths given by the user.
	sources map[string]string
}

func newSourceWatcher(cc *CommandContext, store *state.SQLiteStore, args []string) (*sourceWatcher, error) {
	w := &sourceWatcher{
		cc:        cc,
		store:     store,
		extractor: cc.newExtractor(store),
		sources:   make(map[string]string, len(args)),
	}
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", arg, err)
		}
		w.sources[filepath.Clean(abs)] = arg
	}
	return w, nil
}

// dirs returns the directories holding the watched sources.
func (w *sourceWatcher) dirs() []string {
	seen := map[string]bool{}
	var out []string
	for abs := range w.sources {
		dir := filepath.Dir(abs)
		if !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
	}
	sort.Strings(out)
	return out
}

// match returns the user path of the source an event touches.
func (w *sourceWatcher) match(event fsnotify.Event) (string, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return "", false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return "", false
	}
	src, ok := w.sources[filepath.Clean(abs)]
	return src, ok
}

// rebuild drops the cached contracts of source, extracts it again and saves
// the contract.
func (w *sourceWatcher) rebuild(ctx context.Context, source string) (*core.ContractSpec, string, error) {
	if w.store != nil {
		n, err := w.store.DeleteSource(ctx, source)
		if err != nil {
			return nil, "", err
		}
		if n > 0 {
			w.cc.Logger.Debug("dropped cached contracts", "source", source, "entries", n)
		}
	}
	res, err := w.extractor.ExtractFile(ctx, source, w.cc.extractOptions())
	if err != nil {
		return nil, "", err
	}
	path := w.cc.contractPath(res.Contract.SourceProgram)
	if err := core.SaveContract(res.Contract, path); err != nil {
		return nil, "", err
	}
	return res.Contract, path, nil
}

func (w *sourceWatcher) rebuildAndReport(ctx context.Context, source string) {
	r := w.cc.Renderer
	c, path, err := w.rebuild(ctx, source)
	if err != nil {
		w.cc.Logger.Error("rebuild failed", "source", source, "error", err)
		r.Error(fmt.Sprintf("%s: %v", source, err))
		return
	}
	r.Success(fmt.Sprintf("%s -> %s (%d records, line length %d)", source, path, len(c.RecordTypes), c.LineLength))
}

func runWatch(ctx context.Context, cc *CommandContext, args []string, debounce time.Duration) error {
	store, err := cc.openStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	w, err := newSourceWatcher(cc, store, args)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	for _, dir := range w.dirs() {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	for _, source := range args {
		w.rebuildAndReport(ctx, source)
	}
	cc.Renderer.Muted(fmt.Sprintf("Watching %d source(s), press Ctrl-C to stop", len(args)))

	changes := make(chan string)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(changes)
		for {
			select {
			case <-gctx.Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if source, ok := w.match(event); ok {
					select {
					case changes <- source:
					case <-gctx.Done():
						return nil
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				cc.Logger.Warn("watcher error", "error", err)
			}
		}
	})

	g.Go(func() error {
		pending := map[string]bool{}
		timer := time.NewTimer(debounce)
		timer.Stop()
		for {
			select {
			case source, ok := <-changes:
				if !ok {
					return nil
				}
				pending[source] = true
				timer.Reset(debounce)
			case <-timer.C:
				for _, source := range sortedKeys(pending) {
					cc.Logger.Info("change detected", "source", source)
					w.rebuildAndReport(gctx, source)
				}
				clear(pending)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
