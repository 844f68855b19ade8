package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/scribe/internal/config"
	"github.com/Iron-Ham/scribe/internal/document"
)

const watchDebounce = 300 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch <brief.yaml>",
	Short: "Regenerate a document whenever its brief changes",
	Long: `Generate a document from a YAML brief, then watch the file and
generate again each time it is saved. Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchPro  bool
	watchOut  string
	watchHTML bool
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchPro, "pro", false, "route core sections to the premium-pro tier")
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "", "output directory (default from config)")
	watchCmd.Flags().BoolVar(&watchHTML, "html", false, "also write document.html")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path := args[0]
	opts := generateOptions{
		ProMode: watchPro || cfg.Writer.ProMode,
		OutDir:  watchOut,
		HTML:    watchHTML || cfg.Output.HTML,
	}
	if opts.OutDir == "" {
		opts.OutDir = cfg.Output.Dir
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	regenerate := func() {
		runFromBrief(ctx, out, cfg, path, opts)
		fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)\n", path)
	}

	w, err := newBriefWatcher(path)
	if err != nil {
		return err
	}
	defer w.Close()

	regenerate()
	err = w.Run(ctx, regenerate)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// runFromBrief loads the brief and generates once. Failures are reported
// and the watch continues.
func runFromBrief(ctx context.Context, out io.Writer, cfg *config.Config, path string, opts generateOptions) {
	brief, err := resolveBrief(path, document.Brief{})
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	if _, err := generate(ctx, out, cfg, brief, opts); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	}
}

// briefWatcher reports debounced writes to a single file.
type briefWatcher struct {
	watcher  *fsnotify.Watcher
	target   string
	debounce time.Duration
}

func newBriefWatcher(path string) (*briefWatcher, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat brief: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory so editors that replace the file are still seen
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &briefWatcher{
		watcher:  watcher,
		target:   filepath.Base(path),
		debounce: watchDebounce,
	}, nil
}

// Run calls onChange after each burst of writes to the file until ctx is
// done or the watcher fails.
func (w *briefWatcher) Run(ctx context.Context, onChange func()) error {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			// Only care about writes to the brief itself
			if filepath.Base(event.Name) != w.target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// Debounce to avoid multiple rapid notifications
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("file watcher failed: %w", err)
		}
	}
}

// Close stops watching.
func (w *briefWatcher) Close() error {
	return w.watcher.Close()
}
