package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/scribe/internal/config"
	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/errors"
	"github.com/Iron-Ham/scribe/internal/logging"
	"github.com/Iron-Ham/scribe/internal/pipeline"
	"github.com/Iron-Ham/scribe/internal/progress"
	"github.com/Iron-Ham/scribe/internal/provider"
	"github.com/Iron-Ham/scribe/internal/tui"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a document from a brief",
	Long: `Generate a long-form document from a project brief.

The brief comes from --title/--idea/--category or a YAML file given with
--brief; flags override values read from the file. The document, its JSON
bundle and (with --html) an HTML page are written to a per-run folder under
the output directory.`,
	Example: `  scribe generate --title "Smart Farm Co-op" --idea "Shared sensors for small farms" --category business_plan
  scribe generate --brief brief.yaml --pro --html`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var (
	genBrief document.Brief
	genFile  string
	genPro   bool
	genOut   string
	genHTML  bool
	genTUI   bool
)

func init() {
	rootCmd.AddCommand(generateCmd)
	f := generateCmd.Flags()
	f.StringVar(&genBrief.Title, "title", "", "document title")
	f.StringVar(&genBrief.Idea, "idea", "", "free-text description of the project")
	f.StringVar(&genBrief.Category, "category", "", "category tag, e.g. business_plan or technical_report")
	f.StringVar(&genBrief.CorrelationID, "correlation-id", "", "id carried into logs and bundle metadata")
	f.StringVar(&genFile, "brief", "", "YAML brief file")
	f.BoolVar(&genPro, "pro", false, "route core sections to the premium-pro tier")
	f.StringVarP(&genOut, "out", "o", "", "output directory (default from config)")
	f.BoolVar(&genHTML, "html", false, "also write document.html")
	f.BoolVar(&genTUI, "tui", true, "show live progress when stdout is a terminal")
}

// generateOptions are the per-invocation settings layered over the config.
type generateOptions struct {
	ProMode     bool
	OutDir      string
	HTML        bool
	Interactive bool
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	brief, err := resolveBrief(genFile, genBrief)
	if err != nil {
		return err
	}

	opts := generateOptions{
		ProMode:     genPro || cfg.Writer.ProMode,
		OutDir:      genOut,
		HTML:        genHTML || cfg.Output.HTML,
		Interactive: genTUI && term.IsTerminal(int(os.Stdout.Fd())),
	}
	if opts.OutDir == "" {
		opts.OutDir = cfg.Output.Dir
	}

	_, err = generate(cmd.Context(), cmd.OutOrStdout(), cfg, brief, opts)
	return err
}

// generate runs one generation and writes its files, returning their paths.
func generate(ctx context.Context, out io.Writer, cfg *config.Config, brief document.Brief, opts generateOptions) (document.Files, error) {
	logger, err := newLogger(cfg, opts.Interactive)
	if err != nil {
		return document.Files{}, err
	}
	defer logger.Close()

	pcfg, err := pipelineConfig(cfg, os.Getenv, opts.ProMode)
	if err != nil {
		return document.Files{}, err
	}
	return runPipeline(ctx, out, pcfg, logger, brief, opts)
}

// generationError is a fatal run as shown on the command line. The full
// error stays reachable through Unwrap and in the run log.
type generationError struct {
	err error
}

func (e *generationError) Error() string {
	return "generation failed: " + errors.UserMessage(e.err)
}

func (e *generationError) Unwrap() error { return e.err }

// runPipeline generates with pcfg, writes the bundle files and prints the
// run summary.
func runPipeline(ctx context.Context, out io.Writer, pcfg pipeline.Config, logger *logging.Logger, brief document.Brief, opts generateOptions) (document.Files, error) {
	ctrl, err := pipeline.NewController(pcfg, pipeline.WithLogger(logger))
	if err != nil {
		return document.Files{}, err
	}

	var bundle *document.Bundle
	if opts.Interactive {
		bundle, err = tui.New(brief.Title, ctrl.Bus()).Run(ctx, func(ctx context.Context, sink progress.Sink) (*document.Bundle, error) {
			return ctrl.GenerateDocument(ctx, brief, sink)
		})
	} else {
		fmt.Fprintf(out, "Generating %q...\n", brief.Title)
		bundle, err = ctrl.GenerateDocument(ctx, brief, newLineSink(out))
	}
	if err != nil {
		return document.Files{}, &generationError{err: err}
	}

	dir := filepath.Join(opts.OutDir, runDir(brief.Title, bundle.Metadata.RunID))
	files, err := document.WriteFiles(dir, bundle, opts.HTML)
	if err != nil {
		return document.Files{}, err
	}

	fmt.Fprintln(out, tui.RenderSummary(bundle, fileList(files), terminalWidth()))
	return files, nil
}

// pipelineConfig builds the controller configuration, reading secrets
// through getenv. Optional providers are left nil when their key is unset.
func pipelineConfig(cfg *config.Config, getenv func(string) string, proMode bool) (pipeline.Config, error) {
	text, err := provider.NewOpenAI(provider.OpenAIConfig{
		APIKey:     getenv(cfg.Provider.APIKeyEnv),
		BaseURL:    cfg.Provider.BaseURL,
		Models:     cfg.Models.TierModels(),
		ImageModel: cfg.Provider.ImageModel,
		Timeout:    cfg.Provider.RequestTimeout(),
	})
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("failed to create text provider (is %s set?): %w", cfg.Provider.APIKeyEnv, err)
	}

	// round_delay_ms: 0 in the config file means no pause.
	roundDelay := cfg.Writer.RoundDelay()
	if roundDelay == 0 {
		roundDelay = pipeline.NoRoundDelay
	}

	pc := pipeline.Config{
		Text:        text,
		Generator:   text,
		ProMode:     proMode,
		PoolSize:    cfg.Writer.PoolSize,
		RoundDelay:  roundDelay,
		Temperature: cfg.Writer.Temperature,
		Research:    cfg.Research.Enabled,
		Slides:      cfg.Slides.Enabled,
		Images: pipeline.ImagesConfig{
			Enabled:      cfg.Images.Enabled,
			Timeout:      cfg.Images.Timeout(),
			SectionDelay: cfg.Images.SectionDelay(),
			PerSection:   cfg.Images.PerSection,
		},
	}
	if key := getenv(cfg.Provider.UnsplashKeyEnv); cfg.Provider.UnsplashKeyEnv != "" && key != "" {
		pc.Searcher = provider.NewUnsplash(key)
	}
	if key := getenv(cfg.Provider.BraveKeyEnv); cfg.Provider.BraveKeyEnv != "" && key != "" {
		pc.Web = provider.NewBrave(key)
	}
	return pc, nil
}

func fileList(f document.Files) []string {
	files := []string{f.Markdown}
	if f.HTML != "" {
		files = append(files, f.HTML)
	}
	return append(files, f.Bundle)
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// lineSink prints progress as plain lines for non-interactive runs.
type lineSink struct {
	mu   sync.Mutex
	w    io.Writer
	last map[string]string
}

var _ progress.Sink = (*lineSink)(nil)

func newLineSink(w io.Writer) *lineSink {
	return &lineSink{w: w, last: make(map[string]string)}
}

func (s *lineSink) UpdateAgent(_, agent string, update progress.AgentUpdate) {
	line := update.Status
	if update.Detail != "" {
		line += ": " + update.Detail
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Suppress repeats of the same status line
	if s.last[agent] == line {
		return
	}
	s.last[agent] = line
	fmt.Fprintf(s.w, "[%s] %s\n", agent, line)
}

func (s *lineSink) AddLog(_ string, entry progress.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.Level != "" && entry.Level != "info" {
		fmt.Fprintf(s.w, "[%s] %s: %s\n", entry.Agent, entry.Level, entry.Message)
		return
	}
	fmt.Fprintf(s.w, "[%s] %s\n", entry.Agent, entry.Message)
}
