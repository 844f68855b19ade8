// Package imagery decides which images each section needs and acquires them.
// Photos come from a search provider and diagrams from an image generator;
// when either fails a deterministic SVG stands in. The whole stage is raced
// against a wall-clock timeout so a stuck provider cannot stall a run.
package imagery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/logging"
	"github.com/Iron-Ham/scribe/internal/progress"
	"github.com/Iron-Ham/scribe/internal/provider"
	"github.com/Iron-Ham/scribe/internal/usage"
)

// Stage defaults.
const (
	DefaultTimeout      = 120 * time.Second
	DefaultSectionDelay = 500 * time.Millisecond
	DefaultPerSection   = 2
)

// Result is the output of the image stage.
type Result struct {
	// Images is aligned with the section list; unfinished sections have an
	// empty image list.
	Images    []document.SectionImages
	Completed int
	TimedOut  bool
}

// Curator runs the image stage.
type Curator struct {
	analyzer     *Analyzer
	searcher     provider.ImageSearcher
	generator    provider.ImageGenerator
	timeout      time.Duration
	sectionDelay time.Duration
	logger       *logging.Logger
	sink         progress.Sink
	runID        string
}

// Config configures a Curator. A zero Timeout or PerSection takes the
// default. A nil searcher or generator means every image of that method
// falls back to an SVG.
type Config struct {
	Text         provider.TextGenerator
	Searcher     provider.ImageSearcher
	Generator    provider.ImageGenerator
	Recorder     usage.Recorder
	Timeout      time.Duration
	SectionDelay time.Duration
	PerSection   int
	Logger       *logging.Logger
	Sink         progress.Sink
	RunID        string
}

// NewCurator creates a Curator.
func NewCurator(cfg Config) *Curator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SectionDelay < 0 {
		cfg.SectionDelay = 0
	}
	if cfg.PerSection <= 0 {
		cfg.PerSection = DefaultPerSection
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	if cfg.Sink == nil {
		cfg.Sink = progress.Nop{}
	}
	return &Curator{
		analyzer:     NewAnalyzer(cfg.Text, cfg.Recorder, cfg.PerSection),
		searcher:     cfg.Searcher,
		generator:    cfg.Generator,
		timeout:      cfg.Timeout,
		sectionDelay: cfg.SectionDelay,
		logger:       cfg.Logger.WithAgent(usage.AgentImageAnalyzer),
		sink:         cfg.Sink,
		runID:        cfg.RunID,
	}
}

// collector holds per-section results. Once sealed, late writes are dropped.
type collector struct {
	mu     sync.Mutex
	images [][]document.ImageRecord
	done   []bool
	sealed bool
}

func (c *collector) put(i int, imgs []document.ImageRecord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return false
	}
	c.images[i] = imgs
	c.done[i] = true
	return true
}

func (c *collector) seal(tasks []document.SectionTask) ([]document.SectionImages, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	out := make([]document.SectionImages, len(tasks))
	completed := 0
	for i, t := range tasks {
		out[i] = document.SectionImages{SectionID: t.ID, Images: []document.ImageRecord{}}
		if c.done[i] {
			completed++
			if c.images[i] != nil {
				out[i].Images = c.images[i]
			}
		}
	}
	return out, completed
}

// Curate acquires images for every section, one section at a time. It
// returns when all sections are done or the stage timeout elapses, whichever
// comes first. On timeout the work keeps running in the background but its
// results are discarded. The only error is cancellation of ctx.
func (c *Curator) Curate(ctx context.Context, category string, tasks []document.SectionTask, results []document.SectionResult) (*Result, error) {
	col := &collector{
		images: make([][]document.ImageRecord, len(tasks)),
		done:   make([]bool, len(tasks)),
	}

	c.sink.UpdateAgent(c.runID, usage.AgentImageAnalyzer, progress.AgentUpdate{
		Status: progress.StatusRunning,
		Detail: fmt.Sprintf("0/%d sections", len(tasks)),
	})

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		c.work(ctx, category, tasks, results, col)
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	res := &Result{}
	var err error
	select {
	case <-finished:
		err = ctx.Err()
	case <-timer.C:
		res.TimedOut = true
		c.logger.Warn("image stage timed out, keeping finished sections", "timeout", c.timeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	res.Images, res.Completed = col.seal(tasks)

	status := progress.StatusCompleted
	if res.TimedOut {
		status = progress.StatusSkipped
	}
	c.sink.UpdateAgent(c.runID, usage.AgentImageAnalyzer, progress.AgentUpdate{
		Status:   status,
		Progress: 100,
		Detail:   fmt.Sprintf("%d/%d sections", res.Completed, len(tasks)),
	})
	return res, err
}

func (c *Curator) work(ctx context.Context, category string, tasks []document.SectionTask, results []document.SectionResult, col *collector) {
	for i, task := range tasks {
		if i > 0 && c.sectionDelay > 0 {
			select {
			case <-time.After(c.sectionDelay):
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		imgs := c.curateSection(ctx, category, task, results[i])
		if !col.put(i, imgs) {
			c.logger.Debug("discarding late images", "section_id", task.ID)
			return
		}
		c.sink.UpdateAgent(c.runID, usage.AgentImageAnalyzer, progress.AgentUpdate{
			Status:   progress.StatusRunning,
			Progress: float64(i+1) / float64(len(tasks)) * 100,
			Detail:   fmt.Sprintf("%d/%d sections", i+1, len(tasks)),
		})
	}
}

func (c *Curator) curateSection(ctx context.Context, category string, task document.SectionTask, result document.SectionResult) []document.ImageRecord {
	log := c.logger.WithSection(task.ID)

	plans, err := c.analyzer.Analyze(ctx, task, result)
	if err != nil {
		log.Warn("image analysis failed, section gets no images", "error", err)
		return nil
	}

	var out []document.ImageRecord
	for _, p := range plans {
		switch p.Method {
		case document.MethodGenerate:
			out = append(out, c.generate(ctx, log, category, task, p))
		default:
			out = append(out, c.search(ctx, log, task, p))
		}
	}
	return out
}

func (c *Curator) search(ctx context.Context, log *logging.Logger, task document.SectionTask, p Plan) document.ImageRecord {
	keywords := p.Keywords
	if len(keywords) == 0 {
		keywords = ExtractKeywords(task.Title + " " + p.Caption)
	}
	rec := document.ImageRecord{
		Type:      p.Type,
		Method:    document.MethodSearch,
		Placement: p.Placement,
		Caption:   p.Caption,
		Keywords:  keywords,
	}

	if c.searcher != nil {
		photos, err := c.searcher.SearchImages(ctx, keywords, 1)
		switch {
		case err != nil:
			log.Warn("photo search failed, using placeholder", "error", err)
		case len(photos) == 0:
			log.Debug("photo search empty, using placeholder", "keywords", strings.Join(keywords, ","))
		default:
			rec.URL = photos[0].URL
			rec.Source = document.SourceSearch
			rec.Credit = photos[0].Credit
			if rec.Caption == "" {
				rec.Caption = photos[0].Caption
			}
			return rec
		}
	}

	rec.URL = Placeholder(keywords)
	rec.Source = document.SourcePlaceholder
	return rec
}

func (c *Curator) generate(ctx context.Context, log *logging.Logger, category string, task document.SectionTask, p Plan) document.ImageRecord {
	prompt := p.Prompt
	if prompt == "" {
		prompt = task.Title + " " + p.Caption
	}
	rec := document.ImageRecord{
		Type:      p.Type,
		Method:    document.MethodGenerate,
		Placement: p.Placement,
		Caption:   p.Caption,
	}

	if c.generator != nil {
		img, err := c.generator.GenerateImage(ctx, StyledPrompt(category, p.Type, prompt), category)
		if err == nil && img.URL != "" {
			rec.URL = img.URL
			rec.Source = document.SourceGenerated
			rec.Keywords = p.Keywords
			return rec
		}
		log.Warn("image generation failed, drawing diagram", "error", err)
	}

	rec.Keywords = ExtractKeywords(prompt)
	rec.URL = Diagram(p.Type, rec.Keywords)
	rec.Source = document.SourcePlaceholder
	return rec
}
