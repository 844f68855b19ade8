package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/errors"
	"github.com/Iron-Ham/scribe/internal/event"
	"github.com/Iron-Ham/scribe/internal/imagery"
	"github.com/Iron-Ham/scribe/internal/logging"
	"github.com/Iron-Ham/scribe/internal/planner"
	"github.com/Iron-Ham/scribe/internal/progress"
	"github.com/Iron-Ham/scribe/internal/quality"
	"github.com/Iron-Ham/scribe/internal/research"
	"github.com/Iron-Ham/scribe/internal/slides"
	"github.com/Iron-Ham/scribe/internal/usage"
	"github.com/Iron-Ham/scribe/internal/writer"
)

// Stage names used in bundle metadata.
const (
	StageResearch = "research"
	StageSlides   = "slides"
	StageImages   = "images"
)

// Controller runs generation requests. A Controller holds no per-run state
// and may serve concurrent calls.
type Controller struct {
	cfg  Config
	ccfg controllerConfig
}

// NewController creates a Controller with the given configuration and options.
func NewController(cfg Config, opts ...Option) (*Controller, error) {
	if cfg.Text == nil {
		return nil, errors.New("pipeline: Text is required")
	}

	cc := controllerConfig{}
	for _, opt := range opts {
		opt(&cc)
	}
	if cc.logger == nil {
		cc.logger = logging.NopLogger()
	}
	if cc.bus == nil {
		cc.bus = event.NewBus()
	}
	if cc.registry == nil {
		cc.registry = planner.DefaultRegistry()
	}
	if cc.now == nil {
		cc.now = time.Now
	}
	return &Controller{cfg: cfg, ccfg: cc}, nil
}

// Bus returns the bus run events are published on.
func (c *Controller) Bus() *event.Bus {
	return c.ccfg.bus
}

// run is the state of one GenerateDocument call.
type run struct {
	id      string
	phase   Phase
	tracker *usage.Tracker
	sink    progress.Sink
	logger  *logging.Logger
	bus     *event.Bus
	stages  map[string]document.StageStatus
}

// setPhase records the transition and publishes it.
func (r *run) setPhase(p Phase) {
	prev := r.phase
	r.phase = p
	r.logger.Info("pipeline phase changed", "from", string(prev), "to", string(p))
	r.bus.Publish(event.NewPhaseChangedEvent(r.id, string(prev), string(p)))
}

// soft logs a failed auxiliary stage and marks it skipped.
func (r *run) soft(stage string, err error) {
	serr := softStageError(stage, err)
	r.logger.Warn("stage failed, continuing without it",
		"stage", serr.Stage,
		"severity", errors.GetSeverity(serr).String(),
		"retryable", errors.IsRetryable(serr),
		"error", err)
	r.sink.AddLog(r.id, progress.LogEntry{Agent: stage, Level: "warn", Message: stage + " skipped: " + err.Error()})
	r.stages[stage] = document.StageSkipped
}

// softStageError returns err as a soft StageError for stage, reusing the
// StageError already in its chain when there is one.
func softStageError(stage string, err error) *errors.StageError {
	var serr *errors.StageError
	if errors.As(err, &serr) && serr.Stage == stage {
		return serr.WithSoft(true)
	}
	return errors.NewStageError(stage, stage+" failed", err).WithSoft(true)
}

// GenerateDocument turns brief into a finished bundle. Planner and writer
// errors are returned unmodified; soft stage failures are recorded in the
// bundle metadata. sink may be nil.
func (c *Controller) GenerateDocument(ctx context.Context, brief document.Brief, sink progress.Sink) (bundle *document.Bundle, err error) {
	started := c.ccfg.now()
	r := &run{
		id:      uuid.NewString(),
		tracker: usage.NewTrackerWithClock(c.ccfg.now),
		bus:     c.ccfg.bus,
		stages:  make(map[string]document.StageStatus),
	}
	r.logger = c.ccfg.logger.WithRun(r.id)
	if brief.CorrelationID != "" {
		r.logger = r.logger.With("correlation_id", brief.CorrelationID)
	}
	r.sink = progress.Multi{progress.Safe(sink, r.logger), progress.NewBusSink(r.bus)}

	r.logger.Info("generation started", "title", brief.Title, "category", brief.Category, "pro_mode", c.cfg.ProMode)
	defer func() {
		if err != nil {
			r.logger.Error("generation failed", "phase", string(r.phase), "severity", errors.GetSeverity(err).String(), "error", err)
			r.setPhase(PhaseFailed)
		}
		r.bus.Publish(event.NewRunCompletedEvent(r.id, err, r.tracker.Summary().Total.Cost))
	}()

	var report *document.ResearchReport
	if c.cfg.Research {
		r.setPhase(PhaseResearch)
		report = c.research(ctx, r, brief)
		if report != nil {
			brief = research.Enrich(brief, report)
		}
	} else {
		r.stages[StageResearch] = document.StageDisabled
	}

	r.setPhase(PhasePlanning)
	r.sink.UpdateAgent(r.id, usage.AgentArchitect, progress.AgentUpdate{Status: progress.StatusRunning, Detail: "planning outline"})
	plan, err := planner.New(c.cfg.Text,
		planner.WithRegistry(c.ccfg.registry),
		planner.WithLogger(r.logger),
	).Plan(ctx, brief)
	if err != nil {
		r.sink.UpdateAgent(r.id, usage.AgentArchitect, progress.AgentUpdate{Status: progress.StatusFailed, Detail: err.Error()})
		return nil, err
	}
	r.tracker.Record(usage.AgentArchitect, plan.Usage)
	tasks := planner.Tasks(plan.Outline, c.cfg.ProMode)
	r.sink.UpdateAgent(r.id, usage.AgentArchitect, progress.AgentUpdate{
		Status:   progress.StatusCompleted,
		Progress: 100,
		Detail:   planDetail(plan, len(tasks)),
	})

	var deck []document.Slide
	if c.cfg.Slides {
		r.setPhase(PhaseSlides)
		deck = c.slides(ctx, r, brief, tasks)
	} else {
		r.stages[StageSlides] = document.StageDisabled
	}

	r.setPhase(PhaseWriting)
	pool := c.newPool(r, brief)
	sections, err := pool.Run(ctx, tasks)
	if err != nil {
		return nil, err
	}

	var images []document.SectionImages
	if c.cfg.Images.Enabled {
		r.setPhase(PhaseImages)
		images, err = c.images(ctx, r, brief, tasks, sections)
		if err != nil {
			return nil, err
		}
	} else {
		r.stages[StageImages] = document.StageDisabled
		images = emptyImages(tasks)
	}

	r.setPhase(PhaseReview)
	gate := quality.New(c.cfg.Text, pool, r.tracker,
		quality.WithLogger(r.logger),
		quality.WithProgress(r.id, r.sink),
	)
	outcome, err := gate.Run(ctx, tasks, sections)
	if err != nil {
		return nil, err
	}

	r.setPhase(PhaseDone)
	bundle = &document.Bundle{
		Brief:    brief,
		Outline:  plan.Outline,
		Tasks:    tasks,
		Sections: outcome.Sections,
		Images:   images,
		Reviews:  outcome.Summary,
		Research: report,
		Slides:   deck,
		Metadata: document.Metadata{
			RunID:         r.id,
			CorrelationID: brief.CorrelationID,
			Category:      brief.Category,
			ProMode:       c.cfg.ProMode,
			StartedAt:     started,
			Elapsed:       c.ccfg.now().Sub(started),
			Stages:        r.stages,
			Usage:         r.tracker.Summary(),
			Optimization:  r.tracker.OptimizationReport(),
		},
	}
	r.logger.Info("generation completed",
		"sections", len(bundle.Sections),
		"final_score", outcome.Summary.FinalScore,
		"cost", bundle.Metadata.Usage.Total.Cost,
		"elapsed", bundle.Metadata.Elapsed,
	)
	return bundle, nil
}

func (c *Controller) research(ctx context.Context, r *run, brief document.Brief) *document.ResearchReport {
	r.sink.UpdateAgent(r.id, usage.AgentResearch, progress.AgentUpdate{Status: progress.StatusRunning})
	report, err := research.New(c.cfg.Text, c.cfg.Web, r.tracker, r.logger).Research(ctx, brief)
	if err != nil {
		r.soft(StageResearch, err)
		r.sink.UpdateAgent(r.id, usage.AgentResearch, progress.AgentUpdate{Status: progress.StatusSkipped, Progress: 100})
		return nil
	}
	r.stages[StageResearch] = document.StageCompleted
	r.sink.UpdateAgent(r.id, usage.AgentResearch, progress.AgentUpdate{Status: progress.StatusCompleted, Progress: 100})
	return report
}

func (c *Controller) slides(ctx context.Context, r *run, brief document.Brief, tasks []document.SectionTask) []document.Slide {
	r.sink.UpdateAgent(r.id, usage.AgentSlidePlanner, progress.AgentUpdate{Status: progress.StatusRunning})
	deck, err := slides.New(c.cfg.Text, r.tracker, r.logger).Plan(ctx, brief, tasks)
	if err != nil {
		r.soft(StageSlides, err)
		r.sink.UpdateAgent(r.id, usage.AgentSlidePlanner, progress.AgentUpdate{Status: progress.StatusSkipped, Progress: 100})
		return nil
	}
	r.stages[StageSlides] = document.StageCompleted
	r.sink.UpdateAgent(r.id, usage.AgentSlidePlanner, progress.AgentUpdate{Status: progress.StatusCompleted, Progress: 100})
	return deck
}

func (c *Controller) newPool(r *run, brief document.Brief) *writer.Pool {
	size := c.cfg.PoolSize
	if size == 0 {
		size = writer.DefaultPoolSize
	}
	opts := []writer.Option{
		writer.WithSize(size),
		writer.WithRoundDelay(roundDelay(c.cfg.RoundDelay)),
		writer.WithRecorder(r.tracker),
		writer.WithProgress(r.id, r.sink),
		writer.WithLogger(r.logger),
		writer.WithClock(c.ccfg.now),
		writer.WithOnComplete(func(_, done, total int, res document.SectionResult) {
			r.bus.Publish(event.NewSectionCompletedEvent(r.id, res.SectionID, res.Title, done, total))
		}),
	}
	if c.cfg.Temperature > 0 {
		opts = append(opts, writer.WithTemperature(c.cfg.Temperature))
	}
	return writer.NewPool(c.cfg.Text, brief, opts...)
}

func roundDelay(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return writer.DefaultRoundDelay
	case d < 0:
		return 0
	default:
		return d
	}
}

// images runs the curation stage. Only cancellation of ctx is returned.
func (c *Controller) images(ctx context.Context, r *run, brief document.Brief, tasks []document.SectionTask, sections []document.SectionResult) ([]document.SectionImages, error) {
	curator := imagery.NewCurator(imagery.Config{
		Text:         c.cfg.Text,
		Searcher:     c.cfg.Searcher,
		Generator:    c.cfg.Generator,
		Recorder:     r.tracker,
		Timeout:      c.cfg.Images.Timeout,
		SectionDelay: c.cfg.Images.SectionDelay,
		PerSection:   c.cfg.Images.PerSection,
		Logger:       r.logger,
		Sink:         r.sink,
		RunID:        r.id,
	})
	res, err := curator.Curate(ctx, brief.Category, tasks, sections)
	if err != nil {
		return nil, err
	}
	if res.TimedOut {
		r.stages[StageImages] = document.StageTimedOut
		r.sink.AddLog(r.id, progress.LogEntry{
			Agent:   usage.AgentImageAnalyzer,
			Level:   "warn",
			Message: "image stage timed out, continuing with the images collected so far",
		})
	} else {
		r.stages[StageImages] = document.StageCompleted
	}
	return res.Images, nil
}

// emptyImages returns an image list aligned with tasks and holding nothing.
func emptyImages(tasks []document.SectionTask) []document.SectionImages {
	out := make([]document.SectionImages, len(tasks))
	for i, t := range tasks {
		out[i] = document.SectionImages{SectionID: t.ID, Images: []document.ImageRecord{}}
	}
	return out
}

func planDetail(plan *planner.Result, n int) string {
	detail := fmt.Sprintf("%d sections", n)
	if plan.Template != "" {
		detail += " from " + plan.Template + " template"
	}
	if plan.Outline.Fallback {
		detail += " (fallback outline)"
	}
	return detail
}
