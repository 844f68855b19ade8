// Package writer produces section content with a fixed-size pool of writer
// workers. Tasks are written in rounds of at most pool-size sections; rounds
// run one after another so the provider never sees more than N concurrent
// writer calls.
package writer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/errors"
	"github.com/Iron-Ham/scribe/internal/logging"
	"github.com/Iron-Ham/scribe/internal/progress"
	"github.com/Iron-Ham/scribe/internal/provider"
	"github.com/Iron-Ham/scribe/internal/usage"
)

// Pool defaults and limits.
const (
	DefaultPoolSize   = 3
	MinPoolSize       = 1
	MaxPoolSize       = 5
	DefaultRoundDelay = time.Second

	// logEvery controls how often a progress line goes to the run log.
	logEvery = 5
)

// Pool is a run-scoped set of writer workers.
type Pool struct {
	workers    []*Worker
	roundDelay time.Duration
	recorder   usage.Recorder
	sink       progress.Sink
	runID      string
	logger     *logging.Logger

	onComplete func(index, done, total int, res document.SectionResult)

	mu    sync.Mutex
	tasks []document.SectionTask
}

// Option configures a Pool.
type Option func(*poolConfig)

type poolConfig struct {
	size        int
	roundDelay  time.Duration
	temperature float64
	recorder    usage.Recorder
	sink        progress.Sink
	runID       string
	logger      *logging.Logger
	now         func() time.Time
	onComplete  func(index, done, total int, res document.SectionResult)
}

// WithSize sets the number of workers. Values outside 1..5 are clamped.
func WithSize(n int) Option {
	return func(c *poolConfig) { c.size = n }
}

// WithRoundDelay sets the pause between rounds.
func WithRoundDelay(d time.Duration) Option {
	return func(c *poolConfig) { c.roundDelay = d }
}

// WithTemperature sets the sampling temperature for writer calls.
func WithTemperature(t float64) Option {
	return func(c *poolConfig) { c.temperature = t }
}

// WithRecorder sets where writer usage is recorded.
func WithRecorder(r usage.Recorder) Option {
	return func(c *poolConfig) { c.recorder = r }
}

// WithProgress reports per-section progress for runID to sink.
func WithProgress(runID string, sink progress.Sink) Option {
	return func(c *poolConfig) {
		c.runID = runID
		c.sink = sink
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *poolConfig) { c.logger = l }
}

// WithOnComplete registers a callback invoked after each section of Run is
// written. It may be called from several goroutines at once.
func WithOnComplete(fn func(index, done, total int, res document.SectionResult)) Option {
	return func(c *poolConfig) { c.onComplete = fn }
}

// WithClock overrides the clock used for durations and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *poolConfig) { c.now = now }
}

// NewPool creates a pool writing sections of the document described by brief.
func NewPool(text provider.TextGenerator, brief document.Brief, opts ...Option) *Pool {
	cfg := poolConfig{
		size:        DefaultPoolSize,
		roundDelay:  DefaultRoundDelay,
		temperature: 0.7,
		recorder:    usage.Discard,
		sink:        progress.Nop{},
		logger:      logging.NopLogger(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.size = ClampSize(cfg.size)

	p := &Pool{
		roundDelay: cfg.roundDelay,
		recorder:   cfg.recorder,
		sink:       cfg.sink,
		runID:      cfg.runID,
		logger:     cfg.logger.WithAgent(usage.AgentWriter),
		onComplete: cfg.onComplete,
	}
	for i := 0; i < cfg.size; i++ {
		p.workers = append(p.workers, &Worker{
			ID:          i,
			text:        text,
			brief:       brief,
			temperature: cfg.temperature,
			recorder:    cfg.recorder,
			now:         cfg.now,
		})
	}
	return p
}

// ClampSize bounds a configured pool size to MinPoolSize..MaxPoolSize.
func ClampSize(n int) int {
	switch {
	case n < MinPoolSize:
		return MinPoolSize
	case n > MaxPoolSize:
		return MaxPoolSize
	default:
		return n
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Rounds partitions n tasks into consecutive [start, end) chunks of at most
// size tasks.
func Rounds(n, size int) [][2]int {
	var rounds [][2]int
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		rounds = append(rounds, [2]int{start, end})
	}
	return rounds
}

// Run writes every task and returns results aligned with tasks by index. The
// first failing task fails its round and Run returns that error; no later
// round is started.
func (p *Pool) Run(ctx context.Context, tasks []document.SectionTask) ([]document.SectionResult, error) {
	p.mu.Lock()
	p.tasks = append([]document.SectionTask(nil), tasks...)
	p.mu.Unlock()

	results := make([]document.SectionResult, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	rounds := Rounds(len(tasks), len(p.workers))
	p.logger.Info("writing sections", "sections", len(tasks), "workers", len(p.workers), "rounds", len(rounds))
	p.sink.UpdateAgent(p.runID, usage.AgentWriter, progress.AgentUpdate{
		Status: progress.StatusRunning,
		Detail: fmt.Sprintf("0/%d sections", len(tasks)),
	})

	var (
		countMu   sync.Mutex
		completed int
	)
	for r, bounds := range rounds {
		start, end := bounds[0], bounds[1]

		wp := pool.New().WithContext(ctx).WithMaxGoroutines(len(p.workers)).WithFirstError()
		for i := start; i < end; i++ {
			worker := p.workers[i-start]
			a := Assignment{Task: tasks[i], Neighbors: neighbors(tasks, i)}
			wp.Go(func(ctx context.Context) error {
				res, err := worker.Write(ctx, a)
				if err != nil {
					var werr *errors.WriterError
					if errors.As(err, &werr) {
						werr.WithRound(r)
					}
					return err
				}
				results[i] = res

				countMu.Lock()
				completed++
				done := completed
				countMu.Unlock()
				p.reportProgress(done, len(tasks), res.Title)
				if p.onComplete != nil {
					p.onComplete(i, done, len(tasks), res)
				}
				return nil
			})
		}
		if err := wp.Wait(); err != nil {
			p.logger.Error("writer round failed", "round", r, "error", err)
			p.sink.UpdateAgent(p.runID, usage.AgentWriter, progress.AgentUpdate{
				Status: progress.StatusFailed,
				Detail: err.Error(),
			})
			return nil, err
		}

		if r < len(rounds)-1 && p.roundDelay > 0 {
			if err := sleep(ctx, p.roundDelay); err != nil {
				return nil, fmt.Errorf("%w: %w", errors.ErrCanceled, err)
			}
		}
	}

	p.sink.UpdateAgent(p.runID, usage.AgentWriter, progress.AgentUpdate{
		Status:   progress.StatusCompleted,
		Progress: 100,
		Detail:   fmt.Sprintf("%d/%d sections", len(tasks), len(tasks)),
	})
	return results, nil
}

// Rewrite writes the task at index again with reviewer feedback, using worker
// index mod pool size. Neighbor titles come from the last Run.
func (p *Pool) Rewrite(ctx context.Context, index int, task document.SectionTask, feedback string, revision int) (document.SectionResult, error) {
	p.mu.Lock()
	var n Neighbors
	if index >= 0 && index < len(p.tasks) {
		n = neighbors(p.tasks, index)
	}
	p.mu.Unlock()

	worker := p.workers[index%len(p.workers)]
	p.logger.WithSection(task.ID).Debug("rewriting section", "worker", worker.ID, "revision", revision)
	return worker.Write(ctx, Assignment{
		Task:      task,
		Neighbors: n,
		Feedback:  feedback,
		Revision:  revision,
	})
}

func (p *Pool) reportProgress(done, total int, title string) {
	pct := float64(done) / float64(total) * 100
	p.sink.UpdateAgent(p.runID, usage.AgentWriter, progress.AgentUpdate{
		Status:   progress.StatusRunning,
		Progress: pct,
		Detail:   fmt.Sprintf("%d/%d sections (%s)", done, total, title),
	})
	if done%logEvery == 0 {
		msg := fmt.Sprintf("written %d/%d sections (%.0f%%)", done, total, pct)
		p.sink.AddLog(p.runID, progress.LogEntry{Agent: usage.AgentWriter, Level: "info", Message: msg})
		p.logger.Info("writer progress", "completed", done, "total", total)
	}
}

func neighbors(tasks []document.SectionTask, i int) Neighbors {
	var n Neighbors
	if i > 0 {
		n.Prev = tasks[i-1].Title
	}
	if i < len(tasks)-1 {
		n.Next = tasks[i+1].Title
	}
	return n
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
