package pipeline

import (
	"time"

	"github.com/Iron-Ham/scribe/internal/event"
	"github.com/Iron-Ham/scribe/internal/logging"
	"github.com/Iron-Ham/scribe/internal/planner"
	"github.com/Iron-Ham/scribe/internal/provider"
)

// NoRoundDelay disables the pause between writer rounds. Any negative
// RoundDelay has the same effect.
const NoRoundDelay time.Duration = -1

// Phase is a stage of a generation run.
type Phase string

const (
	PhaseResearch Phase = "research"
	PhasePlanning Phase = "planning"
	PhaseSlides   Phase = "slides"
	PhaseWriting  Phase = "writing"
	PhaseImages   Phase = "images"
	PhaseReview   Phase = "review"
	PhaseDone     Phase = "done"
	PhaseFailed   Phase = "failed"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal returns true if this phase represents a final state.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Config holds the dependencies and settings of a Controller. Text is
// required; a nil Searcher, Generator or Web disables that provider.
type Config struct {
	Text      provider.TextGenerator
	Searcher  provider.ImageSearcher
	Generator provider.ImageGenerator
	Web       provider.WebSearcher

	ProMode     bool
	PoolSize    int
	RoundDelay  time.Duration // zero means writer.DefaultRoundDelay, NoRoundDelay disables it
	Temperature float64

	Research bool
	Slides   bool
	Images   ImagesConfig
}

// ImagesConfig configures the image stage.
type ImagesConfig struct {
	Enabled      bool
	Timeout      time.Duration
	SectionDelay time.Duration
	PerSection   int
}

// controllerConfig holds optional settings for the Controller.
type controllerConfig struct {
	bus      *event.Bus
	logger   *logging.Logger
	registry *planner.Registry
	now      func() time.Time
}
