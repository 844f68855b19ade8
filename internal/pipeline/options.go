package pipeline

import (
	"time"

	"github.com/Iron-Ham/scribe/internal/event"
	"github.com/Iron-Ham/scribe/internal/logging"
	"github.com/Iron-Ham/scribe/internal/planner"
)

// Option configures a Controller.
type Option func(*controllerConfig)

// WithBus publishes run events on bus instead of a private bus.
func WithBus(bus *event.Bus) Option {
	return func(c *controllerConfig) { c.bus = bus }
}

// WithLogger sets the logger every stage logs through.
func WithLogger(l *logging.Logger) Option {
	return func(c *controllerConfig) { c.logger = l }
}

// WithTemplates sets the category template registry used for planning.
func WithTemplates(r *planner.Registry) Option {
	return func(c *controllerConfig) { c.registry = r }
}

// WithClock overrides the clock used for run timing.
func WithClock(now func() time.Time) Option {
	return func(c *controllerConfig) { c.now = now }
}
