package reconcile

import (
	"log/slog"
	"time"
)

type options struct {
	id         string
	logger     *slog.Logger
	scheduler  Scheduler
	debounce   time.Duration
	settle     time.Duration
	match      MatchConfig
	importer   Importer
	onViewport func(ViewportStats)
}

// Option configures a Session.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		logger:    slog.New(slog.DiscardHandler),
		scheduler: WallClock{},
		debounce:  DefaultScrollDebounce,
		settle:    DefaultSettleDelay,
		match:     DefaultMatchConfig(),
	}
}

// WithID sets the session identifier.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithScheduler replaces the wall clock used for viewport timers.
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		if s != nil {
			o.scheduler = s
		}
	}
}

// WithScrollDebounce sets the scroll debounce window.
func WithScrollDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithSettleDelay sets the delay between a layout change and re-sampling
// geometry.
func WithSettleDelay(d time.Duration) Option {
	return func(o *options) { o.settle = d }
}

// WithMatchConfig sets the bootstrap match configuration.
func WithMatchConfig(cfg MatchConfig) Option {
	return func(o *options) { o.match = cfg }
}

// WithFuzzyMatching enables the edit-distance bootstrap pass.
func WithFuzzyMatching(minSimilarity, minGap float64) Option {
	return func(o *options) {
		o.match.Fuzzy = true
		o.match.MinSimilarity = minSimilarity
		o.match.MinGap = minGap
	}
}

// WithImporter sets the collaborator that receives the mapping on Proceed.
func WithImporter(imp Importer) Option {
	return func(o *options) { o.importer = imp }
}

// WithViewportListener registers a callback run after each viewport
// recomputation.
func WithViewportListener(f func(ViewportStats)) Option {
	return func(o *options) { o.onViewport = f }
}
