package optimize

import (
	"io"
	"log/slog"
)

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger used for ignored calls. A nil logger discards.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Optimizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithWorkers bounds the goroutines used by the parallel levels.
// Values below 1 disable parallel execution.
func WithWorkers(n int) Option {
	return func(o *Optimizer) {
		if n < 1 {
			n = 1
		}
		o.workers = n
	}
}

// WithLevel sets the starting level. Invalid levels are ignored.
func WithLevel(l Level) Option {
	return func(o *Optimizer) {
		if l.Valid() {
			o.level = l
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
