package xlaction

import "go.uber.org/zap"

// Options holds configuration for the Processor.
type Options struct {
	logger    *zap.Logger
	listeners []ActionListener
}

func defaultOptions() *Options {
	return &Options{logger: zap.NewNop()}
}

// Option configures the Processor.
type Option func(*Options)

// WithLogger sets the logger used to report each step (default: no-op).
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithListener adds a listener that is notified before/after each step.
func WithListener(listener ActionListener) Option {
	return func(o *Options) { o.listeners = append(o.listeners, listener) }
}
