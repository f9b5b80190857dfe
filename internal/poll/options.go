package poll

import (
	drepo "OracleDash/internal/domain/repository"
	applogger "OracleDash/pkg/logger"
)

// Option configures a Channel or Registry.
type Option func(*options)

type options struct {
	log      *applogger.Logger
	failures *applogger.Collector
	metrics  drepo.Metrics
}

func defaultOptions() options {
	return options{log: applogger.Nop()}
}

// warnFailure writes a fetch failure, folding repeats when a collector is set.
func (o options) warnFailure(msg string, fields ...applogger.Field) {
	if o.failures != nil {
		o.failures.Warn(msg, fields...)
		return
	}
	o.log.Warn(msg, fields...)
}

// WithLogger sets the logger used for fetch failures and discarded responses.
func WithLogger(l *applogger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics records every fetch outcome and the subscriber count.
func WithMetrics(m drepo.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithFailureCollector folds repeated fetch failure warnings through c.
func WithFailureCollector(c *applogger.Collector) Option {
	return func(o *options) {
		o.failures = c
	}
}
