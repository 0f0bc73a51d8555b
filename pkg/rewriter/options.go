package rewriter

import (
	"github.com/nsxbet/cypher-guard/pkg/logger"
	"github.com/nsxbet/cypher-guard/pkg/rules"
)

// Option is a functional option for customizing a Rewriter.
type Option func(*options)

// options holds optional configuration for a Rewriter.
type options struct {
	logger   logger.Interface
	registry *rules.Registry
	verify   bool
}

// WithLogger sets the logger used for rejections and rewrites.
//
// Example:
//
//	r, err := rewriter.New(cfg, rewriter.WithLogger(logger.New()))
func WithLogger(l logger.Interface) Option {
	return func(opts *options) {
		if l != nil {
			opts.logger = l
		}
	}
}

// WithRegistry replaces the default rule table.
//
// An empty registry makes New fail rather than allow everything.
func WithRegistry(registry *rules.Registry) Option {
	return func(opts *options) {
		opts.registry = registry
	}
}

// WithVerification turns the second check of rewritten output on or off.
// It is on by default.
func WithVerification(enabled bool) Option {
	return func(opts *options) {
		opts.verify = enabled
	}
}
