package rowiter

import "go.llib.dev/rowstream/pkg/logging"

type Option interface{ configure(*config) }

type optionFunc func(*config)

func (fn optionFunc) configure(c *config) { fn(c) }

type config struct {
	Args   []any
	Logger *logging.Logger
}

func toConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt.configure(&c)
	}
	if c.Logger == nil {
		c.Logger = &logging.Default
	}
	return c
}

// WithArgs passes query arguments to Source.Open.
func WithArgs(args ...any) Option {
	return optionFunc(func(c *config) { c.Args = append(c.Args, args...) })
}

// WithLogger sets the logger that receives the iterator's diagnostics.
//
// default: logging.Default
func WithLogger(l *logging.Logger) Option {
	return optionFunc(func(c *config) { c.Logger = l })
}
