package slp

import (
	"io"

	"github.com/sirupsen/logrus"
)

type options struct {
	log          logrus.FieldLogger
	itemCapacity int
}

// Option configures a single decode
type Option func(*options)

// WithLogger sends decode diagnostics to log
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithItemCapacity sets the number of item arena slots
func WithItemCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.itemCapacity = n
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{itemCapacity: DefaultItemCapacity}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		o.log = silent
	}
	return o
}
