package bplist

import "go.uber.org/zap"

type decoderOptions struct {
	maxObjectCount uint64
	maxPayloadSize uint64
	logger         *zap.Logger
	debug          bool
}

// Option configures a decode.
type Option func(*decoderOptions)

// WithMaxObjectCount sets the largest object count a trailer may declare.
// Values <= 0 restore the default.
func WithMaxObjectCount(n int) Option {
	return func(o *decoderOptions) {
		if n <= 0 {
			o.maxObjectCount = DefaultMaxObjectCount
			return
		}
		o.maxObjectCount = uint64(n)
	}
}

// WithMaxPayloadSize sets the largest payload, in bytes, any single object
// or table may declare. Values <= 0 restore the default.
func WithMaxPayloadSize(n int) Option {
	return func(o *decoderOptions) {
		if n <= 0 {
			o.maxPayloadSize = DefaultMaxPayloadSize
			return
		}
		o.maxPayloadSize = uint64(n)
	}
}

// WithLogger routes decoder diagnostics to l. A nil logger discards them.
func WithLogger(l *zap.Logger) Option {
	return func(o *decoderOptions) {
		if l == nil {
			l = zap.NewNop()
		}
		o.logger = l
	}
}

// WithDebug enables a debug-level trace of every decoded object.
func WithDebug(debug bool) Option {
	return func(o *decoderOptions) {
		o.debug = debug
	}
}

func newDecoderOptions(opts []Option) decoderOptions {
	o := decoderOptions{
		maxObjectCount: DefaultMaxObjectCount,
		maxPayloadSize: DefaultMaxPayloadSize,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
