package bplist

import (
	"context"
	"io"
	"os"
)

// Parse decodes a complete binary property list held in data and returns its
// top object. data is only read; the returned tree does not alias it.
//
// An object referenced from several places is decoded once, and every
// parent holds the same value. Arrays, dictionaries and data reached through
// more than one path share their backing storage, so modifying one in place
// is visible from all of them.
func Parse(data []byte, opts ...Option) (Value, error) {
	p := newBplistParser(data, newDecoderOptions(opts))
	return p.parseDocument()
}

// ParseFile reads the file at path and decodes it. Errors from reading the
// file are returned as they are.
func ParseFile(path string, opts ...Option) (Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, opts...)
}

type parseResult struct {
	val Value
	err error
}

// ParseFileContext is ParseFile run on its own goroutine. If ctx is done
// first, ctx.Err() is returned and the pending decode is abandoned; a
// decode cannot be interrupted once started.
func ParseFileContext(ctx context.Context, path string, opts ...Option) (Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan parseResult, 1)
	go func() {
		val, err := ParseFile(path, opts...)
		done <- parseResult{val, err}
	}()
	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// A Decoder reads a binary property list from a stream.
type Decoder struct {
	reader io.Reader
	opts   []Option
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	return &Decoder{reader: r, opts: opts}
}

// Decode reads r to EOF and decodes it. The format keeps its trailer at the
// end, so nothing can be decoded before the whole document is in memory.
func (d *Decoder) Decode() (Value, error) {
	data, err := io.ReadAll(d.reader)
	if err != nil {
		return nil, err
	}
	return Parse(data, d.opts...)
}

// DecodeInto decodes the document and stores it in the value pointed to by v.
// See UnmarshalValue for the conversion rules.
func (d *Decoder) DecodeInto(v interface{}) error {
	val, err := d.Decode()
	if err != nil {
		return err
	}
	return UnmarshalValue(val, v)
}

// Unmarshal decodes data and stores the result in the value pointed to by v.
func Unmarshal(data []byte, v interface{}, opts ...Option) error {
	val, err := Parse(data, opts...)
	if err != nil {
		return err
	}
	return UnmarshalValue(val, v)
}
