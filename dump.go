package bplist

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const dumpIndent = "\t"

// dumper writes a typed, indented text rendering of a value tree.
type dumper struct {
	*bufio.Writer

	indent string
	depth  int
}

func newDumper(w io.Writer) *dumper {
	return &dumper{Writer: bufio.NewWriter(w), indent: dumpIndent}
}

func (d *dumper) writeIndent() {
	for i := 0; i < d.depth; i++ {
		d.WriteString(d.indent)
	}
}

func (d *dumper) writeArray(a Array) {
	if len(a) == 0 {
		d.WriteString("array(0) {}")
		return
	}
	fmt.Fprintf(d, "array(%d) {\n", len(a))
	d.depth++
	for i, v := range a {
		d.writeIndent()
		fmt.Fprintf(d, "[%d]: ", i)
		d.writeValue(v)
		d.WriteByte('\n')
	}
	d.depth--
	d.writeIndent()
	d.WriteByte('}')
}

func (d *dumper) writeDictionary(dict Dictionary) {
	if dict.Len() == 0 {
		d.WriteString("dict(0) {}")
		return
	}
	fmt.Fprintf(d, "dict(%d) {\n", dict.Len())
	d.depth++
	for i, k := range dict.Keys {
		d.writeIndent()
		d.WriteString(strconv.Quote(k))
		d.WriteString(": ")
		d.writeValue(dict.Values[i])
		d.WriteByte('\n')
	}
	d.depth--
	d.writeIndent()
	d.WriteByte('}')
}

func (d *dumper) writeValue(val Value) {
	switch pv := val.(type) {
	case Null:
		d.WriteString("null")
	case Bool:
		fmt.Fprintf(d, "bool(%t)", bool(pv))
	case Integer:
		fmt.Fprintf(d, "integer(%s)", pv.String())
	case Real:
		fmt.Fprintf(d, "real(%s)", strconv.FormatFloat(float64(pv), 'g', -1, 64))
	case Date:
		fmt.Fprintf(d, "date(%s)", pv.Time().Format(time.RFC3339Nano))
	case Data:
		fmt.Fprintf(d, "data(%d:%s)", len(pv), hex.EncodeToString(pv))
	case String:
		fmt.Fprintf(d, "string(%s)", strconv.Quote(string(pv)))
	case UID:
		fmt.Fprintf(d, "uid(%d)", uint64(pv))
	case Array:
		d.writeArray(pv)
	case Dictionary:
		d.writeDictionary(pv)
	default:
		unreachable(val)
	}
}

// Dump writes a human-readable, typed rendering of val to w.
func Dump(w io.Writer, val Value) error {
	d := newDumper(w)
	d.writeValue(val)
	d.WriteByte('\n')
	return d.Flush()
}

// DumpString returns the Dump rendering of val.
func DumpString(val Value) string {
	var b strings.Builder
	Dump(&b, val)
	return b.String()
}
