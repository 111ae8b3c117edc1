package bplist

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
)

// bplistBuilder assembles binary property lists for tests. Objects are laid
// out in index order; references are written refSize bytes wide.
type bplistBuilder struct {
	objects    [][]byte
	refSize    int
	offsetSize int
	top        uint64

	numObjects *uint64 // overrides the trailer count when set
}

func newBuilder() *bplistBuilder {
	return &bplistBuilder{refSize: 1, offsetSize: 1}
}

// add appends an encoded object and returns its index.
func (b *bplistBuilder) add(obj []byte) uint64 {
	b.objects = append(b.objects, obj)
	return uint64(len(b.objects) - 1)
}

// reserve returns an index whose object is filled in later with set.
func (b *bplistBuilder) reserve() uint64 {
	return b.add(nil)
}

func (b *bplistBuilder) set(index uint64, obj []byte) {
	b.objects[index] = obj
}

func (b *bplistBuilder) bytes() []byte {
	buf := []byte("bplist00")
	offsets := make([]uint64, len(b.objects))
	for i, obj := range b.objects {
		offsets[i] = uint64(len(buf))
		buf = append(buf, obj...)
	}
	tableOffset := uint64(len(buf))
	for _, off := range offsets {
		buf = append(buf, beUint(off, b.offsetSize)...)
	}
	n := uint64(len(b.objects))
	if b.numObjects != nil {
		n = *b.numObjects
	}
	buf = append(buf, 0, 0, 0, 0, 0, 0, uint8(b.offsetSize), uint8(b.refSize))
	buf = append(buf, beUint(n, 8)...)
	buf = append(buf, beUint(b.top, 8)...)
	buf = append(buf, beUint(tableOffset, 8)...)
	return buf
}

// beUint writes v big-endian in width bytes and panics if it does not fit.
func beUint(v uint64, width int) []byte {
	if width < 8 && v>>(8*uint(width)) != 0 {
		panic(fmt.Sprintf("%d does not fit in %d bytes", v, width))
	}
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = uint8(v)
		v >>= 8
	}
	return out
}

// countTag encodes tag with count n, switching to the extended form at 15.
func countTag(tag uint8, n int) []byte {
	if n < 15 {
		return []byte{tag | uint8(n)}
	}
	return extendedCountTag(tag, n)
}

// extendedCountTag always stores n as a trailing integer object.
func extendedCountTag(tag uint8, n int) []byte {
	out := []byte{tag | 0x0F}
	switch {
	case n <= math.MaxUint8:
		return append(out, 0x10, uint8(n))
	case n <= math.MaxUint16:
		return append(append(out, 0x11), beUint(uint64(n), 2)...)
	default:
		return append(append(out, 0x12), beUint(uint64(n), 4)...)
	}
}

func (b *bplistBuilder) refs(indexes ...uint64) []byte {
	var out []byte
	for _, i := range indexes {
		out = append(out, beUint(i, b.refSize)...)
	}
	return out
}

func (b *bplistBuilder) arrayObj(indexes ...uint64) []byte {
	return append(countTag(bpTagArray, len(indexes)), b.refs(indexes...)...)
}

func (b *bplistBuilder) dictObj(keys, values []uint64) []byte {
	out := countTag(bpTagDictionary, len(keys))
	out = append(out, b.refs(keys...)...)
	return append(out, b.refs(values...)...)
}

func asciiObj(s string) []byte {
	return append(countTag(bpTagASCIIString, len(s)), s...)
}

func utf16Obj(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := countTag(bpTagUTF16String, len(units))
	for _, u := range units {
		out = append(out, uint8(u>>8), uint8(u))
	}
	return out
}

func dataObj(d []byte) []byte {
	return append(countTag(bpTagData, len(d)), d...)
}

// intObj encodes i in 1, 2, 4 or 8 bytes.
func intObj(i int64, width int) []byte {
	exp := map[int]uint8{1: 0, 2: 1, 4: 2, 8: 3}[width]
	u := uint64(i)
	if width < 8 {
		u &= 1<<(8*uint(width)) - 1
	}
	return append([]byte{bpTagInteger | exp}, beUint(u, width)...)
}

func realObj(f float64) []byte {
	out := []byte{bpTagReal | 3}
	return binary.BigEndian.AppendUint64(out, math.Float64bits(f))
}

func real32Obj(f float32) []byte {
	out := []byte{bpTagReal | 2}
	return binary.BigEndian.AppendUint32(out, math.Float32bits(f))
}

func dateObj(f float64) []byte {
	out := []byte{bpTagDate | bpDateInfo}
	return binary.BigEndian.AppendUint64(out, math.Float64bits(f))
}

func uidObj(u uint64, width int) []byte {
	return append([]byte{bpTagUID | uint8(width-1)}, beUint(u, width)...)
}

var (
	nullObj  = []byte{bpTagNull}
	trueObj  = []byte{bpTagBoolTrue}
	falseObj = []byte{bpTagBoolFalse}
	fillObj  = []byte{bpTagFill}
)

// addValue encodes a whole tree, children after their parent, and returns
// the index of its root.
func (b *bplistBuilder) addValue(v Value) uint64 {
	switch pv := v.(type) {
	case Null:
		return b.add(nullObj)
	case Bool:
		if pv {
			return b.add(trueObj)
		}
		return b.add(falseObj)
	case Integer:
		i, ok := pv.Int64()
		if !ok {
			panic("test encoder only writes 64-bit integers")
		}
		return b.add(intObj(i, 8))
	case Real:
		return b.add(realObj(float64(pv)))
	case Date:
		return b.add(dateObj(float64(pv)))
	case Data:
		return b.add(dataObj(pv))
	case String:
		return b.add(stringObj(string(pv)))
	case UID:
		return b.add(uidObj(uint64(pv), 4))
	case Array:
		index := b.reserve()
		refs := make([]uint64, len(pv))
		for i, e := range pv {
			refs[i] = b.addValue(e)
		}
		b.set(index, b.arrayObj(refs...))
		return index
	case Dictionary:
		index := b.reserve()
		keys := make([]uint64, len(pv.Keys))
		for i, k := range pv.Keys {
			keys[i] = b.add(stringObj(k))
		}
		values := make([]uint64, len(pv.Values))
		for i, e := range pv.Values {
			values[i] = b.addValue(e)
		}
		b.set(index, b.dictObj(keys, values))
		return index
	}
	panic("unknown value")
}

func stringObj(s string) []byte {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return utf16Obj(s)
		}
	}
	return asciiObj(s)
}

// encodeTree returns the bplist encoding of v.
func encodeTree(v Value) []byte {
	b := newBuilder()
	b.refSize = 2
	b.offsetSize = 4
	b.top = b.addValue(v)
	return b.bytes()
}
