package bplist

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"

	"go.uber.org/zap"
)

type objectState uint8

const (
	objectUnseen objectState = iota
	objectDecoding
	objectDecoded
)

// bplistParser decodes one buffer. It is not reused across documents.
type bplistParser struct {
	buffer   []byte
	opts     decoderOptions
	trailer  bplistTrailer
	offtable []uint64
	objects  []Value
	state    []objectState
}

func newBplistParser(buffer []byte, opts decoderOptions) *bplistParser {
	return &bplistParser{buffer: buffer, opts: opts}
}

func (p *bplistParser) parseDocument() (pval Value, parseError error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			err, ok := r.(error)
			if !ok {
				panic(r)
			}
			pval, parseError = nil, err
		}
	}()

	p.readTrailer()
	p.readOffsetTable()
	return p.objectAtIndex(p.trailer.TopObject), nil
}

func (p *bplistParser) readTrailer() {
	if len(p.buffer) < bplistMinSize {
		panic(&FormatError{Offset: -1, Reason: fmt.Sprintf("%d bytes is too short for a binary property list", len(p.buffer))})
	}
	if string(p.buffer[:len(bplistMagic)]) != bplistMagic {
		panic(formatError(0, "missing %q magic", bplistMagic))
	}

	base := uint64(len(p.buffer) - bplistTrailerSize)
	t := p.buffer[base:]
	copy(p.trailer.Unused[:], t[0:5])
	p.trailer.SortVersion = t[5]
	p.trailer.OffsetIntSize = t[6]
	p.trailer.ObjectRefSize = t[7]
	p.trailer.NumObjects = binary.BigEndian.Uint64(t[8:16])
	p.trailer.TopObject = binary.BigEndian.Uint64(t[16:24])
	p.trailer.OffsetTableOffset = binary.BigEndian.Uint64(t[24:32])

	if s := p.trailer.OffsetIntSize; s < 1 || s > 8 {
		panic(formatError(base+6, "offset size %d is not in 1..8", s))
	}
	if s := p.trailer.ObjectRefSize; s < 1 || s > 8 {
		panic(formatError(base+7, "object reference size %d is not in 1..8", s))
	}
	if n := p.trailer.NumObjects; n > p.opts.maxObjectCount {
		panic(&LimitExceededError{Limit: "object count", Value: n, Max: p.opts.maxObjectCount})
	}
	if p.trailer.TopObject >= p.trailer.NumObjects {
		panic(formatError(base+16, "top object %d is not among the %d objects", p.trailer.TopObject, p.trailer.NumObjects))
	}
}

func (p *bplistParser) readOffsetTable() {
	n := p.trailer.NumObjects
	size := uint64(p.trailer.OffsetIntSize)
	p.checkPayload(saturatingMul(n, size), "offset table size")
	table := p.bytesAt(p.trailer.OffsetTableOffset, n*size)

	p.offtable = make([]uint64, n)
	for i := range p.offtable {
		off := uint64(i) * size
		p.offtable[i] = readUnsignedBigEndian(table[off : off+size])
	}
	p.objects = make([]Value, n)
	p.state = make([]objectState, n)
}

func (p *bplistParser) objectAtIndex(index uint64) Value {
	if index >= uint64(len(p.offtable)) {
		panic(&FormatError{Offset: -1, Reason: fmt.Sprintf("object reference %d is out of range (%d objects)", index, len(p.offtable))})
	}
	switch p.state[index] {
	case objectDecoded:
		return p.objects[index]
	case objectDecoding:
		panic(&CyclicReferenceError{Index: index})
	}

	off := p.offtable[index]
	if p.opts.debug {
		p.opts.logger.Debug("decoding object",
			zap.Uint64("index", index),
			zap.Uint64("offset", off))
	}
	p.state[index] = objectDecoding
	pval := p.parseTagAtOffset(off)
	p.objects[index] = pval
	p.state[index] = objectDecoded
	return pval
}

func (p *bplistParser) parseTagAtOffset(off uint64) Value {
	tag := p.byteAt(off)
	switch tag & 0xF0 {
	case bpTagNull:
		switch tag & 0x0F {
		case bpTagNull, bpTagFill:
			return Null{}
		case bpTagBoolTrue:
			return Bool(true)
		case bpTagBoolFalse:
			return Bool(false)
		}
		panic(formatError(off, "unexpected simple tag %#02x", tag))
	case bpTagInteger:
		width := uint64(1) << (tag & 0x0F)
		p.checkPayload(width, "integer size")
		return decodeInteger(p.bytesAt(off+1, width))
	case bpTagReal:
		width := uint64(1) << (tag & 0x0F)
		if width != 4 && width != 8 {
			panic(formatError(off, "real of %d bytes is neither 4 nor 8 bytes wide", width))
		}
		f, _ := decodeReal(p.bytesAt(off+1, width))
		return Real(f)
	case bpTagDate:
		if tag&0x0F != bpDateInfo {
			p.opts.logger.Warn("unexpected date tag, decoding as 8-byte date",
				zap.Uint64("offset", off),
				zap.Uint8("tag", tag))
		}
		b := p.bytesAt(off+1, 8)
		return Date(math.Float64frombits(binary.BigEndian.Uint64(b)))
	case bpTagData:
		cnt, start := p.countForTagAtOffset(off)
		p.checkPayload(cnt, "data length")
		raw := p.bytesAt(start, cnt)
		data := make(Data, cnt)
		copy(data, raw)
		return data
	case bpTagASCIIString:
		cnt, start := p.countForTagAtOffset(off)
		p.checkPayload(cnt, "string length")
		s, err := decodeASCII(p.bytesAt(start, cnt))
		if err != nil {
			panic(formatError(off, "ascii string: %v", err))
		}
		return String(s)
	case bpTagUTF16String:
		cnt, start := p.countForTagAtOffset(off)
		size := saturatingMul(cnt, 2)
		p.checkPayload(size, "utf-16 string size")
		s, err := decodeUTF16BE(p.bytesAt(start, size))
		if err != nil {
			panic(formatError(off, "utf-16 string: %v", err))
		}
		return String(s)
	case bpTagUID:
		width := uint64(tag&0x0F) + 1
		if width > 8 {
			panic(formatError(off, "uid of %d bytes does not fit in 64 bits", width))
		}
		return UID(readUnsignedBigEndian(p.bytesAt(off+1, width)))
	case bpTagArray:
		return p.parseArrayAtOffset(off)
	case bpTagDictionary:
		return p.parseDictionaryAtOffset(off)
	}
	panic(formatError(off, "unexpected object tag %#02x", tag))
}

// countForTagAtOffset returns the count stored in the tag at off and the
// offset of the payload that follows. Counts of 15 and more are stored as an
// integer object right after the tag.
func (p *bplistParser) countForTagAtOffset(off uint64) (uint64, uint64) {
	tag := p.byteAt(off)
	cnt := uint64(tag & 0x0F)
	if cnt != uint64(bpLengthExtended) {
		return cnt, off + 1
	}

	marker := p.byteAt(off + 1)
	if marker&0xF0 != bpTagInteger {
		p.opts.logger.Warn("unexpected length marker, reading it as an integer",
			zap.Uint64("offset", off+1),
			zap.Uint8("tag", marker))
	}
	exp := marker & 0x0F
	if exp > 3 {
		panic(formatError(off+1, "length integer of %d bytes is too wide", uint64(1)<<exp))
	}
	width := uint64(1) << exp
	cnt = readUnsignedBigEndian(p.bytesAt(off+2, width))
	return cnt, off + 2 + width
}

// readReferences returns n object indexes stored at off.
func (p *bplistParser) readReferences(off, n uint64) []uint64 {
	size := uint64(p.trailer.ObjectRefSize)
	b := p.bytesAt(off, n*size)
	refs := make([]uint64, n)
	for i := range refs {
		o := uint64(i) * size
		refs[i] = readUnsignedBigEndian(b[o : o+size])
	}
	return refs
}

func (p *bplistParser) parseArrayAtOffset(off uint64) Value {
	cnt, start := p.countForTagAtOffset(off)
	p.checkPayload(saturatingMul(cnt, uint64(p.trailer.ObjectRefSize)), "array reference table size")

	refs := p.readReferences(start, cnt)
	values := make(Array, len(refs))
	for i, ref := range refs {
		values[i] = p.objectAtIndex(ref)
	}
	return values
}

func (p *bplistParser) parseDictionaryAtOffset(off uint64) Value {
	cnt, start := p.countForTagAtOffset(off)
	p.checkPayload(saturatingMul(cnt, 2*uint64(p.trailer.ObjectRefSize)), "dictionary reference table size")

	// keys first, then values
	refs := p.readReferences(start, cnt*2)
	dict := Dictionary{
		Keys:   make([]string, cnt),
		Values: make([]Value, cnt),
	}
	for i := uint64(0); i < cnt; i++ {
		key := p.objectAtIndex(refs[i])
		s, ok := key.(String)
		if !ok {
			panic(formatError(off, "dictionary key %d is of type %s; keys must be strings", i, key.Kind()))
		}
		dict.Keys[i] = string(s)
		dict.Values[i] = p.objectAtIndex(refs[cnt+i])
	}
	return dict
}

func (p *bplistParser) checkPayload(size uint64, what string) {
	if size > p.opts.maxPayloadSize {
		panic(&LimitExceededError{Limit: what, Value: size, Max: p.opts.maxPayloadSize})
	}
}

func (p *bplistParser) byteAt(off uint64) uint8 {
	if off >= uint64(len(p.buffer)) {
		panic(formatError(off, "offset is beyond the end of the %d-byte buffer", len(p.buffer)))
	}
	return p.buffer[off]
}

// bytesAt returns n bytes starting at off. The slice aliases the buffer and
// must be copied before it escapes the parser.
func (p *bplistParser) bytesAt(off, n uint64) []byte {
	l := uint64(len(p.buffer))
	if off > l || n > l-off {
		panic(formatError(off, "%d bytes requested past the end of the %d-byte buffer", n, l))
	}
	return p.buffer[off : off+n]
}
