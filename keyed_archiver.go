package bplist

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"math/big"
	"runtime"

	uuid "github.com/satori/go.uuid"
)

const (
	keyedArchiverName = "NSKeyedArchiver"
	keyedArchiveNull  = "$null"
)

type archiverClass struct {
	ClassName string   `plist:"$classname"`
	Classes   []string `plist:"$classes"`
}

// foundationKind picks the Foundation class an archived object is decoded
// as: its own class name first, then its superclasses in order.
func (c *archiverClass) foundationKind() string {
	for _, name := range append([]string{c.ClassName}, c.Classes...) {
		switch name {
		case "NSDictionary", "NSMutableDictionary":
			return "NSDictionary"
		case "NSArray", "NSMutableArray", "NSSet", "NSMutableSet", "NSOrderedSet", "NSMutableOrderedSet":
			return "NSArray"
		case "NSData", "NSMutableData":
			return "NSData"
		case "NSString", "NSMutableString":
			return "NSString"
		case "NSDate", "NSUUID", "NSNull":
			return name
		}
	}
	return ""
}

// KeyedArchive is a decoded NSKeyedArchiver document: a flat object table
// whose entries refer to each other by UID.
type KeyedArchive struct {
	Version  int            `plist:"$version"`
	Archiver string         `plist:"$archiver"`
	Objects  []Value        `plist:"$objects"`
	Top      map[string]UID `plist:"$top"`
}

// NewKeyedArchive interprets a decoded document as a keyed archive.
func NewKeyedArchive(root Value) (*KeyedArchive, error) {
	if root.Kind() != DictionaryKind {
		return nil, &FormatError{Offset: -1, Reason: "keyed archive root is a " + root.Kind().String()}
	}
	a := &KeyedArchive{}
	if err := UnmarshalValue(root, a); err != nil {
		return nil, fmt.Errorf("bplist: reading keyed archive: %w", err)
	}
	if a.Archiver != keyedArchiverName {
		return nil, &FormatError{Offset: -1, Reason: fmt.Sprintf("unexpected archiver %q", a.Archiver)}
	}
	if len(a.Objects) == 0 || len(a.Top) == 0 {
		return nil, &FormatError{Offset: -1, Reason: "keyed archive has no objects"}
	}
	return a, nil
}

// ReadKeyedArchive decodes data, which may be gzip compressed, as a keyed archive.
func ReadKeyedArchive(data []byte, opts ...Option) (*KeyedArchive, error) {
	if len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b {
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		limit := newDecoderOptions(opts).maxPayloadSize
		data, err = io.ReadAll(io.LimitReader(reader, int64(limit)+1))
		if err != nil {
			return nil, err
		}
		if uint64(len(data)) > limit {
			return nil, &LimitExceededError{Limit: "uncompressed archive size", Value: uint64(len(data)), Max: limit}
		}
	}
	root, err := Parse(data, opts...)
	if err != nil {
		return nil, err
	}
	return NewKeyedArchive(root)
}

// Resolve returns the archive's root object with every UID replaced by the
// object it refers to.
func (a *KeyedArchive) Resolve() (Value, error) {
	if _, ok := a.Top["root"]; ok {
		return a.ResolveKey("root")
	}
	return a.ResolveKey("$0")
}

// ResolveKey resolves the top-level object stored under key. Archives whose
// objects refer back to themselves fail with a *CyclicReferenceError.
func (a *KeyedArchive) ResolveKey(key string) (pval Value, err error) {
	uid, ok := a.Top[key]
	if !ok {
		return nil, fmt.Errorf("bplist: keyed archive has no top-level key %q", key)
	}
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			e, ok := r.(error)
			if !ok {
				panic(r)
			}
			pval, err = nil, e
		}
	}()
	r := &archiveResolver{
		archive:  a,
		resolved: make(map[UID]Value),
		active:   make(map[UID]bool),
	}
	return r.object(uid), nil
}

type archiveResolver struct {
	archive  *KeyedArchive
	resolved map[UID]Value
	active   map[UID]bool
}

func (r *archiveResolver) raw(uid UID) Value {
	if uint64(uid) >= uint64(len(r.archive.Objects)) {
		panic(&FormatError{Offset: -1, Reason: fmt.Sprintf("uid %d is out of range (%d objects)", uid, len(r.archive.Objects))})
	}
	return r.archive.Objects[uid]
}

func (r *archiveResolver) object(uid UID) Value {
	raw := r.raw(uid)
	if s, ok := raw.(String); ok && s == keyedArchiveNull {
		return Null{}
	}
	if v, ok := r.resolved[uid]; ok {
		return v
	}
	if r.active[uid] {
		panic(&CyclicReferenceError{Index: uint64(uid)})
	}
	r.active[uid] = true
	v := r.value(raw)
	delete(r.active, uid)
	r.resolved[uid] = v
	return v
}

func (r *archiveResolver) value(v Value) Value {
	switch pv := v.(type) {
	case UID:
		return r.object(pv)
	case Array:
		return r.array(pv)
	case Dictionary:
		if class, ok := pv.Get("$class"); ok {
			if classUID, ok := class.(UID); ok {
				return r.instance(pv, classUID)
			}
		}
		return r.dictionary(pv, "")
	}
	return v
}

func (r *archiveResolver) array(a Array) Array {
	values := make(Array, len(a))
	for i, v := range a {
		values[i] = r.value(v)
	}
	return values
}

// dictionary resolves every value of d, skipping the entry named skip.
func (r *archiveResolver) dictionary(d Dictionary, skip string) Dictionary {
	out := Dictionary{Keys: make([]string, 0, d.Len()), Values: make([]Value, 0, d.Len())}
	for i, k := range d.Keys {
		if k == skip {
			continue
		}
		out.Keys = append(out.Keys, k)
		out.Values = append(out.Values, r.value(d.Values[i]))
	}
	return out
}

func (r *archiveResolver) class(uid UID) *archiverClass {
	class := &archiverClass{}
	if err := UnmarshalValue(r.raw(uid), class); err != nil {
		panic(fmt.Errorf("bplist: reading class %d: %w", uid, err))
	}
	return class
}

func (r *archiveResolver) field(d Dictionary, class *archiverClass, key string) Value {
	v, ok := d.Get(key)
	if !ok {
		panic(&FormatError{Offset: -1, Reason: fmt.Sprintf("%s object has no %s", class.ClassName, key)})
	}
	return r.value(v)
}

func (r *archiveResolver) instance(d Dictionary, classUID UID) Value {
	class := r.class(classUID)
	mismatch := func(key string, got Value) *FormatError {
		return &FormatError{Offset: -1, Reason: fmt.Sprintf("%s %s is a %s", class.ClassName, key, got.Kind())}
	}
	switch class.foundationKind() {
	case "NSDictionary":
		keys, ok := r.field(d, class, "NS.keys").(Array)
		if !ok {
			panic(&FormatError{Offset: -1, Reason: class.ClassName + " NS.keys is not an array"})
		}
		objects, ok := r.field(d, class, "NS.objects").(Array)
		if !ok || len(objects) != len(keys) {
			panic(&FormatError{Offset: -1, Reason: class.ClassName + " NS.objects does not match NS.keys"})
		}
		dict := Dictionary{Keys: make([]string, len(keys)), Values: []Value(objects)}
		for i, k := range keys {
			s, ok := k.(String)
			if !ok {
				panic(mismatch("key", k))
			}
			dict.Keys[i] = string(s)
		}
		return dict
	case "NSArray":
		objects := r.field(d, class, "NS.objects")
		if _, ok := objects.(Array); !ok {
			panic(mismatch("NS.objects", objects))
		}
		return objects
	case "NSData":
		data := r.field(d, class, "NS.data")
		if _, ok := data.(Data); !ok {
			panic(mismatch("NS.data", data))
		}
		return data
	case "NSString":
		s := r.field(d, class, "NS.string")
		if _, ok := s.(String); !ok {
			panic(mismatch("NS.string", s))
		}
		return s
	case "NSDate":
		switch t := r.field(d, class, "NS.time").(type) {
		case Real:
			return Date(t)
		case Integer:
			f, _ := new(big.Float).SetInt(t.Big()).Float64()
			return Date(f)
		case Date:
			return t
		default:
			panic(mismatch("NS.time", t))
		}
	case "NSUUID":
		b, ok := r.field(d, class, "NS.uuidbytes").(Data)
		if !ok {
			panic(&FormatError{Offset: -1, Reason: "NSUUID NS.uuidbytes is not data"})
		}
		u, err := uuid.FromBytes(b)
		if err != nil {
			panic(&FormatError{Offset: -1, Reason: "NSUUID: " + err.Error()})
		}
		return String(u.String())
	case "NSNull":
		return Null{}
	}

	obj := r.dictionary(d, "$class")
	obj.Keys = append([]string{"$classname"}, obj.Keys...)
	obj.Values = append([]Value{String(class.ClassName)}, obj.Values...)
	return obj
}
