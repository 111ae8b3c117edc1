package bplist

import (
	"reflect"
	"strings"
	"sync"
)

// typeInfo holds the plist field layout of a struct type.
type typeInfo struct {
	fields []fieldInfo
}

// fieldInfo describes one struct field addressed by a dictionary key.
type fieldInfo struct {
	idx    []int
	name   string
	tagged bool
}

var tinfoMap sync.Map // map[reflect.Type]*typeInfo

// getTypeInfo returns the field layout of typ, computing it on first use.
func getTypeInfo(typ reflect.Type) *typeInfo {
	if ti, ok := tinfoMap.Load(typ); ok {
		return ti.(*typeInfo)
	}
	tinfo := &typeInfo{}
	if typ.Kind() == reflect.Struct {
		var candidates []fieldInfo
		collectFields(typ, nil, map[reflect.Type]bool{}, &candidates)
		tinfo.fields = dominantFields(candidates)
	}
	ti, _ := tinfoMap.LoadOrStore(typ, tinfo)
	return ti.(*typeInfo)
}

// collectFields appends every addressable field of typ, descending into
// untagged embedded structs. visiting guards against embedding loops.
func collectFields(typ reflect.Type, index []int, visiting map[reflect.Type]bool, out *[]fieldInfo) {
	if visiting[typ] {
		return
	}
	visiting[typ] = true
	defer delete(visiting, typ)

	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.Tag.Get("plist") == "-" || (!f.Anonymous && f.PkgPath != "") {
			continue
		}
		idx := append(append([]int(nil), index...), i)

		// Untagged embedded structs contribute their own fields.
		if f.Anonymous && f.Tag.Get("plist") == "" {
			t := f.Type
			if t.Kind() == reflect.Ptr {
				if f.PkgPath != "" {
					continue // cannot allocate through an unexported pointer
				}
				t = t.Elem()
			}
			if t.Kind() == reflect.Struct {
				collectFields(t, idx, visiting, out)
				continue
			}
			if f.PkgPath != "" {
				continue
			}
		}
		finfo := structFieldInfo(&f)
		finfo.idx = idx
		*out = append(*out, finfo)
	}
}

// dominantFields applies Go's selector rule to candidates: for each name the
// shallowest field wins. Several fields at that depth are ambiguous and all
// dropped, unless exactly one of them carries a plist tag.
func dominantFields(candidates []fieldInfo) []fieldInfo {
	byName := make(map[string][]int)
	var order []string
	for i, f := range candidates {
		if _, seen := byName[f.name]; !seen {
			order = append(order, f.name)
		}
		byName[f.name] = append(byName[f.name], i)
	}

	var fields []fieldInfo
	for _, name := range order {
		var shallowest []int
		for _, i := range byName[name] {
			switch {
			case shallowest == nil || len(candidates[i].idx) < len(candidates[shallowest[0]].idx):
				shallowest = []int{i}
			case len(candidates[i].idx) == len(candidates[shallowest[0]].idx):
				shallowest = append(shallowest, i)
			}
		}
		if len(shallowest) == 1 {
			fields = append(fields, candidates[shallowest[0]])
			continue
		}
		winner := -1
		for _, i := range shallowest {
			if candidates[i].tagged {
				if winner >= 0 {
					winner = -1
					break
				}
				winner = i
			}
		}
		if winner >= 0 {
			fields = append(fields, candidates[winner])
		}
	}
	return fields
}

// structFieldInfo reads the dictionary key of f from its plist tag. Options
// after the first comma (omitempty and friends) only matter to encoders.
func structFieldInfo(f *reflect.StructField) fieldInfo {
	name := f.Tag.Get("plist")
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}
	tagged := name != ""
	if name == "" {
		name = f.Name
	}
	return fieldInfo{idx: f.Index, name: name, tagged: tagged}
}

// value returns the field of v described by finfo, allocating nil embedded
// struct pointers on the way.
func (finfo *fieldInfo) value(v reflect.Value) reflect.Value {
	for i, x := range finfo.idx {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}
