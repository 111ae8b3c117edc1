package bplist

import (
	"math/big"
	"reflect"
	"strconv"
	"time"
)

var (
	valueType  = reflect.TypeOf((*Value)(nil)).Elem()
	timeType   = reflect.TypeOf(time.Time{})
	bigIntType = reflect.TypeOf(big.Int{})
)

// UnmarshalValue stores val in the value pointed to by v.
//
// Dictionaries fill structs (fields matched by their `plist:"name"` tag or
// field name) and string-keyed maps; arrays fill slices and arrays. Integers
// and UIDs fill integer fields when they fit, floats, and big.Int. Dates fill
// time.Time, data fills []byte. Null zeroes the target. An empty interface
// receives Native(val) and a Value receives val itself.
func UnmarshalValue(val Value, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &InvalidUnmarshalError{Type: reflect.TypeOf(v)}
	}
	return unmarshal(val, rv.Elem(), "")
}

func unmarshal(pval Value, val reflect.Value, path string) error {
	if val.Type() == valueType {
		val.Set(reflect.ValueOf(pval))
		return nil
	}
	if _, null := pval.(Null); null {
		val.Set(reflect.Zero(val.Type()))
		return nil
	}
	switch val.Kind() {
	case reflect.Ptr:
		if val.IsNil() {
			val.Set(reflect.New(val.Type().Elem()))
		}
		return unmarshal(pval, val.Elem(), path)
	case reflect.Interface:
		if val.NumMethod() == 0 {
			val.Set(reflect.ValueOf(Native(pval)))
			return nil
		}
	}

	mismatch := &UnmarshalTypeError{Kind: pval.Kind(), Type: val.Type(), Path: path}
	switch pv := pval.(type) {
	case Bool:
		if val.Kind() != reflect.Bool {
			return mismatch
		}
		val.SetBool(bool(pv))
	case Integer:
		if !unmarshalInteger(pv.big(), val) {
			return mismatch
		}
	case UID:
		if !unmarshalInteger(new(big.Int).SetUint64(uint64(pv)), val) {
			return mismatch
		}
	case Real:
		switch val.Kind() {
		case reflect.Float32, reflect.Float64:
			if val.OverflowFloat(float64(pv)) {
				return mismatch
			}
			val.SetFloat(float64(pv))
		default:
			return mismatch
		}
	case Date:
		if val.Type() != timeType {
			return mismatch
		}
		val.Set(reflect.ValueOf(pv.Time()))
	case Data:
		switch {
		case val.Kind() == reflect.Slice && val.Type().Elem().Kind() == reflect.Uint8:
			b := reflect.MakeSlice(val.Type(), len(pv), len(pv))
			reflect.Copy(b, reflect.ValueOf([]byte(pv)))
			val.Set(b)
		case val.Kind() == reflect.Array && val.Type().Elem().Kind() == reflect.Uint8 && val.Len() == len(pv):
			reflect.Copy(val, reflect.ValueOf([]byte(pv)))
		default:
			return mismatch
		}
	case String:
		if val.Kind() != reflect.String {
			return mismatch
		}
		val.SetString(string(pv))
	case Array:
		return unmarshalArray(pv, val, path, mismatch)
	case Dictionary:
		return unmarshalDictionary(pv, val, path, mismatch)
	default:
		unreachable(pval)
	}
	return nil
}

func unmarshalInteger(n *big.Int, val reflect.Value) bool {
	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !n.IsInt64() || val.OverflowInt(n.Int64()) {
			return false
		}
		val.SetInt(n.Int64())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if !n.IsUint64() || val.OverflowUint(n.Uint64()) {
			return false
		}
		val.SetUint(n.Uint64())
	case reflect.Float32, reflect.Float64:
		f, _ := new(big.Float).SetInt(n).Float64()
		val.SetFloat(f)
	case reflect.Struct:
		if val.Type() != bigIntType {
			return false
		}
		val.Set(reflect.ValueOf(new(big.Int).Set(n)).Elem())
	default:
		return false
	}
	return true
}

func unmarshalArray(array Array, val reflect.Value, path string, mismatch error) error {
	switch val.Kind() {
	case reflect.Slice:
		val.Set(reflect.MakeSlice(val.Type(), len(array), len(array)))
	case reflect.Array:
		if val.Len() != len(array) {
			return mismatch
		}
	default:
		return mismatch
	}
	for i, v := range array {
		if err := unmarshal(v, val.Index(i), path+"["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	return nil
}

func unmarshalDictionary(dict Dictionary, val reflect.Value, path string, mismatch error) error {
	switch val.Kind() {
	case reflect.Map:
		typ := val.Type()
		if typ.Key().Kind() != reflect.String {
			return mismatch
		}
		if val.IsNil() {
			val.Set(reflect.MakeMapWithSize(typ, dict.Len()))
		}
		for i, k := range dict.Keys {
			elem := reflect.New(typ.Elem()).Elem()
			if err := unmarshal(dict.Values[i], elem, joinPath(path, k)); err != nil {
				return err
			}
			val.SetMapIndex(reflect.ValueOf(k).Convert(typ.Key()), elem)
		}
		return nil
	case reflect.Struct:
		if val.Type() == timeType || val.Type() == bigIntType {
			return mismatch
		}
		tinfo := getTypeInfo(val.Type())
		for i := range tinfo.fields {
			finfo := &tinfo.fields[i]
			dval, ok := dict.Get(finfo.name)
			if !ok {
				continue
			}
			if err := unmarshal(dval, finfo.value(val), joinPath(path, finfo.name)); err != nil {
				return err
			}
		}
		return nil
	}
	return mismatch
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
