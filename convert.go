package bplist

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Native converts val to plain Go values: nil, bool, int64 (uint64 or
// *big.Int when out of range), float64, time.Time, []byte, string, UID,
// []interface{} and map[string]interface{}. Dictionary order is lost.
func Native(val Value) interface{} {
	switch pv := val.(type) {
	case Null:
		return nil
	case Bool:
		return bool(pv)
	case Integer:
		if i, ok := pv.Int64(); ok {
			return i
		}
		if u, ok := pv.Uint64(); ok {
			return u
		}
		return pv.Big()
	case Real:
		return float64(pv)
	case Date:
		return pv.Time()
	case Data:
		return []byte(pv)
	case String:
		return string(pv)
	case UID:
		return pv
	case Array:
		arr := make([]interface{}, len(pv))
		for i, v := range pv {
			arr[i] = Native(v)
		}
		return arr
	case Dictionary:
		m := make(map[string]interface{}, pv.Len())
		for i, k := range pv.Keys {
			m[k] = Native(pv.Values[i])
		}
		return m
	}
	unreachable(val)
	return nil
}

const uidKey = "CF$UID"

// orderedJSON marshals as a JSON object with its keys in stored order.
type orderedJSON struct {
	keys   []string
	values []interface{}
}

func (o orderedJSON) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// nonFinite spells NaN and the infinities, which JSON cannot carry.
func nonFinite(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "nan", true
	case math.IsInf(f, 1):
		return "inf", true
	case math.IsInf(f, -1):
		return "-inf", true
	}
	return "", false
}

func jsonValue(val Value) interface{} {
	switch pv := val.(type) {
	case Null:
		return nil
	case Bool:
		return bool(pv)
	case Integer:
		return json.Number(pv.String())
	case Real:
		if s, ok := nonFinite(float64(pv)); ok {
			return s
		}
		return float64(pv)
	case Date:
		return pv.Time().Format(time.RFC3339Nano)
	case Data:
		return []byte(pv)
	case String:
		return string(pv)
	case UID:
		return orderedJSON{keys: []string{uidKey}, values: []interface{}{uint64(pv)}}
	case Array:
		arr := make([]interface{}, len(pv))
		for i, v := range pv {
			arr[i] = jsonValue(v)
		}
		return arr
	case Dictionary:
		o := orderedJSON{keys: pv.Keys, values: make([]interface{}, len(pv.Values))}
		for i, v := range pv.Values {
			o.values[i] = jsonValue(v)
		}
		return o
	}
	unreachable(val)
	return nil
}

// ToJSON renders val as JSON, keeping dictionary order. Integers of any size
// are written as numbers, data as base64, dates as RFC 3339 strings and
// UIDs as {"CF$UID": n}. A non-empty indent pretty-prints.
func ToJSON(val Value, indent string) ([]byte, error) {
	if indent == "" {
		return json.Marshal(jsonValue(val))
	}
	return json.MarshalIndent(jsonValue(val), "", indent)
}

func yamlValue(val Value) interface{} {
	switch pv := val.(type) {
	case Null:
		return nil
	case Bool:
		return bool(pv)
	case Integer:
		if i, ok := pv.Int64(); ok {
			return i
		}
		if u, ok := pv.Uint64(); ok {
			return u
		}
		return pv.String()
	case Real:
		if s, ok := nonFinite(float64(pv)); ok {
			return s
		}
		return float64(pv)
	case Date:
		return pv.Time().Format(time.RFC3339Nano)
	case Data:
		return base64.StdEncoding.EncodeToString(pv)
	case String:
		return string(pv)
	case UID:
		return yaml.MapSlice{{Key: uidKey, Value: uint64(pv)}}
	case Array:
		arr := make([]interface{}, len(pv))
		for i, v := range pv {
			arr[i] = yamlValue(v)
		}
		return arr
	case Dictionary:
		ms := make(yaml.MapSlice, len(pv.Keys))
		for i, k := range pv.Keys {
			ms[i] = yaml.MapItem{Key: k, Value: yamlValue(pv.Values[i])}
		}
		return ms
	}
	unreachable(val)
	return nil
}

// ToYAML renders val as a YAML document, keeping dictionary order. Integers
// beyond 64 bits and data (base64) are written as strings.
func ToYAML(val Value) ([]byte, error) {
	return yaml.Marshal(yamlValue(val))
}
