package bplist

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v2"
)

func sampleTree() Value {
	huge, _ := new(big.Int).SetString("18446744073709551616", 10) // 2^64
	return Dictionary{
		Keys: []string{"zeta", "alpha", "big", "when", "blob", "ref", "list", "nothing"},
		Values: []Value{
			String("last first"),
			Real(1.5),
			NewBigInteger(huge),
			Date(0),
			Data("hi"),
			UID(3),
			Array{NewInteger(-1), Bool(false)},
			Null{},
		},
	}
}

func TestToJSON(t *testing.T) {
	out, err := ToJSON(sampleTree(), "")
	require.NoError(t, err)
	require.Equal(t,
		`{"zeta":"last first","alpha":1.5,"big":18446744073709551616,"when":"2001-01-01T00:00:00Z",`+
			`"blob":"aGk=","ref":{"CF$UID":3},"list":[-1,false],"nothing":null}`,
		string(out))

	out, err = ToJSON(Array{String("a")}, "  ")
	require.NoError(t, err)
	require.Equal(t, "[\n  \"a\"\n]", string(out))

	out, err = ToJSON(Array{Real(math.Inf(1)), Real(math.NaN())}, "")
	require.NoError(t, err)
	require.Equal(t, `["inf","nan"]`, string(out))
}

func TestToYAML(t *testing.T) {
	out, err := ToYAML(sampleTree())
	require.NoError(t, err)

	var back yaml.MapSlice
	require.NoError(t, yaml.Unmarshal(out, &back))
	keys := make([]interface{}, len(back))
	for i, item := range back {
		keys[i] = item.Key
	}
	require.Equal(t, []interface{}{"zeta", "alpha", "big", "when", "blob", "ref", "list", "nothing"}, keys)

	text := string(out)
	require.Contains(t, text, "zeta: last first\n")
	require.Contains(t, text, "big: \"18446744073709551616\"\n")
	require.Contains(t, text, "blob: aGk=\n")
	require.Contains(t, text, "ref:\n  CF$UID: 3\n")
	require.Contains(t, text, "list:\n- -1\n- false\n")
	require.Contains(t, text, "nothing: null\n")
}

func TestNative(t *testing.T) {
	n := Native(sampleTree()).(map[string]interface{})
	require.Equal(t, "last first", n["zeta"])
	require.Equal(t, 1.5, n["alpha"])
	require.Equal(t, "18446744073709551616", n["big"].(*big.Int).String())
	require.True(t, n["when"].(time.Time).Equal(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, []byte("hi"), n["blob"])
	require.Equal(t, UID(3), n["ref"])
	require.Equal(t, []interface{}{int64(-1), false}, n["list"])
	require.Nil(t, n["nothing"])
	require.Equal(t, uint64(math.MaxUint64), Native(NewUnsignedInteger(math.MaxUint64)))
}
