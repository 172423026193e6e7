package canon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSONDistinguishesIntAndFloat(t *testing.T) {
	v, err := FromJSON(json.Number("3"))
	require.NoError(t, err)
	assert.Equal(t, Int(3), v)

	v, err = FromJSON(json.Number("3.5"))
	require.NoError(t, err)
	assert.Equal(t, Float(3.5), v)
}

func TestFromJSONNested(t *testing.T) {
	v, err := FromJSON(map[string]any{
		"a": []any{json.Number("1"), "two", true, nil},
	})
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	arr, ok := obj["a"].(Array)
	require.True(t, ok)
	assert.Equal(t, Array{Int(1), String("two"), Bool(true), Null{}}, arr)
}

func TestObjectSortedKeysDeterministic(t *testing.T) {
	obj := NewObject(P("c", Int(1)), P("a", Int(2)), P("b", Int(3)))
	assert.Equal(t, []string{"a", "b", "c"}, obj.SortedKeys())
}

func TestDecodeRoundTrip(t *testing.T) {
	obj := NewObject(
		P("name", String("alchemist")),
		P("count", Int(7)),
		P("ratio", Float(0.5)),
		P("tags", Array{String("a"), String("b")}),
		P("meta", Null{}),
	)

	encoded, err := EncodeNormalForm(obj)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, obj, decoded)
}
