package command

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueVariants(t *testing.T) {
	assert.True(t, Value{}.IsScalar())
	assert.Nil(t, Value{}.Scalar())
	assert.True(t, Map().IsMapping())
	assert.True(t, List().IsSequence())
	assert.Nil(t, List(String("x")).Scalar())
	assert.Len(t, Strings("a", "b").Items(), 2)
	assert.Equal(t, "k", Map(F("k", Int(1))).Fields()[0].Key)
}

func TestFromAnySortsMapKeys(t *testing.T) {
	v, err := FromAny(map[string]any{"b": 1, "a": []any{"x", nil, true}, "c": map[string]string{"z": "y"}})
	require.NoError(t, err)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":["x",null,true],"b":1,"c":{"z":"y"}}`, string(data))
}

func TestFromAnyUnsupported(t *testing.T) {
	_, err := FromAny(struct{}{})
	assert.ErrorContains(t, err, "unsupported parameter type")

	_, err = FromAny([]any{1, make(chan int)})
	assert.ErrorContains(t, err, "index 1")
}

func TestParseValueRoundTrip(t *testing.T) {
	doc := `{"script":"return arguments[0]","n":12345678901234567890,"list":[1.25,"two",{"three":false}]}`
	v, err := ParseValue([]byte(doc))
	require.NoError(t, err)

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var want, got any
	require.NoError(t, json.Unmarshal([]byte(doc), &want))
	require.NoError(t, json.Unmarshal(data, &got))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, string(data), "12345678901234567890", "json.Number keeps precision")
}
