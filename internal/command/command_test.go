package command

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/webdriver-bridge/internal/drivererr"
)

// orderedKeys returns the top-level keys of a JSON object in document order.
func orderedKeys(t *testing.T, data []byte) []string {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(string(data)))
	tok, err := dec.Token()
	require.NoError(t, err)
	require.Equal(t, json.Delim('{'), tok)

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		require.NoError(t, err)
		keys = append(keys, tok.(string))
		var skip json.RawMessage
		require.NoError(t, dec.Decode(&skip))
	}
	return keys
}

func TestSerializeGet(t *testing.T) {
	cat := DefaultCatalog()
	cmd, err := cat.New(Get, String("http://example.com"))
	require.NoError(t, err)

	data, err := Serialize(cat, cmd)
	require.NoError(t, err)
	assert.Equal(t, `{"request":"get","url":"http://example.com"}`, string(data))
}

func TestSerializeKeyOrderForEveryKind(t *testing.T) {
	cat := DefaultCatalog()

	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			names, err := cat.ParamNames(kind)
			require.NoError(t, err)
			wire, err := cat.WireName(kind)
			require.NoError(t, err)

			values := make([]Value, len(names))
			for i := range values {
				values[i] = String("v" + names[i])
			}
			cmd, err := cat.New(kind, values...)
			require.NoError(t, err)

			data, err := Serialize(cat, cmd)
			require.NoError(t, err)

			want := append([]string{"request"}, names...)
			if diff := cmp.Diff(want, orderedKeys(t, data)); diff != "" {
				t.Errorf("key order mismatch (-want +got):\n%s", diff)
			}

			var decoded map[string]any
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, wire, decoded["request"])
			for _, n := range names {
				assert.Equal(t, "v"+n, decoded[n])
			}
		})
	}
}

func TestSerializeNestedValues(t *testing.T) {
	cat := DefaultCatalog()
	cookie := Map(
		F("name", String("session")),
		F("value", String("abc")),
		F("secure", Bool(true)),
		F("expiry", Int(1700000000)),
		F("path", Null()),
		F("tags", List(String("a"), Map(F("deep", Number(1.5))))),
	)
	cmd, err := cat.New(AddCookie, cookie)
	require.NoError(t, err)

	data, err := Serialize(cat, cmd)
	require.NoError(t, err)
	assert.Equal(t,
		`{"request":"addCookie","cookie":{"name":"session","value":"abc","secure":true,"expiry":1700000000,"path":null,"tags":["a",{"deep":1.5}]}}`,
		string(data))
}

func TestSerializeEmptyContainers(t *testing.T) {
	cat := DefaultCatalog()
	cmd, err := cat.New(ExecuteScript, String("return 1"), List())
	require.NoError(t, err)

	data, err := Serialize(cat, cmd)
	require.NoError(t, err)
	assert.Equal(t, `{"request":"executeScript","script":"return 1","args":[]}`, string(data))

	out, err := json.Marshal(Map())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(out))
}

func TestNewParameterCountMismatch(t *testing.T) {
	_, err := DefaultCatalog().New(FindElement, String("css selector"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "takes 2 parameters")
}

func TestSerializeUnknownCommand(t *testing.T) {
	cat := NewCatalog()
	cat.wire[Get] = "get"

	_, err := cat.New(Get, String("x"))
	assert.True(t, errors.Is(err, drivererr.UnknownCommand))

	_, err = Serialize(cat, Command{Kind: Get, Names: []string{"url"}, Values: []Value{String("x")}})
	assert.True(t, errors.Is(err, drivererr.UnknownCommand))
}

func TestSerializeKeyNotFound(t *testing.T) {
	cat := NewCatalog()
	cat.params[Get] = []string{"url"}

	_, err := Serialize(cat, Command{Kind: Get, Names: []string{"url"}, Values: []Value{String("x")}})
	assert.True(t, errors.Is(err, drivererr.KeyNotFound))
}

func TestSerializeRejectsMismatchedNames(t *testing.T) {
	cat := DefaultCatalog()
	cmd := Command{Kind: Get, Names: []string{"href"}, Values: []Value{String("x")}}
	_, err := Serialize(cat, cmd)
	assert.True(t, errors.Is(err, drivererr.UnknownCommand))

	cmd = Command{Kind: Get, Names: []string{"url"}}
	_, err = Serialize(cat, cmd)
	assert.Error(t, err)
}

func TestCommandParam(t *testing.T) {
	cmd, err := DefaultCatalog().New(FindElement, String("css selector"), String("#foo"))
	require.NoError(t, err)

	v, ok := cmd.Param("value")
	require.True(t, ok)
	assert.Equal(t, "#foo", v.Scalar())

	_, ok = cmd.Param("missing")
	assert.False(t, ok)
}
