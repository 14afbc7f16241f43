package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Number("42")
	var _ Value = Bool(true)
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = Object{"key": String("value")}
}

func TestObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := Object{
		"a":  Int(1),
		"A":  Int(2),
		"aa": Int(3),
		"aA": Int(4),
		"Aa": Int(5),
		"AA": Int(6),
	}

	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
	assert.Empty(t, Object{}.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"a", "ab", -1},
		{"\U00010000", "\uE000", -1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, compareKeysRFC8785(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestObjectCloneIsDeep(t *testing.T) {
	orig := Object{
		"gallery": Array{Object{"caption": String("Beach")}},
	}

	clone := orig.Clone()
	clone["gallery"].(Array)[0].(Object)["caption"] = String("Changed")

	assert.Equal(t, String("Beach"), orig["gallery"].(Array)[0].(Object)["caption"])
	assert.Nil(t, Object(nil).Clone())
}

func TestObjectLookup(t *testing.T) {
	obj := Object{"title": String("Trip"), "cover": Null{}}

	v, ok := obj.Lookup("cover")
	assert.True(t, ok)
	assert.Equal(t, Null{}, v)

	_, ok = obj.Lookup("missing")
	assert.False(t, ok)

	_, ok = Object(nil).Lookup("title")
	assert.False(t, ok)
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  bool
	}{
		{"nil", nil, true},
		{"null", Null{}, true},
		{"empty string", String(""), true},
		{"blank string", String("  \t"), true},
		{"string", String("x"), false},
		{"false is meaningful", Bool(false), false},
		{"zero is meaningful", Number("0"), false},
		{"empty array", Array{}, true},
		{"array of blanks", Array{String(""), Null{}}, true},
		{"array with value", Array{String(""), String("x")}, false},
		{"object of blanks", Object{"caption": String(""), "image": Object{}}, true},
		{"object with value", Object{"caption": String("Beach")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmpty(tt.value))
		})
	}
}

func TestAsString(t *testing.T) {
	tests := []struct {
		value  Value
		want   string
		wantOK bool
	}{
		{String("m1"), "m1", true},
		{Number("3"), "3", true},
		{Bool(true), "true", true},
		{Null{}, "", false},
		{Array{}, "", false},
		{Object{}, "", false},
	}

	for _, tt := range tests {
		got, ok := AsString(tt.value)
		assert.Equal(t, tt.wantOK, ok, "%#v", tt.value)
		assert.Equal(t, tt.want, got, "%#v", tt.value)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Object{"a": Int(1), "b": Strings("x", "y")}, Object{"b": Strings("x", "y"), "a": Number("1")}))
	assert.False(t, Equal(Number("1"), String("1")))
	assert.False(t, Equal(Number("1.0"), Number("1")))
	assert.False(t, Equal(Number("bad"), Number("bad")))
}

func TestDecodeKeepsNumberText(t *testing.T) {
	v, err := Decode([]byte(`{"price": 1.50, "big": 12345678901234567890, "items": [1, null, true]}`))
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, Number("1.50"), obj["price"])
	assert.Equal(t, Number("12345678901234567890"), obj["big"])
	assert.Equal(t, Array{Number("1"), Null{}, Bool(true)}, obj["items"])

	_, err = Decode([]byte(`{"broken":`))
	assert.Error(t, err)
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Value
	}{
		{"nil", nil, Null{}},
		{"value passes through", String("x"), String("x")},
		{"int", 7, Number("7")},
		{"uint64", uint64(18446744073709551615), Number("18446744073709551615")},
		{"float64", 2.5, Number("2.5")},
		{"json number", json.Number("10"), Number("10")},
		{"string slice", []string{"a", "b"}, Array{String("a"), String("b")}},
		{"yaml map", map[any]any{1: "one"}, Object{"1": String("one")}},
		{"nested", map[string]any{"g": []any{map[string]any{"c": "x"}}}, Object{"g": Array{Object{"c": String("x")}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FromAny([]any{struct{}{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[0]")
}

func TestToAny(t *testing.T) {
	v := Object{
		"n":     Number("1.5"),
		"items": Array{String("a"), Null{}, Bool(false)},
	}

	assert.Equal(t, map[string]any{
		"n":     json.Number("1.5"),
		"items": []any{"a", nil, false},
	}, ToAny(v))
}

func TestObjectJSON(t *testing.T) {
	obj := Object{
		"title":   String("Trip"),
		"count":   Number("2"),
		"gallery": Array{Object{"_id": String("m1")}},
		"cover":   Null{},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"count":2,"cover":null,"gallery":[{"_id":"m1"}],"title":"Trip"}`, string(data))

	var back Object
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, Equal(obj, back))

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &back))
}

func TestNumberInt64(t *testing.T) {
	n, err := Number("42").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = Number("4.2").Int64()
	assert.Error(t, err)
}

func TestRecordRef(t *testing.T) {
	assert.Equal(t, "article/<new>", RecordRef{Type: "article"}.String())
	assert.False(t, RecordRef{Type: "article"}.Identified())

	ref := RecordRef{Type: "article", ID: "r1"}
	assert.Equal(t, "article/r1", ref.String())
	assert.True(t, ref.Identified())
}
