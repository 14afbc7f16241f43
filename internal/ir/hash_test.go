package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHashDeterminism(t *testing.T) {
	data := Object{
		"title":   String("Trip"),
		"gallery": Array{Object{"_id": String("m1"), "caption": String("Beach")}},
	}

	h1, err := RecordHash("article", data)
	require.NoError(t, err)
	h2, err := RecordHash("article", data.Clone())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestRecordHashKeyOrderIrrelevant(t *testing.T) {
	a := Object{"a": Int(1), "b": Int(2)}
	b := Object{"b": Int(2), "a": Int(1)}

	assert.Equal(t, MustRecordHash("article", a), MustRecordHash("article", b))
}

func TestRecordHashChanges(t *testing.T) {
	base := MustRecordHash("article", Object{"title": String("Trip")})

	tests := []struct {
		name       string
		recordType string
		data       Object
	}{
		{"different type", "page", Object{"title": String("Trip")}},
		{"different value", "article", Object{"title": String("Trips")}},
		{"extra key", "article", Object{"title": String("Trip"), "cover": Null{}}},
		{"number vs string", "article", Object{"title": Int(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, MustRecordHash(tt.recordType, tt.data))
		})
	}
}

func TestDomainSeparation(t *testing.T) {
	// The same canonical bytes hash differently under each domain.
	props := Object{"type": String("article"), "data": Object{}}

	record := MustRecordHash("article", Object{})
	properties, err := PropertiesHash(props)
	require.NoError(t, err)

	assert.NotEqual(t, record, properties)
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	// "ab" + 0x00 + "c" must differ from "a" + 0x00 + "bc".
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))
}

func TestHashErrors(t *testing.T) {
	_, err := RecordHash("article", Object{"n": Number("not-a-number")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RecordHash")

	_, err = PropertiesHash(Object{"n": Number("")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PropertiesHash")

	assert.Panics(t, func() {
		MustRecordHash("article", Object{"n": Number("x")})
	})
}
