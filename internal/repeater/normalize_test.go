package repeater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formtree/internal/ir"
)

func tokens(raws []Raw) []string {
	out := make([]string, len(raws))
	for i, r := range raws {
		out[i] = r.Token
	}
	return out
}

func TestNormalize_Empty(t *testing.T) {
	for _, v := range []ir.Value{nil, ir.Null{}, ir.String(""), ir.Array{}, ir.Object{}} {
		raws, err := Normalize(v)
		require.NoError(t, err)
		assert.Empty(t, raws)
	}
}

func TestNormalize_ArrayKeepsOrderAndExtractsIDs(t *testing.T) {
	v := ir.Array{
		ir.Object{"_id": ir.String("b"), "image": ir.String("2.png")},
		ir.Object{"image": ir.String("1.png")},
	}

	raws, err := Normalize(v)
	require.NoError(t, err)
	require.Len(t, raws, 2)

	assert.Equal(t, "b", raws[0].ID)
	assert.Equal(t, ir.Object{"image": ir.String("2.png")}, raws[0].Data)
	assert.Equal(t, "", raws[1].ID)
	assert.Equal(t, "", raws[1].Token)
}

func TestNormalize_KeyedNumericOrder(t *testing.T) {
	v := ir.Object{
		"10":   ir.Object{"image": ir.String("c")},
		"2":    ir.Object{"image": ir.String("b")},
		"0":    ir.Object{"image": ir.String("a")},
		"beta": ir.Object{"image": ir.String("e")},
		"alfa": ir.Object{"image": ir.String("d")},
	}

	raws, err := Normalize(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "2", "10", "alfa", "beta"}, tokens(raws))
}

func TestNormalize_ExplicitOrder(t *testing.T) {
	v := ir.Object{
		OrderKey: ir.String("y, x,missing"),
		"x":      ir.Object{"image": ir.String("1")},
		"y":      ir.Object{"image": ir.String("2")},
		"0":      ir.Object{"image": ir.String("3")},
	}

	raws, err := Normalize(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x", "0"}, tokens(raws))
}

func TestNormalize_DropsTemplateToken(t *testing.T) {
	v := ir.Object{
		"__TEMPLATE__": ir.Object{"image": ir.String("stencil")},
		"0":            ir.Object{"image": ir.String("a")},
	}

	raws, err := Normalize(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, tokens(raws))
}

func TestNormalize_RejectsScalars(t *testing.T) {
	_, err := Normalize(ir.String("oops"))
	assert.Error(t, err)

	_, err = Normalize(ir.Array{ir.Int(1)})
	assert.Error(t, err)
}

func TestPrune_Idempotent(t *testing.T) {
	raws := []Raw{
		{Token: "0", Data: ir.Object{"image": ir.String(""), "tags": ir.Array{}}},
		{Token: "1", Data: ir.Object{"image": ir.String("a.png")}},
		{Token: "2", Data: ir.Object{"meta": ir.Object{"alt": ir.Null{}}}},
		{Token: "3", Data: ir.Object{"published": ir.Bool(false)}},
	}

	once := Prune(raws)
	assert.Equal(t, []string{"1", "3"}, tokens(once))
	assert.Equal(t, once, Prune(once))

	assert.Empty(t, Prune(Prune([]Raw{raws[0], raws[2]})))
}

func TestMeaningful_IgnoresReservedKeys(t *testing.T) {
	assert.False(t, Meaningful(ir.Object{"_id": ir.String("abc")}))
	assert.False(t, Meaningful(ir.Object{
		"_id":          ir.String("abc"),
		"_collections": ir.Object{"image": ir.String("image.gallery.abc")},
	}))
	assert.True(t, Meaningful(ir.Object{"_id": ir.String("abc"), "n": ir.String("0")}))
}

func TestTokenList(t *testing.T) {
	got, err := TokenList(ir.String("3, 1,,2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1", "2"}, got)

	got, err = TokenList(ir.Strings("a", " ", "b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	_, err = TokenList(ir.Object{})
	assert.Error(t, err)
}
