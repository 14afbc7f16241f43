package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formtree/internal/idgen"
	"github.com/roach88/formtree/internal/ir"
)

func TestRecorder_RecordsInOrder(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryAttachments(idgen.NewFixed("a1"))
	_, err := inner.CreatePending(ctx, "cat.png")
	require.NoError(t, err)

	r := NewRecorder(inner)
	require.NoError(t, r.Attach(ctx, []string{"a1"}, post, "default"))
	require.NoError(t, r.SetOrder(ctx, post, "default", []string{"a1"}))
	require.NoError(t, r.SetProperties(ctx, "a1", ir.Object{"alt": ir.String("cat")}))
	_, err = r.List(ctx, post, "default")
	require.NoError(t, err)
	require.NoError(t, r.DeleteWhere(ctx, post, "default", nil))

	assert.Equal(t, []string{"attach", "set_order", "set_properties", "delete_where"}, r.Ops())

	calls := r.Calls()
	for i, c := range calls {
		assert.Equal(t, int64(i+1), c.Seq)
	}
	assert.Equal(t, "post/p1", calls[0].Owner)
	assert.Equal(t, []string{"a1"}, calls[0].IDs)
}

func TestRecorder_FailOn(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(NewMemoryAttachments(idgen.NewFixed()))
	boom := errors.New("store down")
	r.FailOn("delete_where", boom)

	err := r.DeleteWhere(ctx, post, "default", []string{"x"})
	assert.ErrorIs(t, err, boom)

	calls := r.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "store down", calls[0].Err)
}

func TestRecorder_Reset(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(NewMemoryAttachments(idgen.NewFixed()))
	require.NoError(t, r.DeleteWhere(ctx, post, "default", nil))

	r.Reset()
	require.NoError(t, r.DeleteWhere(ctx, post, "default", nil))

	calls := r.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(1), calls[0].Seq)
}
