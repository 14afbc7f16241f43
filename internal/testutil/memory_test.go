package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formtree/internal/idgen"
	"github.com/roach88/formtree/internal/ir"
)

var post = ir.RecordRef{Type: "post", ID: "p1"}

func attachmentIDs(list []ir.Attachment) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

func TestMemoryRecords_SaveAssignsID(t *testing.T) {
	ctx := context.Background()
	records := NewMemoryRecords(idgen.NewFixed("r1"))

	ref, err := records.Save(ctx, ir.Entity{Ref: ir.RecordRef{Type: "post"}, Data: ir.Object{"title": ir.String("Hi")}})
	require.NoError(t, err)
	assert.Equal(t, ir.RecordRef{Type: "post", ID: "r1"}, ref)

	data, err := records.Load(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, ir.Object{"title": ir.String("Hi")}, data)

	_, err = records.Load(ctx, ir.RecordRef{Type: "post", ID: "missing"})
	assert.Error(t, err)
	assert.Equal(t, 1, records.Saves())
}

func TestMemoryAttachments_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAttachments(idgen.NewFixed("a1", "a2", "a3"))

	for _, name := range []string{"one.png", "two.png", "three.png"} {
		_, err := store.CreatePending(ctx, name)
		require.NoError(t, err)
	}

	require.NoError(t, store.Attach(ctx, []string{"a1", "a2"}, post, "image.gallery.x"))
	require.NoError(t, store.Attach(ctx, []string{"a3"}, post, "image.gallery.x"))

	list, err := store.List(ctx, post, "image.gallery.x")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3"}, attachmentIDs(list))

	require.NoError(t, store.SetOrder(ctx, post, "image.gallery.x", []string{"a3", "a1"}))
	list, err = store.List(ctx, post, "image.gallery.x")
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "a1", "a2"}, attachmentIDs(list))

	require.NoError(t, store.SetProperties(ctx, "a1", ir.Object{"alt": ir.String("Cat")}))
	require.NoError(t, store.SetProperties(ctx, "a1", ir.Object{"credit": ir.String("Me")}))
	list, _ = store.List(ctx, post, "image.gallery.x")
	assert.Equal(t, ir.Object{"alt": ir.String("Cat"), "credit": ir.String("Me")}, list[1].Properties)

	require.NoError(t, store.DeleteWhere(ctx, post, "image.gallery.x", []string{"a3"}))
	list, _ = store.List(ctx, post, "image.gallery.x")
	assert.Equal(t, []string{"a1", "a2"}, attachmentIDs(list))

	require.NoError(t, store.DeleteWhere(ctx, post, "image.gallery.x", nil))
	list, _ = store.List(ctx, post, "image.gallery.x")
	assert.Empty(t, list)
}

func TestMemoryAttachments_BucketsAreDisjoint(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAttachments(idgen.NewFixed("a1", "a2"))
	_, _ = store.CreatePending(ctx, "x")
	_, _ = store.CreatePending(ctx, "y")

	require.NoError(t, store.Attach(ctx, []string{"a1"}, post, "image.gallery.0"))
	require.NoError(t, store.Attach(ctx, []string{"a2"}, post, "image.gallery.1"))
	require.NoError(t, store.DeleteWhere(ctx, post, "image.gallery.0", nil))

	list, err := store.List(ctx, post, "image.gallery.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, attachmentIDs(list))
}

func TestMemoryAttachments_UnknownIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAttachments(idgen.NewFixed())

	assert.Error(t, store.Attach(ctx, []string{"nope"}, post, "c"))
	assert.Error(t, store.SetProperties(ctx, "nope", ir.Object{}))
}
