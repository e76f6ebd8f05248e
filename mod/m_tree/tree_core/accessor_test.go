package tree_core

import (
	"context"
	"testing"

	"github.com/rskv-p/nested/mod/m_tree/tree_type"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNodeByKind(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()
	b := insert(t, s, "b", 1, tree_type.LastChild)

	byLeft, err := s.GetNode(ctx, b.Lft, tree_type.ByLeft)
	require.NoError(t, err)
	assert.Equal(t, b.PK, byLeft.PK)

	byRight, err := s.GetNode(ctx, b.Rgt, tree_type.ByRight)
	require.NoError(t, err)
	assert.Equal(t, b.PK, byRight.PK)

	byParent, err := s.GetNode(ctx, 1, tree_type.ByParent)
	require.NoError(t, err)
	assert.Equal(t, b.PK, byParent.PK)

	_, err = s.GetNode(ctx, 999, tree_type.ByKey)
	assert.ErrorIs(t, err, tree_type.ErrNotFound)
}

func TestIsLeaf(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()

	b := insert(t, s, "b", 1, tree_type.LastChild)
	assert.True(t, b.IsLeaf())
	assert.Equal(t, int64(2), b.Width())

	leaf, err := s.IsLeaf(ctx, b.PK)
	require.NoError(t, err)
	assert.True(t, leaf)

	leaf, err = s.IsLeaf(ctx, 1)
	require.NoError(t, err)
	assert.False(t, leaf)

	_, err = s.IsLeaf(ctx, 42)
	assert.ErrorIs(t, err, tree_type.ErrNotFound)
}

func TestGetTreePathChildren(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()

	b := insert(t, s, "b", 1, tree_type.LastChild)
	c := insert(t, s, "c", b.PK, tree_type.LastChild)
	d := insert(t, s, "d", 1, tree_type.LastChild)

	all, err := s.GetTree(ctx, 1)
	require.NoError(t, err)
	var order []int64
	for _, n := range all {
		order = append(order, n.PK)
	}
	assert.Equal(t, []int64{1, b.PK, c.PK, d.PK}, order)

	path, err := s.GetPath(ctx, c.PK)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, []int64{1, b.PK, c.PK}, []int64{path[0].PK, path[1].PK, path[2].PK})

	kids, err := s.Children(ctx, 1)
	require.NoError(t, err)
	require.Len(t, kids, 2)
	assert.Equal(t, b.PK, kids[0].PK)
	assert.Equal(t, d.PK, kids[1].PK)
}

func TestNumChildrenMatchesSubtree(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()

	b := insert(t, s, "b", 1, tree_type.LastChild)
	insert(t, s, "c", b.PK, tree_type.LastChild)
	e := insert(t, s, "e", b.PK, tree_type.FirstChild)
	insert(t, s, "f", e.PK, tree_type.LastChild)
	insert(t, s, "g", 1, tree_type.FirstChild)

	all, err := s.GetTree(ctx, 1)
	require.NoError(t, err)
	for _, n := range all {
		sub, err := s.GetTree(ctx, n.PK)
		require.NoError(t, err)
		assert.Equal(t, int64(len(sub)-1), n.NumChildren(), "node %s", n)
	}
}

func TestGetRootID(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()

	id, err := s.GetRootID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	// a second root-level node makes parent_id = 0 ambiguous
	insert(t, s, "other", 1, tree_type.After)
	_, err = s.GetRootID(ctx)
	assert.ErrorIs(t, err, tree_type.ErrAmbiguousRoot)
}

func TestGetRootIDFallbacks(t *testing.T) {
	db := openDB(t)
	s, err := New(db, "categories")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.GetRootID(ctx)
	assert.ErrorIs(t, err, tree_type.ErrRootNotFound)

	// no parent_id = 0 row, but one alias = root
	require.NoError(t, db.Create(&category{ID: 7, ParentID: 3, Lft: 5, Rgt: 6, Alias: "root"}).Error)
	id, err := s.GetRootID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestScopedStores(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.Create(&category{ID: 1, Lft: 0, Rgt: 1, Alias: "root", Extension: "content"}).Error)
	require.NoError(t, db.Create(&category{ID: 2, Lft: 0, Rgt: 1, Alias: "root", Extension: "contacts"}).Error)

	base, err := New(db, "categories")
	require.NoError(t, err)
	content := base.Scoped(tree_type.Filter{"extension": "content"})
	contacts := base.Scoped(tree_type.Filter{"extension": "contacts"})
	ctx := context.Background()

	id, err := content.GetRootID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	id, err = contacts.GetRootID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	n := insert(t, content, "news", 1, tree_type.LastChild)
	assert.Equal(t, tree_type.Node{PK: n.PK, ParentID: 1, Level: 1, Lft: 1, Rgt: 2}, *n)

	var ext []string
	require.NoError(t, db.Table("categories").Where("id = ?", n.PK).Pluck("extension", &ext).Error)
	assert.Equal(t, []string{"content"}, ext)

	// the other tree is untouched
	other := node(t, contacts, 2)
	assert.Equal(t, int64(1), other.Rgt)
	_, err = contacts.GetNode(ctx, n.PK, tree_type.ByKey)
	assert.ErrorIs(t, err, tree_type.ErrNotFound)

	requireValid(t, content)
	requireValid(t, contacts)
}

func TestLabels(t *testing.T) {
	s, db := newTree(t)
	ctx := context.Background()

	b := insert(t, s, "b", 1, tree_type.LastChild)
	require.NoError(t, db.Table("categories").Where("id = ?", b.PK).Update("title", "").Error)

	got, err := s.Labels(ctx, []int64{1, b.PK, 404})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "Root", b.PK: "b"}, got)

	empty, err := s.Labels(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
