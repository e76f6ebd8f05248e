package tree_core

import (
	"context"
	"math/rand"
	"testing"

	"github.com/rskv-p/nested/mod/m_tree/tree_type"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func pos(lft, rgt, level int64) [3]int64 { return [3]int64{lft, rgt, level} }

func at(n tree_type.Node) [3]int64 { return pos(n.Lft, n.Rgt, n.Level) }

func pathOfRow(t *testing.T, db *gorm.DB, pk int64) string {
	t.Helper()
	var paths []string
	require.NoError(t, db.Table("categories").Where("id = ?", pk).Pluck("path", &paths).Error)
	require.Len(t, paths, 1)
	return paths[0]
}

func TestInsertAndMoveScenario(t *testing.T) {
	s, db := newTree(t)
	ctx := context.Background()

	b := insert(t, s, "b", 1, tree_type.LastChild)
	assert.Equal(t, pos(2, 3, 1), at(*b))
	assert.Equal(t, int64(1), b.ParentID)
	assert.Equal(t, int64(4), node(t, s, 1).Rgt)

	c := insert(t, s, "c", 1, tree_type.LastChild)
	assert.Equal(t, pos(4, 5, 1), at(*c))
	assert.Equal(t, int64(6), node(t, s, 1).Rgt)
	assert.Equal(t, pos(2, 3, 1), at(node(t, s, b.PK)))

	moved, err := s.MoveByReference(ctx, c.PK, tree_type.Location{ReferenceID: b.PK, Position: tree_type.FirstChild})
	require.NoError(t, err)
	assert.Equal(t, pos(3, 4, 2), at(*moved))
	assert.Equal(t, b.PK, moved.ParentID)
	assert.Equal(t, int64(5), node(t, s, b.PK).Rgt)
	assert.Equal(t, int64(6), node(t, s, 1).Rgt)

	assert.Equal(t, "b/c", pathOfRow(t, db, c.PK))
	requireValid(t, s)
}

func TestInsertPositions(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()

	b := insert(t, s, "b", 1, tree_type.LastChild)
	a := insert(t, s, "a", b.PK, tree_type.Before)
	c := insert(t, s, "c", b.PK, tree_type.After)
	first := insert(t, s, "first", 1, tree_type.FirstChild)

	kids, err := s.Children(ctx, 1)
	require.NoError(t, err)
	var order []int64
	for _, k := range kids {
		order = append(order, k.PK)
	}
	assert.Equal(t, []int64{first.PK, a.PK, b.PK, c.PK}, order)
	requireValid(t, s)
}

func TestInsertReferenceZeroAppendsToLastRoot(t *testing.T) {
	s, _ := newTree(t)

	n := insert(t, s, "top", 0, tree_type.Before)
	assert.Equal(t, int64(1), n.ParentID)
	assert.Equal(t, int64(1), n.Level)
	requireValid(t, s)
}

func TestInsertRejectsBadLocation(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, tree_type.Row{"alias": "x"}, tree_type.Location{ReferenceID: -1})
	assert.ErrorIs(t, err, tree_type.ErrInvalidLocation)

	_, err = s.Insert(ctx, tree_type.Row{"alias": "x"}, tree_type.Location{ReferenceID: 99, Position: tree_type.LastChild})
	assert.ErrorIs(t, err, tree_type.ErrNotFound)

	// failed attempts leave the tree and the lock intact
	assert.Equal(t, pos(1, 2, 0), at(node(t, s, 1)))
	insert(t, s, "ok", 1, tree_type.LastChild)
}

func TestInsertIgnoresPositionalColumns(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()

	n, err := s.Insert(ctx, tree_type.Row{"alias": "x", "lft": 100, "rgt": 7, "level": 9, "parent_id": 42},
		tree_type.Location{ReferenceID: 1, Position: tree_type.LastChild})
	require.NoError(t, err)
	assert.Equal(t, tree_type.Node{PK: n.PK, ParentID: 1, Level: 1, Lft: 2, Rgt: 3}, *n)
}

func TestInitRoot(t *testing.T) {
	db := openDB(t)
	s, err := New(db, "categories")
	require.NoError(t, err)
	ctx := context.Background()

	root, err := s.InitRoot(ctx, tree_type.Row{"alias": "root", "title": "Root"})
	require.NoError(t, err)
	assert.Equal(t, pos(0, 1, 0), at(*root))
	assert.Equal(t, int64(0), root.ParentID)

	_, err = s.InitRoot(ctx, tree_type.Row{"alias": "again"})
	assert.ErrorIs(t, err, tree_type.ErrAmbiguousRoot)

	child := insert(t, s, "child", root.PK, tree_type.LastChild)
	assert.Equal(t, pos(1, 2, 1), at(*child))
}

func TestMoveSubtreeAcrossBranches(t *testing.T) {
	s, db := newTree(t)
	ctx := context.Background()

	b := insert(t, s, "b", 1, tree_type.LastChild)
	c := insert(t, s, "c", b.PK, tree_type.LastChild)
	d := insert(t, s, "d", c.PK, tree_type.LastChild)
	e := insert(t, s, "e", 1, tree_type.LastChild)

	_, err := s.MoveByReference(ctx, c.PK, tree_type.Location{ReferenceID: e.PK, Position: tree_type.LastChild})
	require.NoError(t, err)

	assert.Equal(t, e.PK, node(t, s, c.PK).ParentID)
	assert.Equal(t, int64(3), node(t, s, d.PK).Level)
	assert.True(t, node(t, s, b.PK).IsLeaf())
	assert.Equal(t, "e/c/d", pathOfRow(t, db, d.PK))
	requireValid(t, s)

	// and back, before b
	_, err = s.MoveByReference(ctx, c.PK, tree_type.Location{ReferenceID: b.PK, Position: tree_type.Before})
	require.NoError(t, err)
	assert.Equal(t, int64(1), node(t, s, c.PK).ParentID)
	assert.Equal(t, int64(1), node(t, s, c.PK).Level)
	assert.Equal(t, "c/d", pathOfRow(t, db, d.PK))
	requireValid(t, s)
}

func TestMoveRejectsCycle(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()

	b := insert(t, s, "b", 1, tree_type.LastChild)
	c := insert(t, s, "c", b.PK, tree_type.LastChild)

	before, err := s.GetTree(ctx, 1)
	require.NoError(t, err)

	for _, ref := range []int64{b.PK, c.PK} {
		_, err = s.MoveByReference(ctx, b.PK, tree_type.Location{ReferenceID: ref, Position: tree_type.LastChild})
		assert.ErrorIs(t, err, tree_type.ErrCyclicMove)
	}

	after, err := s.GetTree(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDeletePromoteScenario(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()

	b := insert(t, s, "b", 1, tree_type.LastChild)
	c := insert(t, s, "c", b.PK, tree_type.LastChild)
	require.Equal(t, pos(2, 5, 1), at(node(t, s, b.PK)))
	require.Equal(t, pos(3, 4, 2), at(*c))

	require.NoError(t, s.Delete(ctx, b.PK, false))

	_, err := s.GetNode(ctx, b.PK, tree_type.ByKey)
	assert.ErrorIs(t, err, tree_type.ErrNotFound)

	got := node(t, s, c.PK)
	assert.Equal(t, pos(2, 3, 1), at(got))
	assert.Equal(t, int64(1), got.ParentID)
	assert.Equal(t, int64(4), node(t, s, 1).Rgt)
	requireValid(t, s)
}

func TestDeleteCascade(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()

	b := insert(t, s, "b", 1, tree_type.LastChild)
	c := insert(t, s, "c", b.PK, tree_type.LastChild)
	d := insert(t, s, "d", 1, tree_type.LastChild)

	require.NoError(t, s.Delete(ctx, b.PK, true))

	_, err := s.GetNode(ctx, c.PK, tree_type.ByKey)
	assert.ErrorIs(t, err, tree_type.ErrNotFound)
	assert.Equal(t, pos(2, 3, 1), at(node(t, s, d.PK)))
	assert.Equal(t, int64(4), node(t, s, 1).Rgt)

	assert.ErrorIs(t, s.Delete(ctx, b.PK, true), tree_type.ErrNotFound)
	requireValid(t, s)
}

func TestOrderUpDown(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()

	b := insert(t, s, "b", 1, tree_type.LastChild)
	insert(t, s, "b1", b.PK, tree_type.LastChild)
	c := insert(t, s, "c", 1, tree_type.LastChild)
	insert(t, s, "c1", c.PK, tree_type.LastChild)
	insert(t, s, "c2", c.PK, tree_type.LastChild)

	children := func() []int64 {
		kids, err := s.Children(ctx, 1)
		require.NoError(t, err)
		var out []int64
		for _, k := range kids {
			out = append(out, k.PK)
		}
		return out
	}

	ok, err := s.OrderUp(ctx, c.PK)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int64{c.PK, b.PK}, children())
	requireValid(t, s)

	ok, err = s.OrderUp(ctx, c.PK)
	require.NoError(t, err)
	assert.False(t, ok, "already first")

	ok, err = s.Move(ctx, c.PK, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int64{b.PK, c.PK}, children())
	requireValid(t, s)

	ok, err = s.OrderDown(ctx, c.PK)
	require.NoError(t, err)
	assert.False(t, ok, "already last")

	_, err = s.OrderDown(ctx, 404)
	assert.ErrorIs(t, err, tree_type.ErrNotFound)
}

func TestUpdateAndSave(t *testing.T) {
	s, db := newTree(t)
	ctx := context.Background()

	b := insert(t, s, "b", 1, tree_type.LastChild)
	c := insert(t, s, "c", b.PK, tree_type.LastChild)

	require.NoError(t, s.Update(ctx, b.PK, tree_type.Row{"alias": "blog", "lft": 50}))
	assert.Equal(t, pos(2, 5, 1), at(node(t, s, b.PK)))
	assert.Equal(t, "blog/c", pathOfRow(t, db, c.PK))

	assert.ErrorIs(t, s.Update(ctx, 77, tree_type.Row{"title": "x"}), tree_type.ErrNotFound)

	created, err := s.Save(ctx, 0, tree_type.Row{"alias": "new"}, &tree_type.Location{ReferenceID: 1, Position: tree_type.FirstChild})
	require.NoError(t, err)
	assert.Equal(t, pos(2, 3, 1), at(*created))

	saved, err := s.Save(ctx, c.PK, tree_type.Row{"title": "C"}, &tree_type.Location{ReferenceID: created.PK, Position: tree_type.LastChild})
	require.NoError(t, err)
	assert.Equal(t, created.PK, saved.ParentID)
	requireValid(t, s)
}

func TestSaveOrder(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()

	b := insert(t, s, "b", 1, tree_type.LastChild)
	c := insert(t, s, "c", 1, tree_type.LastChild)
	d := insert(t, s, "d", 1, tree_type.LastChild)

	assert.ErrorIs(t, s.SaveOrder(ctx, []int64{b.PK}, nil), tree_type.ErrArityMismatch)

	require.NoError(t, s.SaveOrder(ctx, []int64{b.PK, c.PK, d.PK}, []int64{30, 20, 10}))

	kids, err := s.Children(ctx, 1)
	require.NoError(t, err)
	require.Len(t, kids, 3)
	assert.Equal(t, []int64{d.PK, c.PK, b.PK}, []int64{kids[0].PK, kids[1].PK, kids[2].PK})
	requireValid(t, s)
}

// Random operation sequences keep every nested-set rule intact.
func TestRandomOperationsKeepTreeValid(t *testing.T) {
	s, _ := newTree(t)
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(7))
	positions := []tree_type.Position{tree_type.After, tree_type.Before, tree_type.FirstChild, tree_type.LastChild}

	keys := func() []int64 {
		all, err := s.GetTree(ctx, 1)
		require.NoError(t, err)
		out := make([]int64, 0, len(all))
		for _, n := range all {
			out = append(out, n.PK)
		}
		return out
	}
	// keep a single root: the root only takes children
	pick := func(ref int64) tree_type.Position {
		if ref == 1 {
			return positions[2+rnd.Intn(2)]
		}
		return positions[rnd.Intn(len(positions))]
	}

	for i := 0; i < 120; i++ {
		all := keys()
		ref := all[rnd.Intn(len(all))]

		switch op := rnd.Intn(10); {
		case op < 4 || len(all) < 3:
			insert(t, s, "n", ref, pick(ref))

		case op < 6:
			pk := all[1+rnd.Intn(len(all)-1)]
			_, err := s.MoveByReference(ctx, pk, tree_type.Location{ReferenceID: ref, Position: pick(ref)})
			sub, serr := s.GetTree(ctx, pk)
			require.NoError(t, serr)
			inside := false
			for _, n := range sub {
				inside = inside || n.PK == ref
			}
			if inside {
				require.ErrorIs(t, err, tree_type.ErrCyclicMove)
			} else {
				require.NoError(t, err)
			}

		case op < 7:
			pk := all[1+rnd.Intn(len(all)-1)]
			require.NoError(t, s.Delete(ctx, pk, rnd.Intn(2) == 0))

		case op < 8:
			_, err := s.OrderUp(ctx, ref)
			require.NoError(t, err)

		default:
			_, err := s.OrderDown(ctx, ref)
			require.NoError(t, err)
		}

		requireValid(t, s)

		tree, err := s.GetTree(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(len(tree)-1), tree[0].NumChildren())
	}
}
