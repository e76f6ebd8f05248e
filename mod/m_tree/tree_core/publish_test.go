package tree_core

import (
	"context"
	"testing"

	"github.com/rskv-p/nested/mod/m_tree/tree_type"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func published(t *testing.T, db *gorm.DB, pk int64) int {
	t.Helper()
	var states []int
	require.NoError(t, db.Table("categories").Where("id = ?", pk).Pluck("published", &states).Error)
	require.Len(t, states, 1)
	return states[0]
}

// root(1) -> c(0) -> g(0)
func publishTree(t *testing.T) (*Store, *gorm.DB, int64, int64) {
	t.Helper()
	s, db := newTree(t)
	c := insert(t, s, "c", 1, tree_type.LastChild)
	g := insert(t, s, "g", c.PK, tree_type.LastChild)
	require.Equal(t, 1, published(t, db, 1))
	require.Equal(t, 0, published(t, db, c.PK))
	return s, db, c.PK, g.PK
}

func TestPublishBlockedByAncestor(t *testing.T) {
	s, db, c, g := publishTree(t)
	ctx := context.Background()

	err := s.Publish(ctx, []int64{g}, 1, 0)
	assert.ErrorIs(t, err, tree_type.ErrAncestorStateTooLow)
	assert.Equal(t, 0, published(t, db, g))

	require.NoError(t, s.Publish(ctx, []int64{c}, 1, 0))
	assert.Equal(t, 1, published(t, db, c))
	assert.Equal(t, 1, published(t, db, g))
}

func TestPublishArchiveUnderPublished(t *testing.T) {
	s, db, c, g := publishTree(t)
	ctx := context.Background()

	require.NoError(t, s.Publish(ctx, []int64{c}, 1, 0))
	// archived (2) compares as 1, so a published parent is enough
	require.NoError(t, s.Publish(ctx, []int64{g}, 2, 0))
	assert.Equal(t, 2, published(t, db, g))

	// an archived parent still allows publishing below it
	require.NoError(t, s.Publish(ctx, []int64{c}, 2, 0))
	h := insert(t, s, "h", g, tree_type.LastChild)
	require.NoError(t, s.Publish(ctx, []int64{h.PK}, 1, 0))

	// an unpublished one does not, and archiving cascades down as 0
	require.NoError(t, s.Publish(ctx, []int64{c}, 0, 0))
	assert.Equal(t, 0, published(t, db, g))
	assert.ErrorIs(t, s.Publish(ctx, []int64{g}, 2, 0), tree_type.ErrAncestorStateTooLow)
}

func TestPublishKeepsTrashedDescendants(t *testing.T) {
	s, db, c, g := publishTree(t)
	ctx := context.Background()

	require.NoError(t, db.Table("categories").Where("id = ?", g).Update("published", -2).Error)
	require.NoError(t, s.Publish(ctx, []int64{c}, 1, 0))
	assert.Equal(t, -2, published(t, db, g))

	// trashing reaches everything below
	require.NoError(t, s.Publish(ctx, []int64{c}, -2, 0))
	assert.Equal(t, -2, published(t, db, c))
	require.NoError(t, s.Publish(ctx, []int64{c}, 0, 0))
	assert.Equal(t, 0, published(t, db, c))
	assert.Equal(t, -2, published(t, db, g))
}

func TestPublishIsAtomic(t *testing.T) {
	s, db, c, g := publishTree(t)

	// c is fine, g is blocked by c's old state, so neither changes
	err := s.Publish(context.Background(), []int64{g, c}, 1, 0)
	assert.ErrorIs(t, err, tree_type.ErrAncestorStateTooLow)
	assert.Equal(t, 0, published(t, db, c))
	assert.Equal(t, 0, published(t, db, g))
}

func TestPublishNeedsStateColumn(t *testing.T) {
	db := openDB(t)
	s, err := New(db, "plain_nodes")
	require.NoError(t, err)

	err = s.Publish(context.Background(), []int64{1}, 1, 0)
	assert.ErrorIs(t, err, tree_type.ErrNoStateColumn)
}

func TestCheckOut(t *testing.T) {
	s, db, c, _ := publishTree(t)
	ctx := context.Background()

	require.NoError(t, s.CheckOut(ctx, c, 7))
	require.NoError(t, s.CheckOut(ctx, c, 7), "holder may check out again")
	assert.ErrorIs(t, s.CheckOut(ctx, c, 8), tree_type.ErrCheckedOut)

	assert.ErrorIs(t, s.Publish(ctx, []int64{c}, 1, 8), tree_type.ErrCheckedOut)
	require.NoError(t, s.Publish(ctx, []int64{c}, 1, 7))
	assert.Equal(t, 1, published(t, db, c))

	require.NoError(t, s.CheckIn(ctx, c))
	require.NoError(t, s.CheckOut(ctx, c, 8))
	assert.ErrorIs(t, s.CheckIn(ctx, 999), tree_type.ErrNotFound)
}

// draftState reads the raw state of a drafts row, -99 standing for NULL.
func draftState(t *testing.T, db *gorm.DB, pk int64) int {
	t.Helper()
	var states []int
	require.NoError(t, db.Table("drafts").Where("id = ?", pk).Pluck("COALESCE(published, -99)", &states).Error)
	require.Len(t, states, 1)
	return states[0]
}

func TestPublishNullStates(t *testing.T) {
	db := openDB(t)
	one := 1
	require.NoError(t, db.Create(&draft{ID: 1, Lft: 1, Rgt: 2, Published: &one}).Error)
	s, err := New(db, "drafts")
	require.NoError(t, err)
	ctx := context.Background()

	// inserted rows carry no state at all
	c, err := s.Insert(ctx, nil, tree_type.Location{ReferenceID: 1, Position: tree_type.LastChild})
	require.NoError(t, err)
	g, err := s.Insert(ctx, nil, tree_type.Location{ReferenceID: c.PK, Position: tree_type.LastChild})
	require.NoError(t, err)
	require.Equal(t, -99, draftState(t, db, g.PK))

	// a NULL ancestor blocks like an unpublished one
	assert.ErrorIs(t, s.Publish(ctx, []int64{g.PK}, 1, 0), tree_type.ErrAncestorStateTooLow)
	assert.Equal(t, -99, draftState(t, db, g.PK))

	// and NULL descendants take part in the cascade
	require.NoError(t, s.Publish(ctx, []int64{c.PK}, 1, 0))
	assert.Equal(t, 1, draftState(t, db, c.PK))
	assert.Equal(t, 1, draftState(t, db, g.PK))
}
