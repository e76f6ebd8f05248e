package tree_core

import (
	"context"
	"fmt"

	"github.com/rskv-p/nested/mod/m_tree/tree_type"
	"gorm.io/gorm"
)

//---------------------
// Node Accessor
//---------------------

// GetNode loads a node by primary key, parent id, left or right value.
func (s *Store) GetNode(ctx context.Context, id int64, kind tree_type.KeyKind) (*tree_type.Node, error) {
	n, err := s.getNode(s.db.WithContext(ctx), id, kind)
	return n, storageErr("get node", err)
}

func (s *Store) getNode(tx *gorm.DB, id int64, kind tree_type.KeyKind) (*tree_type.Node, error) {
	var column string
	switch kind {
	case tree_type.ByParent:
		column = s.cols.ParentID
	case tree_type.ByLeft:
		column = s.cols.Lft
	case tree_type.ByRight:
		column = s.cols.Rgt
	default:
		column = s.cols.Key
	}

	var found []tree_type.Node
	err := s.nodes(tx).
		Where("? = ?", col(column), id).
		Order(asc(s.cols.Lft)).
		Limit(1).
		Scan(&found).Error
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s %d", tree_type.ErrNotFound, kind, id)
	}
	return &found[0], nil
}

// IsLeaf reports whether the node has no descendants. A missing node yields
// ErrNotFound rather than false.
func (s *Store) IsLeaf(ctx context.Context, pk int64) (bool, error) {
	n, err := s.GetNode(ctx, pk, tree_type.ByKey)
	if err != nil {
		return false, err
	}
	return n.IsLeaf(), nil
}

// GetTree returns the node and all its descendants in pre-order.
func (s *Store) GetTree(ctx context.Context, pk int64) ([]tree_type.Node, error) {
	tx := s.db.WithContext(ctx)
	n, err := s.getNode(tx, pk, tree_type.ByKey)
	if err != nil {
		return nil, storageErr("get tree", err)
	}
	out, err := s.subtree(tx, *n)
	return out, storageErr("get tree", err)
}

func (s *Store) subtree(tx *gorm.DB, n tree_type.Node) ([]tree_type.Node, error) {
	var out []tree_type.Node
	err := s.nodes(tx).
		Where("? BETWEEN ? AND ?", col(s.cols.Lft), n.Lft, n.Rgt).
		Order(asc(s.cols.Lft)).
		Scan(&out).Error
	return out, err
}

// subtreeKeys returns the primary keys of n and its descendants.
func (s *Store) subtreeKeys(tx *gorm.DB, n tree_type.Node) ([]int64, error) {
	var keys []int64
	err := s.scope(tx).
		Where("? BETWEEN ? AND ?", col(s.cols.Lft), n.Lft, n.Rgt).
		Pluck(s.cols.Key, &keys).Error
	return keys, err
}

// GetPath returns the ancestors of the node from the root down, the node
// itself included.
func (s *Store) GetPath(ctx context.Context, pk int64) ([]tree_type.Node, error) {
	tx := s.db.WithContext(ctx)
	n, err := s.getNode(tx, pk, tree_type.ByKey)
	if err != nil {
		return nil, storageErr("get path", err)
	}
	var out []tree_type.Node
	err = s.nodes(tx).
		Where("? <= ? AND ? >= ?", col(s.cols.Lft), n.Lft, col(s.cols.Rgt), n.Rgt).
		Order(asc(s.cols.Lft)).
		Scan(&out).Error
	return out, storageErr("get path", err)
}

// Children returns the direct children of the node ordered by lft.
func (s *Store) Children(ctx context.Context, pk int64) ([]tree_type.Node, error) {
	var out []tree_type.Node
	err := s.nodes(s.db.WithContext(ctx)).
		Where("? = ?", col(s.cols.ParentID), pk).
		Order(asc(s.cols.Lft)).
		Scan(&out).Error
	return out, storageErr("children", err)
}

// GetRootID finds the single root: parent_id = 0, then lft = 0, then
// alias = 'root' when the table has an alias column.
func (s *Store) GetRootID(ctx context.Context) (int64, error) {
	id, err := s.rootID(s.db.WithContext(ctx))
	return id, storageErr("root id", err)
}

func (s *Store) rootID(tx *gorm.DB) (int64, error) {
	type rule struct {
		column string
		value  any
	}
	rules := []rule{
		{s.cols.ParentID, 0},
		{s.cols.Lft, 0},
	}
	if s.has.alias {
		rules = append(rules, rule{s.cols.Alias, "root"})
	}

	for _, r := range rules {
		var keys []int64
		err := s.scope(tx).
			Where("? = ?", col(r.column), r.value).
			Limit(2).
			Pluck(s.cols.Key, &keys).Error
		if err != nil {
			return 0, err
		}
		switch len(keys) {
		case 0:
			continue
		case 1:
			return keys[0], nil
		default:
			return 0, fmt.Errorf("%w: %s = %v", tree_type.ErrAmbiguousRoot, r.column, r.value)
		}
	}
	return 0, tree_type.ErrRootNotFound
}

// lastRoot returns the root-level node with the greatest lft.
func (s *Store) lastRoot(tx *gorm.DB) (*tree_type.Node, error) {
	var found []tree_type.Node
	err := s.nodes(tx).
		Where("? = ?", col(s.cols.ParentID), 0).
		Order(desc(s.cols.Lft)).
		Limit(1).
		Scan(&found).Error
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, tree_type.ErrRootNotFound
	}
	return &found[0], nil
}

type labelRow struct {
	PK    int64  `gorm:"column:pk"`
	Label string `gorm:"column:label"`
}

// Labels returns a display name per key: title, else alias, else empty.
func (s *Store) Labels(ctx context.Context, pks []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(pks))
	if len(pks) == 0 {
		return out, nil
	}

	expr, args := "''", []any{}
	switch {
	case s.has.title && s.has.alias:
		expr, args = "COALESCE(NULLIF(?, ''), ?, '')", []any{col(s.cols.Title), col(s.cols.Alias)}
	case s.has.title:
		expr, args = "COALESCE(?, '')", []any{col(s.cols.Title)}
	case s.has.alias:
		expr, args = "COALESCE(?, '')", []any{col(s.cols.Alias)}
	}

	var rows []labelRow
	err := s.scope(s.db.WithContext(ctx)).
		Select("? AS pk, "+expr+" AS label", append([]any{col(s.cols.Key)}, args...)...).
		Where("? IN ?", col(s.cols.Key), pks).
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("labels", err)
	}
	for _, r := range rows {
		out[r.PK] = r.Label
	}
	return out, nil
}
