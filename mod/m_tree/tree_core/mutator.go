package tree_core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rskv-p/nested/mod/m_tree/tree_type"
	"gorm.io/gorm"
)

//---------------------
// Tree Mutator
//---------------------

// values copies a caller row, dropping the positional columns the store owns.
func (s *Store) values(row tree_type.Row, keepKey bool) map[string]any {
	out := make(map[string]any, len(row)+len(s.filter)+4)
	for k, v := range row {
		switch k {
		case s.cols.ParentID, s.cols.Level, s.cols.Lft, s.cols.Rgt:
			continue
		case s.cols.Key:
			if !keepKey {
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Insert adds a new leaf at loc and returns it with its assigned key.
func (s *Store) Insert(ctx context.Context, row tree_type.Row, loc tree_type.Location) (*tree_type.Node, error) {
	if loc.ReferenceID < 0 {
		return nil, fmt.Errorf("%w: reference %d", tree_type.ErrInvalidLocation, loc.ReferenceID)
	}

	var created *tree_type.Node
	e := &tree_type.Entry{Op: "insert", Ref: loc.ReferenceID, Detail: loc.Position.String()}
	err := s.mutate(ctx, e, func(tx *gorm.DB) error {
		ref, pos, err := s.reference(tx, loc)
		if err != nil {
			return err
		}
		d, err := Reposition(*ref, 2, pos)
		if err != nil {
			return err
		}
		if err := s.widen(tx, d, 2); err != nil {
			return err
		}

		n, err := s.create(tx, row, d.NewParent, d.NewLevel, d.NewLft)
		if err != nil {
			return err
		}
		created = n
		e.PK = n.PK
		return s.refreshPaths(tx, n.PK)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// create inserts the row at a free position and reads its key back by lft,
// which is unique while the table lock is held.
func (s *Store) create(tx *gorm.DB, row tree_type.Row, parent, level, lft int64) (*tree_type.Node, error) {
	vals := s.values(row, true)
	for k, v := range s.filter {
		if _, ok := vals[k]; !ok {
			vals[k] = v
		}
	}
	vals[s.cols.ParentID] = parent
	vals[s.cols.Level] = level
	vals[s.cols.Lft] = lft
	vals[s.cols.Rgt] = lft + 1

	if err := tx.Table(s.table).Create(vals).Error; err != nil {
		return nil, err
	}
	return s.getNode(tx, lft, tree_type.ByLeft)
}

// InitRoot creates the root of an empty tree at lft 0, level 0.
func (s *Store) InitRoot(ctx context.Context, row tree_type.Row) (*tree_type.Node, error) {
	var root *tree_type.Node
	e := &tree_type.Entry{Op: "init-root"}
	err := s.mutate(ctx, e, func(tx *gorm.DB) error {
		var count int64
		if err := s.scope(tx).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: tree already has %d nodes", tree_type.ErrAmbiguousRoot, count)
		}
		n, err := s.create(tx, row, 0, 0, 0)
		if err != nil {
			return err
		}
		root = n
		e.PK = n.PK
		return nil
	})
	return root, err
}

// Update writes ordinary columns of a node. Positional columns are ignored.
func (s *Store) Update(ctx context.Context, pk int64, row tree_type.Row) error {
	vals := s.values(row, false)
	if len(vals) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.getNode(tx, pk, tree_type.ByKey); err != nil {
			return err
		}
		if err := s.scope(tx).Where("? = ?", col(s.cols.Key), pk).Updates(vals).Error; err != nil {
			return err
		}
		if _, ok := vals[s.cols.Alias]; ok {
			return s.refreshPaths(tx, pk)
		}
		return nil
	})
	return storageErr("update", err)
}

// Save inserts when pk is 0, otherwise moves the node to loc (if given) and
// updates its columns.
func (s *Store) Save(ctx context.Context, pk int64, row tree_type.Row, loc *tree_type.Location) (*tree_type.Node, error) {
	if pk == 0 {
		l := tree_type.Location{}
		if loc != nil {
			l = *loc
		}
		return s.Insert(ctx, row, l)
	}
	if loc != nil {
		if _, err := s.MoveByReference(ctx, pk, *loc); err != nil {
			return nil, err
		}
	}
	if err := s.Update(ctx, pk, row); err != nil {
		return nil, err
	}
	return s.GetNode(ctx, pk, tree_type.ByKey)
}

// MoveByReference moves the node and its subtree to loc.
func (s *Store) MoveByReference(ctx context.Context, pk int64, loc tree_type.Location) (*tree_type.Node, error) {
	if loc.ReferenceID < 0 {
		return nil, fmt.Errorf("%w: reference %d", tree_type.ErrInvalidLocation, loc.ReferenceID)
	}

	var moved *tree_type.Node
	e := &tree_type.Entry{Op: "move", PK: pk, Ref: loc.ReferenceID, Detail: loc.Position.String()}
	err := s.mutate(ctx, e, func(tx *gorm.DB) error {
		n, err := s.getNode(tx, pk, tree_type.ByKey)
		if err != nil {
			return err
		}
		keys, err := s.subtreeKeys(tx, *n)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if k == loc.ReferenceID {
				return fmt.Errorf("%w: %d is inside %d", tree_type.ErrCyclicMove, loc.ReferenceID, pk)
			}
		}

		width := n.Width()

		// Take the branch out of the interval space: v becomes -1-v, so a
		// root at lft 0 goes negative too.
		err = s.scope(tx).
			Where("? BETWEEN ? AND ?", col(s.cols.Lft), n.Lft, n.Rgt).
			Updates(map[string]any{
				s.cols.Lft: gorm.Expr("-1 - ?", col(s.cols.Lft)),
				s.cols.Rgt: gorm.Expr("-1 - ?", col(s.cols.Rgt)),
			}).Error
		if err != nil {
			return err
		}
		if err := s.compress(tx, n.Rgt, width); err != nil {
			return err
		}

		ref, pos, err := s.reference(tx, loc)
		if err != nil {
			return err
		}
		if ref.Lft < 0 {
			// reference 0 resolved to the branch being moved
			return fmt.Errorf("%w: %d onto itself", tree_type.ErrCyclicMove, pk)
		}
		d, err := Reposition(*ref, width, pos)
		if err != nil {
			return err
		}
		if err := s.widen(tx, d, width); err != nil {
			return err
		}

		// offset - (-1-v) == v + NewLft - n.Lft
		offset := d.NewLft - n.Lft - 1
		levelOffset := d.NewLevel - n.Level
		err = s.scope(tx).
			Where("? < ?", col(s.cols.Lft), 0).
			Updates(map[string]any{
				s.cols.Lft:   gorm.Expr("? - ?", offset, col(s.cols.Lft)),
				s.cols.Rgt:   gorm.Expr("? - ?", offset, col(s.cols.Rgt)),
				s.cols.Level: gorm.Expr("? + ?", col(s.cols.Level), levelOffset),
			}).Error
		if err != nil {
			return err
		}

		if d.NewParent != n.ParentID {
			err = s.scope(tx).
				Where("? = ?", col(s.cols.Key), pk).
				Update(s.cols.ParentID, d.NewParent).Error
			if err != nil {
				return err
			}
		}

		if err := s.refreshPaths(tx, pk); err != nil {
			return err
		}
		moved, err = s.getNode(tx, pk, tree_type.ByKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// Move shifts a node among its siblings: delta < 0 moves it up, delta > 0
// down. It reports false when the node is already at that end.
func (s *Store) Move(ctx context.Context, pk int64, delta int) (bool, error) {
	switch {
	case delta < 0:
		return s.OrderUp(ctx, pk)
	case delta > 0:
		return s.OrderDown(ctx, pk)
	default:
		return true, nil
	}
}

// Delete removes the node. With cascade the whole subtree goes; otherwise
// the children are promoted one level into the node's place.
func (s *Store) Delete(ctx context.Context, pk int64, cascade bool) error {
	detail := "promote"
	if cascade {
		detail = "cascade"
	}
	e := &tree_type.Entry{Op: "delete", PK: pk, Detail: detail}
	return s.mutate(ctx, e, func(tx *gorm.DB) error {
		n, err := s.getNode(tx, pk, tree_type.ByKey)
		if err != nil {
			return err
		}

		if cascade {
			err = s.scope(tx).
				Where("? BETWEEN ? AND ?", col(s.cols.Lft), n.Lft, n.Rgt).
				Delete(map[string]any{}).Error
			if err != nil {
				return err
			}
			return s.compress(tx, n.Rgt, n.Width())
		}

		err = s.scope(tx).
			Where("? = ?", col(s.cols.Lft), n.Lft).
			Delete(map[string]any{}).Error
		if err != nil {
			return err
		}

		err = s.scope(tx).
			Where("? BETWEEN ? AND ?", col(s.cols.Lft), n.Lft, n.Rgt).
			Updates(map[string]any{
				s.cols.Lft:   gorm.Expr("? - 1", col(s.cols.Lft)),
				s.cols.Rgt:   gorm.Expr("? - 1", col(s.cols.Rgt)),
				s.cols.Level: gorm.Expr("? - 1", col(s.cols.Level)),
			}).Error
		if err != nil {
			return err
		}

		err = s.scope(tx).
			Where("? = ?", col(s.cols.ParentID), n.PK).
			Update(s.cols.ParentID, n.ParentID).Error
		if err != nil {
			return err
		}

		// only the node's own two boundaries left the interval space
		if err := s.compress(tx, n.Rgt, 2); err != nil {
			return err
		}

		children, err := s.childKeys(tx, n.ParentID, n.Lft, n.Rgt-2)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := s.refreshPaths(tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// childKeys lists the keys of parent's children inside [lft, rgt].
func (s *Store) childKeys(tx *gorm.DB, parent, lft, rgt int64) ([]int64, error) {
	var keys []int64
	err := s.scope(tx).
		Where("? = ? AND ? BETWEEN ? AND ?", col(s.cols.ParentID), parent, col(s.cols.Lft), lft, rgt).
		Pluck(s.cols.Key, &keys).Error
	return keys, err
}

func isNotFound(err error) bool {
	return errors.Is(err, tree_type.ErrNotFound)
}

// OrderUp swaps the node with its previous sibling.
func (s *Store) OrderUp(ctx context.Context, pk int64) (bool, error) {
	return s.swap(ctx, pk, true)
}

// OrderDown swaps the node with its next sibling.
func (s *Store) OrderDown(ctx context.Context, pk int64) (bool, error) {
	return s.swap(ctx, pk, false)
}

func (s *Store) swap(ctx context.Context, pk int64, up bool) (bool, error) {
	op := "order-down"
	if up {
		op = "order-up"
	}
	swapped := false
	e := &tree_type.Entry{Op: op, PK: pk}
	err := s.mutate(ctx, e, func(tx *gorm.DB) error {
		n, err := s.getNode(tx, pk, tree_type.ByKey)
		if err != nil {
			return err
		}

		var sib *tree_type.Node
		if up {
			sib, err = s.getNode(tx, n.Lft-1, tree_type.ByRight)
		} else {
			sib, err = s.getNode(tx, n.Rgt+1, tree_type.ByLeft)
		}
		if err != nil {
			// first or last among its siblings
			if isNotFound(err) {
				return nil
			}
			return err
		}
		e.Ref = sib.PK

		keys, err := s.subtreeKeys(tx, *n)
		if err != nil {
			return err
		}

		nodeShift, sibShift := sib.Width(), -n.Width()
		if up {
			nodeShift, sibShift = -sib.Width(), n.Width()
		}

		err = s.scope(tx).
			Where("? BETWEEN ? AND ?", col(s.cols.Lft), n.Lft, n.Rgt).
			Updates(map[string]any{
				s.cols.Lft: gorm.Expr("? + ?", col(s.cols.Lft), nodeShift),
				s.cols.Rgt: gorm.Expr("? + ?", col(s.cols.Rgt), nodeShift),
			}).Error
		if err != nil {
			return err
		}

		err = s.scope(tx).
			Where("? BETWEEN ? AND ?", col(s.cols.Lft), sib.Lft, sib.Rgt).
			Where("? NOT IN ?", col(s.cols.Key), keys).
			Updates(map[string]any{
				s.cols.Lft: gorm.Expr("? + ?", col(s.cols.Lft), sibShift),
				s.cols.Rgt: gorm.Expr("? + ?", col(s.cols.Rgt), sibShift),
			}).Error
		if err != nil {
			return err
		}
		swapped = true
		return nil
	})
	return swapped, err
}

// SaveOrder writes lft hints for the given nodes and rebuilds the tree from
// parent links, so the hints only decide sibling order.
func (s *Store) SaveOrder(ctx context.Context, pks, lfts []int64) error {
	if len(pks) != len(lfts) {
		return fmt.Errorf("%w: %d ids, %d values", tree_type.ErrArityMismatch, len(pks), len(lfts))
	}
	e := &tree_type.Entry{Op: "save-order", Detail: fmt.Sprintf("%d nodes", len(pks))}
	return s.mutate(ctx, e, func(tx *gorm.DB) error {
		for i, pk := range pks {
			err := s.scope(tx).
				Where("? = ?", col(s.cols.Key), pk).
				Update(s.cols.Lft, lfts[i]).Error
			if err != nil {
				return err
			}
		}
		_, err := s.rebuild(tx, RebuildOptions{})
		return err
	})
}
