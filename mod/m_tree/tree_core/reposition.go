package tree_core

import (
	"fmt"

	"github.com/rskv-p/nested/mod/m_tree/tree_type"
	"gorm.io/gorm"
)

// Reposition computes where a subtree of the given width lands relative to
// ref, and which lft/rgt values must be shifted to make room for it.
func Reposition(ref tree_type.Node, width int64, pos tree_type.Position) (tree_type.Reposition, error) {
	if ref.Lft == 0 && ref.Rgt == 0 {
		return tree_type.Reposition{}, fmt.Errorf("%w: node %d has no interval", tree_type.ErrInvalidReference, ref.PK)
	}
	if width < 2 {
		return tree_type.Reposition{}, fmt.Errorf("%w: width %d", tree_type.ErrInvalidReference, width)
	}

	var d tree_type.Reposition
	switch pos {
	case tree_type.FirstChild:
		d.LeftWhere = tree_type.Boundary{Op: tree_type.Gt, Value: ref.Lft}
		d.RightWhere = tree_type.Boundary{Op: tree_type.Gte, Value: ref.Lft}
		d.NewLft = ref.Lft + 1
		d.NewRgt = ref.Lft + width
		d.NewParent = ref.PK
		d.NewLevel = ref.Level + 1

	case tree_type.LastChild:
		d.LeftWhere = tree_type.Boundary{Op: tree_type.Gt, Value: ref.Rgt}
		d.RightWhere = tree_type.Boundary{Op: tree_type.Gte, Value: ref.Rgt}
		d.NewLft = ref.Rgt
		d.NewRgt = ref.Rgt + width - 1
		d.NewParent = ref.PK
		d.NewLevel = ref.Level + 1

	case tree_type.Before:
		d.LeftWhere = tree_type.Boundary{Op: tree_type.Gte, Value: ref.Lft}
		d.RightWhere = tree_type.Boundary{Op: tree_type.Gte, Value: ref.Lft}
		d.NewLft = ref.Lft
		d.NewRgt = ref.Lft + width - 1
		d.NewParent = ref.ParentID
		d.NewLevel = ref.Level

	default:
		d.LeftWhere = tree_type.Boundary{Op: tree_type.Gt, Value: ref.Rgt}
		d.RightWhere = tree_type.Boundary{Op: tree_type.Gt, Value: ref.Rgt}
		d.NewLft = ref.Rgt + 1
		d.NewRgt = ref.Rgt + width
		d.NewParent = ref.ParentID
		d.NewLevel = ref.Level
	}
	return d, nil
}

// reference resolves the node a location points at. ReferenceID 0 means the
// last root-level node, always used as last-child.
func (s *Store) reference(tx *gorm.DB, loc tree_type.Location) (*tree_type.Node, tree_type.Position, error) {
	if loc.ReferenceID < 0 {
		return nil, loc.Position, fmt.Errorf("%w: reference %d", tree_type.ErrInvalidLocation, loc.ReferenceID)
	}
	if loc.ReferenceID == 0 {
		ref, err := s.lastRoot(tx)
		return ref, tree_type.LastChild, err
	}
	ref, err := s.getNode(tx, loc.ReferenceID, tree_type.ByKey)
	return ref, loc.Position, err
}

// shift adds delta to every value of column matching b.
func (s *Store) shift(tx *gorm.DB, column string, b tree_type.Boundary, delta int64) error {
	return s.scope(tx).
		Where("? "+string(b.Op)+" ?", col(column), b.Value).
		Update(column, gorm.Expr("? + ?", col(column), delta)).Error
}

// widen opens a gap of width at the place described by d.
func (s *Store) widen(tx *gorm.DB, d tree_type.Reposition, width int64) error {
	if err := s.shift(tx, s.cols.Lft, d.LeftWhere, width); err != nil {
		return err
	}
	return s.shift(tx, s.cols.Rgt, d.RightWhere, width)
}

// compress closes the gap of width left after position rgt.
func (s *Store) compress(tx *gorm.DB, rgt, width int64) error {
	after := tree_type.Boundary{Op: tree_type.Gt, Value: rgt}
	if err := s.shift(tx, s.cols.Lft, after, -width); err != nil {
		return err
	}
	return s.shift(tx, s.cols.Rgt, after, -width)
}
