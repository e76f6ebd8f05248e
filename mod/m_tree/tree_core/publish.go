package tree_core

import (
	"context"
	"fmt"

	"github.com/rskv-p/nested/mod/m_tree/tree_type"
	"gorm.io/gorm"
)

//---------------------
// Publish state
//---------------------

// stateColumn returns published when present, else state.
func (s *Store) stateColumn() (string, error) {
	switch {
	case s.has.published:
		return s.cols.Published, nil
	case s.has.state:
		return s.cols.State, nil
	}
	return "", fmt.Errorf("%w: table %s", tree_type.ErrNoStateColumn, s.table)
}

// Publish sets the state of each node and cascades it to descendants. A node
// is refused when a proper ancestor holds a lower state than min(state, 1),
// so archiving (2) is allowed under a published parent. Descendants already
// below min(state, 0) keep their own state. A NULL state counts as 0.
//
// All nodes change in one transaction; one refusal rolls back the batch.
func (s *Store) Publish(ctx context.Context, pks []int64, state int, userID int64) error {
	column, err := s.stateColumn()
	if err != nil {
		return err
	}
	if len(pks) == 0 {
		return nil
	}

	compare := min(state, 1)
	floor := min(state, 0)

	e := &tree_type.Entry{Op: "publish", UserID: userID, Detail: fmt.Sprintf("state=%d nodes=%v", state, pks)}
	if len(pks) == 1 {
		e.PK = pks[0]
	}
	return s.mutate(ctx, e, func(tx *gorm.DB) error {
		for _, pk := range pks {
			n, err := s.getNode(tx, pk, tree_type.ByKey)
			if err != nil {
				return err
			}
			if err := s.checkOwner(tx, pk, userID); err != nil {
				return err
			}

			var blocked int64
			err = s.scope(tx).
				Where("? < ? AND ? > ?", col(s.cols.Lft), n.Lft, col(s.cols.Rgt), n.Rgt).
				Where("COALESCE(?, 0) < ?", col(column), compare).
				Count(&blocked).Error
			if err != nil {
				return err
			}
			if blocked > 0 {
				return fmt.Errorf("%w: node %d, %d ancestor(s) below %d", tree_type.ErrAncestorStateTooLow, pk, blocked, compare)
			}

			err = s.scope(tx).Where("? = ?", col(s.cols.Key), pk).Update(column, state).Error
			if err != nil {
				return err
			}
			err = s.scope(tx).
				Where("? > ? AND ? < ?", col(s.cols.Lft), n.Lft, col(s.cols.Rgt), n.Rgt).
				Where("COALESCE(?, 0) >= ?", col(column), floor).
				Update(column, state).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

//---------------------
// Check-out
//---------------------

// checkedOutBy returns the user holding the node, 0 when free.
func (s *Store) checkedOutBy(tx *gorm.DB, pk int64) (int64, error) {
	var holders []int64
	err := s.scope(tx).
		Where("? = ?", col(s.cols.Key), pk).
		Limit(1).
		Pluck("COALESCE("+s.cols.CheckedOut+", 0)", &holders).Error
	if err != nil {
		return 0, err
	}
	if len(holders) == 0 {
		return 0, fmt.Errorf("%w: key %d", tree_type.ErrNotFound, pk)
	}
	return holders[0], nil
}

// checkOwner fails when another user holds the node.
func (s *Store) checkOwner(tx *gorm.DB, pk, userID int64) error {
	if !s.has.checkedOut {
		return nil
	}
	holder, err := s.checkedOutBy(tx, pk)
	if err != nil {
		return err
	}
	if holder != 0 && holder != userID {
		return fmt.Errorf("%w: node %d held by user %d", tree_type.ErrCheckedOut, pk, holder)
	}
	return nil
}

// CheckOut marks the node as being edited by userID.
func (s *Store) CheckOut(ctx context.Context, pk, userID int64) error {
	if !s.has.checkedOut {
		return fmt.Errorf("tree: table %s has no %s column", s.table, s.cols.CheckedOut)
	}
	e := &tree_type.Entry{Op: "check-out", PK: pk, UserID: userID}
	return s.mutate(ctx, e, func(tx *gorm.DB) error {
		if err := s.checkOwner(tx, pk, userID); err != nil {
			return err
		}
		return s.scope(tx).Where("? = ?", col(s.cols.Key), pk).Update(s.cols.CheckedOut, userID).Error
	})
}

// CheckIn releases the node whoever holds it.
func (s *Store) CheckIn(ctx context.Context, pk int64) error {
	if !s.has.checkedOut {
		return fmt.Errorf("tree: table %s has no %s column", s.table, s.cols.CheckedOut)
	}
	e := &tree_type.Entry{Op: "check-in", PK: pk}
	return s.mutate(ctx, e, func(tx *gorm.DB) error {
		if _, err := s.checkedOutBy(tx, pk); err != nil {
			return err
		}
		return s.scope(tx).Where("? = ?", col(s.cols.Key), pk).Update(s.cols.CheckedOut, 0).Error
	})
}
