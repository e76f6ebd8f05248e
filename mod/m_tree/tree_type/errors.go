package tree_type

import "errors"

var (
	ErrNotFound            = errors.New("tree: node not found")
	ErrInvalidReference    = errors.New("tree: invalid reference node")
	ErrInvalidLocation     = errors.New("tree: invalid location")
	ErrCyclicMove          = errors.New("tree: cannot move a node under its own subtree")
	ErrAncestorStateTooLow = errors.New("tree: an ancestor has a lower state")
	ErrNoStateColumn       = errors.New("tree: table has no published or state column")
	ErrRootNotFound        = errors.New("tree: root node not found")
	ErrAmbiguousRoot       = errors.New("tree: more than one root node")
	ErrArityMismatch       = errors.New("tree: ids and values differ in length")
	ErrLockFailure         = errors.New("tree: could not lock table")
	ErrCheckedOut          = errors.New("tree: node is checked out by another user")
)
