package tree_core

import (
	"context"
	"fmt"

	"github.com/rskv-p/nested/mod/m_tree/tree_type"
)

// Verify walks the whole scope in lft order and reports every node that
// breaks the nested-set rules: lft < rgt, unique boundaries, proper nesting,
// parent_id matching the enclosing interval and level one below the parent.
func (s *Store) Verify(ctx context.Context) ([]tree_type.Violation, error) {
	var all []tree_type.Node
	err := s.nodes(s.db.WithContext(ctx)).Order(asc(s.cols.Lft)).Scan(&all).Error
	if err != nil {
		return nil, storageErr("verify", err)
	}

	var out []tree_type.Violation
	report := func(pk int64, format string, args ...any) {
		out = append(out, tree_type.Violation{PK: pk, Reason: fmt.Sprintf(format, args...)})
	}

	seen := make(map[int64]int64, 2*len(all))
	var stack []tree_type.Node
	for _, n := range all {
		if n.Lft >= n.Rgt {
			report(n.PK, "lft %d not below rgt %d", n.Lft, n.Rgt)
		}
		for _, b := range []int64{n.Lft, n.Rgt} {
			if other, dup := seen[b]; dup {
				report(n.PK, "boundary %d shared with %d", b, other)
				continue
			}
			seen[b] = n.PK
		}

		for len(stack) > 0 && stack[len(stack)-1].Rgt < n.Lft {
			stack = stack[:len(stack)-1]
		}

		var parent int64
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			parent = top.PK
			if n.Rgt > top.Rgt {
				report(n.PK, "interval [%d,%d] overlaps %d [%d,%d]", n.Lft, n.Rgt, top.PK, top.Lft, top.Rgt)
			}
			if n.Level != top.Level+1 {
				report(n.PK, "level %d under %d at level %d", n.Level, top.PK, top.Level)
			}
		}
		if n.ParentID != parent {
			report(n.PK, "parent_id %d, enclosed by %d", n.ParentID, parent)
		}
		stack = append(stack, n)
	}
	return out, nil
}
