package tree_core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rskv-p/nested/mod/m_tree/tree_type"
	"gorm.io/gorm"
)

//---------------------
// Rebuild
//---------------------

// RebuildOptions selects where a rebuild starts. A zero ParentID starts at
// the tree root; LeftID and Level are the values given to that node.
type RebuildOptions struct {
	ParentID int64
	LeftID   int64
	Level    int64
	Path     string
}

// Rebuild recomputes lft, rgt, level and path from parent links, ordering
// siblings by the ordering column (if any) and then by their current lft.
// It returns the rgt of the start node plus one.
func (s *Store) Rebuild(ctx context.Context, opts RebuildOptions) (int64, error) {
	var next int64
	e := &tree_type.Entry{Op: "rebuild", PK: opts.ParentID}
	err := s.mutate(ctx, e, func(tx *gorm.DB) error {
		var err error
		next, err = s.rebuild(tx, opts)
		return err
	})
	return next, err
}

type linkRow struct {
	PK       int64  `gorm:"column:pk"`
	ParentID int64  `gorm:"column:parent_id"`
	Alias    string `gorm:"column:alias"`
	Ordering int64  `gorm:"column:ordering"`
	Lft      int64  `gorm:"column:lft"`
}

type rebuildFrame struct {
	pk    int64
	lft   int64
	right int64
	level int64
	path  string
	next  int
}

func (s *Store) rebuild(tx *gorm.DB, opts RebuildOptions) (int64, error) {
	start := opts.ParentID
	if start == 0 {
		id, err := s.rootID(tx)
		if err != nil {
			return 0, err
		}
		start = id
	}

	children, err := s.links(tx)
	if err != nil {
		return 0, err
	}
	withPath := s.has.alias && s.has.path

	rootPath := opts.Path
	if withPath && rootPath == "" {
		if opts.ParentID == 0 {
			// stored geometry may be garbage here, only the alias counts
			var aliases []string
			err = s.scope(tx).
				Where("? = ?", col(s.cols.Key), start).
				Pluck("COALESCE("+s.cols.Alias+", '')", &aliases).Error
			rootPath = joinPath(aliases)
		} else {
			rootPath, err = s.pathOf(tx, start)
		}
		if err != nil {
			return 0, err
		}
	}

	visited := map[int64]bool{start: true}
	stack := []*rebuildFrame{{pk: start, lft: opts.LeftID, right: opts.LeftID + 1, level: opts.Level, path: rootPath}}
	var ret int64

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		kids := children[top.pk]

		if top.next < len(kids) {
			c := kids[top.next]
			top.next++
			if visited[c.PK] {
				continue
			}
			visited[c.PK] = true

			p := c.Alias
			if top.path != "" {
				p = top.path + "/" + c.Alias
			}
			stack = append(stack, &rebuildFrame{pk: c.PK, lft: top.right, right: top.right + 1, level: top.level + 1, path: p})
			continue
		}

		vals := map[string]any{
			s.cols.Lft:   top.lft,
			s.cols.Rgt:   top.right,
			s.cols.Level: top.level,
		}
		if withPath {
			vals[s.cols.Path] = top.path
		}
		if err := s.scope(tx).Where("? = ?", col(s.cols.Key), top.pk).Updates(vals).Error; err != nil {
			return 0, err
		}

		ret = top.right + 1
		stack = stack[:len(stack)-1]
		if len(stack) > 0 {
			stack[len(stack)-1].right = ret
		}
	}
	return ret, nil
}

// links loads parent links of the whole scope, children sorted for rebuild.
func (s *Store) links(tx *gorm.DB) (map[int64][]linkRow, error) {
	fields := []string{"? AS pk", "? AS parent_id", "? AS lft"}
	args := []any{col(s.cols.Key), col(s.cols.ParentID), col(s.cols.Lft)}
	if s.has.alias {
		fields = append(fields, "COALESCE(?, '') AS alias")
		args = append(args, col(s.cols.Alias))
	}
	if s.has.ordering {
		fields = append(fields, "COALESCE(?, 0) AS ordering")
		args = append(args, col(s.cols.Ordering))
	}

	var rows []linkRow
	if err := s.scope(tx).Select(strings.Join(fields, ", "), args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	children := make(map[int64][]linkRow)
	for _, r := range rows {
		if r.PK == r.ParentID {
			continue
		}
		children[r.ParentID] = append(children[r.ParentID], r)
	}
	for _, kids := range children {
		sort.SliceStable(kids, func(i, j int) bool {
			if kids[i].Ordering != kids[j].Ordering {
				return kids[i].Ordering < kids[j].Ordering
			}
			return kids[i].Lft < kids[j].Lft
		})
	}
	return children, nil
}

//---------------------
// Materialized path
//---------------------

// RebuildPath recomputes the path of one node from the aliases of its
// ancestors. It does nothing when the table has no alias or path column.
func (s *Store) RebuildPath(ctx context.Context, pk int64) error {
	if !s.has.alias || !s.has.path {
		return nil
	}
	tx := s.db.WithContext(ctx)
	p, err := s.pathOf(tx, pk)
	if err != nil {
		return storageErr("rebuild path", err)
	}
	err = s.scope(tx).Where("? = ?", col(s.cols.Key), pk).Update(s.cols.Path, p).Error
	return storageErr("rebuild path", err)
}

// pathOf joins the aliases from the root down to pk.
func (s *Store) pathOf(tx *gorm.DB, pk int64) (string, error) {
	n, err := s.getNode(tx, pk, tree_type.ByKey)
	if err != nil {
		return "", err
	}
	var aliases []string
	err = s.scope(tx).
		Where("? <= ? AND ? >= ?", col(s.cols.Lft), n.Lft, col(s.cols.Rgt), n.Rgt).
		Order(asc(s.cols.Lft)).
		Pluck("COALESCE("+s.cols.Alias+", '')", &aliases).Error
	if err != nil {
		return "", err
	}
	return joinPath(aliases), nil
}

func joinPath(segs []string) string {
	if len(segs) > 0 && segs[0] == "root" {
		segs = segs[1:]
	}
	return strings.Join(segs, "/")
}

type aliasRow struct {
	PK    int64  `gorm:"column:pk"`
	Lft   int64  `gorm:"column:lft"`
	Rgt   int64  `gorm:"column:rgt"`
	Alias string `gorm:"column:alias"`
}

// refreshPaths recomputes the path of pk and all its descendants.
func (s *Store) refreshPaths(tx *gorm.DB, pk int64) error {
	if !s.has.alias || !s.has.path {
		return nil
	}
	n, err := s.getNode(tx, pk, tree_type.ByKey)
	if err != nil {
		return err
	}

	var base []string
	err = s.scope(tx).
		Where("? < ? AND ? > ?", col(s.cols.Lft), n.Lft, col(s.cols.Rgt), n.Rgt).
		Order(asc(s.cols.Lft)).
		Pluck("COALESCE("+s.cols.Alias+", '')", &base).Error
	if err != nil {
		return err
	}

	var rows []aliasRow
	err = s.scope(tx).
		Select("? AS pk, ? AS lft, ? AS rgt, COALESCE(?, '') AS alias",
			col(s.cols.Key), col(s.cols.Lft), col(s.cols.Rgt), col(s.cols.Alias)).
		Where("? BETWEEN ? AND ?", col(s.cols.Lft), n.Lft, n.Rgt).
		Order(asc(s.cols.Lft)).
		Scan(&rows).Error
	if err != nil {
		return err
	}

	type open struct {
		rgt  int64
		segs []string
	}
	var stack []open
	for _, r := range rows {
		for len(stack) > 0 && stack[len(stack)-1].rgt < r.Lft {
			stack = stack[:len(stack)-1]
		}
		parent := base
		if len(stack) > 0 {
			parent = stack[len(stack)-1].segs
		}
		segs := append(append([]string(nil), parent...), r.Alias)

		err := s.scope(tx).
			Where("? = ?", col(s.cols.Key), r.PK).
			Update(s.cols.Path, joinPath(segs)).Error
		if err != nil {
			return fmt.Errorf("path of %d: %w", r.PK, err)
		}
		stack = append(stack, open{rgt: r.Rgt, segs: segs})
	}
	return nil
}
