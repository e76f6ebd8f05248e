package tree_type

import (
	"fmt"
	"strings"
)

//---------------------
// Node
//---------------------

// Node holds the positional fields of one row of a nested-set table.
type Node struct {
	PK       int64 `gorm:"column:pk" json:"pk"`
	ParentID int64 `gorm:"column:parent_id" json:"parent_id"`
	Level    int64 `gorm:"column:level" json:"level"`
	Lft      int64 `gorm:"column:lft" json:"lft"`
	Rgt      int64 `gorm:"column:rgt" json:"rgt"`
}

// Width is the number of boundary values the node and its subtree occupy.
func (n Node) Width() int64 {
	return n.Rgt - n.Lft + 1
}

// NumChildren counts all descendants, not only direct children.
func (n Node) NumChildren() int64 {
	return (n.Rgt - n.Lft - 1) / 2
}

// IsLeaf reports whether the node has no descendants.
func (n Node) IsLeaf() bool {
	return n.Width() == 2
}

// Contains reports whether o lies strictly inside n.
func (n Node) Contains(o Node) bool {
	return n.Lft < o.Lft && o.Rgt < n.Rgt
}

func (n Node) String() string {
	return fmt.Sprintf("#%d[%d,%d]@%d", n.PK, n.Lft, n.Rgt, n.Level)
}

//---------------------
// Lookup kinds
//---------------------

// KeyKind selects the column an id is matched against in GetNode.
type KeyKind int

const (
	ByKey KeyKind = iota
	ByParent
	ByLeft
	ByRight
)

func (k KeyKind) String() string {
	switch k {
	case ByParent:
		return "parent"
	case ByLeft:
		return "left"
	case ByRight:
		return "right"
	default:
		return "key"
	}
}

//---------------------
// Location
//---------------------

// Position places a node relative to a reference node.
type Position int

const (
	After Position = iota
	Before
	FirstChild
	LastChild
)

func (p Position) String() string {
	switch p {
	case Before:
		return "before"
	case FirstChild:
		return "first-child"
	case LastChild:
		return "last-child"
	default:
		return "after"
	}
}

// ParsePosition accepts the textual positions used by callers and the CLI.
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "after":
		return After, nil
	case "before":
		return Before, nil
	case "first-child", "first_child", "firstchild":
		return FirstChild, nil
	case "last-child", "last_child", "lastchild":
		return LastChild, nil
	default:
		return After, fmt.Errorf("%w: unknown position %q", ErrInvalidLocation, s)
	}
}

// Location is the desired placement of a node. ReferenceID 0 means the last
// root-level node, used as last-child.
type Location struct {
	ReferenceID int64
	Position    Position
}

// Reposition is the layout computed for placing a subtree of a given width.
type Reposition struct {
	LeftWhere  Boundary // lft values that must shift by the width
	RightWhere Boundary // rgt values that must shift by the width
	NewLft     int64
	NewRgt     int64
	NewParent  int64
	NewLevel   int64
}

// Op is a comparison used by Boundary.
type Op string

const (
	Gt  Op = ">"
	Gte Op = ">="
)

// Boundary is a "column op value" predicate over lft or rgt.
type Boundary struct {
	Op    Op
	Value int64
}

//---------------------
// Rows and scope
//---------------------

// Row carries ordinary column values for insert and update.
type Row map[string]any

// Filter scopes every generated query to one tree of a shared table.
type Filter map[string]any

// Columns names the columns of a tree table.
type Columns struct {
	Key        string // primary key, default "id"
	ParentID   string
	Level      string
	Lft        string
	Rgt        string
	Alias      string
	Path       string
	Title      string
	Ordering   string
	Published  string
	State      string
	CheckedOut string
}

// DefaultColumns returns the conventional column names.
func DefaultColumns() Columns {
	return Columns{
		Key:        "id",
		ParentID:   "parent_id",
		Level:      "level",
		Lft:        "lft",
		Rgt:        "rgt",
		Alias:      "alias",
		Path:       "path",
		Title:      "title",
		Ordering:   "ordering",
		Published:  "published",
		State:      "state",
		CheckedOut: "checked_out",
	}
}

// WithDefaults fills empty names from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&c.Key, d.Key)
	fill(&c.ParentID, d.ParentID)
	fill(&c.Level, d.Level)
	fill(&c.Lft, d.Lft)
	fill(&c.Rgt, d.Rgt)
	fill(&c.Alias, d.Alias)
	fill(&c.Path, d.Path)
	fill(&c.Title, d.Title)
	fill(&c.Ordering, d.Ordering)
	fill(&c.Published, d.Published)
	fill(&c.State, d.State)
	fill(&c.CheckedOut, d.CheckedOut)
	return c
}

// Violation describes one broken tree invariant found by Verify.
type Violation struct {
	PK     int64
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("#%d: %s", v.PK, v.Reason)
}
