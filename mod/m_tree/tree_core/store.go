// Package tree_core implements a nested-set (modified preorder traversal)
// tree stored in a relational table through gorm.
//
// The store owns the positional columns (parent_id, level, lft, rgt).
// Structural changes run inside one transaction holding an exclusive table
// lock; reads take no lock.
package tree_core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nuid"
	"github.com/rskv-p/nested/mod/m_tree/tree_type"
	"github.com/rskv-p/nested/pkg/x_db"
	"github.com/rskv-p/nested/pkg/x_log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//---------------------
// Store
//---------------------

// features records which optional columns the table carries.
type features struct {
	alias      bool
	path       bool
	title      bool
	ordering   bool
	published  bool
	state      bool
	checkedOut bool
}

// Store is a nested-set tree over one table, optionally scoped by a filter.
type Store struct {
	db      *gorm.DB
	table   string
	cols    tree_type.Columns
	filter  tree_type.Filter
	locker  x_db.Locker
	journal tree_type.Journal
	log     x_log.Logger
	has     features
}

// defaultLocker serializes every store opened without WithLocker.
var defaultLocker = x_db.NewLocker(x_db.DbSqlite)

// Option configures a Store.
type Option func(*Store)

// WithColumns overrides column names; empty names keep their defaults.
func WithColumns(c tree_type.Columns) Option {
	return func(s *Store) { s.cols = c.WithDefaults() }
}

// WithFilter scopes the store to one tree of a shared table.
func WithFilter(f tree_type.Filter) Option {
	return func(s *Store) { s.filter = f }
}

// WithLocker replaces the default in-process table locker.
func WithLocker(l x_db.Locker) Option {
	return func(s *Store) { s.locker = l }
}

// WithJournal records every committed structural operation.
func WithJournal(j tree_type.Journal) Option {
	return func(s *Store) { s.journal = j }
}

// WithLogger replaces the module logger.
func WithLogger(l x_log.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New opens a tree store over table. Optional columns are detected once here.
func New(db *gorm.DB, table string, opts ...Option) (*Store, error) {
	s := &Store{
		db:     db.Session(&gorm.Session{NewDB: true}),
		table:  table,
		cols:   tree_type.DefaultColumns(),
		locker: defaultLocker,
		log:    x_log.New("m_tree"),
	}
	for _, opt := range opts {
		opt(s)
	}

	m := s.db.Migrator()
	if !m.HasTable(table) {
		return nil, fmt.Errorf("tree: table %s does not exist", table)
	}
	for _, c := range []string{s.cols.Key, s.cols.ParentID, s.cols.Level, s.cols.Lft, s.cols.Rgt} {
		if !m.HasColumn(table, c) {
			return nil, fmt.Errorf("tree: table %s lacks column %s", table, c)
		}
	}
	s.has = features{
		alias:      m.HasColumn(table, s.cols.Alias),
		path:       m.HasColumn(table, s.cols.Path),
		title:      m.HasColumn(table, s.cols.Title),
		ordering:   m.HasColumn(table, s.cols.Ordering),
		published:  m.HasColumn(table, s.cols.Published),
		state:      m.HasColumn(table, s.cols.State),
		checkedOut: m.HasColumn(table, s.cols.CheckedOut),
	}
	return s, nil
}

// Scoped returns a copy of the store restricted by f in addition to the
// current filter.
func (s *Store) Scoped(f tree_type.Filter) *Store {
	c := *s
	merged := make(tree_type.Filter, len(s.filter)+len(f))
	for k, v := range s.filter {
		merged[k] = v
	}
	for k, v := range f {
		merged[k] = v
	}
	c.filter = merged
	return &c
}

// Table returns the underlying table name.
func (s *Store) Table() string { return s.table }

// Columns returns the resolved column names.
func (s *Store) Columns() tree_type.Columns { return s.cols }

// HasColumn reports whether an optional column was detected.
func (s *Store) HasColumn(name string) bool {
	switch name {
	case s.cols.Alias:
		return s.has.alias
	case s.cols.Path:
		return s.has.path
	case s.cols.Title:
		return s.has.title
	case s.cols.Ordering:
		return s.has.ordering
	case s.cols.Published:
		return s.has.published
	case s.cols.State:
		return s.has.state
	case s.cols.CheckedOut:
		return s.has.checkedOut
	}
	return false
}

//---------------------
// Query helpers
//---------------------

func col(name string) clause.Column {
	return clause.Column{Name: name}
}

func asc(name string) clause.OrderByColumn {
	return clause.OrderByColumn{Column: col(name)}
}

func desc(name string) clause.OrderByColumn {
	return clause.OrderByColumn{Column: col(name), Desc: true}
}

// scope starts a query on the table restricted by the filter.
func (s *Store) scope(tx *gorm.DB) *gorm.DB {
	q := tx.Table(s.table)
	if len(s.filter) > 0 {
		q = q.Where(map[string]any(s.filter))
	}
	return q
}

// nodes selects the positional fields aliased onto tree_type.Node.
func (s *Store) nodes(tx *gorm.DB) *gorm.DB {
	return s.scope(tx).Select("? AS pk, ? AS parent_id, ? AS level, ? AS lft, ? AS rgt",
		col(s.cols.Key), col(s.cols.ParentID), col(s.cols.Level), col(s.cols.Lft), col(s.cols.Rgt))
}

// storageErr wraps a driver failure; tree errors pass through unchanged.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		tree_type.ErrNotFound, tree_type.ErrInvalidReference, tree_type.ErrInvalidLocation,
		tree_type.ErrCyclicMove, tree_type.ErrAncestorStateTooLow, tree_type.ErrNoStateColumn,
		tree_type.ErrRootNotFound, tree_type.ErrAmbiguousRoot, tree_type.ErrArityMismatch,
		tree_type.ErrLockFailure, tree_type.ErrCheckedOut,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("tree: %s: %w", op, err)
}

//---------------------
// Locked mutation
//---------------------

// mutate runs fn in a transaction holding the table lock. The lock is
// released after commit or rollback on every path.
func (s *Store) mutate(ctx context.Context, e *tree_type.Entry, fn func(tx *gorm.DB) error) (err error) {
	opID := nuid.Next()
	lg := x_log.From(ctx, s.log).With().
		Str("table", s.table).
		Str("op", e.Op).
		Str("op_id", opID).
		Int64("pk", e.PK).
		Logger()
	started := time.Now()

	var release func()
	defer func() {
		if release != nil {
			release()
		}
	}()

	// SQL logged by gorm inside the transaction carries the op fields
	err = s.db.WithContext(x_log.WithLogger(ctx, &lg)).Transaction(func(tx *gorm.DB) error {
		r, lerr := s.locker.Lock(ctx, tx, s.table)
		if lerr != nil {
			return fmt.Errorf("%w: %s: %v", tree_type.ErrLockFailure, s.table, lerr)
		}
		release = r
		return fn(tx)
	})
	if err != nil {
		err = storageErr(e.Op, err)
		lg.Error().Err(err).Msg("tree operation failed")
		return err
	}

	lg.Debug().Dur("took", time.Since(started)).Msg("tree operation committed")

	if s.journal != nil {
		e.Table = s.table
		e.At = time.Now().UTC()
		if jerr := s.journal.Record(ctx, *e); jerr != nil {
			lg.Warn().Err(jerr).Msg("journal write failed")
		}
	}
	return nil
}
