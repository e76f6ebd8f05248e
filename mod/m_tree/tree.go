// Package m_tree wires named nested-set trees to one database connection.
package m_tree

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rskv-p/nested/mod"
	"github.com/rskv-p/nested/mod/m_tree/tree_core"
	"github.com/rskv-p/nested/mod/m_tree/tree_type"
	"github.com/rskv-p/nested/pkg/x_db"
	"github.com/rskv-p/nested/pkg/x_log"
)

// ErrUnknownTree is returned for a name that was never registered.
var ErrUnknownTree = errors.New("m_tree: unknown tree")

// TableConfig declares one tree.
type TableConfig struct {
	Table   string
	Columns tree_type.Columns // empty names keep their defaults
	Filter  tree_type.Filter
	Model   any // migrated on Init when set
}

//---------------------
// Tree Module
//---------------------

// TreeModule is an explicit registry of named trees over one DAO.
type TreeModule struct {
	dao     *x_db.DAO
	journal tree_type.Journal
	log     x_log.Logger

	mu     sync.RWMutex
	tables map[string]TableConfig
	stores map[string]*tree_core.Store
}

var _ mod.Module = (*TreeModule)(nil)

// Option configures a TreeModule.
type Option func(*TreeModule)

// WithJournal records operations of every tree in j.
func WithJournal(j tree_type.Journal) Option {
	return func(m *TreeModule) { m.journal = j }
}

// New creates an empty registry.
func New(dao *x_db.DAO, opts ...Option) *TreeModule {
	m := &TreeModule{
		dao:    dao,
		log:    x_log.New("m_tree"),
		tables: make(map[string]TableConfig),
		stores: make(map[string]*tree_core.Store),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

//---------------------
// Module Lifecycle
//---------------------

// Name returns the name of the module.
func (m *TreeModule) Name() string {
	return "m_tree"
}

// Init migrates declared models and opens every registered tree.
func (m *TreeModule) Init() error {
	names := m.Names()

	// trees may share a table declared by another entry's model
	for _, name := range names {
		m.mu.RLock()
		model := m.tables[name].Model
		m.mu.RUnlock()
		if model == nil {
			continue
		}
		if err := m.dao.Migrate(model); err != nil {
			return fmt.Errorf("m_tree: migrate %s: %w", name, err)
		}
	}
	for _, name := range names {
		if _, err := m.Store(name); err != nil {
			return err
		}
	}
	m.log.Info().Strs("trees", names).Msg("tree module initialized")
	return nil
}

// Start reports trees that fail verification. It does not repair them.
func (m *TreeModule) Start() error {
	for _, name := range m.Names() {
		s, err := m.Store(name)
		if err != nil {
			return err
		}
		v, err := s.Verify(context.Background())
		if err != nil {
			return fmt.Errorf("m_tree: verify %s: %w", name, err)
		}
		if len(v) > 0 {
			m.log.Warn().Str("tree", name).Int("violations", len(v)).Msg("tree needs a rebuild")
		}
	}
	return nil
}

// Stop drops the opened stores.
func (m *TreeModule) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores = make(map[string]*tree_core.Store)
	m.log.Info().Msg("stopping tree module")
	return nil
}

//---------------------
// Registry
//---------------------

// Register adds a tree under name. Names are unique.
func (m *TreeModule) Register(name string, cfg TableConfig) error {
	if name == "" || cfg.Table == "" {
		return fmt.Errorf("m_tree: tree needs a name and a table")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[name]; ok {
		return fmt.Errorf("m_tree: tree %q already registered", name)
	}
	m.tables[name] = cfg
	return nil
}

// Names lists registered trees in name order.
func (m *TreeModule) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.tables))
	for name := range m.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Store returns the store of a registered tree, opening it on first use.
func (m *TreeModule) Store(name string) (*tree_core.Store, error) {
	m.mu.RLock()
	s, ok := m.stores[name]
	cfg, known := m.tables[name]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTree, name)
	}

	opts := []tree_core.Option{
		tree_core.WithColumns(cfg.Columns),
		tree_core.WithLocker(m.dao.Locker()),
		tree_core.WithLogger(m.log.With().Str("tree", name).Logger()),
	}
	if len(cfg.Filter) > 0 {
		opts = append(opts, tree_core.WithFilter(cfg.Filter))
	}
	if m.journal != nil {
		opts = append(opts, tree_core.WithJournal(m.journal))
	}

	s, err := tree_core.New(m.dao.DB, cfg.Table, opts...)
	if err != nil {
		return nil, fmt.Errorf("m_tree: open %s: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.stores[name]; ok {
		return existing, nil
	}
	m.stores[name] = s
	return s, nil
}
