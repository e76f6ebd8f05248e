package x_db

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

//---------------------
// Table locks
//---------------------

// Locker takes an exclusive, table-wide lock for the lifetime of a
// transaction. The returned release func must be called on every exit path.
type Locker interface {
	Lock(ctx context.Context, tx *gorm.DB, table string) (release func(), err error)
}

// tableSlots is shared by every locker of the process, so stores opened
// separately over one table still exclude each other.
var tableSlots = newMutexLocker()

// NewLocker returns the locker suited to the dialect.
func NewLocker(t Type) Locker {
	if t == DbPostgres {
		return &pgLocker{local: tableSlots}
	}
	return tableSlots
}

// mutexLocker serializes lockers of the same table inside this process.
// SQLite has no LOCK TABLE; its own write lock covers other processes.
type mutexLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{slots: make(map[string]chan struct{})}
}

func (m *mutexLocker) slot(table string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.slots[table]
	if !ok {
		ch = make(chan struct{}, 1)
		m.slots[table] = ch
	}
	return ch
}

func (m *mutexLocker) Lock(ctx context.Context, _ *gorm.DB, table string) (func(), error) {
	ch := m.slot(table)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-ch }) }, nil
}

// pgLocker uses LOCK TABLE, released by postgres at commit or rollback.
type pgLocker struct {
	local *mutexLocker
}

func (p *pgLocker) Lock(ctx context.Context, tx *gorm.DB, table string) (func(), error) {
	release, err := p.local.Lock(ctx, tx, table)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf("LOCK TABLE %s IN SHARE ROW EXCLUSIVE MODE", quoteIdent(tx, table))
	if err := tx.WithContext(ctx).Exec(stmt).Error; err != nil {
		release()
		return nil, err
	}
	return release, nil
}

// quoteIdent quotes an identifier with the dialect's quoting rules.
func quoteIdent(db *gorm.DB, name string) string {
	return db.Statement.Quote(name)
}
