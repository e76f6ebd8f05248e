package x_db

import (
	"fmt"

	"github.com/rskv-p/nested/pkg/x_log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

//---------------------
// DAO
//---------------------

// DAO owns a gorm connection and the table locker matching its dialect.
type DAO struct {
	DB     *gorm.DB
	Config Config
	locker Locker
}

// New opens the database described by cfg.
func New(cfg Config) (*DAO, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case DbSqlite:
		dialector = sqlite.Open(cfg.DSN)
	case DbPostgres:
		dialector = postgres.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(x_log.New("x_db"), gormLevel(cfg.LogLevel), cfg.SlowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("x_db: open %s: %w", cfg.Type, err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("x_db: pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	x_log.Debug().
		Str("driver", string(cfg.Type)).
		Msg("database opened")

	return &DAO{DB: db, Config: cfg, locker: NewLocker(cfg.Type)}, nil
}

// Locker returns the table locker for this connection's dialect.
func (d *DAO) Locker() Locker {
	return d.locker
}

// Migrate creates or updates tables for the given models.
func (d *DAO) Migrate(models ...any) error {
	return d.DB.AutoMigrate(models...)
}

// Close closes the underlying connection pool.
func (d *DAO) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
