// Package catalog supplies marker definitions, either from configuration or
// from a SQL table shared by several viewer instances.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/glebarez/sqlite"
	"github.com/roeblinglabs/itwin-poc-2024/internal/config"
	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrUnknownType is returned by Open for an unsupported catalog type.
var ErrUnknownType = errors.New("unknown catalog type")

// Source yields the marker definitions for one site, in registration order.
type Source interface {
	Markers(ctx context.Context) ([]core.MarkerDef, error)
}

// Static is a Source backed by a fixed list, typically from the config file.
type Static []core.MarkerDef

// Markers returns a copy of the list.
func (s Static) Markers(context.Context) ([]core.MarkerDef, error) {
	return slices.Clone(s), nil
}

// OpenSQLite opens a SQLite database. An empty path opens a private in-memory database.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %q: %w", path, err)
	}

	if path == "" {
		// every pooled connection would otherwise get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// OpenPostgres connects to Postgres.
func OpenPostgres(cfg config.PostgresConfig) (*gorm.DB, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=%s`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslMode,
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres at %s:%s: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}

// Open builds the Source described by cfg. defaults backs the "config" type.
func Open(ctx context.Context, cfg config.CatalogConfig, defaults []core.MarkerDef, log *slog.Logger) (Source, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Type {
	case "", "config":
		return Static(defaults), nil
	case "sqlite":
		db, err = OpenSQLite(cfg.SQLite.Path)
	case "postgres":
		db, err = OpenPostgres(cfg.Postgres)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	store := NewStore(db, cfg.SiteID, log)
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Store is a SQL-backed Source for one site.
type Store struct {
	db     *gorm.DB
	siteID string
	log    *slog.Logger
}

// NewStore creates a store for siteID.
func NewStore(db *gorm.DB, siteID string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, siteID: siteID, log: log.With("site", siteID)}
}

// Migrate creates or updates the markers table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&MarkerRecord{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Save replaces the site's markers with defs, keeping their order.
func (s *Store) Save(ctx context.Context, defs []core.MarkerDef) error {
	records := make([]MarkerRecord, 0, len(defs))
	for i, def := range defs {
		rec, err := RecordFromDef(s.siteID, i, def)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("site_id = ?", s.siteID).Delete(&MarkerRecord{}).Error; err != nil {
			return fmt.Errorf("clearing markers: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("inserting markers: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("Saved marker catalog", "count", len(records))
	return nil
}

// Markers loads the site's markers in order. Rows that cannot be decoded
// are logged and skipped.
func (s *Store) Markers(ctx context.Context) ([]core.MarkerDef, error) {
	var records []MarkerRecord
	err := s.db.WithContext(ctx).
		Where("site_id = ?", s.siteID).
		Order("position asc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("loading markers: %w", err)
	}

	defs := make([]core.MarkerDef, 0, len(records))
	for _, rec := range records {
		def, err := rec.Def()
		if err != nil {
			s.log.Warn("Skipping unreadable marker row", "error", err)
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
