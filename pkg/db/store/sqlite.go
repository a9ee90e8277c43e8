package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mwantia/alder/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is the record store: a single SQLite connection, the schema
// catalog reflected from it and the statement log. It is not safe for
// concurrent use.
type Store struct {
	db      *gorm.DB
	path    string
	log     log.LoggerService
	catalog *Catalog
}

// DB returns the underlying GORM database instance
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Catalog returns the schema catalog of this store.
func (s *Store) Catalog() *Catalog {
	return s.catalog
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path       string
	LogQueries bool
	Logger     log.LoggerService
}

// NewSQLiteStore opens the database file at cfg.Path.
func NewSQLiteStore(cfg SQLiteConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = log.NewDiscardLogger()
	}

	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.LogQueries {
		gormLogger = log.NewGormLogger(cfg.Logger.Named("gorm"), logger.Info)
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	s := &Store{
		db:   db,
		path: cfg.Path,
		log:  cfg.Logger,
	}
	s.catalog = newCatalog(db)

	return s, nil
}

// Connect configures the connection pool and verifies the database is reachable.
func (s *Store) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	// One connection: statements run strictly in sequence.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Health checks database connectivity
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Exec logs and runs a statement that returns no rows.
func (s *Store) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	s.logStatement(stmt, args)

	res := s.db.WithContext(ctx).Exec(stmt, args...)
	if res.Error != nil {
		return 0, &DatabaseError{Statement: stmt, Err: res.Error}
	}
	return res.RowsAffected, nil
}

// Select logs and runs a query, handing every row to fn as a column map.
func (s *Store) Select(ctx context.Context, stmt string, args []any, fn func(row map[string]any) error) error {
	return s.query(ctx, stmt, args, func(columns []string, values []any) error {
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}
		return fn(row)
	})
}

// SelectValues returns the first column of every row.
func (s *Store) SelectValues(ctx context.Context, stmt string, args ...any) ([]any, error) {
	var out []any
	err := s.query(ctx, stmt, args, func(_ []string, values []any) error {
		if len(values) > 0 {
			out = append(out, values[0])
		}
		return nil
	})
	return out, err
}

// SelectValue returns the first column of the first row, or nil.
func (s *Store) SelectValue(ctx context.Context, stmt string, args ...any) (any, error) {
	values, err := s.SelectValues(ctx, stmt, args...)
	if err != nil || len(values) == 0 {
		return nil, err
	}
	return values[0], nil
}

func (s *Store) query(ctx context.Context, stmt string, args []any, fn func(columns []string, values []any) error) error {
	s.logStatement(stmt, args)

	rows, err := s.db.WithContext(ctx).Raw(stmt, args...).Rows()
	if err != nil {
		return &DatabaseError{Statement: stmt, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return &DatabaseError{Statement: stmt, Err: err}
	}

	for rows.Next() {
		values, err := scanRow(rows, len(columns))
		if err != nil {
			return &DatabaseError{Statement: stmt, Err: err}
		}
		if err := fn(columns, values); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return &DatabaseError{Statement: stmt, Err: err}
	}
	return nil
}

func (s *Store) logStatement(stmt string, args []any) {
	if len(args) == 0 {
		s.log.Debug(stmt)
		return
	}
	s.log.Debug("%s %v", stmt, args)
}

func scanRow(rows *sql.Rows, n int) ([]any, error) {
	values := make([]any, n)
	ptrs := make([]any, n)
	for i := range values {
		ptrs[i] = &values[i]
	}

	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values, nil
}
