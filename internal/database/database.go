package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Models lists every table owned by the application in migration order.
// Join tables and page logs come after the tables they reference.
var Models = []any{
	&entities.Book{},
	&entities.Author{},
	&entities.Category{},
	&entities.Publisher{},
	&entities.BookAuthor{},
	&entities.BookCategory{},
	&entities.BookPublisher{},
	&entities.PageLog{},
	&entities.Setting{},
}

type Database struct {
	DB   *gorm.DB
	Path string
}

type options struct {
	logLevel logger.LogLevel
}

type Option func(*options)

// WithLogLevel overrides the gorm logger level (logger.Warn by default).
func WithLogLevel(level logger.LogLevel) Option {
	return func(o *options) {
		o.logLevel = level
	}
}

func NewDatabase(dbPath string, opts ...Option) (*Database, error) {
	o := options{logLevel: logger.Warn}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(sqlite.Open(DSN(dbPath)), &gorm.Config{
		Logger: logger.Default.LogMode(o.logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db, Path: dbPath}, nil
}

// DSN enables foreign key enforcement on every connection of the pool.
func DSN(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_foreign_keys=on&_busy_timeout=5000"
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
