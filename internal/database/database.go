package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/shelf/internal/entities"
)

// Models lists every table owned by the application, in migration order.
var Models = []any{
	&entities.User{},
	&entities.Follow{},
	&entities.AuthToken{},
	&entities.Author{},
	&entities.Book{},
	&entities.Library{},
	&entities.Librarian{},
	&entities.Tag{},
	&entities.Post{},
	&entities.AuditEvent{},
	&entities.Setting{},
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	return Open(dbPath, logger.Warn)
}

// Open connects to the SQLite file at dbPath and migrates all models.
func Open(dbPath string, level logger.LogLevel) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the underlying connection is usable.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Reset drops and recreates every application table.
func (d *Database) Reset() error {
	joinTables := []string{"library_books", "post_tags"}
	for _, table := range joinTables {
		if err := d.DB.Migrator().DropTable(table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	if err := d.DB.Migrator().DropTable(Models...); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	if err := d.DB.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
