package migrations

import (
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"github.com/unique-Sachin/CounselPro-AI/internal/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrateStore applies the goose migrations found in the configured migration folder.
// Only postgres is migrated with goose; sqlite databases are created with AutoMigrate.
func MigrateStore(db *gorm.DB, cfg *config.Config) error {
	goose.SetLogger(&logger{})

	migrationFolder := cfg.Service.MigrationFolder
	fi, err := os.Stat(migrationFolder)
	if err != nil {
		return err
	}

	if !fi.Mode().IsDir() {
		return fmt.Errorf("failed to open migration folder: %s is not a folder", migrationFolder)
	}

	goose.SetBaseFS(os.DirFS(migrationFolder))

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return goose.Up(sqlDB, ".")
}

/*
logger implements goose.Logger interface

	type Logger interface {
		Fatalf(format string, v ...interface{})
		Printf(format string, v ...interface{})
	}
*/
type logger struct{}

func (m *logger) Printf(format string, v ...interface{}) { zap.S().Named("migrations").Infof(format, v...) }
func (m *logger) Fatalf(format string, v ...interface{}) { zap.S().Named("migrations").Fatalf(format, v...) }
