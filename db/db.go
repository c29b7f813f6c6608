package db

import (
	"fmt"

	"Gin_postgres_redis_tool_ledger/config"
	"Gin_postgres_redis_tool_ledger/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		config.Get("DB_HOST", "127.0.0.1"),
		config.Get("DB_USER", "postgres"),
		config.Get("DB_PASSWORD", "postgres"),
		config.Get("DB_NAME", "tool_ledger"),
		config.Get("DB_PORT", "5432"),
		config.Get("DB_SSLMODE", "disable"),
	)
}

func ConnectDB(log *zap.Logger) *gorm.DB {
	conn, err := gorm.Open(postgres.Open(DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := Migrate(conn); err != nil {
		log.Fatal("failed to migrate models", zap.Error(err))
	}
	log.Info("database connected")
	return conn
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Credential{},
		&models.StorageLocation{},
		&models.Tool{},
		&models.ToolTransaction{},
	); err != nil {
		return err
	}

	// at most one open Issue per (tool, worker)
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_issue
	  ON %s (tool_id, assigned_to_user_id)
	  WHERE transaction_type = '%s' AND returned_date IS NULL;
	`, models.TransactionTable, models.TransactionTable, models.TxIssue)).Error; err != nil {
		return err
	}

	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_date_id_desc
	  ON %s (transaction_date DESC, id DESC);
	`, models.TransactionTable, models.TransactionTable)).Error; err != nil {
		return err
	}

	return nil
}
