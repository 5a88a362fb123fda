package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLHistory is a MySQL implementation of the HistoryRepository interface
type MySQLHistory struct {
	*sqlHistory
}

// NewMySQLHistory creates a new MySQL history
func NewMySQLHistory(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLHistory, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS phish_history (
			email_id VARCHAR(64) PRIMARY KEY,
			id VARCHAR(36) NOT NULL,
			sender VARCHAR(512),
			subject TEXT,
			result TEXT NOT NULL,
			model VARCHAR(255),
			threshold INT,
			analyzed_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_expires_at (expires_at),
			INDEX idx_analyzed_at (analyzed_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLHistory{newSQLHistory(db, logger, cleanupFreq, "mysql")}, nil
}
