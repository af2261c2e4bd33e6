package logging

import (
	"fmt"
	"time"

	"github.com/channelpartner/position-backend/internal/models"
	"gorm.io/gorm"
)

// LogRetention is how long system_logs rows are kept.
const LogRetention = 30 * 24 * time.Hour

// CleanupOldLogs deletes system_logs rows older than retention and returns how many went.
func CleanupOldLogs(db *gorm.DB, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clean up system logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
