// Package logaudit persists the log stream that services publish to the
// broker, so operators can query claim activity without shell access to
// any single node.
package logaudit

import (
	"time"

	"gorm.io/gorm"

	"github.com/qZheng/CavityProof/pkg/rabbitmq"
)

type LogEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Level     string    `gorm:"type:varchar(10);not null;index" json:"level"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Service   string    `gorm:"type:varchar(50);not null;index" json:"service"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (LogEntry) TableName() string {
	return "log_audit_entries"
}

type Service struct {
	db          *gorm.DB
	serviceName string
}

func NewService(db *gorm.DB, serviceName string) *Service {
	return &Service{db: db, serviceName: serviceName}
}

func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(&LogEntry{})
}

// ProcessLogMessage stores one queued log message.
func (s *Service) ProcessLogMessage(msg rabbitmq.LoggerMessage) error {
	entry := LogEntry{
		Level:     msg.Level,
		Message:   msg.Message,
		Timestamp: time.Unix(msg.Timestamp.T, 0).UTC(),
		Service:   s.serviceName,
	}
	return s.db.Create(&entry).Error
}

func (s *Service) GetLogEntries(limit, offset int) ([]LogEntry, error) {
	var entries []LogEntry
	result := s.db.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&entries)
	return entries, result.Error
}

func (s *Service) GetLogEntriesByLevel(level string, limit, offset int) ([]LogEntry, error) {
	var entries []LogEntry
	result := s.db.Where("level = ?", level).Order("timestamp DESC").Limit(limit).Offset(offset).Find(&entries)
	return entries, result.Error
}
