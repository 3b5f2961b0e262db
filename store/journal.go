package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Event is one journal row. Every verification transition and every audit
// action writes one, so a grant or denial can always be traced after the
// fact.
type Event struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	RequestID       string    `gorm:"index" json:"request_id"`
	Kind            string    `gorm:"index" json:"kind"` // verification | audit
	Email           string    `gorm:"index" json:"email"`
	CommunityUserID string    `json:"community_user_id,omitempty"`
	Stage           string    `json:"stage"`
	Outcome         string    `json:"outcome,omitempty"`
	Detail          string    `json:"detail,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Journal is the append-only event log backing /trust-system traceability.
// Writes are best-effort: a journal failure is logged and never fails the
// workflow that produced the event.
type Journal struct {
	db     *gorm.DB
	Logger *logrus.Logger
}

func OpenJournal(path string, logger *logrus.Logger) (*Journal, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, err
	}
	return &Journal{db: db, Logger: logger}, nil
}

func (j *Journal) Record(ctx context.Context, event Event) {
	if j == nil || j.db == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := j.db.WithContext(ctx).Create(&event).Error; err != nil {
		j.Logger.WithFields(logrus.Fields{
			"kind":  event.Kind,
			"email": event.Email,
			"stage": event.Stage,
		}).Warnf("journal write failed: %v", err)
	}
}

// Recent returns the latest events, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []Event
	err := j.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&events).Error
	return events, err
}

// RecentByEmail returns the latest events for one normalized email.
func (j *Journal) RecentByEmail(ctx context.Context, email string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []Event
	err := j.db.WithContext(ctx).Where("email = ?", email).Order("id desc").Limit(limit).Find(&events).Error
	return events, err
}
