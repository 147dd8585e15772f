// Package localstore keeps the client-side state of the offline mode: a small
// key-value slot table and a schemaless record collection stored in one slot.
package localstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Slot keys shared with the browser build
const (
	KeyOfflineMode    = "hidracil_offline_mode"
	KeySimulationPlan = "hidracil_simulation_plan"
	KeyPeritagens     = "mock_peritagens_v2"
)

// Slot is one key-value entry
type Slot struct {
	Key       string `gorm:"type:varchar(128);primaryKey"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (Slot) TableName() string {
	return "local_slots"
}

// Migrate creates the slot table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Slot{})
}

// Slots is a string key-value store. Set is a single upsert statement.
type Slots interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type slots struct {
	db *gorm.DB
}

// NewSlots returns a gorm backed Slots
func NewSlots(db *gorm.DB) Slots {
	return &slots{db: db}
}

func (s *slots) Get(ctx context.Context, key string) (string, bool, error) {
	var slot Slot
	err := s.db.WithContext(ctx).First(&slot, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return slot.Value, true, nil
}

func (s *slots) Set(ctx context.Context, key, value string) error {
	slot := Slot{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&slot).Error
}

func (s *slots) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&Slot{}).Error
}
