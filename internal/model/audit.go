package model

import (
	"time"
)

const (
	ActionCreatePeritagem      = "CREATE_PERITAGEM"
	ActionUpdatePeritagemItems = "UPDATE_PERITAGEM_ITEMS"
	ActionUpdatePeritagemInfo  = "UPDATE_PERITAGEM_HEADER"
	ActionAdvanceStage         = "ADVANCE_STAGE"
	ActionDeletePeritagem      = "DELETE_PERITAGEM"
	ActionSeedPeritagens       = "SEED_PERITAGENS"

	// Profile administration
	ActionRegisterProfile     = "REGISTER_PROFILE"
	ActionApproveProfile      = "APPROVE_PROFILE"
	ActionUpdateProfileStatus = "UPDATE_PROFILE_STATUS"
	ActionUpdateProfileRole   = "UPDATE_PROFILE_ROLE"
)

// AuditLog tracks Who, What, and When for every workflow mutation
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(64);index" json:"user_id"` // empty for automated runs
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(64);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string    `gorm:"type:text" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
