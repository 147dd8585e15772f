package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileStatus values. Only Ativo grants functional access.
type ProfileStatus string

const (
	ProfileAtivo      ProfileStatus = "Ativo"
	ProfileInativo    ProfileStatus = "Inativo"
	ProfilePendente   ProfileStatus = "Pendente"
	ProfileAguardando ProfileStatus = "Aguardando"
)

// Valid reports whether s is a known profile status
func (s ProfileStatus) Valid() bool {
	switch s {
	case ProfileAtivo, ProfileInativo, ProfilePendente, ProfileAguardando:
		return true
	}
	return false
}

// Profile is an authenticated actor of the workflow
type Profile struct {
	ID        string        `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name      string        `gorm:"type:varchar(255);not null" json:"name"`
	Email     string        `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string        `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash
	Role      Role          `gorm:"type:varchar(50);not null" json:"role"`
	Status    ProfileStatus `gorm:"type:varchar(20);not null;default:'Pendente';index" json:"status"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns an id and the registration status
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = ProfilePendente
	}
	return nil
}
