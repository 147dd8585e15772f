package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"peritagem/internal/model"
)

// ProfileRepository defines data access for user profiles
type ProfileRepository interface {
	Create(ctx context.Context, p *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	List(ctx context.Context, page, limit int) ([]model.Profile, int64, error)
	UpdateStatus(ctx context.Context, id string, status model.ProfileStatus) error
	UpdateRole(ctx context.Context, id string, role model.Role) error
	FirstProfileID(ctx context.Context) (string, bool, error)
	HasRole(ctx context.Context, role model.Role) (bool, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a new instance of ProfileRepository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, p *model.Profile) error {
	return GetDB(ctx, r.db).Create(p).Error
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *profileRepository) first(ctx context.Context, cond string, arg string) (*model.Profile, error) {
	var p model.Profile
	err := GetDB(ctx, r.db).First(&p, cond, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("profile %s: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) List(ctx context.Context, page, limit int) ([]model.Profile, int64, error) {
	var profiles []model.Profile
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Profile{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&profiles).Error; err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (r *profileRepository) UpdateStatus(ctx context.Context, id string, status model.ProfileStatus) error {
	return r.updateColumn(ctx, id, "status", status)
}

func (r *profileRepository) UpdateRole(ctx context.Context, id string, role model.Role) error {
	return r.updateColumn(ctx, id, "role", role)
}

func (r *profileRepository) updateColumn(ctx context.Context, id, column string, value interface{}) error {
	res := GetDB(ctx, r.db).Model(&model.Profile{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *profileRepository) FirstProfileID(ctx context.Context) (string, bool, error) {
	var ids []string
	if err := GetDB(ctx, r.db).Model(&model.Profile{}).Order("created_at asc").Limit(1).Pluck("id", &ids).Error; err != nil {
		return "", false, err
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil
}

func (r *profileRepository) HasRole(ctx context.Context, role model.Role) (bool, error) {
	var n int64
	if err := GetDB(ctx, r.db).Model(&model.Profile{}).Where("role = ?", role).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
