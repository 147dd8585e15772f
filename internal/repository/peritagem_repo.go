package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"peritagem/internal/model"
)

// ErrNotFound is returned when the addressed record does not exist
var ErrNotFound = errors.New("record not found")

// PeritagemFilter narrows a listing. An empty Stages slice means every stage.
type PeritagemFilter struct {
	Stages      []model.Stage
	NewestFirst bool
}

// PeritagemRepository is the data-access boundary for peritagens. It is
// implemented on postgres through gorm and on the hosted REST surface
// (real or emulated) by the restclient package.
type PeritagemRepository interface {
	Create(ctx context.Context, p *model.Peritagem) error
	CreateBatch(ctx context.Context, ps []model.Peritagem) error
	List(ctx context.Context, f PeritagemFilter) ([]model.Peritagem, error)
	GetByID(ctx context.Context, id string) (*model.Peritagem, error)
	Update(ctx context.Context, id string, patch model.PeritagemPatch) (*model.Peritagem, error)
	Delete(ctx context.Context, id string) error
}

type peritagemRepository struct {
	db *gorm.DB
}

// NewPeritagemRepository returns the gorm implementation
func NewPeritagemRepository(db *gorm.DB) PeritagemRepository {
	return &peritagemRepository{db: db}
}

func (r *peritagemRepository) Create(ctx context.Context, p *model.Peritagem) error {
	return GetDB(ctx, r.db).Create(p).Error
}

func (r *peritagemRepository) CreateBatch(ctx context.Context, ps []model.Peritagem) error {
	if len(ps) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&ps).Error
}

func (r *peritagemRepository) List(ctx context.Context, f PeritagemFilter) ([]model.Peritagem, error) {
	var out []model.Peritagem
	q := GetDB(ctx, r.db).Model(&model.Peritagem{})
	if len(f.Stages) > 0 {
		q = q.Where("stage_index IN ?", f.Stages)
	}
	if f.NewestFirst {
		q = q.Order("created_at desc")
	} else {
		q = q.Order("created_at asc")
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *peritagemRepository) GetByID(ctx context.Context, id string) (*model.Peritagem, error) {
	var p model.Peritagem
	err := GetDB(ctx, r.db).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("peritagem %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *peritagemRepository) Update(ctx context.Context, id string, patch model.PeritagemPatch) (*model.Peritagem, error) {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if patch.Header != nil {
		h := patch.Header
		updates["orcamento"] = h.Orcamento
		updates["cliente"] = h.Cliente
		updates["endereco"] = h.Endereco
		updates["bairro"] = h.Bairro
		updates["municipio"] = h.Municipio
		updates["uf"] = h.UF
		updates["equipamento"] = h.Equipamento
		updates["cidade"] = h.Cidade
		updates["cx"] = h.CX
		updates["tag"] = h.Tag
		updates["nf"] = h.NF
		updates["responsavel_tecnico"] = h.ResponsavelTecnico
	}
	if patch.Stage != nil {
		updates["stage_index"] = *patch.Stage
	}
	if patch.Items != nil {
		updates["items"] = patch.Items
	}
	if patch.Revision != nil {
		updates["revision"] = *patch.Revision
	}

	res := GetDB(ctx, r.db).Model(&model.Peritagem{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("peritagem %s: %w", id, ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

func (r *peritagemRepository) Delete(ctx context.Context, id string) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Peritagem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("peritagem %s: %w", id, ErrNotFound)
	}
	return nil
}
