package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"peritagem/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Peritagem{}, &model.Profile{}, &model.AuditLog{}))
	return db
}

func seedPeritagem(t *testing.T, repo PeritagemRepository, cliente string, stage model.Stage, created time.Time) *model.Peritagem {
	t.Helper()
	p := &model.Peritagem{
		Header:    model.Header{Cliente: cliente},
		Stage:     stage,
		CreatedBy: "u1",
		CreatedAt: created,
		Items:     model.Items{{ID: "1", Component: "Haste", Photos: []string{}}},
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestPeritagemCreateAndGet(t *testing.T) {
	repo := NewPeritagemRepository(newTestDB(t))
	p := seedPeritagem(t, repo, "Vale", model.StageAguardandoCompras, time.Now())
	assert.NotEmpty(t, p.ID)

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vale", got.Cliente)
	assert.Equal(t, model.StageAguardandoCompras, got.Stage)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Haste", got.Items[0].Component)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPeritagemCreateRequiresAuthor(t *testing.T) {
	repo := NewPeritagemRepository(newTestDB(t))
	err := repo.Create(context.Background(), &model.Peritagem{Header: model.Header{Cliente: "CSN"}})
	assert.Error(t, err)
}

func TestPeritagemListByStage(t *testing.T) {
	ctx := context.Background()
	repo := NewPeritagemRepository(newTestDB(t))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedPeritagem(t, repo, "A", model.StageAguardandoCompras, base)
	seedPeritagem(t, repo, "B", model.StageAguardandoCompras, base.AddDate(0, 2, 0))
	seedPeritagem(t, repo, "C", model.StageAguardandoOrcamento, base.AddDate(0, 1, 0))

	rows, err := repo.List(ctx, PeritagemFilter{Stages: []model.Stage{model.StageAguardandoCompras}, NewestFirst: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "B", rows[0].Cliente)

	rows, err = repo.List(ctx, PeritagemFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "A", rows[0].Cliente)
}

func TestPeritagemUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewPeritagemRepository(newTestDB(t))
	p := seedPeritagem(t, repo, "Gerdau", model.StageAguardandoCompras, time.Now())

	items := p.Items
	items[0].Costs = &model.Costs{Cost: model.NewAmount(decimal.RequireFromString("150.00")), Supplier: "Parker"}
	stage := model.StageAguardandoOrcamento
	rev := p.Revision + 1

	got, err := repo.Update(ctx, p.ID, model.PeritagemPatch{Stage: &stage, Items: items, Revision: &rev})
	require.NoError(t, err)
	assert.Equal(t, stage, got.Stage)
	assert.Equal(t, 1, got.Revision)
	assert.Equal(t, "Gerdau", got.Cliente)
	require.NotNil(t, got.Items[0].Costs)
	assert.True(t, got.Items[0].Costs.Cost.Decimal.Equal(decimal.NewFromInt(150)))

	_, err = repo.Update(ctx, "missing", model.PeritagemPatch{Stage: &stage})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPeritagemDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewPeritagemRepository(newTestDB(t))
	p := seedPeritagem(t, repo, "Weg", model.StageAguardandoCompras, time.Now())

	require.NoError(t, repo.Delete(ctx, p.ID))
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), ErrNotFound)
}

func TestProfileRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository(newTestDB(t))

	_, ok, err := repo.FirstProfileID(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	p := &model.Profile{Name: "Ana", Email: "ana@hidracil.com", Password: "hash", Role: model.RoleComprador}
	require.NoError(t, repo.Create(ctx, p))
	assert.Equal(t, model.ProfilePendente, p.Status)

	dup := &model.Profile{Name: "Ana 2", Email: "ana@hidracil.com", Password: "hash", Role: model.RolePerito}
	assert.Error(t, repo.Create(ctx, dup))

	id, ok, err := repo.FirstProfileID(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, p.ID, id)

	require.NoError(t, repo.UpdateStatus(ctx, p.ID, model.ProfileAtivo))
	require.NoError(t, repo.UpdateRole(ctx, p.ID, model.RoleGestor))
	got, err := repo.GetByEmail(ctx, "ana@hidracil.com")
	require.NoError(t, err)
	assert.Equal(t, model.ProfileAtivo, got.Status)
	assert.Equal(t, model.RoleGestor, got.Role)

	has, err := repo.HasRole(ctx, model.RoleGestor)
	require.NoError(t, err)
	assert.True(t, has)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", model.ProfileAtivo), ErrNotFound)
	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	list, total, err := repo.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}

func TestTransactionRollsBackAudit(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tx := NewTransactionManager(db)
	audit := NewAuditRepository(db)

	boom := errors.New("boom")
	err := tx.RunInTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, audit.Log(txCtx, &model.AuditLog{Action: model.ActionApproveProfile, EntityID: "p1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, total, err := audit.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	require.NoError(t, tx.RunInTx(ctx, func(txCtx context.Context) error {
		return audit.Log(txCtx, &model.AuditLog{Action: model.ActionApproveProfile, EntityID: "p1"})
	}))
	logs, err := audit.ListByEntity(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tx := NewTransactionManager(db)
	audit := NewAuditRepository(db)

	assert.False(t, InTx(ctx))
	boom := errors.New("boom")
	err := tx.RunInTx(ctx, func(outer context.Context) error {
		assert.True(t, InTx(outer))
		require.NoError(t, tx.RunInTx(outer, func(inner context.Context) error {
			return audit.Log(inner, &model.AuditLog{Action: model.ActionApproveProfile, EntityID: "p2"})
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	logs, err := audit.ListByEntity(ctx, "p2")
	require.NoError(t, err)
	assert.Empty(t, logs, "inner work is rolled back with the outer transaction")
}

func TestAuditProfileNames(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	profiles := NewProfileRepository(db)
	audit := NewAuditRepository(db)

	p := &model.Profile{Name: "Bruno", Email: "bruno@hidracil.com", Password: "hash", Role: model.RolePerito}
	require.NoError(t, profiles.Create(ctx, p))

	names, err := audit.ProfileNames(ctx, []string{p.ID, "ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{p.ID: "Bruno"}, names)
}
