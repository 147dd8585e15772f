package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peritagem/internal/model"
	"peritagem/internal/report"
	"peritagem/internal/repository"
)

func TestReportOnlyWhenFinalized(t *testing.T) {
	f := newPeritagemFixture(t)
	ctx := context.Background()
	svc := NewReportService(f.repo, nil)

	open := insertAt(t, f.repo, "Vale", model.StageAguardandoOrcamento)
	_, err := svc.Generate(ctx, gestor, open.ID, "")
	assert.ErrorIs(t, err, ErrReportUnavailable)

	done := insertAt(t, f.repo, "Vale", model.StageOrcamentoFinalizado)
	doc, err := svc.Generate(ctx, orcamentista, done.ID, "cliente")
	require.NoError(t, err)
	assert.Equal(t, "Peritagem_"+done.ID+"_cliente.xlsx", doc.Filename)
	assert.NotEmpty(t, doc.Body)
	assert.Equal(t, 1, doc.Pages)

	_, err = svc.Generate(ctx, gestor, "missing", "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReportVariantRules(t *testing.T) {
	f := newPeritagemFixture(t)
	ctx := context.Background()
	svc := NewReportService(f.repo, nil)
	done := insertAt(t, f.repo, "Vale", model.StageOrcamentoFinalizado)

	_, err := svc.Generate(ctx, gestor, done.ID, "interno")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Generate(ctx, comprador, done.ID, string(report.VariantCliente))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Generate(ctx, perito, done.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Generate(ctx, comprador, done.ID, string(report.VariantComprador))
	assert.NoError(t, err)
}
