package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peritagem/internal/model"
	"peritagem/internal/repository"
	"peritagem/internal/workflow"
)

func amount(v int64) model.Amount {
	return model.NewAmount(decimal.NewFromInt(v))
}

func TestCreateStartsAtAguardandoCompras(t *testing.T) {
	f := newPeritagemFixture(t)
	req := newRequest("Vale")
	req.Items[0].Costs = &model.Costs{Cost: amount(10)}

	p, err := f.svc.Create(context.Background(), perito, req)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, model.StageAguardandoCompras, p.Stage)
	assert.Equal(t, perito.ID, p.CreatedBy)
	require.Len(t, p.Items, 2)
	assert.Nil(t, p.Items[0].Costs, "costs are not accepted at creation")
	assert.Equal(t, []EventType{EventNewPeritagem}, f.notifier.types())

	history, err := f.audit.History(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.ActionCreatePeritagem, history[0].Action)
}

func TestCreateRejections(t *testing.T) {
	f := newPeritagemFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, comprador, newRequest("Vale"))
	assert.ErrorIs(t, err, workflow.ErrRoleNotAllowed)

	req := newRequest("Vale")
	req.Items[1].Component = "Parafuso"
	_, err = f.svc.Create(ctx, perito, req)
	assert.ErrorIs(t, err, ErrInvalidInput)

	req = newRequest("Vale")
	req.Items[1].ID = "a"
	_, err = f.svc.Create(ctx, perito, req)
	assert.ErrorIs(t, err, ErrInvalidInput)

	req = newRequest("")
	_, err = f.svc.Create(ctx, gestor, req)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFullWorkflow(t *testing.T) {
	f := newPeritagemFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, perito, newRequest("Gerdau"))
	require.NoError(t, err)

	updated, err := f.svc.UpdateItems(ctx, comprador, p.ID, UpdateItemsRequest{
		Items: []ItemUpdate{{ID: "a", Costs: &model.Costs{Cost: amount(40), Supplier: "Parker"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Revision)
	require.NotNil(t, updated.Items[0].Costs)
	assert.Equal(t, "Parker", updated.Items[0].Costs.Supplier)

	advanced, err := f.svc.Advance(ctx, comprador, p.ID, TransitionRequest{Action: workflow.ActionFinalizePurchases})
	require.NoError(t, err)
	assert.Equal(t, model.StageAguardandoOrcamento, advanced.Stage)

	_, err = f.svc.UpdateItems(ctx, orcamentista, p.ID, UpdateItemsRequest{
		Items: []ItemUpdate{{ID: "a", Budget: &model.Budget{SellPrice: amount(100)}}},
	})
	require.NoError(t, err)

	detail, err := f.svc.Get(ctx, orcamentista, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "60.0", detail.Margins["a"])
	assert.Equal(t, []workflow.Action{workflow.ActionFinalizeBudget}, detail.AvailableActions)

	done, err := f.svc.Advance(ctx, orcamentista, p.ID, TransitionRequest{Action: workflow.ActionFinalizeBudget})
	require.NoError(t, err)
	assert.Equal(t, model.StageOrcamentoFinalizado, done.Stage)
	assert.Equal(t, 4, done.Revision)

	_, err = f.svc.Advance(ctx, orcamentista, p.ID, TransitionRequest{Action: workflow.ActionFinalizeBudget})
	assert.ErrorIs(t, err, workflow.ErrTerminal)

	assert.Equal(t, []EventType{
		EventNewPeritagem, EventUpdated, EventBuyerFinished, EventUpdated, EventProcessConcluded,
	}, f.notifier.types())

	tl, err := f.svc.Timeline(ctx, gestor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Orçamento Finalizado", tl.Current)
	require.Len(t, tl.Steps, 6)
	for _, st := range tl.Steps {
		assert.True(t, st.Reached)
	}
	assert.True(t, tl.Steps[5].Current)
	assert.Len(t, tl.History, 5)
}

func TestUpdateItemsGates(t *testing.T) {
	f := newPeritagemFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, perito, newRequest("CSN"))
	require.NoError(t, err)

	text := "nova anomalia"
	_, err = f.svc.UpdateItems(ctx, perito, p.ID, UpdateItemsRequest{Items: []ItemUpdate{{ID: "a", Anomalies: &text}}})
	assert.ErrorIs(t, err, ErrForbiddenEdit, "inspection is closed once purchasing starts")

	_, err = f.svc.UpdateItems(ctx, orcamentista, p.ID, UpdateItemsRequest{
		Items: []ItemUpdate{{ID: "a", Budget: &model.Budget{SellPrice: amount(1)}}},
	})
	assert.ErrorIs(t, err, ErrForbiddenEdit)

	_, err = f.svc.UpdateItems(ctx, comprador, p.ID, UpdateItemsRequest{
		Items: []ItemUpdate{{ID: "zzz", Costs: &model.Costs{Cost: amount(1)}}},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.UpdateItems(ctx, comprador, p.ID, UpdateItemsRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.UpdateItems(ctx, gestor, p.ID, UpdateItemsRequest{
		RemoveItems: []model.ItemID{"b"},
		NewItems:    model.Items{{Component: "Vedações"}},
	})
	require.NoError(t, err)
	got, err := f.repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, model.ItemID("a"), got.Items[0].ID)
	assert.Equal(t, "Vedações", got.Items[1].Component)
	assert.NotEmpty(t, got.Items[1].ID)
}

func TestStaleRevision(t *testing.T) {
	f := newPeritagemFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, perito, newRequest("Vale"))
	require.NoError(t, err)

	zero := 0
	_, err = f.svc.UpdateItems(ctx, comprador, p.ID, UpdateItemsRequest{
		Items:            []ItemUpdate{{ID: "a", Costs: &model.Costs{Cost: amount(5)}}},
		ExpectedRevision: &zero,
	})
	require.NoError(t, err)

	_, err = f.svc.Advance(ctx, comprador, p.ID, TransitionRequest{
		Action:           workflow.ActionFinalizePurchases,
		ExpectedRevision: &zero,
	})
	assert.ErrorIs(t, err, ErrStaleRevision)
}

func TestRedactionByRole(t *testing.T) {
	f := newPeritagemFixture(t)
	ctx := context.Background()
	p := insertAt(t, f.repo, "Vale", model.StageOrcamentoFinalizado)
	items := model.Items{{
		ID: "1", Component: "Haste", Photos: []string{},
		Costs:  &model.Costs{Cost: amount(30)},
		Budget: &model.Budget{SellPrice: amount(90)},
	}}
	_, err := f.repo.Update(ctx, p.ID, model.PeritagemPatch{Items: items})
	require.NoError(t, err)

	d, err := f.svc.Get(ctx, perito, p.ID)
	require.NoError(t, err)
	assert.Nil(t, d.Peritagem.Items[0].Costs)
	assert.Nil(t, d.Peritagem.Items[0].Budget)
	assert.Empty(t, d.Margins)

	d, err = f.svc.Get(ctx, comprador, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, d.Peritagem.Items[0].Costs)
	assert.Nil(t, d.Peritagem.Items[0].Budget)

	d, err = f.svc.Get(ctx, pcp, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, d.Peritagem.Items[0].Budget)
	assert.Empty(t, d.AvailableActions)
}

func TestListAndPending(t *testing.T) {
	f := newPeritagemFixture(t)
	ctx := context.Background()
	insertAt(t, f.repo, "A", model.StagePeritagemCriada)
	insertAt(t, f.repo, "B", model.StageAguardandoCompras)
	insertAt(t, f.repo, "C", model.StageCustosInseridos)
	insertAt(t, f.repo, "D", model.StageAguardandoOrcamento)

	rows, total, err := f.svc.List(ctx, gestor, ListPeritagensRequest{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, rows, 4)

	rows, total, err = f.svc.List(ctx, gestor, ListPeritagensRequest{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, rows, 1)

	rows, total, err = f.svc.List(ctx, gestor, ListPeritagensRequest{Statuses: []string{"Aguardando Compras", "Custos Inseridos"}})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, r := range rows {
		assert.Contains(t, []model.Stage{model.StageAguardandoCompras, model.StageCustosInseridos}, r.Stage)
	}

	_, _, err = f.svc.List(ctx, gestor, ListPeritagensRequest{Statuses: []string{"Enviado"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	pending, err := f.svc.Pending(ctx, comprador)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	pending, err = f.svc.Pending(ctx, orcamentista)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "D", pending[0].Cliente)
}

func TestDelete(t *testing.T) {
	f := newPeritagemFixture(t)
	ctx := context.Background()
	p := insertAt(t, f.repo, "Vale", model.StageAguardandoCompras)

	assert.ErrorIs(t, f.svc.Delete(ctx, comprador, p.ID), ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, gestor, p.ID))

	_, err := f.svc.Get(ctx, gestor, p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, gestor, p.ID), repository.ErrNotFound)
	assert.Contains(t, f.notifier.types(), EventDeleted)
}
