package handler

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peritagem/internal/model"
	"peritagem/internal/report"
	"peritagem/pkg/response"
)

func TestRequiresToken(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, "", http.MethodGet, "/api/peritagens", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decode(t, w, nil)
	assert.Equal(t, "error", env.Status)
}

func TestCreatePeritagem(t *testing.T) {
	f := newAPIFixture(t)
	p := f.create(t)
	assert.Equal(t, "Aguardando Compras", p["status"])
	assert.EqualValues(t, 2, p["stage_index"])
	assert.Equal(t, f.ids[model.RolePerito], p["created_by"])

	w := f.do(t, model.RoleComprador, http.MethodPost, "/api/peritagens", map[string]any{
		"cliente": "Vale", "equipamento": "Motor",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, model.RolePerito, http.MethodPost, "/api/peritagens", map[string]any{
		"cliente": "Vale", "equipamento": "Motor",
		"items": []map[string]any{{"component": "Parafuso"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPeritagem(t *testing.T) {
	f := newAPIFixture(t)
	id := f.create(t)["id"].(string)

	w := f.do(t, model.RoleComprador, http.MethodGet, "/api/peritagens/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Peritagem        map[string]any `json:"peritagem"`
		AvailableActions []string       `json:"available_actions"`
	}
	decode(t, w, &detail)
	assert.Equal(t, id, detail.Peritagem["id"])
	assert.Equal(t, []string{"finalizar_cotacao"}, detail.AvailableActions)

	w = f.do(t, model.RoleComprador, http.MethodGet, "/api/peritagens/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransitions(t *testing.T) {
	f := newAPIFixture(t)
	id := f.create(t)["id"].(string)
	path := "/api/peritagens/" + id + "/transitions"

	w := f.do(t, model.RolePerito, http.MethodPost, path, map[string]any{"action": "finalizar_cotacao"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, model.RoleComprador, http.MethodPost, path, map[string]any{"action": "voar"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, model.RoleComprador, http.MethodPost, path, map[string]any{"action": "finalizar_cotacao"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p map[string]any
	decode(t, w, &p)
	assert.Equal(t, "Aguardando Orçamento", p["status"])
	assert.EqualValues(t, 4, p["stage_index"])

	w = f.do(t, model.RoleComprador, http.MethodPost, path, map[string]any{"action": "finalizar_cotacao"})
	assert.Equal(t, http.StatusConflict, w.Code, "already past purchasing")

	w = f.do(t, model.RoleOrcamentista, http.MethodPost, path, map[string]any{"action": "finalizar_orcamento", "expected_revision": 0})
	assert.Equal(t, http.StatusConflict, w.Code, "stale revision")

	w = f.do(t, model.RoleOrcamentista, http.MethodPost, path, map[string]any{"action": "finalizar_orcamento"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, model.RoleGestor, http.MethodPost, path, map[string]any{"action": "finalizar_orcamento"})
	assert.Equal(t, http.StatusConflict, w.Code, "terminal stage")
}

func TestTimeline(t *testing.T) {
	f := newAPIFixture(t)
	id := f.create(t)["id"].(string)

	w := f.do(t, model.RolePCP, http.MethodGet, "/api/peritagens/"+id+"/timeline", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tl struct {
		Current string `json:"current"`
		Steps   []struct {
			Reached bool `json:"reached"`
			Current bool `json:"current"`
		} `json:"steps"`
		History []map[string]any `json:"history"`
	}
	decode(t, w, &tl)
	assert.Equal(t, "Aguardando Compras", tl.Current)
	require.Len(t, tl.Steps, 6)
	assert.True(t, tl.Steps[2].Current)
	assert.True(t, tl.Steps[0].Reached)
	assert.False(t, tl.Steps[3].Reached)
	assert.Len(t, tl.History, 1)
}

func TestListPeritagens(t *testing.T) {
	f := newAPIFixture(t)
	first := f.create(t)["id"].(string)
	f.create(t)
	f.create(t)

	w := f.do(t, model.RoleComprador, http.MethodPost, "/api/peritagens/"+first+"/transitions", map[string]any{"action": "finalizar_cotacao"})
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
		Limit int              `json:"limit"`
	}
	w = f.do(t, model.RolePCP, http.MethodGet, "/api/peritagens", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 0, page.Limit)

	q := url.Values{"status": {"Aguardando Orçamento", "Orçamento Finalizado"}}
	w = f.do(t, model.RolePCP, http.MethodGet, "/api/peritagens?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first, page.Items[0]["id"])

	w = f.do(t, model.RolePCP, http.MethodGet, "/api/peritagens?limit=2&page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 1)

	w = f.do(t, model.RolePCP, http.MethodGet, "/api/peritagens?status=Bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPendingForRole(t *testing.T) {
	f := newAPIFixture(t)
	f.create(t)

	var rows []map[string]any
	w := f.do(t, model.RoleComprador, http.MethodGet, "/api/peritagens/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &rows)
	assert.Len(t, rows, 1)

	w = f.do(t, model.RoleOrcamentista, http.MethodGet, "/api/peritagens/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows = nil
	decode(t, w, &rows)
	assert.Empty(t, rows)
}

func TestUpdateItemsStaleRevision(t *testing.T) {
	f := newAPIFixture(t)
	id := f.create(t)["id"].(string)

	w := f.do(t, model.RoleComprador, http.MethodPut, "/api/peritagens/"+id+"/items", map[string]any{
		"header":            map[string]any{"cliente": "Vale", "equipamento": "Motor"},
		"expected_revision": 99,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, model.RoleComprador, http.MethodPut, "/api/peritagens/"+id+"/items", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeletePeritagem(t *testing.T) {
	f := newAPIFixture(t)
	id := f.create(t)["id"].(string)

	w := f.do(t, model.RolePerito, http.MethodDelete, "/api/peritagens/"+id, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, model.RoleGestor, http.MethodDelete, "/api/peritagens/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, model.RoleGestor, http.MethodGet, "/api/peritagens/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportDownload(t *testing.T) {
	f := newAPIFixture(t)
	id := f.create(t)["id"].(string)
	reportPath := "/api/peritagens/" + id + "/report"

	w := f.do(t, model.RoleOrcamentista, http.MethodGet, reportPath, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "not finalized yet")

	w = f.do(t, model.RoleGestor, http.MethodPost, "/api/peritagens/"+id+"/transitions", map[string]any{"action": "finalizar_orcamento"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, model.RoleComprador, http.MethodGet, reportPath+"?variant=orcamentista", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, model.RoleOrcamentista, http.MethodGet, reportPath+"?variant=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, model.RoleOrcamentista, http.MethodGet, reportPath+"?variant=cliente", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, report.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Peritagem_"+id+"_cliente.xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestPagedEnvelope(t *testing.T) {
	r := response.Paged(http.StatusOK, []int{1, 2}, 7, 2, 2)
	assert.Equal(t, "success", r.Status)
	page, ok := r.Data.(response.Page)
	require.True(t, ok)
	assert.EqualValues(t, 7, page.Total)
	assert.Equal(t, 2, page.Page)
}
